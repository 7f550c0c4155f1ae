package batch

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"
)

// discovery selects the documents of a batch run. Without include patterns a
// file qualifies by its .pdf extension in any case. Directory walks also skip
// hidden entries, the output directory and copies written by an earlier run
// (<stem><suffix>.pdf next to <stem>.pdf), so re-running a batch over its own
// output does not translate translations.
type discovery struct {
	recursive bool
	include   []string
	exclude   []string
	suffix    string
	outputDir string

	seen map[string]bool
}

func newDiscovery(config *Config) *discovery {
	d := &discovery{
		recursive: config.Recursive,
		include:   config.IncludePatterns,
		exclude:   config.ExcludePatterns,
		suffix:    config.Suffix,
		seen:      make(map[string]bool),
	}
	if config.OutputDir != "" {
		d.outputDir = absPath(config.OutputDir)
	}
	return d
}

// discoverPDFFiles resolves args into documents. Explicit file arguments are
// kept in order and only filtered by patterns; directory contents are sorted.
// A file reached twice is returned once.
func (d *discovery) discoverPDFFiles(args []string) ([]string, error) {
	var pdfFiles []string

	for _, arg := range args {
		info, err := os.Stat(arg)
		if err != nil {
			return nil, fmt.Errorf("cannot access %s: %w", arg, err)
		}

		if info.IsDir() {
			files, err := d.discoverInDirectory(arg)
			if err != nil {
				return nil, err
			}
			pdfFiles = append(pdfFiles, files...)
		} else if d.matches(arg) && d.first(arg) {
			pdfFiles = append(pdfFiles, arg)
		}
	}

	return pdfFiles, nil
}

func (d *discovery) discoverInDirectory(dir string) ([]string, error) {
	var files []string

	walkFn := func(path string, entry fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if entry.IsDir() {
			if path == dir {
				return nil
			}
			if !d.recursive || isHidden(path) || d.isOutputDir(path) {
				return filepath.SkipDir
			}
			return nil
		}

		if isHidden(path) || d.isEarlierOutput(path) || !d.matches(path) {
			return nil
		}
		if d.first(path) {
			files = append(files, path)
		}
		return nil
	}

	if err := filepath.WalkDir(dir, walkFn); err != nil {
		return nil, err
	}
	sort.Strings(files)
	return files, nil
}

// matches applies the exclude patterns, then the include patterns or the
// extension check when there are none.
func (d *discovery) matches(path string) bool {
	if matchesAnyPattern(path, d.exclude) {
		return false
	}
	if len(d.include) == 0 {
		return isPDF(path)
	}
	return matchesAnyPattern(path, d.include)
}

// first records path and reports whether it was new.
func (d *discovery) first(path string) bool {
	key := absPath(path)
	if d.seen[key] {
		return false
	}
	d.seen[key] = true
	return true
}

func (d *discovery) isOutputDir(path string) bool {
	return d.outputDir != "" && absPath(path) == d.outputDir
}

// isEarlierOutput reports whether path is the translated copy of a sibling
// document. A name that merely ends in the suffix is kept when no source sits
// beside it.
func (d *discovery) isEarlierOutput(path string) bool {
	if d.suffix == "" || !isPDF(path) {
		return false
	}
	base := filepath.Base(path)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	source, ok := strings.CutSuffix(stem, d.suffix)
	if !ok || source == "" {
		return false
	}
	dir := filepath.Dir(path)
	for _, ext := range []string{filepath.Ext(base), ".pdf", ".PDF"} {
		if _, err := os.Stat(filepath.Join(dir, source+ext)); err == nil {
			return true
		}
	}
	return false
}

func isPDF(path string) bool {
	return strings.EqualFold(filepath.Ext(path), ".pdf")
}

// isHidden covers dot files such as the ._name.pdf forks macOS leaves on
// shared drives.
func isHidden(path string) bool {
	base := filepath.Base(path)
	return len(base) > 1 && strings.HasPrefix(base, ".")
}

func absPath(path string) string {
	if abs, err := filepath.Abs(path); err == nil {
		return abs
	}
	return filepath.Clean(path)
}

// matchesAnyPattern checks if a file's base name matches any of the given patterns.
func matchesAnyPattern(path string, patterns []string) bool {
	base := filepath.Base(path)
	for _, pattern := range patterns {
		if matched, _ := filepath.Match(pattern, base); matched {
			return true
		}
	}
	return false
}
