package support

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/MeKo-Tech/retype/internal/layout"
	"github.com/MeKo-Tech/retype/internal/pdf"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/cucumber/godog"
)

func (testCtx *TestContext) writeFixture(name string, data []byte) error {
	path := testCtx.Path(name)
	if err := testutil.EnsureDir(filepath.Dir(path)); err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o600)
}

func pageSizes(n int) []layout.PageSize {
	pages := make([]layout.PageSize, n)
	for i := range pages {
		pages[i] = testutil.A4
	}
	return pages
}

func (testCtx *TestContext) aPDFWithPages(name string, n int) error {
	data, err := testutil.BuildPDF(pageSizes(n)...)
	if err != nil {
		return err
	}
	return testCtx.writeFixture(name, data)
}

func (testCtx *TestContext) anEncryptedPDF(name string, n int, password string) error {
	plain, err := testutil.BuildPDF(pageSizes(n)...)
	if err != nil {
		return err
	}
	data, err := testutil.EncryptPDF(plain, password)
	if err != nil {
		return err
	}
	return testCtx.writeFixture(name, data)
}

func (testCtx *TestContext) theSampleSegmentsIn(name string) error {
	data, err := json.Marshal(testutil.SampleSegments())
	if err != nil {
		return err
	}
	return testCtx.writeFixture(name, data)
}

func (testCtx *TestContext) aFileContaining(name, content string) error {
	return testCtx.writeFixture(name, []byte(content))
}

func (testCtx *TestContext) theFileShouldBeAPDFWithPages(name string, n int) error {
	path := testCtx.Path(name)
	data, err := os.ReadFile(path) //nolint:gosec // G304: test file below the scenario temp dir
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}
	return checkPDFPages(name, data, n)
}

func checkPDFPages(name string, data []byte, n int) error {
	doc, err := pdf.Open(name, data, nil)
	if err != nil {
		return fmt.Errorf("%s is not a readable PDF: %w", name, err)
	}
	if got := doc.PageCount(); got != n {
		return fmt.Errorf("%s has %d pages, expected %d", name, got, n)
	}
	return nil
}

// RegisterPDFSteps registers fixture and PDF assertion steps.
func (testCtx *TestContext) RegisterPDFSteps(sc *godog.ScenarioContext) {
	sc.Step(`^a PDF "([^"]*)" with (\d+) pages?$`, testCtx.aPDFWithPages)
	sc.Step(`^an encrypted PDF "([^"]*)" with (\d+) pages? and password "([^"]*)"$`, testCtx.anEncryptedPDF)
	sc.Step(`^the sample segments in "([^"]*)"$`, testCtx.theSampleSegmentsIn)
	sc.Step(`^a file "([^"]*)" containing "([^"]*)"$`, testCtx.aFileContaining)
	sc.Step(`^the file "([^"]*)" should be a PDF with (\d+) pages?$`, testCtx.theFileShouldBeAPDFWithPages)
}
