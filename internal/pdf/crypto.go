package pdf

import (
	"bufio"
	"bytes"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// PasswordCredentials contains the passwords for a PDF file.
type PasswordCredentials struct {
	UserPassword  string `json:"user_password,omitempty"`
	OwnerPassword string `json:"owner_password,omitempty"`
}

// UserPassword builds credentials from a single password, or nil when it is empty.
func UserPassword(pw string) *PasswordCredentials {
	if pw == "" {
		return nil
	}
	return &PasswordCredentials{UserPassword: pw}
}

// Decrypt removes encryption from data using creds.
func Decrypt(data []byte, creds *PasswordCredentials) ([]byte, error) {
	var out bytes.Buffer
	if err := api.Decrypt(bytes.NewReader(data), &out, newConfiguration(creds)); err != nil {
		if IsPasswordError(err) {
			return nil, fmt.Errorf("%w: %v", ErrEncrypted, err)
		}
		return nil, fmt.Errorf("failed to decrypt PDF: %w", err)
	}
	return out.Bytes(), nil
}

// IsPasswordError checks if an error is related to password/encryption issues.
func IsPasswordError(err error) bool {
	if err == nil {
		return false
	}
	if errors.Is(err, ErrEncrypted) {
		return true
	}

	errStr := strings.ToLower(err.Error())
	passwordKeywords := []string{
		"password",
		"encrypted",
		"decrypt",
		"authentication",
		"unauthorized",
		"invalid credentials",
	}
	for _, keyword := range passwordKeywords {
		if strings.Contains(errStr, keyword) {
			return true
		}
	}
	return false
}

// GetPasswordPrompt returns a formatted password prompt.
func GetPasswordPrompt(filename string) string {
	caser := cases.Title(language.English)
	return fmt.Sprintf("The PDF file %q is password protected. %s: ",
		filename,
		caser.String("please provide the password"))
}

// PromptPassword asks for a user password on w and reads one line from r.
func PromptPassword(r io.Reader, w io.Writer, filename string) (*PasswordCredentials, error) {
	_, _ = fmt.Fprint(w, GetPasswordPrompt(filename))

	line, err := bufio.NewReader(r).ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to read password: %w", err)
	}
	pw := strings.TrimSpace(line)
	if pw == "" {
		return nil, errors.New("no password provided")
	}
	return &PasswordCredentials{UserPassword: pw}, nil
}
