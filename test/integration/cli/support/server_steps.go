package support

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"

	"github.com/MeKo-Tech/retype/internal/pipeline"
	"github.com/MeKo-Tech/retype/internal/server"
	"github.com/MeKo-Tech/retype/internal/testutil"
	"github.com/cucumber/godog"
)

// startServer serves a pipeline without a translator from an httptest server.
func (testCtx *TestContext) startServer(cfg server.Config) error {
	pl, err := pipeline.NewBuilder().Build()
	if err != nil {
		return fmt.Errorf("failed to build pipeline: %w", err)
	}
	if cfg.CORSOrigin == "" {
		cfg.CORSOrigin = "*"
	}
	srv, err := server.NewServer(cfg, pl)
	if err != nil {
		_ = pl.Close()
		return fmt.Errorf("failed to create server: %w", err)
	}

	testCtx.Server = srv
	testCtx.HTTPServer = httptest.NewServer(srv.Handler())
	return nil
}

func (testCtx *TestContext) theServerIsRunning() error {
	return testCtx.startServer(server.Config{})
}

func (testCtx *TestContext) theServerIsRunningWithRequestsPerMinute(n int) error {
	return testCtx.startServer(server.Config{
		RateLimit: server.RateLimitConfig{Enabled: true, RequestsPerMinute: n},
	})
}

func (testCtx *TestContext) theServerIsRunningWithOutputFilename(name string) error {
	return testCtx.startServer(server.Config{OutputFilename: name})
}

func (testCtx *TestContext) do(req *http.Request) error {
	if testCtx.HTTPServer == nil {
		return errors.New("no server is running")
	}
	resp, err := testCtx.HTTPServer.Client().Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer func() { _ = resp.Body.Close() }()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	testCtx.LastHTTPStatusCode = resp.StatusCode
	testCtx.LastHTTPHeaders = resp.Header
	testCtx.LastHTTPResponse = body
	return nil
}

func (testCtx *TestContext) iSendAGETRequestTo(path string) error {
	if testCtx.HTTPServer == nil {
		return errors.New("no server is running")
	}
	req, err := http.NewRequest(http.MethodGet, testCtx.HTTPServer.URL+path, nil)
	if err != nil {
		return err
	}
	return testCtx.do(req)
}

// iUpload posts a fixture file as multipart form data. Extra form fields
// are read from fixture files named in fields ("segments=chapter.json").
func (testCtx *TestContext) iUpload(name string, fields map[string]string) error {
	if testCtx.HTTPServer == nil {
		return errors.New("no server is running")
	}
	data, err := os.ReadFile(testCtx.Path(name))
	if err != nil {
		return fmt.Errorf("failed to read fixture %s: %w", name, err)
	}

	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	part, err := w.CreateFormFile("file", name)
	if err != nil {
		return err
	}
	if _, err := part.Write(data); err != nil {
		return err
	}
	for k, v := range fields {
		if err := w.WriteField(k, v); err != nil {
			return err
		}
	}
	if err := w.Close(); err != nil {
		return err
	}

	req, err := http.NewRequest(http.MethodPost, testCtx.HTTPServer.URL+"/api/translate", &body)
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", w.FormDataContentType())
	return testCtx.do(req)
}

func (testCtx *TestContext) iUploadWithSegments(name, segments string) error {
	raw, err := os.ReadFile(testCtx.Path(segments))
	if err != nil {
		return fmt.Errorf("failed to read segments %s: %w", segments, err)
	}
	return testCtx.iUpload(name, map[string]string{"segments": string(raw)})
}

func (testCtx *TestContext) iUploadWithSegmentsAndPages(name, segments, pages string) error {
	raw, err := os.ReadFile(testCtx.Path(segments))
	if err != nil {
		return fmt.Errorf("failed to read segments %s: %w", segments, err)
	}
	return testCtx.iUpload(name, map[string]string{"segments": string(raw), "pages": pages})
}

func (testCtx *TestContext) iUploadWithoutSegments(name string) error {
	return testCtx.iUpload(name, nil)
}

// iPostALayoutRequest sends the sample segments for n A4 pages to /api/layout.
func (testCtx *TestContext) iPostALayoutRequest(n int) error {
	if testCtx.HTTPServer == nil {
		return errors.New("no server is running")
	}
	payload, err := json.Marshal(server.LayoutRequest{
		Pages:    pageSizes(n),
		Segments: testutil.SampleSegments(),
	})
	if err != nil {
		return err
	}
	req, err := http.NewRequest(http.MethodPost, testCtx.HTTPServer.URL+"/api/layout", bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	return testCtx.do(req)
}

func (testCtx *TestContext) theResponseStatusShouldBe(code int) error {
	if testCtx.LastHTTPStatusCode != code {
		return fmt.Errorf("expected status %d, got %d\nBody: %s", code, testCtx.LastHTTPStatusCode, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldBe(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); got != value {
		return fmt.Errorf("header %s is %q, expected %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseHeaderShouldContain(name, value string) error {
	if got := testCtx.LastHTTPHeaders.Get(name); !strings.Contains(got, value) {
		return fmt.Errorf("header %s is %q, expected it to contain %q", name, got, value)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldContain(text string) error {
	if !bytes.Contains(testCtx.LastHTTPResponse, []byte(text)) {
		return fmt.Errorf("response does not contain '%s'\nBody: %s", text, testCtx.LastHTTPResponse)
	}
	return nil
}

func (testCtx *TestContext) theResponseJSONFieldShouldBe(field, expected string) error {
	v, err := lastJSONValue(testCtx.LastHTTPResponse)
	if err != nil {
		return err
	}
	got, err := lookupField(v, field)
	if err != nil {
		return err
	}
	if s := fmt.Sprint(got); s != expected {
		return fmt.Errorf("field '%s' is %s, expected %s", field, s, expected)
	}
	return nil
}

func (testCtx *TestContext) theResponseShouldBeAPDFWithPages(n int) error {
	if ct := testCtx.LastHTTPHeaders.Get("Content-Type"); ct != "application/pdf" {
		return fmt.Errorf("response content type is %q\nBody: %s", ct, testCtx.LastHTTPResponse)
	}
	return checkPDFPages("response", testCtx.LastHTTPResponse, n)
}

// RegisterServerSteps registers the in-process HTTP server steps.
func (testCtx *TestContext) RegisterServerSteps(sc *godog.ScenarioContext) {
	sc.Step(`^the server is running$`, testCtx.theServerIsRunning)
	sc.Step(`^the server is running with a limit of (\d+) requests? per minute$`,
		testCtx.theServerIsRunningWithRequestsPerMinute)
	sc.Step(`^the server is running with output filename "([^"]*)"$`, testCtx.theServerIsRunningWithOutputFilename)

	sc.Step(`^I send a GET request to "([^"]*)"$`, testCtx.iSendAGETRequestTo)
	sc.Step(`^I upload "([^"]*)" with segments "([^"]*)"$`, testCtx.iUploadWithSegments)
	sc.Step(`^I upload "([^"]*)" with segments "([^"]*)" for pages "([^"]*)"$`, testCtx.iUploadWithSegmentsAndPages)
	sc.Step(`^I upload "([^"]*)" without segments$`, testCtx.iUploadWithoutSegments)
	sc.Step(`^I post the sample segments for (\d+) pages? to the layout endpoint$`, testCtx.iPostALayoutRequest)

	sc.Step(`^the response status should be (\d+)$`, testCtx.theResponseStatusShouldBe)
	sc.Step(`^the response header "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseHeaderShouldBe)
	sc.Step(`^the response header "([^"]*)" should contain "([^"]*)"$`, testCtx.theResponseHeaderShouldContain)
	sc.Step(`^the response should contain "([^"]*)"$`, testCtx.theResponseShouldContain)
	sc.Step(`^the response JSON field "([^"]*)" should be "([^"]*)"$`, testCtx.theResponseJSONFieldShouldBe)
	sc.Step(`^the response should be a PDF with (\d+) pages?$`, testCtx.theResponseShouldBeAPDFWithPages)
}
