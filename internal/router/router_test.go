package router_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"regexp"
	"strings"
	"testing"
	"time"

	"rxguardian/internal/analysis"
	"rxguardian/internal/api"
	"rxguardian/internal/llm"
	"rxguardian/internal/ratelimit"
	"rxguardian/internal/report"
	"rxguardian/internal/router"
	"rxguardian/pkg/models"
)

const paracetamolReply = "```json\n[{\"medication_name\": \"Paracetamol\", \"prescribed_dose\": \"500mg\", \"frequency\": \"TDS\", \"overdose\": false, \"reasoning\": \"Within limits.\", \"prescribed_cost\": \"20\", \"recommended_dose\": \"500mg-1g every 6 hours\", \"cheaper_alternatives\": [{\"name\": \"Calpol (GSK)\", \"cost\": \"15\", \"availability\": \"Widely available in India\"}]}]\n```"

type failingRenderer struct{}

func (failingRenderer) Render(io.Writer, []models.MedicationRecord) error {
	return errors.New("font missing")
}

type fakeReader struct {
	text string
	err  error
}

func (f fakeReader) ReadText(context.Context, io.Reader) (string, error) {
	return f.text, f.err
}

func newServer(t *testing.T, perMinute int, mutate func(*api.Deps)) *httptest.Server {
	t.Helper()

	limiter := ratelimit.New(perMinute, 1000)
	completer := llm.CompleterFunc(func(context.Context, string) (string, error) {
		return paracetamolReply, nil
	})
	deps := api.Deps{
		Analyzer: analysis.NewService(completer, limiter, analysis.Config{Timeout: time.Second}),
		Renderer: report.NewRenderer(report.Options{}),
		Limiter:  limiter,
	}
	if mutate != nil {
		mutate(&deps)
	}

	ts := httptest.NewServer(router.NewRouter(router.Options{API: deps}))
	t.Cleanup(ts.Close)
	return ts
}

func TestHTTP_Health(t *testing.T) {
	ts := newServer(t, 5, nil)

	st, body := doReq(t, ts.URL, "GET", "/health", nil)
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d", st)
	}
	var resp struct {
		Status    string          `json:"status"`
		RateLimit ratelimit.Stats `json:"rate_limit"`
	}
	mustDecode(t, body, &resp)
	if resp.Status != "ok" || resp.RateLimit.PerMinute != 5 {
		t.Errorf("unexpected health %s", body)
	}
}

func TestHTTP_AnalyzeValidation(t *testing.T) {
	ts := newServer(t, 5, nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"empty body", "", "No JSON data received"},
		{"invalid json", "{oops", "No JSON data received"},
		{"empty object", "{}", "No JSON data received"},
		{"array body", `["x"]`, "No JSON data received"},
		{"missing prescription", `{"text": "x"}`, "No prescription text provided"},
		{"blank prescription", `{"prescription": "   "}`, "No prescription text provided"},
		{"non-string prescription", `{"prescription": 42}`, "No prescription text provided"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, body := doRaw(t, ts.URL, "POST", "/analyze", "application/json", strings.NewReader(tt.body))
			if st != http.StatusBadRequest {
				t.Fatalf("expected 400, got %d body=%s", st, body)
			}
			assertError(t, body, tt.want)
		})
	}
}

func TestHTTP_AnalyzeThenDownload(t *testing.T) {
	ts := newServer(t, 5, nil)

	st, body := doReq(t, ts.URL, "POST", "/analyze", map[string]any{"prescription": "Tab Paracetamol 500mg TDS"})
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", st, body)
	}

	var resp struct {
		Analysis []map[string]any `json:"analysis"`
	}
	mustDecode(t, body, &resp)
	if len(resp.Analysis) != 1 || resp.Analysis[0]["medication_name"] != "Paracetamol" {
		t.Fatalf("unexpected analysis %s", body)
	}
	for _, key := range models.RecordKeys {
		if _, ok := resp.Analysis[0][key]; !ok {
			t.Errorf("key %q missing from analysis", key)
		}
	}

	req, _ := http.NewRequest("POST", ts.URL+"/download", bytes.NewReader(mustJSON(t, map[string]any{"analysis": resp.Analysis})))
	req.Header.Set("Content-Type", "application/json")
	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("download: %v", err)
	}
	defer res.Body.Close()
	pdf, _ := io.ReadAll(res.Body)

	if res.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 download, got %d body=%s", res.StatusCode, pdf)
	}
	if ct := res.Header.Get("Content-Type"); ct != "application/pdf" {
		t.Errorf("content type = %q", ct)
	}
	disposition := regexp.MustCompile(`^attachment; filename="prescription_analysis_\d{8}_\d{6}\.pdf"$`)
	if cd := res.Header.Get("Content-Disposition"); !disposition.MatchString(cd) {
		t.Errorf("content disposition = %q", cd)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF-")) {
		t.Error("download is not a PDF")
	}
}

func TestHTTP_AnalyzeRateLimited(t *testing.T) {
	ts := newServer(t, 1, nil)

	doReq(t, ts.URL, "POST", "/analyze", map[string]any{"prescription": "Aspirin 75mg"})
	st, body := doReq(t, ts.URL, "POST", "/analyze", map[string]any{"prescription": "Aspirin 75mg"})
	if st != http.StatusOK {
		t.Fatalf("rate limiting is reported in the analysis, got status %d", st)
	}

	var resp struct {
		Analysis []models.MedicationRecord `json:"analysis"`
	}
	mustDecode(t, body, &resp)
	if len(resp.Analysis) != 1 || resp.Analysis[0].MedicationName != "Rate Limit" {
		t.Fatalf("unexpected analysis %s", body)
	}
	if !strings.HasPrefix(resp.Analysis[0].Reasoning, "Rate limit exceeded: ") {
		t.Errorf("reasoning = %q", resp.Analysis[0].Reasoning)
	}
}

func TestHTTP_DownloadErrors(t *testing.T) {
	ts := newServer(t, 5, nil)

	for _, body := range []any{map[string]any{}, map[string]any{"analysis": []any{}}, map[string]any{"analysis": "x"}} {
		st, resp := doReq(t, ts.URL, "POST", "/download", body)
		if st != http.StatusBadRequest {
			t.Fatalf("expected 400 for %v, got %d", body, st)
		}
		assertError(t, resp, "No analysis data provided")
	}

	broken := newServer(t, 5, func(d *api.Deps) { d.Renderer = failingRenderer{} })
	st, resp := doReq(t, broken.URL, "POST", "/download", map[string]any{
		"analysis": []any{map[string]any{"medication_name": "Aspirin"}},
	})
	if st != http.StatusInternalServerError {
		t.Fatalf("expected 500, got %d", st)
	}
	assertError(t, resp, "Error generating PDF: font missing")
}

func TestHTTP_Upload(t *testing.T) {
	plain := newServer(t, 5, nil)
	if st, _ := doUpload(t, plain.URL, "rx.png", []byte("png")); st != http.StatusNotFound {
		t.Fatalf("upload without OCR should not be routed, got %d", st)
	}

	ts := newServer(t, 5, func(d *api.Deps) { d.Reader = fakeReader{text: "Tab Paracetamol 500mg TDS\n"} })
	st, body := doUpload(t, ts.URL, "rx.png", []byte("png"))
	if st != http.StatusOK {
		t.Fatalf("expected 200, got %d body=%s", st, body)
	}
	var resp struct {
		Analysis   []models.MedicationRecord `json:"analysis"`
		SourceText string                    `json:"source_text"`
	}
	mustDecode(t, body, &resp)
	if resp.SourceText == "" || len(resp.Analysis) != 1 || resp.Analysis[0].MedicationName != "Paracetamol" {
		t.Errorf("unexpected upload response %s", body)
	}

	st, body = doRaw(t, ts.URL, "POST", "/analyze/upload", "application/json", strings.NewReader("{}"))
	if st != http.StatusBadRequest {
		t.Fatalf("expected 400 without file, got %d", st)
	}
	assertError(t, body, "No prescription file provided")

	failing := newServer(t, 5, func(d *api.Deps) { d.Reader = fakeReader{err: errors.New("document contains no readable text")} })
	st, body = doUpload(t, failing.URL, "rx.png", []byte("png"))
	if st != http.StatusUnprocessableEntity {
		t.Fatalf("expected 422, got %d", st)
	}
	assertError(t, body, "Could not read prescription: document contains no readable text")
}

func doUpload(t *testing.T, baseURL, filename string, content []byte) (int, []byte) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", filename)
	if err != nil {
		t.Fatalf("create form file: %v", err)
	}
	_, _ = fw.Write(content)
	_ = mw.Close()

	return doRaw(t, baseURL, "POST", "/analyze/upload", mw.FormDataContentType(), &buf)
}

func doReq(t *testing.T, baseURL, method, path string, body any) (int, []byte) {
	t.Helper()

	var rdr io.Reader
	if body != nil {
		rdr = bytes.NewReader(mustJSON(t, body))
	}
	return doRaw(t, baseURL, method, path, "application/json", rdr)
}

func doRaw(t *testing.T, baseURL, method, path, contentType string, body io.Reader) (int, []byte) {
	t.Helper()

	req, err := http.NewRequest(method, baseURL+path, body)
	if err != nil {
		t.Fatalf("new request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	res, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do request: %v", err)
	}
	defer res.Body.Close()

	b, _ := io.ReadAll(res.Body)
	return res.StatusCode, b
}

func mustJSON(t *testing.T, v any) []byte {
	t.Helper()
	b, err := json.Marshal(v)
	if err != nil {
		t.Fatalf("json marshal: %v", err)
	}
	return b
}

func mustDecode(t *testing.T, body []byte, v any) {
	t.Helper()
	if err := json.Unmarshal(body, v); err != nil {
		t.Fatalf("json unmarshal: %v body=%s", err, body)
	}
}

func assertError(t *testing.T, body []byte, want string) {
	t.Helper()
	var resp struct {
		Error string `json:"error"`
	}
	mustDecode(t, body, &resp)
	if resp.Error != want {
		t.Errorf("error = %q, want %q", resp.Error, want)
	}
}
