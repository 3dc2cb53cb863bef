package server_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"

	"github.com/pgadvise/pgadvise/internal/config"
	"github.com/pgadvise/pgadvise/internal/model"
	"github.com/pgadvise/pgadvise/internal/server"
	"github.com/pgadvise/pgadvise/test"
)

func newTestServer(t *testing.T) *httptest.Server {
	t.Helper()
	ts := httptest.NewServer(server.New(config.Default().Server))
	t.Cleanup(ts.Close)
	return ts
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatalf("get healthz: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestIndexShowsForm(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatalf("get index: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if resp.Header.Get("X-Request-Id") == "" {
		t.Fatalf("expected a request id header")
	}

	body := readBody(t, resp)
	if !strings.Contains(body, `name="query_plan"`) {
		t.Fatalf("expected the paste form on the index page")
	}
}

func TestAnalyzeForm(t *testing.T) {
	ts := newTestServer(t)

	form := url.Values{}
	form.Set("query_plan", test.LoadSamplePlan(t, "seq_scan.txt"))
	form.Set("query", "SELECT * FROM orders WHERE customer_id = 5")

	resp, err := http.PostForm(ts.URL+"/", form)
	if err != nil {
		t.Fatalf("post form: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	body := readBody(t, resp)
	if !strings.Contains(body, "Sequential scan") {
		t.Fatalf("expected a seq scan finding in the response")
	}
	if !strings.Contains(body, "customer_id") {
		t.Fatalf("expected an index suggestion for customer_id in the response")
	}
}

func TestAnalyzeJSON(t *testing.T) {
	ts := newTestServer(t)

	payload := `{"plan_text": "Seq Scan on orders (cost=0.00..100.00 rows=500)"}`
	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(payload))
	if err != nil {
		t.Fatalf("post json: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decoded struct {
		Findings  []model.Finding `json:"findings"`
		NodeCount int             `json:"node_count"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}

	scanWarnings := 0
	for _, f := range decoded.Findings {
		if f.Category == model.CategoryScanWarning {
			scanWarnings++
		}
	}
	if scanWarnings != 1 {
		t.Fatalf("expected exactly one scan warning, got %d", scanWarnings)
	}
	if decoded.NodeCount != 1 {
		t.Fatalf("expected one plan node, got %d", decoded.NodeCount)
	}
}

func TestAnalyzeJSONEmptyInput(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader(`{}`))
	if err != nil {
		t.Fatalf("post json: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var decoded struct {
		Findings []model.Finding `json:"findings"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
		t.Fatalf("decode response: %v", err)
	}
	if len(decoded.Findings) != 0 {
		t.Fatalf("expected no findings for empty input, got %d", len(decoded.Findings))
	}
}

func TestAnalyzeJSONBadBody(t *testing.T) {
	ts := newTestServer(t)

	resp, err := http.Post(ts.URL+"/api/analyze", "application/json", strings.NewReader("{not json"))
	if err != nil {
		t.Fatalf("post json: %v", err)
	}
	defer func() { _ = resp.Body.Close() }()
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400, got %d", resp.StatusCode)
	}
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("read body: %v", err)
	}
	return string(b)
}
