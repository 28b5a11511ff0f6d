package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/labstack/echo/v5"
)

func newTestEcho() *echo.Echo {
	e := echo.New()
	NewServer().Register(e)
	return e
}

func doJSON(t *testing.T, e *echo.Echo, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func TestHealthz(t *testing.T) {
	t.Parallel()
	rec := doJSON(t, newTestEcho(), http.MethodGet, "/healthz", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Fatalf("status field = %v", body["status"])
	}
}

func TestFeatures(t *testing.T) {
	t.Parallel()
	rec := doJSON(t, newTestEcho(), http.MethodGet, "/v1/features", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		GoArch string          `json:"go_arch"`
		Flags  map[string]bool `json:"flags"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.GoArch == "" || body.Flags == nil {
		t.Fatalf("incomplete features payload: %s", rec.Body.String())
	}
}

func TestVerifyDefaultSuite(t *testing.T) {
	t.Parallel()
	rec := doJSON(t, newTestEcho(), http.MethodPost, "/v1/verify", `{"seed": 11}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var body struct {
		ID       string `json:"id"`
		Failed   int    `json:"failed"`
		Outcomes []struct {
			Pass bool `json:"pass"`
		} `json:"outcomes"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body.ID == "" || len(body.Outcomes) == 0 {
		t.Fatalf("incomplete report: %s", rec.Body.String())
	}
	if body.Failed != 0 {
		t.Fatalf("builtin suite failed: %s", rec.Body.String())
	}
}

func TestVerifyCustomCase(t *testing.T) {
	t.Parallel()
	body := `{"seed": 5, "cases": [{"name": "tiny", "width": 64, "layers": 2, "gen": "uniform"}]}`
	rec := doJSON(t, newTestEcho(), http.MethodPost, "/v1/verify", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestVerifyRejectsBadCase(t *testing.T) {
	t.Parallel()
	body := `{"cases": [{"name": "bad", "width": 0, "layers": 2}]}`
	rec := doJSON(t, newTestEcho(), http.MethodPost, "/v1/verify", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var errBody struct {
		Error ErrorBody `json:"error"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &errBody); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if errBody.Error.Type != "invalid_request_error" {
		t.Fatalf("error type = %q", errBody.Error.Type)
	}
}

func TestKernelEndpoint(t *testing.T) {
	t.Parallel()
	body := `{
		"policy": "half-fused",
		"residual": [1, 2, 3, 4],
		"x": [0.5, 0.5, 0.5, 0.5]
	}`
	rec := doJSON(t, newTestEcho(), http.MethodPost, "/v1/kernels/add-rmsnorm", body)
	if rec.Code != http.StatusOK {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
	var resp KernelResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(resp.Normed) != 4 || len(resp.Residual) != 4 {
		t.Fatalf("unexpected lengths: %+v", resp)
	}
	if resp.Overflows != 0 {
		t.Fatalf("benign kernel request overflowed: %+v", resp)
	}
	want := []float32{1.5, 2.5, 3.5, 4.5}
	for i, v := range resp.Residual {
		if v != want[i] {
			t.Fatalf("residual[%d]=%v want %v", i, v, want[i])
		}
	}
}

func TestKernelEndpointLengthMismatch(t *testing.T) {
	t.Parallel()
	body := `{"policy": "f32", "residual": [1, 2], "x": [1]}`
	rec := doJSON(t, newTestEcho(), http.MethodPost, "/v1/kernels/add-rmsnorm", body)
	if rec.Code != http.StatusBadRequest {
		t.Fatalf("status=%d body=%s", rec.Code, rec.Body.String())
	}
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	e := echo.New()
	e.Use(RateLimit(1, 1))
	NewServer().Register(e)

	first := doJSON(t, e, http.MethodGet, "/healthz", "")
	if first.Code != http.StatusOK {
		t.Fatalf("first request status=%d", first.Code)
	}
	second := doJSON(t, e, http.MethodGet, "/healthz", "")
	if second.Code != http.StatusTooManyRequests {
		t.Fatalf("second request status=%d, want 429", second.Code)
	}
}
