package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"os"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/ai"
	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/bosocmputer/livecommerce_ocr/internal/extraction"
	"github.com/bosocmputer/livecommerce_ocr/internal/metrics"
	"github.com/bosocmputer/livecommerce_ocr/internal/parser"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeExtractor struct {
	mu       sync.Mutex
	requests []extraction.Request
	uploaded []byte
	env      extraction.Envelope
}

func (f *fakeExtractor) ExtractMetrics(_ context.Context, req extraction.Request) extraction.Envelope {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.requests = append(f.requests, req)
	if req.ImagePath != "" {
		f.uploaded, _ = os.ReadFile(req.ImagePath)
	}
	return f.env
}

func successEnvelope() extraction.Envelope {
	raw := "GMV Rp1.000.000"
	return extraction.Envelope{
		Success:   true,
		RawText:   &raw,
		Outcome:   parser.DetectAndParse(raw),
		RequestID: "req-1",
	}
}

func newRouter(h *Handler, m *metrics.Metrics) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(MetricsMiddleware(m))
	h.Register(r)
	return r
}

func TestExtractMetricsWithImageURL(t *testing.T) {
	fake := &fakeExtractor{env: successEnvelope()}
	r := newRouter(NewHandler(fake, t.TempDir()), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract-metrics",
		strings.NewReader(`{"image_url":" https://example.com/live.png "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "req-1", w.Header().Get("X-Request-ID"))
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "https://example.com/live.png", fake.requests[0].ImageURL)
	assert.Equal(t, "http", fake.requests[0].Source)

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, true, body["success"])
	assert.Equal(t, 1000000.0, body["parsedGMV"])
	assert.Equal(t, "TIKTOK", body["primaryPlatform"])
}

func TestExtractMetricsWithUpload(t *testing.T) {
	fake := &fakeExtractor{env: successEnvelope()}
	dir := t.TempDir()
	r := newRouter(NewHandler(fake, dir), nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "dashboard.PNG")
	require.NoError(t, err)
	_, err = fw.Write([]byte("png bytes"))
	require.NoError(t, err)
	require.NoError(t, mw.WriteField("source", "telegram"))
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract-metrics", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	require.Len(t, fake.requests, 1)
	assert.Equal(t, "telegram", fake.requests[0].Source)
	assert.True(t, strings.HasSuffix(fake.requests[0].ImagePath, ".png"))
	assert.Equal(t, []byte("png bytes"), fake.uploaded)

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	assert.Empty(t, entries, "upload should be removed after extraction")
}

func TestExtractMetricsRejectsUnsupportedUpload(t *testing.T) {
	fake := &fakeExtractor{env: successEnvelope()}
	r := newRouter(NewHandler(fake, t.TempDir()), nil)

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", "notes.txt")
	require.NoError(t, err)
	_, err = fw.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, mw.Close())

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract-metrics", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fake.requests)
}

func TestExtractMetricsInvalidJSON(t *testing.T) {
	fake := &fakeExtractor{env: successEnvelope()}
	r := newRouter(NewHandler(fake, t.TempDir()), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract-metrics", strings.NewReader(`{`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, fake.requests)
}

func TestExtractMetricsFailureEnvelope(t *testing.T) {
	fake := &fakeExtractor{env: extraction.Envelope{
		Error: "No text detected in image",
		Kind:  common.KindNoTextDetected,
	}}
	reg := prometheus.NewRegistry()
	m := metrics.New(reg)
	r := newRouter(NewHandler(fake, t.TempDir()), m)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract-metrics",
		strings.NewReader(`{"image_url":"https://example.com/blank.png"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"success":false,"error":"No text detected in image","rawText":null,"parsedGMV":0}`, w.Body.String())
	assert.Equal(t, 1.0, testutil.ToFloat64(
		m.HTTPRequests.WithLabelValues(http.MethodPost, "/api/v1/extract-metrics", "422")))
}

func TestStatusFor(t *testing.T) {
	assert.Equal(t, http.StatusOK, statusFor(extraction.Envelope{Success: true}))
	assert.Equal(t, http.StatusBadRequest, statusFor(extraction.Envelope{Kind: common.KindMissingImageSource}))
	assert.Equal(t, http.StatusInternalServerError, statusFor(extraction.Envelope{Kind: common.KindMissingCredential}))
	assert.Equal(t, http.StatusBadGateway, statusFor(extraction.Envelope{Kind: common.KindNetworkOrTimeout}))
	assert.Equal(t, http.StatusUnprocessableEntity, statusFor(extraction.Envelope{Kind: common.KindProviderProcessingError}))
}

func TestParseText(t *testing.T) {
	r := newRouter(NewHandler(&fakeExtractor{}, t.TempDir()), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse-text",
		strings.NewReader(`{"text":"Shopee Penjualan Rp4.200.000"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	require.Equal(t, http.StatusOK, w.Code)
	var outcome parser.Outcome
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &outcome))
	assert.Equal(t, parser.Shopee, outcome.PrimaryPlatform)
	assert.Equal(t, 4200000.0, outcome.ParsedGMV)
	require.Len(t, outcome.Platforms, 1)
}

func TestParseTextRequiresText(t *testing.T) {
	r := newRouter(NewHandler(&fakeExtractor{}, t.TempDir()), nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/parse-text", strings.NewReader(`{"text":"  "}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestCORSPreflight(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORSMiddleware("https://dash.example.com"))
	NewHandler(&fakeExtractor{}, t.TempDir()).Register(r)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/api/v1/extract-metrics", nil)
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "https://dash.example.com", w.Header().Get("Access-Control-Allow-Origin"))
}

// stalledProvider never answers before its context ends.
type stalledProvider struct{}

func (stalledProvider) Recognize(ctx context.Context, _ ai.Image) (*ai.Reading, error) {
	select {
	case <-ctx.Done():
		return nil, common.NewOCRError(common.KindNetworkOrTimeout, ctx.Err(), "%s", ctx.Err().Error())
	case <-time.After(10 * time.Second):
		return nil, common.NewOCRError(common.KindNetworkOrTimeout, nil, "provider did not stall")
	}
}

func (stalledProvider) Name() string { return "stalled" }

func TestExtractMetricsRequestTimeoutReturnsEnvelope(t *testing.T) {
	svc := extraction.NewService(stalledProvider{}, extraction.DefaultConfig())
	h := NewHandler(svc, t.TempDir(), WithRequestTimeout(50*time.Millisecond))
	r := newRouter(h, nil)

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/extract-metrics",
		strings.NewReader(`{"image_url":"https://example.com/slow.png"}`))
	req.Header.Set("Content-Type", "application/json")

	start := time.Now()
	r.ServeHTTP(w, req)

	assert.Less(t, time.Since(start), 5*time.Second)
	assert.Equal(t, http.StatusRequestTimeout, w.Code)
	assert.NotEmpty(t, w.Header().Get("X-Request-ID"))

	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	assert.Equal(t, false, body["success"])
	assert.Contains(t, body["error"], "deadline exceeded")
	assert.Nil(t, body["rawText"])
	assert.Equal(t, 0.0, body["parsedGMV"])
}

func TestWithRequestTimeoutKeepsDefault(t *testing.T) {
	h := NewHandler(&fakeExtractor{}, t.TempDir(), WithRequestTimeout(0))
	assert.Equal(t, DefaultRequestTimeout, h.requestTimeout)
}
