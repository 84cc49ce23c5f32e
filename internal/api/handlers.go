// handlers.go - HTTP handlers for screenshot extraction and raw-text parsing.

package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/bosocmputer/livecommerce_ocr/internal/extraction"
	"github.com/bosocmputer/livecommerce_ocr/internal/metrics"
	"github.com/bosocmputer/livecommerce_ocr/internal/parser"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// maxUploadSize caps multipart bodies; dashboard screenshots are a few MB at most.
const maxUploadSize = 20 << 20

// DefaultRequestTimeout bounds one extract-metrics call. It must stay below the
// server WriteTimeout so the failure envelope still reaches the client.
const DefaultRequestTimeout = 150 * time.Second

var allowedExtensions = map[string]bool{
	".jpg":  true,
	".jpeg": true,
	".png":  true,
	".webp": true,
	".gif":  true,
	".bmp":  true,
	".tif":  true,
	".tiff": true,
}

// MetricsExtractor is the part of extraction.Service the handlers need.
type MetricsExtractor interface {
	ExtractMetrics(ctx context.Context, req extraction.Request) extraction.Envelope
}

// ExtractRequest is the JSON body of extract-metrics when no file is uploaded.
type ExtractRequest struct {
	ImageURL string `json:"image_url"`
	Source   string `json:"source"`
}

// ParseTextRequest is the body of parse-text.
type ParseTextRequest struct {
	Text string `json:"text"`
}

// Handler serves the extraction endpoints.
type Handler struct {
	extractor      MetricsExtractor
	uploadDir      string
	requestTimeout time.Duration
}

// HandlerOption configures a Handler.
type HandlerOption func(*Handler)

// WithRequestTimeout replaces DefaultRequestTimeout. d <= 0 keeps the default.
func WithRequestTimeout(d time.Duration) HandlerOption {
	return func(h *Handler) {
		if d > 0 {
			h.requestTimeout = d
		}
	}
}

// NewHandler creates a Handler saving uploads under uploadDir.
func NewHandler(extractor MetricsExtractor, uploadDir string, opts ...HandlerOption) *Handler {
	h := &Handler{
		extractor:      extractor,
		uploadDir:      uploadDir,
		requestTimeout: DefaultRequestTimeout,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the v1 routes on r.
func (h *Handler) Register(r gin.IRouter) {
	v1 := r.Group("/api/v1")
	v1.POST("/extract-metrics", h.ExtractMetrics)
	v1.POST("/parse-text", h.ParseText)
}

// ExtractMetrics handles POST /api/v1/extract-metrics.
// It accepts a multipart "file" field or a JSON body with image_url.
func (h *Handler) ExtractMetrics(c *gin.Context) {
	var req extraction.Request

	if strings.HasPrefix(c.ContentType(), "multipart/") {
		path, err := h.saveUpload(c)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success": false,
				"error":   err.Error(),
			})
			return
		}
		defer os.Remove(path)
		req = extraction.Request{ImagePath: path, Source: c.DefaultPostForm("source", "http")}
	} else {
		var body ExtractRequest
		if err := c.ShouldBindJSON(&body); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{
				"success":  false,
				"error":    "Invalid request format",
				"details":  err.Error(),
				"expected": "multipart file field or JSON with image_url",
			})
			return
		}
		source := body.Source
		if source == "" {
			source = "http"
		}
		req = extraction.Request{ImageURL: strings.TrimSpace(body.ImageURL), Source: source}
	}

	ctx, cancel := context.WithTimeout(c.Request.Context(), h.requestTimeout)
	defer cancel()

	env := h.extractor.ExtractMetrics(ctx, req)
	if env.RequestID != "" {
		c.Header("X-Request-ID", env.RequestID)
	}

	status := statusFor(env)
	if !env.Success && errors.Is(ctx.Err(), context.DeadlineExceeded) {
		common.Logger().Warn("extraction timed out",
			zap.String("request_id", env.RequestID),
			zap.Duration("timeout", h.requestTimeout))
		status = http.StatusRequestTimeout
	}
	c.JSON(status, env)
}

// ParseText handles POST /api/v1/parse-text, interpreting already recognized text.
func (h *Handler) ParseText(c *gin.Context) {
	var body ParseTextRequest
	if err := c.ShouldBindJSON(&body); err != nil || strings.TrimSpace(body.Text) == "" {
		c.JSON(http.StatusBadRequest, gin.H{
			"success":  false,
			"error":    "text is required",
			"expected": "JSON with text",
		})
		return
	}

	outcome := parser.NewExtractor(common.NewZapSink(nil)).Extract(body.Text)
	c.JSON(http.StatusOK, outcome)
}

func (h *Handler) saveUpload(c *gin.Context) (string, error) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, maxUploadSize)

	file, err := c.FormFile("file")
	if err != nil {
		return "", fmt.Errorf("file is required: %w", err)
	}

	ext := strings.ToLower(filepath.Ext(file.Filename))
	if !allowedExtensions[ext] {
		return "", fmt.Errorf("unsupported file type %q", ext)
	}

	if err := os.MkdirAll(h.uploadDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to prepare upload directory: %w", err)
	}
	path := filepath.Join(h.uploadDir, uuid.New().String()+ext)
	if err := c.SaveUploadedFile(file, path); err != nil {
		return "", fmt.Errorf("failed to save upload: %w", err)
	}
	return path, nil
}

// statusFor maps a failed envelope to the HTTP status a caller can act on.
func statusFor(env extraction.Envelope) int {
	if env.Success {
		return http.StatusOK
	}
	switch env.Kind {
	case common.KindMissingImageSource:
		return http.StatusBadRequest
	case common.KindMissingCredential:
		return http.StatusInternalServerError
	case common.KindNetworkOrTimeout, common.KindProviderUnavailable, common.KindEmptyProviderResponse:
		return http.StatusBadGateway
	default:
		return http.StatusUnprocessableEntity
	}
}

// MetricsMiddleware records every request by route template.
func MetricsMiddleware(m *metrics.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		path := c.FullPath()
		if path == "" {
			path = "unmatched"
		}
		m.RecordHTTP(c.Request.Method, path, strconv.Itoa(c.Writer.Status()), time.Since(start))
	}
}

// LoggingMiddleware writes one zap line per request.
func LoggingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		common.Logger().Info("http request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.Request.URL.Path),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)),
			zap.String("client_ip", c.ClientIP()))
	}
}

// CORSMiddleware allows browser calls from allowedOrigins.
func CORSMiddleware(allowedOrigins string) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Writer.Header().Set("Access-Control-Allow-Origin", allowedOrigins)
		c.Writer.Header().Set("Access-Control-Allow-Methods", "POST, GET, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Content-Type, Authorization")
		c.Writer.Header().Set("Access-Control-Max-Age", "86400")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
