// interface.go - OCR Provider Interface for supporting multiple OCR services

package ai

import (
	"context"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
)

// Provider names accepted by OCR_PROVIDER.
const (
	ProviderOCRSpace = "ocrspace"
	ProviderGemini   = "gemini"
)

// OCRProvider defines the interface that all OCR providers must implement.
// Providers make exactly one attempt per call; retries belong to the caller.
type OCRProvider interface {
	// Recognize reads the text of img. Failures are *common.OCRError values.
	Recognize(ctx context.Context, img Image) (*Reading, error)

	// Name returns the name of the provider (e.g., "ocrspace", "gemini")
	Name() string
}

// Image is one screenshot handed to a provider: either a remote URL or local content.
type Image struct {
	URL      string
	FileName string
	Data     []byte
	MIMEType string
}

// IsRemote reports whether the provider should fetch the image itself.
func (img Image) IsRemote() bool {
	return img.URL != ""
}

// Reading is the raw text a provider recognized.
type Reading struct {
	RawText string
	// Confidence is the provider's orientation or confidence score, 0 when absent.
	Confidence float64
	ExitCode   int
	Provider   string
	Tokens     *common.TokenUsage
}

// OCRProviderConfig contains configuration for OCR providers
type OCRProviderConfig struct {
	// Provider name: "ocrspace" or "gemini"
	Provider string
	Timeout  time.Duration

	// OCR.space configuration
	OCRSpaceAPIKey   string
	OCRSpaceEndpoint string

	// Gemini configuration
	GeminiAPIKey string
	GeminiModel  string
}
