// factory.go - OCR Provider Factory for creating provider instances

package ai

import (
	"fmt"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"go.uber.org/zap"
)

// NewProvider creates the named provider from cfg.
func NewProvider(name string, cfg OCRProviderConfig) (OCRProvider, error) {
	switch name {
	case ProviderOCRSpace, "":
		return NewOCRSpaceProvider(cfg.OCRSpaceAPIKey, cfg.OCRSpaceEndpoint, cfg.Timeout), nil
	case ProviderGemini:
		return NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout, nil), nil
	default:
		return nil, fmt.Errorf("unsupported OCR provider: %s (supported: ocrspace, gemini)", name)
	}
}

// CreateOCRProvider creates the primary OCR provider selected by cfg.Provider
func CreateOCRProvider(cfg OCRProviderConfig) (OCRProvider, error) {
	provider, err := NewProvider(cfg.Provider, cfg)
	if err != nil {
		return nil, err
	}
	common.Logger().Info("OCR provider created", zap.String("provider", provider.Name()))
	return provider, nil
}

// CreateOCRProviderWithFallback creates the primary provider plus, when the other
// provider has a credential configured, a fallback. fallback is nil otherwise.
func CreateOCRProviderWithFallback(cfg OCRProviderConfig) (primary OCRProvider, fallback OCRProvider, err error) {
	primary, err = CreateOCRProvider(cfg)
	if err != nil {
		return nil, nil, err
	}

	switch primary.Name() {
	case ProviderOCRSpace:
		if cfg.GeminiAPIKey != "" {
			fallback = NewGeminiProvider(cfg.GeminiAPIKey, cfg.GeminiModel, cfg.Timeout, nil)
		}
	case ProviderGemini:
		if cfg.OCRSpaceAPIKey != "" {
			fallback = NewOCRSpaceProvider(cfg.OCRSpaceAPIKey, cfg.OCRSpaceEndpoint, cfg.Timeout)
		}
	}
	if fallback != nil {
		common.Logger().Info("fallback OCR provider configured", zap.String("provider", fallback.Name()))
	}

	return primary, fallback, nil
}
