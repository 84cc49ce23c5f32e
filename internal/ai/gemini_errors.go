// gemini_errors.go - Gemini error categorization

package ai

import (
	"context"
	"errors"
	"strings"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"google.golang.org/api/googleapi"
)

// categorizeGeminiError maps a Gemini failure onto an OCRError kind.
// Messages for failures that must not be retried mention "API".
func categorizeGeminiError(err error) *common.OCRError {
	if err == nil {
		return nil
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch {
		case apiErr.Code == 401 || apiErr.Code == 403:
			return common.NewOCRError(common.KindMissingCredential, err,
				"Gemini API key rejected (status %d)", apiErr.Code)
		case apiErr.Code == 400 || apiErr.Code == 404 || apiErr.Code == 413:
			return common.NewOCRError(common.KindProviderProcessingError, err,
				"Gemini API rejected the request (status %d): %s", apiErr.Code, apiErr.Message)
		case apiErr.Code == 429:
			return common.NewOCRError(common.KindProviderUnavailable, err, "Gemini rate limit exceeded")
		case apiErr.Code >= 500:
			return common.NewOCRError(common.KindProviderUnavailable, err,
				"Gemini server error (status %d)", apiErr.Code)
		default:
			return common.NewOCRError(common.KindProviderProcessingError, err,
				"Gemini API error (status %d): %s", apiErr.Code, apiErr.Message)
		}
	}

	if errors.Is(err, context.DeadlineExceeded) {
		return common.NewOCRError(common.KindNetworkOrTimeout, err, "Request timeout")
	}
	if errors.Is(err, context.Canceled) {
		return common.NewOCRError(common.KindNetworkOrTimeout, err, "Request was canceled")
	}

	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "quota"):
		return common.NewOCRError(common.KindProviderUnavailable, err, "Gemini API quota exceeded")
	case strings.Contains(msg, "timeout") || strings.Contains(msg, "deadline"):
		return common.NewOCRError(common.KindNetworkOrTimeout, err, "Request timeout")
	case strings.Contains(msg, "connection") || strings.Contains(msg, "network"):
		return common.NewOCRError(common.KindNetworkOrTimeout, err, "Network connection error")
	}
	return common.NewOCRError(common.KindProviderProcessingError, err, "%s", err.Error())
}
