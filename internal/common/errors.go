// errors.go - Categorized OCR invocation errors

package common

import (
	"errors"
	"fmt"
	"strings"
)

// ErrorKind classifies a failed OCR attempt.
type ErrorKind string

const (
	KindMissingImageSource      ErrorKind = "missing_image_source"
	KindMissingCredential       ErrorKind = "missing_credential"
	KindEmptyProviderResponse   ErrorKind = "empty_provider_response"
	KindProviderProcessingError ErrorKind = "provider_processing_error"
	KindNoTextDetected          ErrorKind = "no_text_detected"
	KindNetworkOrTimeout        ErrorKind = "network_or_timeout"
	KindProviderUnavailable     ErrorKind = "provider_unavailable"
)

// OCRError is the error returned by OCR providers and the invoker.
type OCRError struct {
	Kind    ErrorKind
	Message string
	Cause   error
}

func (e *OCRError) Error() string {
	return e.Message
}

func (e *OCRError) Unwrap() error {
	return e.Cause
}

// Retryable reports whether another attempt may succeed.
// Messages mentioning "API" point at the credential or authorization and are never retried.
func (e *OCRError) Retryable() bool {
	switch e.Kind {
	case KindMissingImageSource, KindMissingCredential:
		return false
	}
	return !strings.Contains(e.Message, "API")
}

// NewOCRError builds an OCRError with a formatted message.
func NewOCRError(kind ErrorKind, cause error, format string, args ...interface{}) *OCRError {
	return &OCRError{
		Kind:    kind,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// AsOCRError converts any error into an OCRError.
// Plain errors are treated as transport failures, which is what the HTTP client returns.
func AsOCRError(err error) *OCRError {
	if err == nil {
		return nil
	}
	var ocrErr *OCRError
	if errors.As(err, &ocrErr) {
		return ocrErr
	}
	return &OCRError{Kind: KindNetworkOrTimeout, Message: err.Error(), Cause: err}
}

// IsRetryable reports whether err allows another attempt.
func IsRetryable(err error) bool {
	if err == nil {
		return false
	}
	return AsOCRError(err).Retryable()
}
