// envelope.go - Success and failure results of ExtractMetrics

package extraction

import (
	"encoding/json"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/bosocmputer/livecommerce_ocr/internal/parser"
)

// Envelope is the result of one ExtractMetrics call. On failure only Error,
// Kind and the zero GMV are meaningful.
type Envelope struct {
	Success    bool
	Error      string
	Kind       common.ErrorKind
	RawText    *string
	Outcome    parser.Outcome
	Confidence float64

	// Diagnostics, not part of the JSON contract.
	Provider  string
	Cached    bool
	Attempts  int
	RequestID string
}

type successJSON struct {
	Success         bool                     `json:"success"`
	RawText         *string                  `json:"rawText"`
	Platforms       []parser.PlatformReading `json:"platforms"`
	PrimaryPlatform parser.Platform          `json:"primaryPlatform"`
	IsDualPlatform  bool                     `json:"isDualPlatform"`
	Platform        parser.Platform          `json:"platform"`
	ParsedGMV       float64                  `json:"parsedGMV"`
	ParsedDuration  *string                  `json:"parsedDuration"`
	Confidence      float64                  `json:"confidence"`
}

type failureJSON struct {
	Success   bool    `json:"success"`
	Error     string  `json:"error"`
	RawText   *string `json:"rawText"`
	ParsedGMV float64 `json:"parsedGMV"`
}

// MarshalJSON writes the success or failure shape.
func (e Envelope) MarshalJSON() ([]byte, error) {
	if !e.Success {
		return json.Marshal(failureJSON{Error: e.Error})
	}
	platforms := e.Outcome.Platforms
	if platforms == nil {
		platforms = []parser.PlatformReading{}
	}
	return json.Marshal(successJSON{
		Success:         true,
		RawText:         e.RawText,
		Platforms:       platforms,
		PrimaryPlatform: e.Outcome.PrimaryPlatform,
		IsDualPlatform:  e.Outcome.IsDualPlatform,
		Platform:        e.Outcome.Platform,
		ParsedGMV:       e.Outcome.ParsedGMV,
		ParsedDuration:  e.Outcome.ParsedDuration,
		Confidence:      e.Confidence,
	})
}

func failure(err error) Envelope {
	ocrErr := common.AsOCRError(err)
	return Envelope{
		Success: false,
		Error:   ocrErr.Message,
		Kind:    ocrErr.Kind,
	}
}
