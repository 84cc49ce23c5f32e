// extract.go - Multi-platform extraction

package parser

import (
	"sort"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// PlatformReading is the figure set read for one platform out of one OCR text.
type PlatformReading struct {
	Platform       Platform `json:"platform"`
	ParsedGMV      float64  `json:"parsedGMV"`
	ParsedDuration *string  `json:"parsedDuration"`
}

// Outcome is the interpretation of one OCR text. Platforms is sorted by GMV,
// highest first. Platform, ParsedGMV and ParsedDuration mirror the first
// reading for callers that predate dual-platform screenshots.
type Outcome struct {
	Platforms       []PlatformReading `json:"platforms"`
	PrimaryPlatform Platform          `json:"primaryPlatform"`
	IsDualPlatform  bool              `json:"isDualPlatform"`
	Platform        Platform          `json:"platform"`
	ParsedGMV       float64           `json:"parsedGMV"`
	ParsedDuration  *string           `json:"parsedDuration"`
}

// Extractor turns raw OCR text into an Outcome. It holds no per-call state and
// is safe for concurrent use.
type Extractor struct {
	Sink common.EventSink
}

// NewExtractor returns an Extractor reporting rule decisions to sink.
// A nil sink discards events.
func NewExtractor(sink common.EventSink) *Extractor {
	if sink == nil {
		sink = common.NopSink{}
	}
	return &Extractor{Sink: sink}
}

// DetectAndParse interprets rawText without event reporting.
func DetectAndParse(rawText string) Outcome {
	return NewExtractor(nil).Extract(rawText)
}

// Extract normalizes rawText, detects platforms and reads GMV and duration for
// each. Only platforms with a GMV above zero produce a reading.
func (e *Extractor) Extract(rawText string) Outcome {
	sink := e.sink()
	text := NormalizeText(rawText)
	detected := DetectPlatforms(text)

	sink.Event(zapcore.DebugLevel, "platforms detected",
		zap.Int("text_length", len(rawText)),
		zap.Bool("tiktok", detected.TikTok),
		zap.Bool("shopee", detected.Shopee))

	readings := make([]PlatformReading, 0, 2)
	if detected.TikTok {
		if gmv, ok := parseGMV(text, tiktokGMVRules, sink, TikTok); ok {
			duration, found := tiktokDuration(text, sink)
			readings = append(readings, newReading(TikTok, gmv, duration, found))
		}
	}
	if detected.Shopee {
		if gmv, ok := parseGMV(text, shopeeGMVRules, sink, Shopee); ok {
			duration, found := shopeeDuration(text, sink)
			readings = append(readings, newReading(Shopee, gmv, duration, found))
		}
	}

	// Stable keeps TikTok ahead of Shopee on equal GMV.
	sort.SliceStable(readings, func(i, j int) bool {
		return readings[i].ParsedGMV > readings[j].ParsedGMV
	})

	out := Outcome{
		Platforms:       readings,
		PrimaryPlatform: TikTok,
		IsDualPlatform:  len(readings) > 1,
	}
	if len(readings) > 0 {
		first := readings[0]
		out.PrimaryPlatform = first.Platform
		out.ParsedGMV = first.ParsedGMV
		out.ParsedDuration = first.ParsedDuration
	}
	out.Platform = out.PrimaryPlatform

	sink.Event(zapcore.InfoLevel, "extraction complete",
		zap.Int("platforms", len(readings)),
		zap.String("primary", string(out.PrimaryPlatform)),
		zap.Float64("gmv", out.ParsedGMV))
	return out
}

func (e *Extractor) sink() common.EventSink {
	if e == nil || e.Sink == nil {
		return common.NopSink{}
	}
	return e.Sink
}

func newReading(platform Platform, gmv float64, duration string, found bool) PlatformReading {
	r := PlatformReading{Platform: platform, ParsedGMV: gmv}
	if found {
		r.ParsedDuration = &duration
	}
	return r
}
