// rules.go - Ordered rule chains

package parser

import (
	"regexp"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// numericToken is the shape of every amount the GMV rules capture:
// digits, full stops, commas and an optional K suffix.
const numericToken = `[\d.,K]+`

// Rule is one step of a GMV chain. Extract reports ok only for an accepted value.
type Rule struct {
	Name    string
	Extract func(text string) (float64, bool)
}

// DurationRule is one step of a duration chain.
type DurationRule struct {
	Name    string
	Extract func(text string) (string, bool)
}

// runChain evaluates rules in order and returns the first accepted value.
func runChain(text string, rules []Rule, sink common.EventSink, platform Platform) (float64, bool) {
	for _, rule := range rules {
		if value, ok := rule.Extract(text); ok {
			sink.Event(zapcore.DebugLevel, "gmv rule matched",
				zap.String("platform", string(platform)),
				zap.String("rule", rule.Name),
				zap.Float64("gmv", value))
			return value, true
		}
	}
	sink.Event(zapcore.DebugLevel, "no gmv rule matched", zap.String("platform", string(platform)))
	return 0, false
}

// runDurationChain evaluates duration rules in order and returns the first match.
func runDurationChain(text string, rules []DurationRule, sink common.EventSink, platform Platform) (string, bool) {
	for _, rule := range rules {
		if duration, ok := rule.Extract(text); ok {
			sink.Event(zapcore.DebugLevel, "duration rule matched",
				zap.String("platform", string(platform)),
				zap.String("rule", rule.Name),
				zap.String("duration", duration))
			return duration, true
		}
	}
	sink.Event(zapcore.DebugLevel, "no duration rule matched", zap.String("platform", string(platform)))
	return "", false
}

// firstAmount applies the multiplier to the first capture of re.
func firstAmount(re *regexp.Regexp, text string) float64 {
	m := re.FindStringSubmatch(text)
	if len(m) < 2 {
		return 0
	}
	return ApplyMultiplier(m[1])
}

// maxAmount returns the largest capture of re strictly above floor.
func maxAmount(re *regexp.Regexp, text string, floor float64) (float64, bool) {
	best, found := 0.0, false
	for _, m := range re.FindAllStringSubmatch(text, -1) {
		value := ApplyMultiplier(m[1])
		if value > floor && (!found || value > best) {
			best, found = value, true
		}
	}
	return best, found
}
