// number.go - Indonesian number normalization

package parser

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	reNonNumeric  = regexp.MustCompile(`[^\d.]`)
	reFloatPrefix = regexp.MustCompile(`^(\d+\.?\d*|\.\d+)`)
)

// CleanNumber reads token with the Indonesian convention: "." groups thousands and
// "," marks decimals. Anything unparseable yields 0.
//
//	CleanNumber("1.234.567,89") == 1234567.89
func CleanNumber(token string) float64 {
	cleaned := strings.ReplaceAll(token, ".", "")
	cleaned = strings.ReplaceAll(cleaned, ",", ".")
	cleaned = reNonNumeric.ReplaceAllString(cleaned, "")

	// OCR noise such as "12,3,4" leaves several points; keep the leading valid number.
	prefix := reFloatPrefix.FindString(cleaned)
	if prefix == "" {
		return 0
	}
	value, err := strconv.ParseFloat(prefix, 64)
	if err != nil {
		return 0
	}
	return value
}

// ApplyMultiplier resolves a trailing "K" (thousand) suffix before cleaning.
func ApplyMultiplier(token string) float64 {
	upper := strings.ToUpper(token)
	if strings.HasSuffix(upper, "K") {
		return CleanNumber(strings.TrimSuffix(upper, "K")) * 1000
	}
	return CleanNumber(upper)
}
