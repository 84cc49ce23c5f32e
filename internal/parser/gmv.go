// gmv.go - GMV rule chains for TikTok and Shopee dashboards

package parser

import (
	"regexp"
	"strings"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
)

// ShopeeMinGMV is the floor Shopee fallback rules apply so item counts and
// percentages printed near the label are not taken for sales.
const ShopeeMinGMV = 1000

// MaxValidGMV is the exclusive upper bound of a plausible GMV reading.
const MaxValidGMV = 10_000_000_000

// shopeeScanWindow is how many characters after PENJUALAN are scanned for a bare amount.
const shopeeScanWindow = 50

var (
	reGMVLangsung = regexp.MustCompile(`GMV\s*LANGSUNG[^a-zA-Z]*RP\s*(` + numericToken + `)`)
	reGMVAny      = regexp.MustCompile(`GMV[^a-zA-Z]*RP\s*(` + numericToken + `)`)
	reRupiah      = regexp.MustCompile(`RP\s*(` + numericToken + `)`)

	rePenjualan      = regexp.MustCompile(`PENJUALAN[\s(]*RP[)\s]*(` + numericToken + `)`)
	reTotalPenjualan = regexp.MustCompile(`TOTAL\s*PENJUALAN[\s(]*RP[)\s]*(` + numericToken + `)`)
	reBareNumber     = regexp.MustCompile(numericToken)
)

// positive wraps a single-capture pattern as a rule accepting values above zero.
func positive(re *regexp.Regexp) func(string) (float64, bool) {
	return func(text string) (float64, bool) {
		value := firstAmount(re, text)
		return value, value > 0
	}
}

// tiktokGMVRules is the generic GMV chain; TikTok dashboards use it unchanged.
var tiktokGMVRules = []Rule{
	{Name: "gmv_langsung", Extract: positive(reGMVLangsung)},
	{Name: "gmv_rp", Extract: positive(reGMVAny)},
	{Name: "max_rp", Extract: func(text string) (float64, bool) {
		return maxAmount(reRupiah, text, 0)
	}},
}

var shopeeGMVRules = []Rule{
	{Name: "penjualan_rp", Extract: positive(rePenjualan)},
	{Name: "after_penjualan", Extract: afterPenjualan},
	{Name: "total_penjualan", Extract: positive(reTotalPenjualan)},
	{Name: "produk_terjual_max_rp", Extract: func(text string) (float64, bool) {
		if !strings.Contains(text, "PRODUK TERJUAL") {
			return 0, false
		}
		return maxAmount(reRupiah, text, ShopeeMinGMV)
	}},
	{Name: "penjualan_max_rp", Extract: func(text string) (float64, bool) {
		value, ok := maxAmount(reRupiah, text, ShopeeMinGMV)
		if !ok || !strings.Contains(text, "PENJUALAN") {
			// RP figures without a Shopee label likely belong to another platform.
			return 0, false
		}
		return value, true
	}},
}

// afterPenjualan reads the first bare amount within a short window starting at PENJUALAN.
func afterPenjualan(text string) (float64, bool) {
	idx := strings.Index(text, "PENJUALAN")
	if idx < 0 {
		return 0, false
	}
	window := []rune(text[idx:])
	if len(window) > shopeeScanWindow {
		window = window[:shopeeScanWindow]
	}
	token := reBareNumber.FindString(string(window))
	if token == "" {
		return 0, false
	}
	value := ApplyMultiplier(token)
	return value, value > ShopeeMinGMV
}

// ParseGMV runs the generic GMV chain over text.
func ParseGMV(text string) (float64, bool) {
	return parseGMV(NormalizeText(text), tiktokGMVRules, common.NopSink{}, TikTok)
}

// ParseTikTokGMV extracts the GMV figure of a TikTok Live dashboard.
func ParseTikTokGMV(text string) (float64, bool) {
	return parseGMV(NormalizeText(text), tiktokGMVRules, common.NopSink{}, TikTok)
}

// ParseShopeeGMV extracts the "Penjualan" figure of a Shopee Live dashboard.
func ParseShopeeGMV(text string) (float64, bool) {
	return parseGMV(NormalizeText(text), shopeeGMVRules, common.NopSink{}, Shopee)
}

func parseGMV(normalized string, rules []Rule, sink common.EventSink, platform Platform) (float64, bool) {
	return runChain(normalized, rules, sink, platform)
}

// IsValidGMV reports whether value is a plausible GMV: above zero and below ten billion.
func IsValidGMV(value float64) bool {
	return value > 0 && value < MaxValidGMV
}
