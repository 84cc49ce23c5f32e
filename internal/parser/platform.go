// platform.go - Live-commerce platform detection

package parser

import "strings"

// Platform names a live-commerce platform.
type Platform string

const (
	TikTok Platform = "TIKTOK"
	Shopee Platform = "SHOPEE"
)

// Detection holds the independent platform indicators found in one OCR reading.
// Both can be true for composite screenshots.
type Detection struct {
	TikTok bool
	Shopee bool
}

// Any reports whether at least one platform was indicated.
func (d Detection) Any() bool {
	return d.TikTok || d.Shopee
}

var shopeeKeywords = []string{
	"SHOPEE",
	"PENJUALAN",
	"PRODUK TERJUAL",
	"PERSENTASE KLIK",
	"PESANAN",
}

// DetectPlatforms scores already normalized text for TikTok and Shopee indicators.
func DetectPlatforms(text string) Detection {
	d := Detection{
		TikTok: strings.Contains(text, "TIKTOK") ||
			strings.Contains(text, "GMV") ||
			(strings.Contains(text, "LIVE") && strings.Contains(text, "DURASI")),
	}
	for _, kw := range shopeeKeywords {
		if strings.Contains(text, kw) {
			d.Shopee = true
			break
		}
	}
	return d
}
