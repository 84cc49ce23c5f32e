package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func ruleByName(t *testing.T, rules []Rule, name string) Rule {
	t.Helper()
	for _, r := range rules {
		if r.Name == name {
			return r
		}
	}
	require.FailNow(t, "rule not found", name)
	return Rule{}
}

func TestTikTokGMVLangsungWins(t *testing.T) {
	for _, text := range []string{
		"GMV LANGSUNG RP 500.000 GMV TOTAL RP 2.000.000",
		"GMV TOTAL RP 2.000.000 GMV LANGSUNG RP 500.000",
		"TikTok LIVE\nGMV Langsung\nRp500.000\nGMV total Rp 2.000.000",
	} {
		gmv, ok := ParseTikTokGMV(text)
		require.True(t, ok, text)
		assert.Equal(t, 500000.0, gmv, text)
	}
}

func TestTikTokGMVFallbacks(t *testing.T) {
	gmv, ok := ParseTikTokGMV("GMV: Rp 250.000")
	require.True(t, ok)
	assert.Equal(t, 250000.0, gmv)

	gmv, ok = ParseTikTokGMV("Pendapatan Rp 10.000 Komisi Rp 75.000 Diskon Rp 5")
	require.True(t, ok)
	assert.Equal(t, 75000.0, gmv)

	gmv, ok = ParseTikTokGMV("BMV LANGSUNG Rp 1.500.000")
	require.True(t, ok)
	assert.Equal(t, 1500000.0, gmv)

	gmv, ok = ParseTikTokGMV("GMV Rp 12K")
	require.True(t, ok)
	assert.Equal(t, 12000.0, gmv)
}

func TestTikTokGMVNotFound(t *testing.T) {
	gmv, ok := ParseTikTokGMV("TikTok LIVE penonton 120")
	assert.False(t, ok)
	assert.Zero(t, gmv)

	// A zero amount is not a reading.
	gmv, ok = ParseGMV("GMV RP 0")
	assert.False(t, ok)
	assert.Zero(t, gmv)
}

func TestShopeeGMVLabelVariants(t *testing.T) {
	for _, text := range []string{
		"PENJUALAN(RP) 142.350",
		"PENJUALAN RP 142.350",
		"Penjualan (Rp) 142.350",
		"Penjualan\n(Rp)\n142.350",
	} {
		gmv, ok := ParseShopeeGMV(text)
		require.True(t, ok, text)
		assert.Equal(t, 142350.0, gmv, text)
	}
}

func TestShopeeGMVAfterPenjualan(t *testing.T) {
	gmv, ok := ParseShopeeGMV("Shopee Live Penjualan 2.500.000 Pesanan 31")
	require.True(t, ok)
	assert.Equal(t, 2500000.0, gmv)

	rule := ruleByName(t, shopeeGMVRules, "after_penjualan")
	_, ok = rule.Extract(NormalizeText("PENJUALAN 12 PESANAN"))
	assert.False(t, ok, "amounts at or below the floor are ignored")

	_, ok = rule.Extract("PESANAN 5.000")
	assert.False(t, ok)
}

func TestShopeeGMVSmallNumberFallsThrough(t *testing.T) {
	// The window after the label starts with an item count; the RP figure wins.
	gmv, ok := ParseShopeeGMV("PENJUALAN 12 PESANAN RP 50.000")
	require.True(t, ok)
	assert.Equal(t, 50000.0, gmv)
}

func TestShopeeGMVTotalPenjualan(t *testing.T) {
	rule := ruleByName(t, shopeeGMVRules, "total_penjualan")
	gmv, ok := rule.Extract("TOTAL PENJUALAN (RP) 980.000")
	require.True(t, ok)
	assert.Equal(t, 980000.0, gmv)
}

func TestShopeeGMVProdukTerjual(t *testing.T) {
	gmv, ok := ParseShopeeGMV("Produk Terjual 15 Rp 500 Rp 88.000 Rp 120.000")
	require.True(t, ok)
	assert.Equal(t, 120000.0, gmv)
}

func TestShopeeGMVRequiresLabelForBareRupiah(t *testing.T) {
	gmv, ok := ParseShopeeGMV("SHOPEE RP 88.000")
	assert.False(t, ok)
	assert.Zero(t, gmv)

	rule := ruleByName(t, shopeeGMVRules, "penjualan_max_rp")
	gmv, ok = rule.Extract("RP 900 PENJUALAN RP 3.000 RP 7.500")
	require.True(t, ok)
	assert.Equal(t, 7500.0, gmv)
}

func TestRuleOrder(t *testing.T) {
	names := func(rules []Rule) []string {
		out := make([]string, 0, len(rules))
		for _, r := range rules {
			out = append(out, r.Name)
		}
		return out
	}
	assert.Equal(t, []string{"gmv_langsung", "gmv_rp", "max_rp"}, names(tiktokGMVRules))
	assert.Equal(t, []string{
		"penjualan_rp", "after_penjualan", "total_penjualan",
		"produk_terjual_max_rp", "penjualan_max_rp",
	}, names(shopeeGMVRules))
}
