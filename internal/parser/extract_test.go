package parser

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type recordedEvent struct {
	level  zapcore.Level
	msg    string
	fields []zap.Field
}

type recordingSink struct {
	mu     sync.Mutex
	events []recordedEvent
}

func (s *recordingSink) Event(level zapcore.Level, msg string, fields ...zap.Field) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.events = append(s.events, recordedEvent{level: level, msg: msg, fields: fields})
}

func (s *recordingSink) matchedRules(msg string) []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []string
	for _, e := range s.events {
		if e.msg != msg {
			continue
		}
		for _, f := range e.fields {
			if f.Key == "rule" {
				out = append(out, f.String)
			}
		}
	}
	return out
}

func (s *recordingSink) has(msg string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.events {
		if e.msg == msg {
			return true
		}
	}
	return false
}

func TestExtractDualPlatform(t *testing.T) {
	out := DetectAndParse("TIKTOK\nGMV RP 300.000\nSHOPEE\nPENJUALAN RP 450.000")

	require.Len(t, out.Platforms, 2)
	assert.True(t, out.IsDualPlatform)
	assert.Equal(t, Shopee, out.PrimaryPlatform)
	assert.Equal(t, Shopee, out.Platform)
	assert.Equal(t, 450000.0, out.ParsedGMV)

	assert.Equal(t, Shopee, out.Platforms[0].Platform)
	assert.Equal(t, 450000.0, out.Platforms[0].ParsedGMV)
	assert.Equal(t, TikTok, out.Platforms[1].Platform)
	assert.Equal(t, 300000.0, out.Platforms[1].ParsedGMV)
}

func TestExtractTikTokWithDuration(t *testing.T) {
	out := DetectAndParse("TikTok LIVE\nDurasi: 1 jam 5 menit\nGMV LANGSUNG\nRp 12K")

	require.Len(t, out.Platforms, 1)
	assert.False(t, out.IsDualPlatform)
	assert.Equal(t, TikTok, out.PrimaryPlatform)
	assert.Equal(t, 12000.0, out.ParsedGMV)
	require.NotNil(t, out.ParsedDuration)
	assert.Equal(t, "1 jam 5 menit", *out.ParsedDuration)
}

func TestExtractShopeeClockDuration(t *testing.T) {
	out := DetectAndParse("Shopee Live\nPenjualan (Rp)\n142.350\nPesanan 12\n01:45:30")

	require.Len(t, out.Platforms, 1)
	assert.Equal(t, Shopee, out.PrimaryPlatform)
	assert.Equal(t, 142350.0, out.ParsedGMV)
	require.NotNil(t, out.ParsedDuration)
	assert.Equal(t, "1 jam 45 menit", *out.ParsedDuration)
}

func TestExtractNothingDetected(t *testing.T) {
	out := DetectAndParse("hello world")

	assert.NotNil(t, out.Platforms)
	assert.Empty(t, out.Platforms)
	assert.False(t, out.IsDualPlatform)
	assert.Equal(t, TikTok, out.PrimaryPlatform)
	assert.Equal(t, TikTok, out.Platform)
	assert.Zero(t, out.ParsedGMV)
	assert.Nil(t, out.ParsedDuration)
}

func TestExtractDetectedWithoutGMV(t *testing.T) {
	out := DetectAndParse("SHOPEE PESANAN 12")

	assert.Empty(t, out.Platforms)
	assert.Equal(t, TikTok, out.PrimaryPlatform)
	assert.Zero(t, out.ParsedGMV)
}

func TestExtractTieKeepsTikTokFirst(t *testing.T) {
	out := DetectAndParse("GMV RP 100.000 PENJUALAN RP 100.000")

	require.Len(t, out.Platforms, 2)
	assert.Equal(t, TikTok, out.PrimaryPlatform)
	assert.Equal(t, Shopee, out.Platforms[1].Platform)
}

func TestExtractReportsRuleDecisions(t *testing.T) {
	sink := &recordingSink{}
	NewExtractor(sink).Extract("GMV LANGSUNG RP 500.000 GMV TOTAL RP 2.000.000")

	assert.Equal(t, []string{"gmv_langsung"}, sink.matchedRules("gmv rule matched"))
	assert.True(t, sink.has("no duration rule matched"))
}

func TestDetectPlatforms(t *testing.T) {
	assert.Equal(t, Detection{TikTok: true}, DetectPlatforms("TIKTOK SHOP"))
	assert.Equal(t, Detection{TikTok: true}, DetectPlatforms("LIVE DURASI 2 JAM"))
	assert.Equal(t, Detection{Shopee: true}, DetectPlatforms("PERSENTASE KLIK 4%"))
	assert.Equal(t, Detection{TikTok: true, Shopee: true}, DetectPlatforms("GMV RP 1 PRODUK TERJUAL 3"))
	assert.False(t, DetectPlatforms("LIVE ONLY").Any())
}

func TestExtractorNilSink(t *testing.T) {
	var e Extractor
	out := e.Extract("GMV RP 9.000")
	assert.Equal(t, 9000.0, out.ParsedGMV)
}
