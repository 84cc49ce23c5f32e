// duration.go - Live session duration chains

package parser

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
)

// maxBareHours caps the hours-only fallback; anything above is not a session length.
const maxBareHours = 24

var (
	reDurasiJam   = regexp.MustCompile(`(?i)Durasi[:\s]*(\d+)\s*jam(?:\s*(\d+)\s*(?:menit|mnt))?`)
	reDurasiMenit = regexp.MustCompile(`(?i)Durasi[:\s]*(\d+)\s*(?:menit|mnt)`)
	reBareJam     = regexp.MustCompile(`(?i)(\d+)\s*jam`)

	reDurasiLiveJam   = regexp.MustCompile(`(?i)Durasi(?:\s*Live)?[:\s]*(\d+)\s*jam(?:\s*(\d+)\s*(?:menit|mnt))?`)
	reDurasiLiveMenit = regexp.MustCompile(`(?i)Durasi(?:\s*Live)?[:\s]*(\d+)\s*(?:menit|mnt)`)
	reClock           = regexp.MustCompile(`(\d{1,2}):(\d{2}):(\d{2})`)
	reJamMenit        = regexp.MustCompile(`(?i)(\d+)\s*jam(?:\s*(\d+)\s*(?:menit|mnt))?`)
)

// formatDuration renders "<h> jam <m> menit", omitting zero parts.
func formatDuration(hours, minutes int) string {
	parts := make([]string, 0, 2)
	if hours > 0 {
		parts = append(parts, strconv.Itoa(hours)+" jam")
	}
	if minutes > 0 {
		parts = append(parts, strconv.Itoa(minutes)+" menit")
	}
	return strings.Join(parts, " ")
}

// atoi reads an optional capture; missing or malformed groups count as zero.
func atoi(s string) int {
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0
	}
	return n
}

// hoursMinutes builds a rule from a pattern whose groups are (hours, minutes?).
func hoursMinutes(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		hours, minutes := atoi(m[1]), atoi(m[2])
		if hours <= 0 && minutes <= 0 {
			return "", false
		}
		return formatDuration(hours, minutes), true
	}
}

// minutesOnly builds a rule from a pattern whose single group is minutes.
func minutesOnly(re *regexp.Regexp) func(string) (string, bool) {
	return func(text string) (string, bool) {
		m := re.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		minutes := atoi(m[1])
		if minutes <= 0 {
			return "", false
		}
		return formatDuration(0, minutes), true
	}
}

// genericDurationRules is the platform-agnostic chain.
var genericDurationRules = []DurationRule{
	{Name: "durasi_jam_menit", Extract: hoursMinutes(reDurasiJam)},
	{Name: "durasi_menit", Extract: minutesOnly(reDurasiMenit)},
	{Name: "bare_jam", Extract: func(text string) (string, bool) {
		m := reBareJam.FindStringSubmatch(text)
		if m == nil {
			return "", false
		}
		hours := atoi(m[1])
		if hours <= 0 || hours > maxBareHours {
			return "", false
		}
		return formatDuration(hours, 0), true
	}},
}

var shopeeDurationRules = []DurationRule{
	{Name: "durasi_live_jam_menit", Extract: hoursMinutes(reDurasiLiveJam)},
	{Name: "durasi_live_menit", Extract: minutesOnly(reDurasiLiveMenit)},
	// Seconds are dropped from the clock reading.
	{Name: "clock", Extract: hoursMinutes(reClock)},
	{Name: "jam_menit", Extract: hoursMinutes(reJamMenit)},
}

// ParseDuration runs the generic duration chain over text.
func ParseDuration(text string) (string, bool) {
	return runDurationChain(NormalizeText(text), genericDurationRules, common.NopSink{}, TikTok)
}

// ParseTikTokDuration extracts the session length of a TikTok Live dashboard.
func ParseTikTokDuration(text string) (string, bool) {
	return tiktokDuration(NormalizeText(text), common.NopSink{})
}

// ParseShopeeDuration extracts the session length of a Shopee Live dashboard,
// including "Durasi Live" labels and H:MM:SS clock readings.
func ParseShopeeDuration(text string) (string, bool) {
	return shopeeDuration(NormalizeText(text), common.NopSink{})
}

func tiktokDuration(normalized string, sink common.EventSink) (string, bool) {
	return runDurationChain(normalized, genericDurationRules, sink, TikTok)
}

func shopeeDuration(normalized string, sink common.EventSink) (string, bool) {
	if d, ok := runDurationChain(normalized, shopeeDurationRules, sink, Shopee); ok {
		return d, true
	}
	return runDurationChain(normalized, genericDurationRules, sink, Shopee)
}
