// text.go - OCR text normalization

package parser

import "strings"

// gmvMisreads maps frequent OCR confusions of the GMV label to the real keyword.
var gmvMisreads = strings.NewReplacer(
	"BMV", "GMV",
	"GMY", "GMV",
	"GMW", "GMV",
)

// NormalizeText collapses whitespace runs to single spaces, upper-cases the text
// and repairs known misreads of the GMV keyword. Applying it twice is a no-op.
func NormalizeText(text string) string {
	collapsed := strings.Join(strings.Fields(text), " ")
	return gmvMisreads.Replace(strings.ToUpper(collapsed))
}
