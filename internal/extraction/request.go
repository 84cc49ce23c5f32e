// request.go - Extraction requests

package extraction

import (
	"strings"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
)

const missingSourceMessage = "No valid image path or URL provided"

// Request names the screenshot to read: a local file or a remote URL, never both.
type Request struct {
	ImagePath string
	ImageURL  string
	// Source identifies the caller in logs ("http", a bot name, ...).
	Source string
}

// NewRequest builds a validated Request.
func NewRequest(imagePath, imageURL string) (Request, error) {
	req := Request{ImagePath: imagePath, ImageURL: imageURL}
	if err := req.Validate(); err != nil {
		return Request{}, err
	}
	return req, nil
}

// Validate checks that exactly one image source is set.
func (r Request) Validate() error {
	hasPath := strings.TrimSpace(r.ImagePath) != ""
	hasURL := strings.TrimSpace(r.ImageURL) != ""
	switch {
	case !hasPath && !hasURL:
		return common.NewOCRError(common.KindMissingImageSource, nil, missingSourceMessage)
	case hasPath && hasURL:
		return common.NewOCRError(common.KindMissingImageSource, nil,
			"Provide either an image path or an image URL, not both")
	}
	return nil
}

// IsRemote reports whether the screenshot is fetched by URL.
func (r Request) IsRemote() bool {
	return strings.TrimSpace(r.ImageURL) != ""
}

func (r Request) source() string {
	if r.Source == "" {
		return "api"
	}
	return r.Source
}
