// ocrspace.go - OCR.space client

package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
)

// DefaultOCRSpaceEndpoint is the public OCR.space parse endpoint.
const DefaultOCRSpaceEndpoint = "https://api.ocr.space/parse/image"

// DefaultTimeout bounds a single OCR request.
const DefaultTimeout = 45 * time.Second

// MissingOCRSpaceKeyMessage is reported when no OCR.space credential is configured.
const MissingOCRSpaceKeyMessage = "OCRSPACE_API_KEY not configured in .env"

// OCRSpaceProvider implements OCRProvider for OCR.space
type OCRSpaceProvider struct {
	apiKey   string
	endpoint string
	client   *http.Client
}

// NewOCRSpaceProvider creates a new OCR.space provider.
// An empty endpoint selects the public API; timeout <= 0 selects DefaultTimeout.
func NewOCRSpaceProvider(apiKey, endpoint string, timeout time.Duration) *OCRSpaceProvider {
	if endpoint == "" {
		endpoint = DefaultOCRSpaceEndpoint
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &OCRSpaceProvider{
		apiKey:   apiKey,
		endpoint: endpoint,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

// Name returns "ocrspace"
func (p *OCRSpaceProvider) Name() string {
	return ProviderOCRSpace
}

// OCR.space response structures
type ocrSpaceParsedResult struct {
	ParsedText        string        `json:"ParsedText"`
	TextOrientation   flexibleFloat `json:"TextOrientation"`
	FileParseExitCode flexibleFloat `json:"FileParseExitCode"`
}

type ocrSpaceResponse struct {
	ParsedResults         []ocrSpaceParsedResult `json:"ParsedResults"`
	OCRExitCode           flexibleFloat          `json:"OCRExitCode"`
	IsErroredOnProcessing bool                   `json:"IsErroredOnProcessing"`
	ErrorMessage          messageList            `json:"ErrorMessage"`
}

// flexibleFloat accepts numbers and numeric strings; anything else decodes as 0.
type flexibleFloat float64

func (f *flexibleFloat) UnmarshalJSON(data []byte) error {
	raw := strings.Trim(strings.TrimSpace(string(data)), `"`)
	if raw == "" || raw == "null" {
		*f = 0
		return nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		*f = 0
		return nil
	}
	*f = flexibleFloat(v)
	return nil
}

// messageList accepts either a string or an array of strings.
type messageList []string

func (m *messageList) UnmarshalJSON(data []byte) error {
	var list []string
	if err := json.Unmarshal(data, &list); err == nil {
		*m = list
		return nil
	}
	var single string
	if err := json.Unmarshal(data, &single); err == nil && single != "" {
		*m = []string{single}
		return nil
	}
	*m = nil
	return nil
}

// Recognize submits img to OCR.space and returns the first parsed text block.
func (p *OCRSpaceProvider) Recognize(ctx context.Context, img Image) (*Reading, error) {
	if p.apiKey == "" {
		return nil, common.NewOCRError(common.KindMissingCredential, nil, MissingOCRSpaceKeyMessage)
	}
	if !img.IsRemote() && len(img.Data) == 0 {
		return nil, common.NewOCRError(common.KindMissingImageSource, nil, "No valid image path or URL provided")
	}

	body, contentType, err := p.buildForm(img)
	if err != nil {
		return nil, common.NewOCRError(common.KindNetworkOrTimeout, err, "failed to build OCR request: %v", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, p.endpoint, body)
	if err != nil {
		return nil, common.NewOCRError(common.KindNetworkOrTimeout, err, "failed to create request: %v", err)
	}
	req.Header.Set("Content-Type", contentType)

	resp, err := p.client.Do(req)
	if err != nil {
		return nil, common.NewOCRError(common.KindNetworkOrTimeout, err, "%s", err.Error())
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, common.NewOCRError(common.KindNetworkOrTimeout, err, "failed to read response: %v", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, statusError(resp.StatusCode, payload)
	}

	return decodeOCRSpaceResponse(payload)
}

// buildForm writes the fixed OCR.space options plus exactly one image source.
func (p *OCRSpaceProvider) buildForm(img Image) (io.Reader, string, error) {
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)

	fields := [][2]string{
		{"apikey", p.apiKey},
		{"language", "eng"},
		{"isOverlayRequired", "false"},
		{"detectOrientation", "true"},
		{"scale", "true"},
		{"OCREngine", "2"},
	}
	for _, f := range fields {
		if err := w.WriteField(f[0], f[1]); err != nil {
			return nil, "", err
		}
	}

	if img.IsRemote() {
		if err := w.WriteField("url", img.URL); err != nil {
			return nil, "", err
		}
	} else {
		name := img.FileName
		if name == "" {
			name = "screenshot.jpg"
		}
		part, err := w.CreateFormFile("file", name)
		if err != nil {
			return nil, "", err
		}
		if _, err := part.Write(img.Data); err != nil {
			return nil, "", err
		}
	}

	if err := w.Close(); err != nil {
		return nil, "", err
	}
	return buf, w.FormDataContentType(), nil
}

// statusError reports a non-2xx reply, preferring the provider's own message.
func statusError(status int, payload []byte) error {
	var parsed ocrSpaceResponse
	if err := json.Unmarshal(payload, &parsed); err == nil && len(parsed.ErrorMessage) > 0 {
		return common.NewOCRError(common.KindProviderProcessingError, nil, "%s", parsed.ErrorMessage[0])
	}
	text := strings.TrimSpace(string(payload))
	if text != "" && len(text) < 200 && !strings.HasPrefix(text, "<") {
		return common.NewOCRError(common.KindProviderProcessingError, nil, "%s", text)
	}
	return common.NewOCRError(common.KindNetworkOrTimeout, nil, "Request failed with status code %d", status)
}

func decodeOCRSpaceResponse(payload []byte) (*Reading, error) {
	if len(bytes.TrimSpace(payload)) == 0 {
		return nil, common.NewOCRError(common.KindEmptyProviderResponse, nil, "Empty response from OCR.Space")
	}

	var parsed ocrSpaceResponse
	if err := json.Unmarshal(payload, &parsed); err != nil {
		return nil, common.NewOCRError(common.KindEmptyProviderResponse, err, "Empty response from OCR.Space")
	}

	if parsed.IsErroredOnProcessing {
		msg := "Unknown OCR error"
		if len(parsed.ErrorMessage) > 0 && parsed.ErrorMessage[0] != "" {
			msg = parsed.ErrorMessage[0]
		}
		return nil, common.NewOCRError(common.KindProviderProcessingError, nil, "%s", msg)
	}

	if len(parsed.ParsedResults) == 0 || strings.TrimSpace(parsed.ParsedResults[0].ParsedText) == "" {
		return nil, common.NewOCRError(common.KindNoTextDetected, nil, "No text detected in image")
	}

	first := parsed.ParsedResults[0]
	return &Reading{
		RawText:    first.ParsedText,
		Confidence: float64(first.TextOrientation),
		ExitCode:   int(parsed.OCRExitCode),
		Provider:   ProviderOCRSpace,
	}, nil
}
