// gemini.go - Gemini plain-text OCR provider

package ai

import (
	"context"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/google/generative-ai-go/genai"
	"google.golang.org/api/option"
)

// DefaultGeminiModel is used when OCR_MODEL_NAME is empty.
const DefaultGeminiModel = "gemini-2.5-flash"

// maxRemoteImageBytes caps how much of a remote screenshot is downloaded for Gemini.
const maxRemoteImageBytes = 10 << 20

const screenshotOCRPrompt = `Extract ALL visible text from this live-commerce dashboard screenshot.
Read everything from top to bottom, left to right, one label or value per line.
Keep numbers exactly as printed, including "Rp", dots, commas and "K" suffixes.
Return ONLY the extracted text, nothing else.`

// GeminiProvider implements OCRProvider using a Gemini model as a text reader.
type GeminiProvider struct {
	apiKey    string
	modelName string
	timeout   time.Duration
	fetch     *http.Client
}

// NewGeminiProvider creates a new Gemini provider. timeout bounds one whole
// Recognize call, image download included; timeout <= 0 selects DefaultTimeout.
func NewGeminiProvider(apiKey, modelName string, timeout time.Duration, fetch *http.Client) *GeminiProvider {
	if modelName == "" {
		modelName = DefaultGeminiModel
	}
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	if fetch == nil {
		fetch = &http.Client{}
	}
	return &GeminiProvider{
		apiKey:    apiKey,
		modelName: modelName,
		timeout:   timeout,
		fetch:     fetch,
	}
}

// Timeout returns the per-request deadline.
func (g *GeminiProvider) Timeout() time.Duration {
	return g.timeout
}

// Name returns "gemini"
func (g *GeminiProvider) Name() string {
	return ProviderGemini
}

// Recognize asks the model for the plain text of img.
func (g *GeminiProvider) Recognize(ctx context.Context, img Image) (*Reading, error) {
	if g.apiKey == "" {
		return nil, common.NewOCRError(common.KindMissingCredential, nil, "GEMINI_API_KEY not configured in .env")
	}

	ctx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	data, mimeType := img.Data, img.MIMEType
	if img.IsRemote() {
		var err error
		data, mimeType, err = g.download(ctx, img.URL)
		if err != nil {
			return nil, err
		}
	}
	if len(data) == 0 {
		return nil, common.NewOCRError(common.KindMissingImageSource, nil, "No valid image path or URL provided")
	}
	if mimeType == "" {
		mimeType = http.DetectContentType(data)
	}

	client, err := genai.NewClient(ctx, option.WithAPIKey(g.apiKey))
	if err != nil {
		return nil, categorizeGeminiError(err)
	}
	defer client.Close()

	model := client.GenerativeModel(g.modelName)
	model.GenerationConfig = genai.GenerationConfig{
		MaxOutputTokens: ptr(int32(8192)),
	}
	model.SetTemperature(0)

	resp, err := model.GenerateContent(ctx,
		genai.Text(screenshotOCRPrompt),
		genai.Blob{
			MIMEType: mimeType,
			Data:     data,
		},
	)
	if err != nil {
		return nil, categorizeGeminiError(err)
	}

	if len(resp.Candidates) == 0 || resp.Candidates[0].Content == nil {
		return nil, common.NewOCRError(common.KindEmptyProviderResponse, nil, "Empty response from Gemini")
	}

	var text strings.Builder
	for _, part := range resp.Candidates[0].Content.Parts {
		if t, ok := part.(genai.Text); ok {
			text.WriteString(string(t))
		}
	}
	if strings.TrimSpace(text.String()) == "" {
		return nil, common.NewOCRError(common.KindNoTextDetected, nil, "No text detected in image")
	}

	reading := &Reading{
		RawText:  text.String(),
		Provider: ProviderGemini,
	}
	if resp.UsageMetadata != nil {
		reading.Tokens = &common.TokenUsage{
			InputTokens:  int(resp.UsageMetadata.PromptTokenCount),
			OutputTokens: int(resp.UsageMetadata.CandidatesTokenCount),
			TotalTokens:  int(resp.UsageMetadata.TotalTokenCount),
		}
	}
	return reading, nil
}

// download fetches a remote screenshot so it can be sent inline.
func (g *GeminiProvider) download(ctx context.Context, url string) ([]byte, string, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, "", common.NewOCRError(common.KindMissingImageSource, err, "invalid image URL: %v", err)
	}
	resp, err := g.fetch.Do(req)
	if err != nil {
		return nil, "", common.NewOCRError(common.KindNetworkOrTimeout, err, "%s", err.Error())
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, "", common.NewOCRError(common.KindNetworkOrTimeout, nil,
			"image download failed with status code %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxRemoteImageBytes))
	if err != nil {
		return nil, "", common.NewOCRError(common.KindNetworkOrTimeout, err, "failed to read image: %v", err)
	}
	return data, resp.Header.Get("Content-Type"), nil
}

func ptr(i int32) *int32 {
	return &i
}
