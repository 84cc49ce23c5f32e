package ai

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestCategorizeGeminiError(t *testing.T) {
	cases := []struct {
		name      string
		err       error
		kind      common.ErrorKind
		retryable bool
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, common.KindMissingCredential, false},
		{"forbidden wrapped", fmt.Errorf("generate: %w", &googleapi.Error{Code: 403}), common.KindMissingCredential, false},
		{"bad request", &googleapi.Error{Code: 400, Message: "image too small"}, common.KindProviderProcessingError, false},
		{"too large", &googleapi.Error{Code: 413}, common.KindProviderProcessingError, false},
		{"rate limit", &googleapi.Error{Code: 429}, common.KindProviderUnavailable, true},
		{"server", &googleapi.Error{Code: 503}, common.KindProviderUnavailable, true},
		{"deadline", context.DeadlineExceeded, common.KindNetworkOrTimeout, true},
		{"quota", errors.New("Quota exceeded for project"), common.KindProviderUnavailable, false},
		{"network", errors.New("connection reset by peer"), common.KindNetworkOrTimeout, true},
		{"other", errors.New("candidate blocked"), common.KindProviderProcessingError, true},
	}
	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got := categorizeGeminiError(c.err)
			assert.Equal(t, c.kind, got.Kind)
			assert.Equal(t, c.retryable, got.Retryable(), got.Message)
			assert.ErrorIs(t, got, c.err)
		})
	}
	assert.Nil(t, categorizeGeminiError(nil))
}

func TestGeminiMissingKey(t *testing.T) {
	_, err := NewGeminiProvider("", "", 0, nil).Recognize(context.Background(), Image{Data: []byte("x")})
	ocrErr := common.AsOCRError(err)
	assert.Equal(t, common.KindMissingCredential, ocrErr.Kind)
	assert.False(t, ocrErr.Retryable())
}

func TestGeminiDefaultTimeout(t *testing.T) {
	assert.Equal(t, DefaultTimeout, NewGeminiProvider("k", "", 0, nil).Timeout())
	assert.Equal(t, 3*time.Second, NewGeminiProvider("k", "", 3*time.Second, nil).Timeout())
}

func TestGeminiTimeoutBoundsImageDownload(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-r.Context().Done():
		case <-time.After(5 * time.Second):
		}
	}))
	defer srv.Close()

	p := NewGeminiProvider("k", "", 50*time.Millisecond, srv.Client())

	start := time.Now()
	_, err := p.Recognize(context.Background(), Image{URL: srv.URL + "/shot.png"})
	require.Error(t, err)
	assert.Less(t, time.Since(start), 4*time.Second)

	ocrErr := common.AsOCRError(err)
	assert.Equal(t, common.KindNetworkOrTimeout, ocrErr.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
