// service.go - OCR invocation with bounded retry, then metric extraction

package extraction

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/bosocmputer/livecommerce_ocr/internal/ai"
	"github.com/bosocmputer/livecommerce_ocr/internal/common"
	"github.com/bosocmputer/livecommerce_ocr/internal/metrics"
	"github.com/bosocmputer/livecommerce_ocr/internal/parser"
	"github.com/bosocmputer/livecommerce_ocr/internal/processor"
	"github.com/bosocmputer/livecommerce_ocr/internal/ratelimit"
	"github.com/bosocmputer/livecommerce_ocr/internal/storage"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultMaxRetries is the retry bound when none is configured.
const DefaultMaxRetries = 3

// Config holds the invoker settings.
type Config struct {
	// MaxRetries is the number of retries after the first attempt.
	MaxRetries int
	Upload     processor.UploadOptions
}

// DefaultConfig returns the settings used when nothing is configured.
func DefaultConfig() Config {
	return Config{
		MaxRetries: DefaultMaxRetries,
		Upload:     processor.DefaultUploadOptions(),
	}
}

// SleepFunc waits for d or until ctx is done.
type SleepFunc func(ctx context.Context, d time.Duration) error

// Backoff returns the wait after the 0-indexed attempt: 2s, 4s, 6s, ...
func Backoff(attempt int) time.Duration {
	return time.Duration(2*(attempt+1)) * time.Second
}

// Service reads live-commerce dashboard screenshots. It is safe for concurrent use.
type Service struct {
	primary  ai.OCRProvider
	fallback ai.OCRProvider
	cfg      Config
	cache    storage.ReadingCache
	limiter  *ratelimit.RateLimiter
	metrics  *metrics.Metrics
	sleep    SleepFunc
}

// Option configures a Service.
type Option func(*Service)

// WithFallback runs one more full retry cycle on p when the primary provider fails.
func WithFallback(p ai.OCRProvider) Option {
	return func(s *Service) { s.fallback = p }
}

// WithCache reuses OCR readings of screenshots seen before.
func WithCache(c storage.ReadingCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithRateLimiter makes every provider attempt take a token from rl.
func WithRateLimiter(rl *ratelimit.RateLimiter) Option {
	return func(s *Service) { s.limiter = rl }
}

// WithMetrics records attempts and outcomes in m.
func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

// WithSleep replaces the backoff wait.
func WithSleep(fn SleepFunc) Option {
	return func(s *Service) { s.sleep = fn }
}

// NewService creates a Service calling primary.
func NewService(primary ai.OCRProvider, cfg Config, opts ...Option) *Service {
	if cfg.MaxRetries < 0 {
		cfg.MaxRetries = 0
	}
	s := &Service{
		primary: primary,
		cfg:     cfg,
		sleep:   sleepContext,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// ExtractMetrics reads the screenshot named by req and interprets its text.
// It never returns a Go error: failures come back as an unsuccessful Envelope.
func (s *Service) ExtractMetrics(ctx context.Context, req Request) Envelope {
	reqCtx := common.NewRequestContext(req.source())
	env := s.extract(ctx, reqCtx, req)
	env.RequestID = reqCtx.RequestID

	if env.Success {
		platforms := make([]string, 0, len(env.Outcome.Platforms))
		for _, p := range env.Outcome.Platforms {
			platforms = append(platforms, string(p.Platform))
		}
		s.metrics.RecordExtraction(true, platforms)
		reqCtx.Event(zapcore.InfoLevel, "extraction succeeded",
			zap.String("primary", string(env.Outcome.PrimaryPlatform)),
			zap.Float64("gmv", env.Outcome.ParsedGMV),
			zap.Int("platforms", len(env.Outcome.Platforms)),
			zap.Bool("cached", env.Cached))
	} else {
		s.metrics.RecordExtraction(false, nil)
		reqCtx.Event(zapcore.ErrorLevel, "extraction failed",
			zap.String("kind", string(env.Kind)),
			zap.String("error", env.Error),
			zap.Int("attempts", env.Attempts))
	}
	reqCtx.GetSummary()
	return env
}

func (s *Service) extract(ctx context.Context, reqCtx *common.RequestContext, req Request) Envelope {
	if err := req.Validate(); err != nil {
		return failure(err)
	}

	reqCtx.StartStep("prepare_image")
	img, cacheKey, err := s.loadImage(req)
	if err != nil {
		reqCtx.EndStep("failed", nil, err)
		return failure(err)
	}
	reqCtx.EndStep("success", nil, nil)

	reading, cached := s.lookup(ctx, reqCtx, cacheKey)
	attempts := 0
	if reading == nil {
		reading, attempts, err = s.recognize(ctx, reqCtx, img)
		if err != nil {
			env := failure(err)
			env.Attempts = attempts
			return env
		}
		s.store(ctx, reqCtx, cacheKey, reading)
	}

	reqCtx.StartStep("parse_metrics")
	outcome := parser.NewExtractor(reqCtx).Extract(reading.RawText)
	reqCtx.EndStep("success", nil, nil)

	rawText := reading.RawText
	return Envelope{
		Success:    true,
		RawText:    &rawText,
		Outcome:    outcome,
		Confidence: reading.Confidence,
		Provider:   reading.Provider,
		Cached:     cached,
		Attempts:   attempts,
	}
}

// loadImage builds the provider payload and the cache key for req.
func (s *Service) loadImage(req Request) (ai.Image, string, error) {
	if req.IsRemote() {
		return ai.Image{URL: req.ImageURL}, storage.CacheKeyForURL(req.ImageURL), nil
	}

	prepared, err := processor.PrepareUpload(req.ImagePath, s.cfg.Upload)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			return ai.Image{}, "", common.NewOCRError(common.KindMissingImageSource, err,
				"Image file not found: %s", filepath.Base(req.ImagePath))
		}
		return ai.Image{}, "", common.NewOCRError(common.KindMissingImageSource, err,
			"Failed to read image file: %v", err)
	}

	if prepared.Note != "" {
		common.Logger().Warn("screenshot sent unchanged", zap.String("reason", prepared.Note))
	}
	if prepared.Resized {
		common.Logger().Info("screenshot downscaled",
			zap.Int("original_bytes", prepared.OriginalSize),
			zap.Int("upload_bytes", len(prepared.Data)),
			zap.Int("width", prepared.Width),
			zap.Int("height", prepared.Height))
	}

	return ai.Image{
		FileName: prepared.FileName,
		Data:     prepared.Data,
		MIMEType: prepared.MIMEType,
	}, storage.CacheKeyForContent(prepared.Original), nil
}

func (s *Service) lookup(ctx context.Context, reqCtx *common.RequestContext, key string) (*ai.Reading, bool) {
	if s.cache == nil {
		return nil, false
	}
	cached, ok, err := s.cache.Get(ctx, key)
	if err != nil {
		reqCtx.LogWarning("reading cache lookup failed: %v", err)
		return nil, false
	}
	s.metrics.RecordCacheLookup(ok)
	if !ok {
		return nil, false
	}
	reqCtx.Event(zapcore.DebugLevel, "reading cache hit", zap.String("provider", cached.Provider))
	return &ai.Reading{
		RawText:    cached.RawText,
		Confidence: cached.Confidence,
		Provider:   cached.Provider,
	}, true
}

func (s *Service) store(ctx context.Context, reqCtx *common.RequestContext, key string, reading *ai.Reading) {
	if s.cache == nil {
		return
	}
	err := s.cache.Put(ctx, key, storage.CachedReading{
		RawText:    reading.RawText,
		Confidence: reading.Confidence,
		Provider:   reading.Provider,
	})
	if err != nil {
		reqCtx.LogWarning("reading cache store failed: %v", err)
	}
}

// recognize runs the retry cycle on the primary provider and, if that fails
// and a fallback is configured, one more cycle on the fallback.
func (s *Service) recognize(ctx context.Context, reqCtx *common.RequestContext, img ai.Image) (*ai.Reading, int, error) {
	reading, attempts, err := s.retryCycle(ctx, reqCtx, s.primary, img)
	if err == nil || s.fallback == nil {
		return reading, attempts, err
	}

	ocrErr := common.AsOCRError(err)
	if ocrErr.Kind == common.KindMissingImageSource || ctx.Err() != nil {
		return nil, attempts, err
	}

	reqCtx.Event(zapcore.WarnLevel, "primary OCR provider failed, trying fallback",
		zap.String("primary", s.primary.Name()),
		zap.String("fallback", s.fallback.Name()),
		zap.String("error", ocrErr.Message))

	reading, more, err := s.retryCycle(ctx, reqCtx, s.fallback, img)
	return reading, attempts + more, err
}

// retryCycle makes up to MaxRetries+1 attempts against provider, waiting
// Backoff(k) after failed attempt k. Errors that are not retryable end the
// cycle at once.
func (s *Service) retryCycle(ctx context.Context, reqCtx *common.RequestContext, provider ai.OCRProvider, img ai.Image) (*ai.Reading, int, error) {
	maxAttempts := s.cfg.MaxRetries + 1
	var lastErr *common.OCRError

	for attempt := 0; attempt < maxAttempts; attempt++ {
		if s.limiter != nil {
			if err := s.limiter.Wait(ctx); err != nil {
				return nil, attempt, common.NewOCRError(common.KindNetworkOrTimeout, err,
					"OCR rate limit wait aborted: %v", err)
			}
		}

		reqCtx.StartStep(fmt.Sprintf("ocr_%s_attempt_%d", provider.Name(), attempt+1))
		reqCtx.Event(zapcore.InfoLevel, "OCR attempt",
			zap.String("provider", provider.Name()),
			zap.Int("attempt", attempt+1),
			zap.Int("max_attempts", maxAttempts),
			zap.Bool("remote", img.IsRemote()))

		start := time.Now()
		reading, err := provider.Recognize(ctx, img)
		elapsed := time.Since(start)

		if err == nil {
			reqCtx.EndStep("success", reading.Tokens, nil)
			s.metrics.RecordAttempt(provider.Name(), elapsed, "")
			if reading.Provider == "" {
				reading.Provider = provider.Name()
			}
			reqCtx.Event(zapcore.InfoLevel, "OCR success",
				zap.Int("exit_code", reading.ExitCode),
				zap.Int("text_length", len(reading.RawText)),
				zap.Duration("elapsed", elapsed))
			return reading, attempt + 1, nil
		}

		lastErr = common.AsOCRError(err)
		reqCtx.EndStep("failed", nil, lastErr)
		s.metrics.RecordAttempt(provider.Name(), elapsed, string(lastErr.Kind))

		if !lastErr.Retryable() {
			reqCtx.Event(zapcore.WarnLevel, "OCR error is not retryable",
				zap.String("kind", string(lastErr.Kind)))
			return nil, attempt + 1, lastErr
		}
		if attempt == maxAttempts-1 {
			break
		}

		wait := Backoff(attempt)
		reqCtx.Event(zapcore.InfoLevel, "retrying OCR",
			zap.Duration("wait", wait),
			zap.String("error", lastErr.Message))
		s.metrics.RecordBackoff(wait)
		if err := s.sleep(ctx, wait); err != nil {
			return nil, attempt + 1, common.NewOCRError(common.KindNetworkOrTimeout, err,
				"OCR canceled during retry wait: %v (last error: %s)", err, lastErr.Message)
		}
	}

	reqCtx.Event(zapcore.ErrorLevel, "all OCR attempts failed",
		zap.String("provider", provider.Name()),
		zap.Int("attempts", maxAttempts))
	return nil, maxAttempts, lastErr
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
