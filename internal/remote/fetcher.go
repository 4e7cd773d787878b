package remote

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"github.com/leozw/ws-billing-resolver/internal/config"
	"github.com/leozw/ws-billing-resolver/internal/core"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

const maxResponseSize = 16 << 20

// Fetcher posts a request envelope to url and returns the undecoded response.
type Fetcher interface {
	Fetch(ctx context.Context, url string, envelope interface{}) (Payload, error)
}

// FetchObserver receives the outcome of every remote call.
type FetchObserver interface {
	ObserveRemoteFetch(endpoint, outcome string, duration time.Duration)
}

const (
	OutcomeOK          = "ok"
	OutcomeEmpty       = "empty"
	OutcomeUnavailable = "unavailable"
	OutcomeMalformed   = "malformed"
)

type HTTPFetcher struct {
	client   *http.Client
	limiter  *rate.Limiter
	logger   *zap.Logger
	observer FetchObserver
}

func NewHTTPFetcher(cfg config.RemoteConfig, logger *zap.Logger, observer FetchObserver) *HTTPFetcher {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	limit := rate.Inf
	if cfg.RatePerSecond > 0 {
		limit = rate.Limit(cfg.RatePerSecond)
	}
	burst := cfg.Burst
	if burst <= 0 {
		burst = 1
	}

	return &HTTPFetcher{
		client: &http.Client{
			Timeout: timeout,
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				if len(via) >= 10 {
					return fmt.Errorf("stopped after 10 redirects")
				}
				return nil
			},
		},
		limiter:  rate.NewLimiter(limit, burst),
		logger:   logger,
		observer: observer,
	}
}

func (f *HTTPFetcher) Fetch(ctx context.Context, url string, envelope interface{}) (Payload, error) {
	body, err := json.Marshal(envelope)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal request envelope: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("User-Agent", "ws-billing-resolver/1.0")

	endpoint := req.URL.Path
	start := time.Now()

	if err := f.limiter.Wait(ctx); err != nil {
		f.observe(endpoint, OutcomeUnavailable, start)
		return nil, fmt.Errorf("%w: %s: %v", core.ErrRemoteUnavailable, endpoint, err)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		f.observe(endpoint, OutcomeUnavailable, start)
		f.logger.Warn("Remote request failed", zap.String("endpoint", endpoint), zap.Error(err))
		return nil, fmt.Errorf("%w: %s: %v", core.ErrRemoteUnavailable, endpoint, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
	if err != nil {
		f.observe(endpoint, OutcomeUnavailable, start)
		return nil, fmt.Errorf("%w: %s: read body: %v", core.ErrRemoteUnavailable, endpoint, err)
	}

	if resp.StatusCode >= 400 {
		f.observe(endpoint, OutcomeUnavailable, start)
		f.logger.Warn("Remote service returned an error",
			zap.String("endpoint", endpoint),
			zap.Int("status", resp.StatusCode),
			zap.ByteString("body", truncate(data, 512)),
		)
		return nil, fmt.Errorf("%w: %s: HTTP %d", core.ErrRemoteUnavailable, endpoint, resp.StatusCode)
	}

	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		f.observe(endpoint, OutcomeEmpty, start)
		return nil, nil
	}

	if !json.Valid(data) {
		f.observe(endpoint, OutcomeMalformed, start)
		return nil, fmt.Errorf("%w: %s: body is not json", core.ErrMalformedResponse, endpoint)
	}

	f.observe(endpoint, OutcomeOK, start)
	return Payload(data), nil
}

func (f *HTTPFetcher) observe(endpoint, outcome string, start time.Time) {
	if f.observer != nil {
		f.observer.ObserveRemoteFetch(endpoint, outcome, time.Since(start))
	}
}

func truncate(b []byte, n int) []byte {
	if len(b) > n {
		return b[:n]
	}
	return b
}
