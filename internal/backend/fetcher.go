package backend

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/monitoring"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/resilience"
	"github.com/GriffinCanCode/AquaChat/backend/internal/infrastructure/tracing"
	"github.com/GriffinCanCode/AquaChat/backend/internal/shared/types"
	"github.com/go-resty/resty/v2"
	"github.com/hashicorp/go-retryablehttp"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

// MaxRawBytes bounds how much of a module response is read before
// normalization.
const MaxRawBytes = 4 * 1024 * 1024

// errServerStatus counts a 5xx answer against the module's breaker. The
// response is still rendered as a "Not available" fragment.
var errServerStatus = errors.New("backend server error")

// Recorder receives per-module fetch observations
type Recorder interface {
	RecordModuleFetch(module, outcome string, duration time.Duration)
}

// Config configures a Fetcher
type Config struct {
	// BaseURL is the MGM application URL; a trailing /login.jsp is dropped
	BaseURL  string
	Username string
	Password string
	Timeout  time.Duration
	// Retries is the number of retries on connection failures (never on
	// HTTP statuses)
	Retries        int
	ModuleMaxBytes int
	RequestsPerSec float64
	Breaker        resilience.Settings
}

// Fetcher retrieves one module page from the MGM backend
type Fetcher struct {
	client     *resty.Client
	indexURL   string
	limiter    *rate.Limiter
	breakers   *resilience.Group
	normalizer *Normalizer
	maxBytes   int
	recorder   Recorder
	logger     *zap.Logger
}

// NewFetcher creates a fetcher with basic auth, connection-level retries,
// an outbound rate limit and one circuit breaker per module.
func NewFetcher(cfg Config, recorder Recorder, logger *zap.Logger) *Fetcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.Timeout <= 0 {
		cfg.Timeout = 15 * time.Second
	}

	retryClient := retryablehttp.NewClient()
	retryClient.RetryMax = cfg.Retries
	retryClient.RetryWaitMin = 100 * time.Millisecond
	retryClient.RetryWaitMax = time.Second
	retryClient.Logger = nil
	retryClient.CheckRetry = retryConnectionErrors
	retryClient.ErrorHandler = retryablehttp.PassthroughErrorHandler

	client := resty.NewWithClient(retryClient.StandardClient()).
		SetTimeout(cfg.Timeout).
		SetBasicAuth(cfg.Username, cfg.Password).
		SetHeader("User-Agent", "AquaChat-Proxy/1.0").
		SetDoNotParseResponse(true)

	limiter := rate.NewLimiter(rate.Inf, 0)
	if cfg.RequestsPerSec > 0 {
		burst := int(cfg.RequestsPerSec)
		if burst < 1 {
			burst = 1
		}
		limiter = rate.NewLimiter(rate.Limit(cfg.RequestsPerSec), burst)
	}

	breaker := cfg.Breaker
	if breaker.ReadyToTrip == nil {
		breaker.ReadyToTrip = func(c resilience.Counts) bool {
			return c.ConsecutiveFailures >= 5
		}
	}
	if breaker.Timeout == 0 {
		breaker.Timeout = 30 * time.Second
	}
	breaker.OnStateChange = func(name string, from, to resilience.State) {
		logger.Warn("Backend module breaker changed state",
			zap.String("module", name),
			zap.Stringer("from", from),
			zap.Stringer("to", to),
		)
	}

	return &Fetcher{
		client:     client,
		indexURL:   IndexURL(cfg.BaseURL),
		limiter:    limiter,
		breakers:   resilience.NewGroup(breaker),
		normalizer: NewNormalizer(),
		maxBytes:   cfg.ModuleMaxBytes,
		recorder:   recorder,
		logger:     logger,
	}
}

// IndexURL derives the module index endpoint from the configured URL,
// which usually points at the login page.
func IndexURL(baseURL string) string {
	base := strings.TrimSuffix(strings.TrimRight(baseURL, "/"), "/login.jsp")
	return base + "/index"
}

// BreakerStates reports the breaker state of every module fetched so far
func (f *Fetcher) BreakerStates() map[string]resilience.State {
	return f.breakers.States()
}

// Fetch retrieves m and converts the outcome to a fragment. It never
// returns an error: failures become unavailable or error fragments.
func (f *Fetcher) Fetch(ctx context.Context, m Module) Fragment {
	start := time.Now()
	frag := f.fetch(ctx, m)

	if f.recorder != nil {
		f.recorder.RecordModuleFetch(m.Name, outcome(frag.Status), time.Since(start))
	}
	if frag.Status == StatusError {
		f.logger.Error("Error fetching backend module",
			append(tracing.Fields(ctx), zap.String("module", m.Name), zap.Error(frag.Err))...)
	} else if frag.Status == StatusUnavailable {
		f.logger.Warn("Backend module not available",
			append(tracing.Fields(ctx), zap.String("module", m.Name), zap.Int("status", frag.HTTPStatus))...)
	}
	return frag
}

func (f *Fetcher) fetch(ctx context.Context, m Module) Fragment {
	frag := Fragment{Module: m.Name}

	if err := f.limiter.Wait(ctx); err != nil {
		frag.Status, frag.Err = StatusError, fmt.Errorf("rate limit wait: %w", err)
		return frag
	}

	req := f.client.R().
		SetContext(ctx).
		SetQueryParams(map[string]string{
			"applicationCode": "mgm",
			"category":        "none",
			"moduleName":      m.Name,
			"moduleIndex":     strconv.Itoa(m.Index),
		})
	tracing.InjectHeaders(ctx, req.Header)

	resp, err := resilience.Execute(f.breakers.Get(m.Name), func() (*resty.Response, error) {
		resp, err := req.Get(f.indexURL)
		if err == nil && resp.StatusCode() >= http.StatusInternalServerError {
			return resp, errServerStatus
		}
		return resp, err
	})
	switch {
	case errors.Is(err, resilience.ErrCircuitOpen), errors.Is(err, resilience.ErrTooManyRequests):
		frag.Status, frag.Err = StatusError, fmt.Errorf("%w: %v", types.ErrModuleUnavailable, err)
		return frag
	case err != nil && !errors.Is(err, errServerStatus):
		frag.Status, frag.Err = StatusError, err
		return frag
	}
	raw := resp.RawBody()
	defer raw.Close()

	frag.HTTPStatus = resp.StatusCode()

	if !resp.IsSuccess() {
		_, _ = io.Copy(io.Discard, io.LimitReader(raw, MaxRawBytes))
		frag.Status = StatusUnavailable
		frag.Err = fmt.Errorf("%w: status %d", types.ErrModuleUnavailable, frag.HTTPStatus)
		return frag
	}

	body, err := io.ReadAll(io.LimitReader(raw, MaxRawBytes))
	if err != nil {
		frag.Status, frag.Err = StatusError, fmt.Errorf("read body: %w", err)
		return frag
	}

	text := f.normalizer.Normalize(body, resp.Header().Get("Content-Type"), m.XPath)
	frag.Body = Truncate(text, f.maxBytes)
	frag.Status = StatusOK
	return frag
}

// retryConnectionErrors retries transport failures only. A backend that
// answers, whatever the status, has given its answer.
func retryConnectionErrors(ctx context.Context, resp *http.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	if resp != nil || err == nil {
		return false, nil
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return false, err
	}
	return retryablehttp.DefaultRetryPolicy(ctx, resp, err)
}

func outcome(s Status) string {
	switch s {
	case StatusOK:
		return monitoring.OutcomeOK
	case StatusUnavailable:
		return monitoring.OutcomeUnavailable
	default:
		return monitoring.OutcomeError
	}
}
