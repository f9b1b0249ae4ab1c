package clash

import (
	"context"
	stderrors "errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"regexp"
	"strings"
	"time"

	sonic "github.com/bytedance/sonic"
	crerr "github.com/cockroachdb/errors"
	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/clanforge/war-tracker/internal/platform/logging"
	"github.com/clanforge/war-tracker/internal/platform/resilience"
	"github.com/clanforge/war-tracker/internal/usecase"
)

const (
	defaultBaseURL  = "https://api.clashofclans.com/v1"
	defaultTimeout  = 10 * time.Second
	maxResponseSize = 6 << 20
)

var bearerHeaderRegex = regexp.MustCompile(`(?i)bearer\s+\S+`)

var (
	errClashTransient = crerr.New("clash api transient failure")

	// ErrForbidden is terminal: the token is invalid or not allowed for the
	// caller's IP. Retrying cannot help.
	ErrForbidden = crerr.New("clash api access denied")
)

type ClientConfig struct {
	HTTPClient *http.Client
	BaseURL    string
	Token      string
	Timeout    time.Duration
	// MaxRetries is the total fetch budget for one call, first attempt
	// included. Three consecutive 503s with the default of 3 fail the call.
	MaxRetries     int
	RetryBaseDelay time.Duration
	Logger         *logging.Logger
	CircuitBreaker resilience.CircuitBreakerConfig
}

// Client talks to the clan war API. All fetches share a circuit breaker and
// collapse identical in-flight requests, because the provider rate-limits
// aggressively.
type Client struct {
	httpClient     *http.Client
	baseURL        string
	token          string
	maxRetries     int
	retryBaseDelay time.Duration
	logger         *logging.Logger
	breaker        *resilience.CircuitBreaker
	circuitEnabled bool
	flight         resilience.SingleFlight
}

func NewClient(cfg ClientConfig) *Client {
	logger := cfg.Logger
	if logger == nil {
		logger = logging.Default()
	}

	httpClient := cfg.HTTPClient
	if httpClient == nil {
		httpClient = &http.Client{
			Timeout:   cfg.Timeout,
			Transport: otelhttp.NewTransport(http.DefaultTransport),
		}
	}
	if httpClient.Timeout <= 0 {
		httpClient.Timeout = defaultTimeout
	}

	baseURL := strings.TrimRight(strings.TrimSpace(cfg.BaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}

	retryBaseDelay := cfg.RetryBaseDelay
	if retryBaseDelay <= 0 {
		retryBaseDelay = time.Second
	}

	maxRetries := cfg.MaxRetries
	if maxRetries < 1 {
		maxRetries = 1
	}

	breakerCfg := resilience.NormalizeCircuitBreakerConfig(cfg.CircuitBreaker)

	return &Client{
		httpClient:     httpClient,
		baseURL:        baseURL,
		token:          strings.TrimSpace(cfg.Token),
		maxRetries:     maxRetries,
		retryBaseDelay: retryBaseDelay,
		logger:         logger,
		breaker:        resilience.NewCircuitBreaker(breakerCfg.FailureThreshold, breakerCfg.OpenTimeout, breakerCfg.HalfOpenMaxReq),
		circuitEnabled: breakerCfg.Enabled,
	}
}

func (c *Client) FetchCurrentWar(ctx context.Context, clanTag string) (usecase.ProviderWar, bool, error) {
	clanTag = strings.TrimSpace(clanTag)
	if clanTag == "" {
		return usecase.ProviderWar{}, false, fmt.Errorf("clan tag is required")
	}

	var payload warPayload
	found, err := c.doJSON(ctx, "/clans/"+url.PathEscape(clanTag)+"/currentwar", &payload)
	if err != nil || !found {
		return usecase.ProviderWar{}, false, err
	}

	return mapWarPayload(payload), true, nil
}

func (c *Client) FetchLeagueGroup(ctx context.Context, clanTag string) (usecase.ProviderLeagueGroup, bool, error) {
	clanTag = strings.TrimSpace(clanTag)
	if clanTag == "" {
		return usecase.ProviderLeagueGroup{}, false, fmt.Errorf("clan tag is required")
	}

	var payload leagueGroupPayload
	found, err := c.doJSON(ctx, "/clans/"+url.PathEscape(clanTag)+"/currentwar/leaguegroup", &payload)
	if err != nil || !found {
		return usecase.ProviderLeagueGroup{}, false, err
	}

	return mapLeagueGroupPayload(payload), true, nil
}

func (c *Client) FetchLeagueWar(ctx context.Context, warTag string) (usecase.ProviderWar, bool, error) {
	warTag = strings.TrimSpace(warTag)
	if warTag == "" {
		return usecase.ProviderWar{}, false, fmt.Errorf("war tag is required")
	}

	var payload warPayload
	found, err := c.doJSON(ctx, "/clanwarleagues/wars/"+url.PathEscape(warTag), &payload)
	if err != nil || !found {
		return usecase.ProviderWar{}, false, err
	}

	return mapWarPayload(payload), true, nil
}

type fetchResult struct {
	raw   []byte
	found bool
}

func (c *Client) doJSON(ctx context.Context, path string, target any) (bool, error) {
	if c.circuitEnabled {
		if err := c.breaker.Allow(); err != nil {
			c.logger.WarnContext(ctx, "clash circuit breaker rejected request", "state", c.breaker.State())
			return false, fmt.Errorf("%w: clan war provider is temporarily unavailable", usecase.ErrDependencyUnavailable)
		}
	}

	fullURL := c.baseURL + path

	out, err, _ := c.flight.Do(path, func() (any, error) {
		raw, found, reqErr := c.executeRequest(ctx, fullURL)
		if c.circuitEnabled {
			if isClashCircuitFailure(reqErr) {
				c.breaker.RecordFailure()
			} else {
				c.breaker.RecordSuccess()
			}
		}
		return fetchResult{raw: raw, found: found}, reqErr
	})
	if err != nil {
		return false, err
	}

	result, ok := out.(fetchResult)
	if !ok {
		return false, fmt.Errorf("unexpected response payload type %T", out)
	}
	if !result.found {
		return false, nil
	}

	if err := sonic.Unmarshal(result.raw, target); err != nil {
		return false, fmt.Errorf("decode provider payload: %w", err)
	}

	return true, nil
}

// retryOutcome is the terminal classification of one attempt.
type retryOutcome int

const (
	outcomeSuccess retryOutcome = iota
	outcomeAbsent
	outcomeRetry
	outcomeTerminal
)

// classifyStatus decides what one response status means for the retry loop.
// 404 is a plain "not in war / no such war" answer from this provider, and
// 403 means the token is bad; both are final on the first attempt.
func classifyStatus(code int) retryOutcome {
	switch {
	case code >= 200 && code < 300:
		return outcomeSuccess
	case code == http.StatusNotFound:
		return outcomeAbsent
	case code == http.StatusServiceUnavailable:
		return outcomeRetry
	default:
		return outcomeTerminal
	}
}

// retryState drives the backoff schedule: baseDelay doubling per retry
// (1s then 2s with defaults). maxAttempts is the total fetch budget, first
// attempt included. Pure so the schedule is testable without a network.
type retryState struct {
	attempt     int
	maxAttempts int
	baseDelay   time.Duration
}

func newRetryState(maxAttempts int, baseDelay time.Duration) retryState {
	if maxAttempts < 1 {
		maxAttempts = 1
	}
	return retryState{maxAttempts: maxAttempts, baseDelay: baseDelay}
}

func (s retryState) backoff() time.Duration {
	return s.baseDelay << s.attempt
}

func (s retryState) exhausted() bool {
	return s.attempt+1 >= s.maxAttempts
}

func (s retryState) next() retryState {
	s.attempt++
	return s
}

func (c *Client) executeRequest(ctx context.Context, fullURL string) ([]byte, bool, error) {
	state := newRetryState(c.maxRetries, c.retryBaseDelay)
	var lastErr error

	for {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, fullURL, nil)
		if err != nil {
			return nil, false, fmt.Errorf("build request: %w", err)
		}
		req.Header.Set("Accept", "application/json")
		req.Header.Set("Authorization", "Bearer "+c.token)

		resp, err := c.httpClient.Do(req)
		if err != nil {
			lastErr = fmt.Errorf("%w: send request: %s", errClashTransient, sanitizeSensitiveText(err.Error(), c.token))
		} else {
			raw, readErr := io.ReadAll(io.LimitReader(resp.Body, maxResponseSize))
			_ = resp.Body.Close()
			if readErr != nil {
				lastErr = fmt.Errorf("%w: read response body: %v", errClashTransient, readErr)
			} else {
				switch classifyStatus(resp.StatusCode) {
				case outcomeSuccess:
					return raw, true, nil
				case outcomeAbsent:
					return nil, false, nil
				case outcomeRetry:
					lastErr = fmt.Errorf("%w: provider status=%d body=%s", errClashTransient, resp.StatusCode, abbreviateBody(raw))
				case outcomeTerminal:
					if resp.StatusCode == http.StatusForbidden {
						return nil, false, fmt.Errorf("%w: provider status=%d body=%s", ErrForbidden, resp.StatusCode, abbreviateBody(raw))
					}
					return nil, false, fmt.Errorf("provider status=%d body=%s", resp.StatusCode, abbreviateBody(raw))
				}
			}
		}

		if state.exhausted() {
			break
		}
		timer := time.NewTimer(state.backoff())
		select {
		case <-ctx.Done():
			timer.Stop()
			return nil, false, ctx.Err()
		case <-timer.C:
		}
		state = state.next()
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("provider request failed")
	}
	c.logger.WarnContext(ctx, "clash api request failed", "url", fullURL, "error", lastErr)
	return nil, false, lastErr
}

func isClashCircuitFailure(err error) bool {
	if err == nil {
		return false
	}
	return stderrors.Is(err, errClashTransient)
}

func sanitizeSensitiveText(value, token string) string {
	value = strings.TrimSpace(value)
	if value == "" {
		return value
	}
	if token != "" {
		value = strings.ReplaceAll(value, token, "REDACTED")
	}
	return bearerHeaderRegex.ReplaceAllString(value, "Bearer REDACTED")
}

func abbreviateBody(body []byte) string {
	text := strings.TrimSpace(string(body))
	if len(text) <= 240 {
		return text
	}
	return text[:240] + "..."
}
