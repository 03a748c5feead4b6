// Package readiness probes the backend's HTTP endpoint until it answers.
//
// The probe is informational. Nothing in the application waits on it
// before showing the window or answering port queries; it only reports
// whether the backend came up in time.
package readiness

import (
	"context"
	"errors"
	"fmt"
	"net"
	nethttp "net/http"
	"strconv"
	"time"

	"github.com/hashicorp/go-retryablehttp"

	"github.com/glintlock/glintlock-desktop/internal/constants"
	"github.com/glintlock/glintlock-desktop/internal/events"
	"github.com/glintlock/glintlock-desktop/internal/logging"
)

// ErrNotReady is returned when every attempt failed to get a response.
var ErrNotReady = errors.New("backend did not become ready")

// Options tunes the probe.
type Options struct {
	// Attempts is the total number of requests, including the first.
	Attempts int

	// Interval is the wait between failed attempts.
	Interval time.Duration

	// RequestTimeout bounds a single request.
	RequestTimeout time.Duration

	// Logger receives retry diagnostics at debug level. Optional.
	Logger *logging.Logger

	// OnAttempt is called before each request with its 1-based number. Optional.
	OnAttempt func(attempt int)
}

// DefaultOptions returns thirty attempts one second apart.
func DefaultOptions() Options {
	return Options{
		Attempts:       constants.DefaultReadyAttempts,
		Interval:       constants.DefaultReadyInterval,
		RequestTimeout: constants.ReadyRequestTimeout,
	}
}

// OptionsForTimeout spreads attempts one Interval apart across total.
func OptionsForTimeout(total time.Duration) Options {
	opts := DefaultOptions()
	if total > 0 {
		opts.Attempts = int(total / opts.Interval)
		if opts.Attempts < 1 {
			opts.Attempts = 1
		}
	}
	return opts
}

// BaseURL is the backend root for host and port.
func BaseURL(host string, port uint16) string {
	return "http://" + net.JoinHostPort(host, strconv.Itoa(int(port))) + "/"
}

// retryLogger implements the retryablehttp.LeveledLogger interface
type retryLogger struct {
	logger *logging.Logger
}

func (l *retryLogger) Error(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

func (l *retryLogger) Info(msg string, keysAndValues ...interface{}) {
	// Per-request chatter is not useful
}

func (l *retryLogger) Debug(msg string, keysAndValues ...interface{}) {
	// Per-request chatter is not useful
}

func (l *retryLogger) Warn(msg string, keysAndValues ...interface{}) {
	l.logger.Debug().Fields(keysAndValues).Msg(msg)
}

// checkRetry treats any HTTP response, including 4xx and 5xx, as ready.
// Only transport errors are retried.
func checkRetry(ctx context.Context, resp *nethttp.Response, err error) (bool, error) {
	if ctx.Err() != nil {
		return false, ctx.Err()
	}
	return err != nil, nil
}

// Wait polls url until the backend answers, the attempts run out, or ctx
// is cancelled. It returns nil on the first response of any status.
func Wait(ctx context.Context, url string, opts Options) error {
	if opts.Attempts < 1 {
		opts.Attempts = 1
	}
	if opts.RequestTimeout <= 0 {
		opts.RequestTimeout = constants.ReadyRequestTimeout
	}
	logger := opts.Logger
	if logger == nil {
		logger = logging.NewNopLogger()
	}

	client := retryablehttp.NewClient()
	client.HTTPClient = &nethttp.Client{
		Timeout: opts.RequestTimeout,
		Transport: &nethttp.Transport{
			Proxy:             nil, // loopback only
			DisableKeepAlives: true,
		},
	}
	client.RetryMax = opts.Attempts - 1
	client.RetryWaitMin = opts.Interval
	client.RetryWaitMax = opts.Interval
	client.CheckRetry = checkRetry
	client.Logger = &retryLogger{logger: logger}
	client.ErrorHandler = retryablehttp.PassthroughErrorHandler
	if opts.OnAttempt != nil {
		client.RequestLogHook = func(_ retryablehttp.Logger, _ *nethttp.Request, retry int) {
			opts.OnAttempt(retry + 1)
		}
	}

	req, err := retryablehttp.NewRequestWithContext(ctx, nethttp.MethodGet, url, nil)
	if err != nil {
		return fmt.Errorf("failed to build readiness request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("%w: %w", ErrNotReady, ctxErr)
		}
		return fmt.Errorf("%w after %d attempt(s): %v", ErrNotReady, opts.Attempts, err)
	}
	resp.Body.Close()

	logger.Debug().Str("url", url).Int("status", resp.StatusCode).Msg("Backend responded")
	return nil
}

// Announce runs Wait and publishes EventBackendReady or
// EventBackendUnreachable on bus. The returned error matches Wait's.
// Nothing is published once ctx is cancelled; the caller is shutting down
// and has no verdict to report.
func Announce(ctx context.Context, bus *events.EventBus, runID, host string, port uint16, pid int, opts Options) error {
	err := Wait(ctx, BaseURL(host, port), opts)
	if bus == nil || ctx.Err() != nil {
		return err
	}
	if err != nil {
		bus.PublishBackend(events.EventBackendUnreachable, runID, port, pid, "backend did not respond", err)
		return err
	}
	bus.PublishBackend(events.EventBackendReady, runID, port, pid, "backend ready", nil)
	return nil
}
