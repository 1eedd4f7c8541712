package probe

import (
	"context"
	"fmt"
	"io"
	"net"
	"net/http"
	"time"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
)

// DefaultTimeout applies when neither the prober nor the target sets one.
const DefaultTimeout = 5 * time.Second

// Prober classifies a target's aggregate health endpoint.
type Prober interface {
	Probe(ctx context.Context, target domain.ServiceTarget) domain.HealthVerdict
}

// HTTPProber issues one GET per probe. It never retries; retry policy
// belongs to the control loop.
type HTTPProber struct {
	client  *http.Client
	timeout time.Duration
	logger  logger.Logger
}

// NewHTTPProber builds a prober with keep-alives disabled so every probe
// opens a fresh connection and observes the endpoint as a new client would.
func NewHTTPProber(timeout time.Duration, log logger.Logger) *HTTPProber {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &HTTPProber{
		client: &http.Client{
			Transport: &http.Transport{
				DialContext: (&net.Dialer{
					Timeout:   timeout,
					KeepAlive: 0,
				}).DialContext,
				TLSHandshakeTimeout:   timeout,
				ResponseHeaderTimeout: timeout,
				DisableKeepAlives:     true,
			},
			CheckRedirect: func(req *http.Request, via []*http.Request) error {
				// A redirect is an answer; judge the first response.
				return http.ErrUseLastResponse
			},
		},
		timeout: timeout,
		logger:  log,
	}
}

// Probe returns Healthy for 2xx, Unhealthy(code) for any other status and
// Unreachable when no response arrived within the timeout.
func (p *HTTPProber) Probe(ctx context.Context, target domain.ServiceTarget) domain.HealthVerdict {
	timeout := p.timeout
	if target.ProbeTimeout > 0 {
		timeout = target.ProbeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.HealthURL, http.NoBody)
	if err != nil {
		return domain.Unreachable(fmt.Errorf("invalid health url: %w", err))
	}
	req.Header.Set("User-Agent", "medic-probe")

	start := time.Now()
	resp, err := p.client.Do(req)
	if err != nil {
		p.logger.Debug("probe failed",
			logger.String("target", target.Name),
			logger.String("url", target.HealthURL),
			logger.Error(err))
		return domain.Unreachable(err)
	}
	defer func() {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 64<<10))
		_ = resp.Body.Close()
	}()

	p.logger.Debug("probe answered",
		logger.String("target", target.Name),
		logger.Int("status", resp.StatusCode),
		logger.Duration("latency", time.Since(start)))

	if resp.StatusCode >= 200 && resp.StatusCode < 300 {
		return domain.Healthy()
	}
	return domain.Unhealthy(resp.StatusCode)
}

// Func adapts a plain function to Prober.
type Func func(ctx context.Context, target domain.ServiceTarget) domain.HealthVerdict

func (f Func) Probe(ctx context.Context, target domain.ServiceTarget) domain.HealthVerdict {
	return f(ctx, target)
}
