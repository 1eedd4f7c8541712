package probe

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/logger"
)

func TestHTTPProber_Probe(t *testing.T) {
	tests := []struct {
		name     string
		handler  http.HandlerFunc
		wantKind domain.VerdictKind
		wantCode int
	}{
		{
			name:     "200 is healthy",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusOK) },
			wantKind: domain.VerdictHealthy,
		},
		{
			name:     "204 is healthy",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusNoContent) },
			wantKind: domain.VerdictHealthy,
		},
		{
			name:     "502 is unhealthy with code",
			handler:  func(w http.ResponseWriter, r *http.Request) { w.WriteHeader(http.StatusBadGateway) },
			wantKind: domain.VerdictUnhealthy,
			wantCode: http.StatusBadGateway,
		},
		{
			name: "redirect is not followed",
			handler: func(w http.ResponseWriter, r *http.Request) {
				http.Redirect(w, r, "/elsewhere", http.StatusFound)
			},
			wantKind: domain.VerdictUnhealthy,
			wantCode: http.StatusFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := httptest.NewServer(tt.handler)
			defer ts.Close()

			p := NewHTTPProber(time.Second, logger.New("error", false))
			v := p.Probe(context.Background(), domain.ServiceTarget{Name: "web", HealthURL: ts.URL})

			assert.Equal(t, tt.wantKind, v.Kind)
			assert.Equal(t, tt.wantCode, v.StatusCode)
		})
	}
}

func TestHTTPProber_Unreachable(t *testing.T) {
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := ts.URL
	ts.Close()

	p := NewHTTPProber(time.Second, logger.New("error", false))
	v := p.Probe(context.Background(), domain.ServiceTarget{Name: "web", HealthURL: url})

	assert.Equal(t, domain.VerdictUnreachable, v.Kind)
	assert.NotEmpty(t, v.Cause)
	assert.ErrorIs(t, v.Err(), domain.ErrProbeUnreachable)
}

func TestHTTPProber_TargetTimeoutWins(t *testing.T) {
	release := make(chan struct{})
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer ts.Close()
	defer close(release)

	p := NewHTTPProber(10*time.Second, logger.New("error", false))
	start := time.Now()
	v := p.Probe(context.Background(), domain.ServiceTarget{
		Name:         "slow",
		HealthURL:    ts.URL,
		ProbeTimeout: 50 * time.Millisecond,
	})

	assert.Equal(t, domain.VerdictUnreachable, v.Kind)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestHTTPProber_InvalidURL(t *testing.T) {
	p := NewHTTPProber(time.Second, logger.New("error", false))
	v := p.Probe(context.Background(), domain.ServiceTarget{Name: "bad", HealthURL: "://nope"})
	require.Equal(t, domain.VerdictUnreachable, v.Kind)
	assert.Contains(t, v.Cause, "invalid health url")
}
