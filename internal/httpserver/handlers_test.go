package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MrSnakeDoc/medic/internal/dispatch"
	"github.com/MrSnakeDoc/medic/internal/domain"
	"github.com/MrSnakeDoc/medic/internal/httpserver/deps"
	"github.com/MrSnakeDoc/medic/internal/index"
	"github.com/MrSnakeDoc/medic/internal/logger"
	"github.com/MrSnakeDoc/medic/internal/metrics"
	"github.com/MrSnakeDoc/medic/internal/store/memory"
)

type submission struct {
	target, problem, source string
}

type fakeDispatcher struct {
	mu     sync.Mutex
	subs   []submission
	errFor map[string]error
}

func (f *fakeDispatcher) Submit(_ context.Context, t domain.ServiceTarget, problem, source string) (domain.RunRecord, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if err := f.errFor[t.Name]; err != nil {
		if errors.Is(err, dispatch.ErrAlreadyActive) {
			return domain.RunRecord{ID: "existing-" + t.Name, Target: t.Name}, err
		}
		return domain.RunRecord{}, err
	}
	f.subs = append(f.subs, submission{t.Name, problem, source})
	return domain.RunRecord{ID: "run-" + t.Name, Target: t.Name, Status: domain.RunQueued}, nil
}

func (f *fakeDispatcher) Active() map[string]string { return map[string]string{} }

type pinger struct{ err error }

func (p pinger) Ping(context.Context) error { return p.err }

func testDeps(t *testing.T, targets ...string) (deps.Deps, *fakeDispatcher) {
	t.Helper()
	idx := index.NewTargetIndex("webapp")
	var ts []domain.ServiceTarget
	for _, n := range targets {
		ts = append(ts, domain.ServiceTarget{Name: n, HealthURL: "http://" + n + "/", InstancePrefix: n + "-"})
	}
	if len(ts) > 0 {
		idx.Update(ts)
	}
	disp := &fakeDispatcher{errFor: map[string]error{}}
	return deps.Deps{
		Logger:              logger.New("error", false),
		StartTime:           time.Now(),
		Version:             "test",
		TimeNow:             time.Now,
		WebhookBurst:        100,
		WebhookRefillPerMin: 100,
		Targets:             idx,
		Dispatcher:          disp,
		History:             memory.NewHistory(10),
		Platform:            pinger{},
		Metrics:             metrics.New(),
		ReloadTrigger:       make(chan struct{}, 1),
	}, disp
}

func do(t *testing.T, d deps.Deps, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	rec := httptest.NewRecorder()
	NewRouter(d).ServeHTTP(rec, req)
	return rec
}

type webhookResp struct {
	Runs []struct {
		ID     string `json:"id"`
		Target string `json:"target"`
		Status string `json:"status"`
	} `json:"runs"`
}

func TestWebhook_DefaultTargetAndDescription(t *testing.T) {
	d, disp := testDeps(t, "webapp", "api")

	rec := do(t, d, http.MethodPost, "/webhook", `{
		"status": "firing",
		"alerts": [{"status": "firing", "labels": {"alertname": "WebappDown"},
		            "annotations": {"description": "webapp returned 502 for 2m"}}]
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp webhookResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Runs, 1)
	assert.Equal(t, "run-webapp", resp.Runs[0].ID)
	assert.Equal(t, "queued", resp.Runs[0].Status)

	require.Len(t, disp.subs, 1)
	assert.Equal(t, submission{"webapp", "webapp returned 502 for 2m", "webhook"}, disp.subs[0])
}

func TestWebhook_LabelsSelectTargets(t *testing.T) {
	d, disp := testDeps(t, "webapp", "api")
	disp.errFor["webapp"] = dispatch.ErrAlreadyActive

	rec := do(t, d, http.MethodPost, "/webhook", `{
		"alerts": [
			{"labels": {"service": "api"}, "annotations": {"summary": "api slow"}},
			{"labels": {"service": "api"}, "annotations": {"summary": "duplicate"}},
			{"labels": {"target": "db"}},
			{"labels": {"job": "webapp"}},
			{"status": "resolved", "labels": {"target": "api"}}
		]
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp webhookResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	statuses := map[string]string{}
	for _, r := range resp.Runs {
		if _, ok := statuses[r.Target]; !ok {
			statuses[r.Target] = r.Status
		}
	}
	assert.Equal(t, "queued", statuses["api"])
	assert.Equal(t, "unknown_target", statuses["db"])
	assert.Equal(t, "already_active", statuses["webapp"])

	require.Len(t, disp.subs, 1, "one run per target")
	assert.Equal(t, "api slow", disp.subs[0].problem)
}

func TestWebhook_ResolvedDoesNotHideFiring(t *testing.T) {
	d, disp := testDeps(t, "webapp", "api")

	rec := do(t, d, http.MethodPost, "/webhook", `{
		"alerts": [
			{"status": "resolved", "labels": {"target": "api"}},
			{"status": "firing", "labels": {"target": "api"}, "annotations": {"description": "api down again"}},
			{"status": "resolved", "labels": {"target": "api"}}
		]
	}`)

	require.Equal(t, http.StatusAccepted, rec.Code)
	var resp webhookResp
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))

	var statuses []string
	for _, r := range resp.Runs {
		assert.Equal(t, "api", r.Target)
		statuses = append(statuses, r.Status)
	}
	assert.Equal(t, []string{"resolved", "queued"}, statuses)

	require.Len(t, disp.subs, 1)
	assert.Equal(t, submission{"api", "api down again", "webhook"}, disp.subs[0])
}

func TestWebhook_BadPayloads(t *testing.T) {
	d, disp := testDeps(t, "webapp")

	assert.Equal(t, http.StatusBadRequest, do(t, d, http.MethodPost, "/webhook", `{not json`).Code)
	assert.Equal(t, http.StatusBadRequest, do(t, d, http.MethodPost, "/webhook", `{"alerts": []}`).Code)
	assert.Empty(t, disp.subs)
}

func TestWebhook_RateLimited(t *testing.T) {
	d, _ := testDeps(t, "webapp")
	d.WebhookBurst = 1
	d.WebhookRefillPerMin = 1
	router := NewRouter(d)

	body := `{"alerts":[{"annotations":{"description":"down"}}]}`
	codes := make([]int, 0, 2)
	for i := 0; i < 2; i++ {
		rec := httptest.NewRecorder()
		router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", strings.NewReader(body)))
		codes = append(codes, rec.Code)
	}
	assert.Equal(t, []int{http.StatusAccepted, http.StatusTooManyRequests}, codes)
}

func TestRuns(t *testing.T) {
	d, _ := testDeps(t, "webapp")
	ctx := context.Background()
	_ = d.History.Save(ctx, domain.RunRecord{ID: "r1", Target: "webapp", Status: domain.RunDone})
	_ = d.History.Save(ctx, domain.RunRecord{ID: "r2", Target: "api", Status: domain.RunQueued})

	rec := do(t, d, http.MethodGet, "/runs/r1", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var got domain.RunRecord
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, domain.RunDone, got.Status)

	assert.Equal(t, http.StatusNotFound, do(t, d, http.MethodGet, "/runs/missing", "").Code)

	rec = do(t, d, http.MethodGet, "/runs?target=webapp", "")
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Runs []domain.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	require.Len(t, list.Runs, 1)
	assert.Equal(t, "r1", list.Runs[0].ID)

	assert.Equal(t, http.StatusBadRequest, do(t, d, http.MethodGet, "/runs?limit=zero", "").Code)
}

func TestReload(t *testing.T) {
	d, _ := testDeps(t, "webapp")

	assert.Equal(t, http.StatusAccepted, do(t, d, http.MethodPost, "/reload", "").Code)
	assert.Equal(t, http.StatusTooManyRequests, do(t, d, http.MethodPost, "/reload", "").Code,
		"trigger channel still full")
}

func TestReadyz(t *testing.T) {
	empty, _ := testDeps(t)
	assert.Equal(t, http.StatusServiceUnavailable, do(t, empty, http.MethodGet, "/readyz", "").Code)

	loaded, _ := testDeps(t, "webapp")
	assert.Equal(t, http.StatusOK, do(t, loaded, http.MethodGet, "/readyz", "").Code)
}

func TestHealthz(t *testing.T) {
	d, _ := testDeps(t)
	rec := do(t, d, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"version":"test"`)
}

func TestStatus(t *testing.T) {
	d, _ := testDeps(t, "webapp")

	rec := do(t, d, http.MethodGet, "/status", "")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"mode":"operational"`)

	d.Platform = pinger{err: errors.New("cannot connect to docker daemon")}
	rec = do(t, d, http.MethodGet, "/status", "")
	assert.Contains(t, rec.Body.String(), `"mode":"critical"`)
	assert.Contains(t, rec.Body.String(), "cannot connect to docker daemon")
}

func TestMetricsEndpointCountsRequests(t *testing.T) {
	d, _ := testDeps(t, "webapp")
	router := NewRouter(d)

	for i := 0; i < 3; i++ {
		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/healthz", nil))
	}

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `medic_http_requests_total{code="200",method="GET"} 3`)
}

func TestAccessRestrictions(t *testing.T) {
	d, _ := testDeps(t, "webapp")
	d.AllowedCIDRS = []string{"10.0.0.0/8"}

	// httptest requests come from 192.0.2.1
	assert.Equal(t, http.StatusForbidden, do(t, d, http.MethodPost, "/webhook", `{}`).Code)
	assert.Equal(t, http.StatusForbidden, do(t, d, http.MethodGet, "/runs", "").Code)
}

func TestOperatorRoutesRequireHost(t *testing.T) {
	d, _ := testDeps(t, "webapp")
	d.AllowedHosts = []string{"medic.example.com"}

	// httptest requests carry Host: example.com
	assert.Equal(t, http.StatusForbidden, do(t, d, http.MethodGet, "/runs", "").Code)
	assert.Equal(t, http.StatusForbidden, do(t, d, http.MethodPost, "/reload", "").Code)
	assert.Equal(t, http.StatusBadRequest, do(t, d, http.MethodPost, "/webhook", `{}`).Code,
		"webhook is network scoped only")
}
