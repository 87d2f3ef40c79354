package rest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/oshokin/alarm-scheduler/internal/metrics"
	"github.com/oshokin/alarm-scheduler/internal/scheduler"
)

func newTestRouter(t *testing.T) (http.Handler, *scheduler.Scheduler) {
	t.Helper()

	collector := metrics.New()
	s := scheduler.New(scheduler.WithSink(collector))
	require.NoError(t, s.Start(context.Background()))

	t.Cleanup(func() { require.NoError(t, s.Shutdown(context.Background())) })

	return NewRouter(Config{Service: s, Metrics: collector.Handler()}), s
}

func do(t *testing.T, h http.Handler, method, path, body string) *httptest.ResponseRecorder {
	t.Helper()

	req := httptest.NewRequest(method, path, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, req)

	return rec
}

// TestRouter_AlarmLifecycle covers start, change, get, list, groups and cancel.
func TestRouter_AlarmLifecycle(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/alarms", `{"alarm_id":1,"group_id":2,"seconds":600,"message":"hello"}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created AlarmBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.Equal(t, int64(1), created.AlarmID)
	require.Equal(t, "fresh", created.Tag)

	rec = do(t, h, http.MethodPost, "/v1/alarms", `{"alarm_id":1,"group_id":2,"seconds":600,"message":"again"}`)
	require.Equal(t, http.StatusConflict, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/alarms/1", `{"group_id":3,"seconds":900,"message":"moved"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var changed AlarmBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &changed))
	require.Equal(t, int64(3), changed.GroupID)
	require.Equal(t, "group_changed", changed.Tag)

	rec = do(t, h, http.MethodGet, "/v1/alarms/1", "")
	require.Equal(t, http.StatusOK, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/alarms", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var listed []AlarmBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Len(t, listed, 1)
	require.Equal(t, "moved", listed[0].Message)

	rec = do(t, h, http.MethodGet, "/v1/groups", "")
	require.Equal(t, http.StatusOK, rec.Code)

	var groups []GroupBody
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &groups))
	require.Len(t, groups, 1)
	require.Equal(t, int64(3), groups[0].GroupID)

	rec = do(t, h, http.MethodDelete, "/v1/alarms/1", "")
	require.Equal(t, http.StatusNoContent, rec.Code)

	rec = do(t, h, http.MethodDelete, "/v1/alarms/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)

	rec = do(t, h, http.MethodGet, "/v1/alarms/1", "")
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestRouter_InvalidFields checks domain validation answers 400.
func TestRouter_InvalidFields(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodPost, "/v1/alarms", `{"alarm_id":1,"group_id":2,"seconds":-1,"message":"x"}`)
	require.Equal(t, http.StatusBadRequest, rec.Code)

	rec = do(t, h, http.MethodPut, "/v1/alarms/5", `{"group_id":1,"seconds":1,"message":"x"}`)
	require.Equal(t, http.StatusNotFound, rec.Code)
}

// TestRouter_HealthAndMetrics checks the plain routes.
func TestRouter_HealthAndMetrics(t *testing.T) {
	t.Parallel()

	h, _ := newTestRouter(t)

	rec := do(t, h, http.MethodGet, "/healthz", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Equal(t, "ok\n", rec.Body.String())

	do(t, h, http.MethodPost, "/v1/alarms", `{"alarm_id":7,"group_id":1,"seconds":600,"message":"m"}`)

	rec = do(t, h, http.MethodGet, "/metrics", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "alarm_scheduler_pending_alarms 1")

	rec = do(t, h, http.MethodGet, "/openapi.json", "")
	require.Equal(t, http.StatusOK, rec.Code)
	require.Contains(t, rec.Body.String(), "start-alarm")
}
