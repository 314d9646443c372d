package jobs

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubInspector struct {
	infos map[string]*asynq.QueueInfo
	err   error
}

func (s stubInspector) GetQueueInfo(queue string) (*asynq.QueueInfo, error) {
	if s.err != nil {
		return nil, s.err
	}
	info, ok := s.infos[queue]
	if !ok {
		return nil, asynq.ErrQueueNotFound
	}
	return info, nil
}

func serveHealth(t *testing.T, inspector QueueInspector) *httptest.ResponseRecorder {
	t.Helper()
	r := chi.NewRouter()
	NewHandler(inspector, nil).MountRoutes(r)
	rr := httptest.NewRecorder()
	r.ServeHTTP(rr, httptest.NewRequest(http.MethodGet, "/health", nil))
	return rr
}

func TestHealthReportsQueues(t *testing.T) {
	rr := serveHealth(t, stubInspector{infos: map[string]*asynq.QueueInfo{
		QueueAudit: {Queue: QueueAudit, Pending: 4, Retry: 1, Archived: 2},
	}})
	require.Equal(t, http.StatusOK, rr.Code)

	var body struct {
		Queues []queueHealth `json:"queues"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &body))
	require.Equal(t, []queueHealth{
		{Queue: QueueAudit, Pending: 4, Retry: 1, Dead: 2},
		{Queue: QueueDefault},
	}, body.Queues)
}

func TestHealthInspectorFailure(t *testing.T) {
	rr := serveHealth(t, stubInspector{err: errors.New("redis down")})
	require.Equal(t, http.StatusServiceUnavailable, rr.Code)
}

func TestHealthWithoutInspector(t *testing.T) {
	rr := serveHealth(t, nil)
	require.Equal(t, http.StatusOK, rr.Code)
	require.Contains(t, rr.Body.String(), `"queue":"audit"`)
}

func TestNewWorkerRejectsBadCron(t *testing.T) {
	srv := miniredis.RunT(t)
	task, err := NewGLIntegrityTask(0)
	require.NoError(t, err)

	_, err = NewWorker(WorkerConfig{
		RedisOpts: asynq.RedisClientOpt{Addr: srv.Addr()},
		Cron:      []CronRegistration{{Spec: "every tuesday", Task: task}},
	})
	require.ErrorContains(t, err, TaskGLIntegrity)
}

func TestTaskErrorLoggerEscalatesFinalAttempt(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	taskErrorLogger(logger)(context.Background(), asynq.NewTask(TaskGLIntegrity, nil), errors.New("db down"))
	require.Contains(t, buf.String(), "level=ERROR")
	require.Contains(t, buf.String(), "type=gl:integrity")
}
