package jobs

import (
	"context"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/hibiken/asynq"
	"github.com/stretchr/testify/require"
)

type stubEnqueuer struct {
	integrity []LedgerIntegrityPayload
	recompute []JournalRecomputePayload
}

func (s *stubEnqueuer) EnqueueLedgerIntegrity(_ context.Context, payload LedgerIntegrityPayload) (*asynq.TaskInfo, error) {
	s.integrity = append(s.integrity, payload)
	return &asynq.TaskInfo{ID: "task-1", Queue: QueueDefault}, nil
}

func (s *stubEnqueuer) EnqueueJournalRecompute(_ context.Context, payload JournalRecomputePayload) (*asynq.TaskInfo, error) {
	s.recompute = append(s.recompute, payload)
	return &asynq.TaskInfo{ID: "task-2", Queue: QueueDefault}, nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func mountHandler(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Route("/jobs", h.MountRoutes)
	return r
}

func TestJobsHealthWithoutInspector(t *testing.T) {
	router := mountHandler(NewHandler(nil, nil, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs/health", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	require.JSONEq(t, `{"queue":"default","pending":0}`, rec.Body.String())
}

func TestEnqueueIntegritySweep(t *testing.T) {
	enq := &stubEnqueuer{}
	router := mountHandler(NewHandler(nil, enq, discardLogger()))

	body := strings.NewReader(`{"book_id":7,"period":"2025-11"}`)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/integrity", body))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.JSONEq(t, `{"task_id":"task-1","queue":"default"}`, rec.Body.String())
	require.Equal(t, []LedgerIntegrityPayload{{BookID: 7, Period: "2025-11"}}, enq.integrity)
}

func TestEnqueueRecomputeEmptyBodySweepsAllBooks(t *testing.T) {
	enq := &stubEnqueuer{}
	router := mountHandler(NewHandler(nil, enq, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/recompute", nil))

	require.Equal(t, http.StatusAccepted, rec.Code)
	require.Equal(t, []JournalRecomputePayload{{}}, enq.recompute)
}

func TestEnqueueRejectsBadPayload(t *testing.T) {
	enq := &stubEnqueuer{}
	router := mountHandler(NewHandler(nil, enq, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/integrity", strings.NewReader(`{`)))

	require.Equal(t, http.StatusBadRequest, rec.Code)
	require.Empty(t, enq.integrity)
}

func TestEnqueueWithoutClientUnavailable(t *testing.T) {
	router := mountHandler(NewHandler(nil, nil, discardLogger()))

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs/integrity", nil))

	require.Equal(t, http.StatusServiceUnavailable, rec.Code)
}
