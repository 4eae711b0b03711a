package app

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/closing"
	"github.com/ledgerline/ledgerline/internal/journal"
	"github.com/ledgerline/ledgerline/internal/ledger"
	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
	"github.com/ledgerline/ledgerline/jobs"
)

// RouterParams groups dependencies for building the HTTP router.
type RouterParams struct {
	Logger         *slog.Logger
	Config         *Config
	BookHandler    *book.Handler
	SubjectHandler *subject.Handler
	VoucherHandler *voucher.Handler
	LedgerHandler  *ledger.Handler
	ClosingHandler *closing.Handler
	JournalHandler *journal.Handler
	JobsHandler    *jobs.Handler
}

// NewRouter constructs the chi.Router with the API mounted under /api/v1.
func NewRouter(params RouterParams) http.Handler {
	r := chi.NewRouter()

	for _, mw := range MiddlewareStack(MiddlewareConfig{
		Logger: params.Logger,
		Config: params.Config,
	}) {
		r.Use(mw)
	}

	r.Use(chimw.Logger)

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte(`{"status":"ok"}`))
	})

	r.Route("/api/v1", func(r chi.Router) {
		if params.BookHandler != nil {
			params.BookHandler.MountRoutes(r)
		}
		if params.SubjectHandler != nil {
			params.SubjectHandler.MountRoutes(r)
		}
		if params.VoucherHandler != nil {
			params.VoucherHandler.MountRoutes(r)
		}
		if params.LedgerHandler != nil {
			params.LedgerHandler.MountRoutes(r)
		}
		if params.ClosingHandler != nil {
			params.ClosingHandler.MountRoutes(r)
		}
		if params.JournalHandler != nil {
			params.JournalHandler.MountRoutes(r)
		}
		if params.JobsHandler != nil {
			r.Route("/jobs", params.JobsHandler.MountRoutes)
		}
	})

	return r
}
