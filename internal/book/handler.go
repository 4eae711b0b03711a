package book

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Getter loads an account book.
type Getter interface {
	Get(ctx context.Context, bookID int64) (AccountBook, error)
}

// Handler exposes the account book's period cursor and settings.
type Handler struct {
	logger *slog.Logger
	books  Getter
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, books Getter) *Handler {
	return &Handler{logger: logger, books: books}
}

// MountRoutes registers book routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books/{bookID}", h.get)
}

type bookResponse struct {
	ID                   int64  `json:"id"`
	Name                 string `json:"name"`
	OpeningPeriod        string `json:"opening_period"`
	CurrentPeriod        string `json:"current_period"`
	LastClosedPeriod     string `json:"last_closed_period,omitempty"`
	TaxType              string `json:"tax_type"`
	FiscalYearStartMonth int    `json:"fiscal_year_start_month"`
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	b, err := h.books.Get(r.Context(), bookID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
			return
		}
		h.logger.Error("book lookup failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
		return
	}
	httpx.JSON(w, http.StatusOK, bookResponse{
		ID:                   b.ID,
		Name:                 b.Name,
		OpeningPeriod:        b.OpeningPeriod,
		CurrentPeriod:        b.CurrentPeriod,
		LastClosedPeriod:     b.LastClosedPeriod,
		TaxType:              string(b.TaxType),
		FiscalYearStartMonth: b.FiscalYearStartMonth,
	})
}
