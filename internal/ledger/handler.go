package ledger

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/money"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/subject"
)

// Handler wires balance and trial-balance endpoints.
type Handler struct {
	logger  *slog.Logger
	service *Service
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service}
}

// MountRoutes registers ledger routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books/{bookID}/balances", h.balance)
	r.Get("/books/{bookID}/trial-balance", h.trial)
}

type balanceResponse struct {
	Code        string `json:"code"`
	Name        string `json:"name"`
	Period      string `json:"period"`
	DebitTotal  string `json:"debit_total"`
	CreditTotal string `json:"credit_total"`
	Net         string `json:"net"`
}

func (h *Handler) balance(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	q := BalanceQuery{
		BookID:     bookID,
		Code:       r.URL.Query().Get("code"),
		Period:     r.URL.Query().Get("period"),
		YearToDate: r.URL.Query().Get("ytd") == "true",
	}
	if q.Code == "" {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "code query parameter required")
		return
	}
	result, err := h.service.Balance(r.Context(), q)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, balanceResponse{
		Code:        result.Subject.Code,
		Name:        result.Subject.Name,
		Period:      result.Period,
		DebitTotal:  money.FromCents(result.Balance.DebitTotal),
		CreditTotal: money.FromCents(result.Balance.CreditTotal),
		Net:         money.FromCents(result.Balance.Net),
	})
}

type trialRowResponse struct {
	Code   string `json:"code"`
	Name   string `json:"name"`
	Debit  string `json:"debit"`
	Credit string `json:"credit"`
	Net    string `json:"net"`
	IsLeaf bool   `json:"is_leaf"`
}

type trialResponse struct {
	Period      string             `json:"period"`
	Rows        []trialRowResponse `json:"rows"`
	TotalDebit  string             `json:"total_debit"`
	TotalCredit string             `json:"total_credit"`
}

func (h *Handler) trial(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	period := r.URL.Query().Get("period")
	if _, _, err := book.ParsePeriod(period); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "period must be YYYY-MM")
		return
	}
	tb, err := h.service.Trial(r.Context(), bookID, period)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := trialResponse{
		Period:      tb.Period,
		TotalDebit:  money.FromCents(tb.TotalDebit),
		TotalCredit: money.FromCents(tb.TotalCredit),
	}
	for _, row := range tb.Rows {
		out.Rows = append(out.Rows, trialRowResponse{
			Code:   row.Code,
			Name:   row.Name,
			Debit:  money.FromCents(row.Debit),
			Credit: money.FromCents(row.Credit),
			Net:    money.FromCents(row.Net),
			IsLeaf: row.IsLeaf,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, subject.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, book.ErrInvalidPeriod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("ledger request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}
