package journal

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/money"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// Handler wires cash/bank journal endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers journal routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books/{bookID}/accounts", h.listAccounts)
	r.Get("/books/{bookID}/accounts/{accountID}/entries", h.listEntries)
	r.Post("/books/{bookID}/entries", h.createEntry)
	r.Put("/books/{bookID}/entries/{id}", h.updateEntry)
	r.Delete("/books/{bookID}/entries/{id}", h.deleteEntry)
	r.Post("/books/{bookID}/transfers", h.internalTransfer)
	r.Post("/books/{bookID}/entries/generate-vouchers", h.generateVouchers)
}

type accountResponse struct {
	ID             int64  `json:"id"`
	Name           string `json:"name"`
	SubjectCode    string `json:"subject_code"`
	OpeningBalance string `json:"opening_balance"`
	IsActive       bool   `json:"is_active"`
}

func (h *Handler) listAccounts(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	accounts, err := h.service.Accounts(r.Context(), bookID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]accountResponse, 0, len(accounts))
	for _, a := range accounts {
		out = append(out, accountResponse{
			ID:             a.ID,
			Name:           a.Name,
			SubjectCode:    a.SubjectCode,
			OpeningBalance: money.FromCents(a.OpeningBalance),
			IsActive:       a.IsActive,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type entryResponse struct {
	ID               int64  `json:"id"`
	AccountID        int64  `json:"account_id"`
	Date             string `json:"date"`
	Summary          string `json:"summary"`
	Income           string `json:"income"`
	Expense          string `json:"expense"`
	CounterpartyCode string `json:"counterparty_code,omitempty"`
	TransferNo       string `json:"transfer_no,omitempty"`
	VoucherCode      string `json:"voucher_code,omitempty"`
	Locked           bool   `json:"locked"`
	RunningBalance   string `json:"running_balance"`
}

func toEntryResponse(e Entry) entryResponse {
	return entryResponse{
		ID:               e.ID,
		AccountID:        e.AccountID,
		Date:             e.Date.Format("2006-01-02"),
		Summary:          e.Summary,
		Income:           money.FromCents(e.Income),
		Expense:          money.FromCents(e.Expense),
		CounterpartyCode: e.CounterpartyCode,
		TransferNo:       e.TransferNo,
		VoucherCode:      e.VoucherCode,
		Locked:           e.Locked(),
		RunningBalance:   money.FromCents(e.RunningBalance),
	}
}

func (h *Handler) listEntries(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	accountID, err := int64Param(r, "accountID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid account id")
		return
	}
	window, err := windowFromQuery(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "dates must be YYYY-MM-DD")
		return
	}
	entries, err := h.service.Entries(r.Context(), bookID, accountID, window)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]entryResponse, 0, len(entries))
	for _, e := range entries {
		out = append(out, toEntryResponse(e))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createEntryRequest struct {
	AccountID        int64  `json:"account_id" validate:"required"`
	Date             string `json:"date" validate:"required"`
	Summary          string `json:"summary" validate:"required"`
	Income           string `json:"income"`
	Expense          string `json:"expense"`
	CounterpartyCode string `json:"counterparty_code"`
}

func (h *Handler) createEntry(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	var req createEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, income, expense, err := parseEntryFields(req.Date, req.Income, req.Expense)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.CreateEntry(r.Context(), CreateEntryInput{
		BookID:           bookID,
		AccountID:        req.AccountID,
		Date:             date,
		Summary:          req.Summary,
		Income:           income,
		Expense:          expense,
		CounterpartyCode: req.CounterpartyCode,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toEntryResponse(created))
}

type updateEntryRequest struct {
	Date             string `json:"date" validate:"required"`
	Summary          string `json:"summary" validate:"required"`
	Income           string `json:"income"`
	Expense          string `json:"expense"`
	CounterpartyCode string `json:"counterparty_code"`
}

func (h *Handler) updateEntry(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	entryID, err := int64Param(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	var req updateEntryRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, income, expense, err := parseEntryFields(req.Date, req.Income, req.Expense)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.UpdateEntry(r.Context(), UpdateEntryInput{
		BookID:           bookID,
		EntryID:          entryID,
		Date:             date,
		Summary:          req.Summary,
		Income:           income,
		Expense:          expense,
		CounterpartyCode: req.CounterpartyCode,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toEntryResponse(updated))
}

func (h *Handler) deleteEntry(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	entryID, err := int64Param(r, "id")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid entry id")
		return
	}
	if err := h.service.DeleteEntry(r.Context(), bookID, entryID); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type transferRequest struct {
	FromAccountID int64  `json:"from_account_id" validate:"required"`
	ToAccountID   int64  `json:"to_account_id" validate:"required"`
	Date          string `json:"date" validate:"required"`
	Amount        string `json:"amount" validate:"required"`
	Summary       string `json:"summary" validate:"required"`
}

func (h *Handler) internalTransfer(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	var req transferRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	date, err := time.Parse("2006-01-02", req.Date)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", "date must be YYYY-MM-DD")
		return
	}
	amount, err := money.ToCents(req.Amount)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	out, in, err := h.service.InternalTransfer(r.Context(), TransferInput{
		BookID:        bookID,
		FromAccountID: req.FromAccountID,
		ToAccountID:   req.ToAccountID,
		Date:          date,
		Amount:        amount,
		Summary:       req.Summary,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"transfer_no": out.TransferNo,
		"outflow":     toEntryResponse(out),
		"inflow":      toEntryResponse(in),
	})
}

type generateVouchersRequest struct {
	EntryIDs       []int64 `json:"entry_ids" validate:"required,min=1"`
	Merge          bool    `json:"merge"`
	Maker          string  `json:"maker" validate:"required"`
	TaxEnabled     bool    `json:"tax_enabled"`
	TaxRate        string  `json:"tax_rate"`
	TaxSubjectCode string  `json:"tax_subject_code"`
}

func (h *Handler) generateVouchers(w http.ResponseWriter, r *http.Request) {
	bookID, err := int64Param(r, "bookID")
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	var req generateVouchersRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	tax := TaxConfig{Enabled: req.TaxEnabled, SubjectCode: req.TaxSubjectCode}
	if req.TaxEnabled {
		tax.Rate, err = money.ParseRate(req.TaxRate)
		if err != nil {
			httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
			return
		}
	}
	vouchers, err := h.service.GenerateVouchers(r.Context(), GenerateInput{
		BookID:   bookID,
		EntryIDs: req.EntryIDs,
		Merge:    req.Merge,
		Tax:      tax,
		Maker:    req.Maker,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]map[string]any, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, map[string]any{
			"voucher_id":  v.ID,
			"type":        v.Type,
			"sequence_no": v.SequenceNo,
			"debit_total": money.FromCents(v.DebitTotal()),
		})
	}
	httpx.JSON(w, http.StatusCreated, out)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var locked *LockedError
	var periodLocked *voucher.PeriodLockedError
	switch {
	case errors.As(err, &locked):
		httpx.Problem(w, http.StatusConflict, "Locked By Voucher", locked.Error())
	case errors.As(err, &periodLocked):
		httpx.Problem(w, http.StatusConflict, "Period Locked", periodLocked.Error())
	case errors.Is(err, ErrNotFound), errors.Is(err, ErrAccountNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrLockedByVoucher):
		httpx.Problem(w, http.StatusConflict, "Locked By Voucher", err.Error())
	case errors.Is(err, ErrInconsistentMerge),
		errors.Is(err, ErrExclusiveAmount),
		errors.Is(err, ErrNotClassified),
		errors.Is(err, ErrNoEntries),
		errors.Is(err, ErrSameAccount),
		errors.Is(err, money.ErrInvalidAmount):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, voucher.ErrImbalance), errors.Is(err, voucher.ErrUnknownSubject):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("journal request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func parseEntryFields(dateStr, incomeStr, expenseStr string) (time.Time, int64, int64, error) {
	date, err := time.Parse("2006-01-02", dateStr)
	if err != nil {
		return time.Time{}, 0, 0, errors.New("date must be YYYY-MM-DD")
	}
	var income, expense int64
	if incomeStr != "" {
		if income, err = money.ToCents(incomeStr); err != nil {
			return time.Time{}, 0, 0, err
		}
	}
	if expenseStr != "" {
		if expense, err = money.ToCents(expenseStr); err != nil {
			return time.Time{}, 0, 0, err
		}
	}
	return date, income, expense, nil
}

func windowFromQuery(r *http.Request) (EntryWindow, error) {
	var window EntryWindow
	if from := r.URL.Query().Get("from"); from != "" {
		t, err := time.Parse("2006-01-02", from)
		if err != nil {
			return EntryWindow{}, err
		}
		window.From = t
	}
	if to := r.URL.Query().Get("to"); to != "" {
		t, err := time.Parse("2006-01-02", to)
		if err != nil {
			return EntryWindow{}, err
		}
		window.To = t
	}
	return window, nil
}

func int64Param(r *http.Request, name string) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, name), 10, 64)
}
