package closing

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"
	"github.com/shopspring/decimal"

	"github.com/ledgerline/ledgerline/internal/book"
	"github.com/ledgerline/ledgerline/internal/money"
	"github.com/ledgerline/ledgerline/internal/platform/httpx"
	"github.com/ledgerline/ledgerline/internal/shared"
	"github.com/ledgerline/ledgerline/internal/subject"
	"github.com/ledgerline/ledgerline/internal/voucher"
)

// Handler wires period-closing endpoints: checklist cards, closing-voucher
// generation, close/reverse-close, and transfer templates.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	templates *Repository
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service, templates *Repository) *Handler {
	return &Handler{logger: logger, service: service, templates: templates, validator: validator.New()}
}

// MountRoutes registers closing routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books/{bookID}/periods/{period}/cards", h.cards)
	r.Post("/books/{bookID}/periods/{period}/closing-vouchers", h.generate)
	r.Post("/books/{bookID}/periods/{period}/close", h.close)
	r.Post("/books/{bookID}/periods/{period}/reverse-close", h.reverseClose)
	r.Get("/books/{bookID}/templates", h.listTemplates)
	r.Post("/books/{bookID}/templates", h.createTemplate)
}

type cardResponse struct {
	Kind      string `json:"kind"`
	Label     string `json:"label"`
	Generated bool   `json:"generated"`
	VoucherID int64  `json:"voucher_id,omitempty"`
}

func (h *Handler) cards(w http.ResponseWriter, r *http.Request) {
	bookID, period, err := pathParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	cards, err := h.service.Cards(r.Context(), bookID, period)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]cardResponse, 0, len(cards))
	for _, c := range cards {
		out = append(out, cardResponse(c))
	}
	httpx.JSON(w, http.StatusOK, out)
}

type ruleRequest struct {
	TransferPercent string `json:"transfer_percent"`
	TaxRate         string `json:"tax_rate"`
	CityRate        string `json:"city_rate"`
	EduRate         string `json:"edu_rate"`
	LocalEduRate    string `json:"local_edu_rate"`
	IncomeTaxRate   string `json:"income_tax_rate"`
	ManualAmount    string `json:"manual_amount"`
	TemplateID      int64  `json:"template_id"`

	RevenueCode   string `json:"revenue_code"`
	CostCode      string `json:"cost_code"`
	InventoryCode string `json:"inventory_code"`
}

func (r ruleRequest) toConfig() (RuleConfig, error) {
	cfg := RuleConfig{
		TemplateID:    r.TemplateID,
		RevenueCode:   r.RevenueCode,
		CostCode:      r.CostCode,
		InventoryCode: r.InventoryCode,
	}
	var err error
	parse := func(s string) decimal.Decimal {
		if s == "" || err != nil {
			return decimal.Decimal{}
		}
		var d decimal.Decimal
		d, err = money.ParseRate(s)
		return d
	}
	cfg.TransferPercent = parse(r.TransferPercent)
	cfg.TaxRate = parse(r.TaxRate)
	cfg.CityRate = parse(r.CityRate)
	cfg.EduRate = parse(r.EduRate)
	cfg.LocalEduRate = parse(r.LocalEduRate)
	cfg.IncomeTaxRate = parse(r.IncomeTaxRate)
	if err != nil {
		return RuleConfig{}, err
	}
	if r.ManualAmount != "" {
		cfg.ManualAmount, err = money.ToCents(r.ManualAmount)
		if err != nil {
			return RuleConfig{}, err
		}
	}
	return cfg, nil
}

type generateRequest struct {
	Kind string      `json:"kind" validate:"required"`
	Rule ruleRequest `json:"rule"`
}

func (h *Handler) generate(w http.ResponseWriter, r *http.Request) {
	bookID, period, err := pathParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	var req generateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	cfg, err := req.Rule.toConfig()
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Generate(r.Context(), GenerateInput{
		BookID: bookID,
		Period: period,
		Kind:   req.Kind,
		Rule:   cfg,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, map[string]any{
		"voucher_id":   created.ID,
		"closing_kind": created.ClosingKind,
		"sequence_no":  created.SequenceNo,
		"debit_total":  money.FromCents(created.DebitTotal()),
	})
}

func (h *Handler) close(w http.ResponseWriter, r *http.Request) {
	bookID, period, err := pathParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if err := h.service.AttemptClose(r.Context(), bookID, period); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) reverseClose(w http.ResponseWriter, r *http.Request) {
	bookID, period, err := pathParams(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	result, err := h.service.ReverseClose(r.Context(), bookID, period)
	if err != nil && !errors.Is(err, ErrReverseIncomplete) {
		h.respondError(w, err)
		return
	}
	status := http.StatusOK
	if errors.Is(err, ErrReverseIncomplete) {
		status = http.StatusConflict
	}
	httpx.JSON(w, status, batchResponse(result))
}

type batchItemResponse struct {
	ID    int64  `json:"id"`
	Error string `json:"error"`
}

func batchResponse(result shared.BatchResult) map[string]any {
	failed := make([]batchItemResponse, 0, len(result.Failed))
	for _, item := range result.Failed {
		failed = append(failed, batchItemResponse{ID: item.ID, Error: item.Err.Error()})
	}
	return map[string]any{
		"succeeded": result.Succeeded,
		"failed":    failed,
	}
}

type templateResponse struct {
	ID         int64  `json:"id"`
	Name       string `json:"name"`
	DebitCode  string `json:"debit_code"`
	CreditCode string `json:"credit_code"`
	SourceCode string `json:"source_code,omitempty"`
}

func (h *Handler) listTemplates(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	templates, err := h.templates.ListTemplates(r.Context(), bookID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]templateResponse, 0, len(templates))
	for _, tmpl := range templates {
		out = append(out, templateResponse{
			ID:         tmpl.ID,
			Name:       tmpl.Name,
			DebitCode:  tmpl.DebitCode,
			CreditCode: tmpl.CreditCode,
			SourceCode: tmpl.SourceCode,
		})
	}
	httpx.JSON(w, http.StatusOK, out)
}

type createTemplateRequest struct {
	Name       string `json:"name" validate:"required"`
	DebitCode  string `json:"debit_code" validate:"required"`
	CreditCode string `json:"credit_code" validate:"required"`
	SourceCode string `json:"source_code"`
}

func (h *Handler) createTemplate(w http.ResponseWriter, r *http.Request) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	var req createTemplateRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.templates.InsertTemplate(r.Context(), Template{
		BookID:     bookID,
		Name:       req.Name,
		DebitCode:  req.DebitCode,
		CreditCode: req.CreditCode,
		SourceCode: req.SourceCode,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, templateResponse{
		ID:         created.ID,
		Name:       created.Name,
		DebitCode:  created.DebitCode,
		CreditCode: created.CreditCode,
		SourceCode: created.SourceCode,
	})
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var checklist *ChecklistError
	switch {
	case errors.As(err, &checklist):
		httpx.ProblemWithItems(w, http.StatusConflict, "Checklist Not Satisfied",
			"one or more closing checks are unmet", checklist.Items)
	case errors.Is(err, ErrNothingToTransfer):
		httpx.Problem(w, http.StatusUnprocessableEntity, "Nothing To Transfer", err.Error())
	case errors.Is(err, ErrUnknownKind):
		httpx.Problem(w, http.StatusBadRequest, "Unknown Closing Kind", err.Error())
	case errors.Is(err, ErrNotCurrentPeriod), errors.Is(err, ErrNotLastClosed), errors.Is(err, ErrNotFiscalYearEnd):
		httpx.Problem(w, http.StatusConflict, "Period State Conflict", err.Error())
	case errors.Is(err, voucher.ErrDuplicateClosing):
		httpx.Problem(w, http.StatusConflict, "Duplicate Closing Voucher", err.Error())
	case errors.Is(err, voucher.ErrPeriodLocked):
		httpx.Problem(w, http.StatusConflict, "Period Locked", err.Error())
	case errors.Is(err, ErrTemplateNotFound), errors.Is(err, subject.ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, book.ErrInvalidPeriod):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	case errors.Is(err, shared.ErrLockHeld):
		httpx.Problem(w, http.StatusConflict, "Operation In Progress", err.Error())
	default:
		h.logger.Error("closing request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func pathParams(r *http.Request) (int64, string, error) {
	bookID, err := strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
	if err != nil {
		return 0, "", errors.New("invalid book id")
	}
	period := chi.URLParam(r, "period")
	if _, _, err := book.ParsePeriod(period); err != nil {
		return 0, "", err
	}
	return bookID, period, nil
}
