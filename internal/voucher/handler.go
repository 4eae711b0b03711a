package voucher

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
)

// Handler wires voucher endpoints. Amounts cross the wire as decimal
// strings; the handler converts to cents at the boundary.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers voucher routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books/{bookID}/vouchers", h.list)
	r.Post("/books/{bookID}/vouchers", h.create)
	r.Get("/books/{bookID}/vouchers/{id}", h.get)
	r.Put("/books/{bookID}/vouchers/{id}", h.update)
	r.Delete("/books/{bookID}/vouchers/{id}", h.delete)
	r.Post("/books/{bookID}/vouchers/{id}/approve", h.approve)
	r.Post("/books/{bookID}/vouchers/{id}/unapprove", h.unapprove)
}

type lineRequest struct {
	Summary      string `json:"summary" validate:"required"`
	SubjectCode  string `json:"subject_code" validate:"required"`
	Debit        string `json:"debit"`
	Credit       string `json:"credit"`
	AuxDimension string `json:"aux_dimension"`
	AuxItemID    string `json:"aux_item_id"`
}

type createVoucherRequest struct {
	Date  string        `json:"date" validate:"required"`
	Type  string        `json:"type" validate:"required,len=1"`
	Maker string        `json:"maker" validate:"required"`
	Lines []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type updateVoucherRequest struct {
	Date  string        `json:"date" validate:"required"`
	Actor string        `json:"actor" validate:"required"`
	Lines []lineRequest `json:"lines" validate:"required,min=2,dive"`
}

type actorRequest struct {
	Actor string `json:"actor" validate:"required"`
}

type lineResponse struct {
	Summary      string `json:"summary"`
	SubjectCode  string `json:"subject_code"`
	Debit        string `json:"debit"`
	Credit       string `json:"credit"`
	AuxDimension string `json:"aux_dimension,omitempty"`
	AuxItemID    string `json:"aux_item_id,omitempty"`
}

type voucherResponse struct {
	ID          int64          `json:"id"`
	Date        string         `json:"date"`
	Period      string         `json:"period"`
	Type        string         `json:"type"`
	SequenceNo  int64          `json:"sequence_no"`
	Status      string         `json:"status"`
	Origin      string         `json:"origin"`
	ClosingKind string         `json:"closing_kind,omitempty"`
	Maker       string         `json:"maker"`
	Auditor     string         `json:"auditor,omitempty"`
	DebitTotal  string         `json:"debit_total"`
	CreditTotal string         `json:"credit_total"`
	Lines       []lineResponse `json:"lines"`
}

func toResponse(v Voucher) voucherResponse {
	out := voucherResponse{
		ID:          v.ID,
		Date:        v.Date.Format("2006-01-02"),
		Period:      v.Period(),
		Type:        v.Type,
		SequenceNo:  v.SequenceNo,
		Status:      string(v.Status),
		Origin:      string(v.Origin),
		ClosingKind: v.ClosingKind,
		Maker:       v.Maker,
		Auditor:     v.Auditor,
		DebitTotal:  money.FromCents(v.DebitTotal()),
		CreditTotal: money.FromCents(v.CreditTotal()),
	}
	for _, line := range v.Lines {
		out.Lines = append(out.Lines, lineResponse{
			Summary:      line.Summary,
			SubjectCode:  line.SubjectCode,
			Debit:        money.FromCents(line.Debit),
			Credit:       money.FromCents(line.Credit),
			AuxDimension: line.AuxDimension,
			AuxItemID:    line.AuxItemID,
		})
	}
	return out
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	vouchers, err := h.service.List(r.Context(), bookID, r.URL.Query().Get("period"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]voucherResponse, 0, len(vouchers))
	for _, v := range vouchers {
		out = append(out, toResponse(v))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	bookID, voucherID, err := pathIDs(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	v, err := h.service.Get(r.Context(), bookID, voucherID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(v))
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	var req createVoucherRequest
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
	lines, err := toLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		BookID: bookID,
		Date:   date,
		Type:   req.Type,
		Maker:  req.Maker,
		Origin: OriginUserEntered,
		Status: StatusDraft,
		Lines:  lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) update(w http.ResponseWriter, r *http.Request) {
	bookID, voucherID, err := pathIDs(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req updateVoucherRequest
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
	lines, err := toLines(req.Lines)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	updated, err := h.service.Update(r.Context(), UpdateInput{
		BookID:    bookID,
		VoucherID: voucherID,
		Date:      date,
		Actor:     req.Actor,
		Lines:     lines,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(updated))
}

func (h *Handler) delete(w http.ResponseWriter, r *http.Request) {
	bookID, voucherID, err := pathIDs(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	actor := r.URL.Query().Get("actor")
	if err := h.service.Delete(r.Context(), bookID, voucherID, actor); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) approve(w http.ResponseWriter, r *http.Request) {
	bookID, voucherID, err := pathIDs(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err == nil {
		_ = h.validator.Struct(req)
	}
	if err := h.service.Approve(r.Context(), bookID, voucherID, req.Actor); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) unapprove(w http.ResponseWriter, r *http.Request) {
	bookID, voucherID, err := pathIDs(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid id")
		return
	}
	var req actorRequest
	if err := httpx.DecodeJSON(r, &req); err == nil {
		_ = h.validator.Struct(req)
	}
	if err := h.service.Unapprove(r.Context(), bookID, voucherID, req.Actor); err != nil {
		h.respondError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toLines(reqs []lineRequest) ([]Line, error) {
	lines := make([]Line, 0, len(reqs))
	for _, lr := range reqs {
		debit, err := parseAmount(lr.Debit)
		if err != nil {
			return nil, err
		}
		credit, err := parseAmount(lr.Credit)
		if err != nil {
			return nil, err
		}
		lines = append(lines, Line{
			Summary:      lr.Summary,
			SubjectCode:  lr.SubjectCode,
			Debit:        debit,
			Credit:       credit,
			AuxDimension: lr.AuxDimension,
			AuxItemID:    lr.AuxItemID,
		})
	}
	return lines, nil
}

// parseAmount treats an absent side as zero; the exclusivity check decides
// whether the combination is legal.
func parseAmount(s string) (int64, error) {
	if s == "" {
		return 0, nil
	}
	return money.ToCents(s)
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	var lockedErr *PeriodLockedError
	switch {
	case errors.As(err, &lockedErr):
		httpx.Problem(w, http.StatusConflict, "Period Locked", lockedErr.Error())
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateClosing):
		httpx.Problem(w, http.StatusConflict, "Duplicate Closing Voucher", err.Error())
	case errors.Is(err, ErrDeleteApproved), errors.Is(err, ErrNotDraft), errors.Is(err, ErrNotApproved):
		httpx.Problem(w, http.StatusConflict, "State Conflict", err.Error())
	case errors.Is(err, ErrImbalance),
		errors.Is(err, ErrTooFewLines),
		errors.Is(err, ErrEmptyLine),
		errors.Is(err, ErrExclusivity),
		errors.Is(err, ErrNegativeAmount),
		errors.Is(err, ErrZeroTotal),
		errors.Is(err, ErrMissingAuxiliary),
		errors.Is(err, ErrUnknownSubject):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("voucher request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func bookIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
}

func pathIDs(r *http.Request) (bookID, id int64, err error) {
	bookID, err = bookIDParam(r)
	if err != nil {
		return 0, 0, err
	}
	id, err = strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return bookID, id, err
}
