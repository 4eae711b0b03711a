package subject

import (
	"errors"
	"log/slog"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-playground/validator/v10"

	"github.com/ledgerline/ledgerline/internal/platform/httpx"
)

// Handler wires chart-of-accounts endpoints.
type Handler struct {
	logger    *slog.Logger
	service   *Service
	validator *validator.Validate
}

// NewHandler constructs a Handler instance.
func NewHandler(logger *slog.Logger, service *Service) *Handler {
	return &Handler{logger: logger, service: service, validator: validator.New()}
}

// MountRoutes registers subject routes on the provided router.
func (h *Handler) MountRoutes(r chi.Router) {
	r.Get("/books/{bookID}/subjects", h.list)
	r.Post("/books/{bookID}/subjects", h.create)
	r.Get("/books/{bookID}/subjects/{code}", h.get)
}

type subjectResponse struct {
	Code         string `json:"code"`
	Name         string `json:"name"`
	Category     string `json:"category"`
	Direction    string `json:"direction"`
	ParentCode   string `json:"parent_code,omitempty"`
	AuxDimension string `json:"aux_dimension,omitempty"`
	IsActive     bool   `json:"is_active"`
}

func toResponse(s Subject) subjectResponse {
	return subjectResponse{
		Code:         s.Code,
		Name:         s.Name,
		Category:     string(s.Category),
		Direction:    string(s.Direction),
		ParentCode:   s.ParentCode,
		AuxDimension: s.AuxDimension,
		IsActive:     s.IsActive,
	}
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	subjects, err := h.service.List(r.Context(), bookID)
	if err != nil {
		h.respondError(w, err)
		return
	}
	out := make([]subjectResponse, 0, len(subjects))
	for _, s := range subjects {
		out = append(out, toResponse(s))
	}
	httpx.JSON(w, http.StatusOK, out)
}

func (h *Handler) get(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	subject, err := h.service.Get(r.Context(), bookID, chi.URLParam(r, "code"))
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusOK, toResponse(subject))
}

type createSubjectRequest struct {
	Code         string `json:"code" validate:"required"`
	Name         string `json:"name" validate:"required"`
	Category     string `json:"category" validate:"required,oneof=ASSET LIABILITY EQUITY COST PROFIT_AND_LOSS"`
	Direction    string `json:"direction" validate:"required,oneof=DEBIT CREDIT"`
	ParentCode   string `json:"parent_code"`
	AuxDimension string `json:"aux_dimension"`
}

func (h *Handler) create(w http.ResponseWriter, r *http.Request) {
	bookID, err := bookIDParam(r)
	if err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid book id")
		return
	}
	var req createSubjectRequest
	if err := httpx.DecodeJSON(r, &req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Bad Request", "invalid JSON body")
		return
	}
	if err := h.validator.Struct(req); err != nil {
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
		return
	}
	created, err := h.service.Create(r.Context(), CreateInput{
		BookID:       bookID,
		Code:         req.Code,
		Name:         req.Name,
		Category:     Category(req.Category),
		Direction:    Direction(req.Direction),
		ParentCode:   req.ParentCode,
		AuxDimension: req.AuxDimension,
	})
	if err != nil {
		h.respondError(w, err)
		return
	}
	httpx.JSON(w, http.StatusCreated, toResponse(created))
}

func (h *Handler) respondError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, ErrNotFound):
		httpx.Problem(w, http.StatusNotFound, "Not Found", err.Error())
	case errors.Is(err, ErrDuplicateCode):
		httpx.Problem(w, http.StatusConflict, "Duplicate", err.Error())
	case errors.Is(err, ErrInvalidParent):
		httpx.Problem(w, http.StatusBadRequest, "Validation Failed", err.Error())
	default:
		h.logger.Error("subject request failed", slog.Any("error", err))
		httpx.Problem(w, http.StatusInternalServerError, "Internal Error", "")
	}
}

func bookIDParam(r *http.Request) (int64, error) {
	return strconv.ParseInt(chi.URLParam(r, "bookID"), 10, 64)
}
