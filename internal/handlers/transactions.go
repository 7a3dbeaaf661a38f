package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/ssorath/centsible/internal/auth"
	"github.com/ssorath/centsible/internal/models"
	"github.com/ssorath/centsible/internal/services"
	pkghttp "github.com/ssorath/centsible/pkg/http"
)

var (
	errInvalidKind       = errors.New("kind must be income or expense")
	errInvalidPagination = errors.New("limit and offset must be non-negative integers")
)

// TransactionServiceInterface defines the ledger business logic surface.
type TransactionServiceInterface interface {
	Create(ctx context.Context, userID string, input *services.TransactionInput) (*services.TransactionResponse, error)
	Get(ctx context.Context, userID, id string) (*services.TransactionResponse, error)
	List(ctx context.Context, userID string, filter models.TransactionFilter) ([]*services.TransactionResponse, error)
	Update(ctx context.Context, userID, id string, input *services.TransactionInput) (*services.TransactionResponse, error)
	Delete(ctx context.Context, userID, id string) error
	Summarize(ctx context.Context, userID string, from, to time.Time) (*models.Summary, error)
	ListCategories(ctx context.Context, userID string) ([]*models.Category, error)
	CreateCategory(ctx context.Context, userID string, input *services.CategoryInput) (*models.Category, error)
	DeleteCategory(ctx context.Context, userID, id string) error
}

// TransactionHandler handles ledger and category requests.
type TransactionHandler struct {
	service TransactionServiceInterface
}

func NewTransactionHandler(service TransactionServiceInterface) *TransactionHandler {
	return &TransactionHandler{service: service}
}

// Create handles POST /transactions.
func (h *TransactionHandler) Create(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	var req services.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	resp, err := h.service.Create(r.Context(), user.ID, &req)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, resp)
}

// Get handles GET /transactions/{id}.
func (h *TransactionHandler) Get(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	resp, err := h.service.Get(r.Context(), user.ID, chi.URLParam(r, "id"))
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// List handles GET /transactions with optional filters.
func (h *TransactionHandler) List(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	filter, err := parseTransactionFilter(r)
	if err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	resp, err := h.service.List(r.Context(), user.ID, filter)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"transactions": resp})
}

// Update handles PUT /transactions/{id}.
func (h *TransactionHandler) Update(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	var req services.TransactionInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	resp, err := h.service.Update(r.Context(), user.ID, chi.URLParam(r, "id"), &req)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, resp)
}

// Delete handles DELETE /transactions/{id}.
func (h *TransactionHandler) Delete(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	if err := h.service.Delete(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// Summary handles GET /transactions/summary?from=&to=.
func (h *TransactionHandler) Summary(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	from, err := parseDateParam(r, "from")
	if err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid from date")
		return
	}
	to, err := parseDateParam(r, "to")
	if err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid to date")
		return
	}

	summary, err := h.service.Summarize(r.Context(), user.ID, from, to)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, summary)
}

// ListCategories handles GET /categories.
func (h *TransactionHandler) ListCategories(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	cats, err := h.service.ListCategories(r.Context(), user.ID)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusOK, map[string]any{"categories": categoriesToResponse(cats)})
}

// CreateCategory handles POST /categories.
func (h *TransactionHandler) CreateCategory(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	var req services.CategoryInput
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, "Invalid request body")
		return
	}
	if err := ValidateRequest(req); err != nil {
		pkghttp.WriteBadRequest(w, pkghttp.KindValidation, err.Error())
		return
	}

	category, err := h.service.CreateCategory(r.Context(), user.ID, &req)
	if err != nil {
		writeUserError(w, err)
		return
	}

	pkghttp.WriteJSON(w, http.StatusCreated, categoryToResponse(category))
}

// DeleteCategory handles DELETE /categories/{id}.
func (h *TransactionHandler) DeleteCategory(w http.ResponseWriter, r *http.Request) {
	user := auth.GetUserFromContext(r)
	if user == nil {
		pkghttp.WriteUnauthorized(w, pkghttp.KindUnauthorized, "Authentication required")
		return
	}

	if err := h.service.DeleteCategory(r.Context(), user.ID, chi.URLParam(r, "id")); err != nil {
		writeUserError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// CategoryResponse is the read shape for categories.
type CategoryResponse struct {
	ID    string `json:"id"`
	Name  string `json:"name"`
	Kind  string `json:"kind"`
	Color string `json:"color,omitempty"`
}

func categoryToResponse(c *models.Category) *CategoryResponse {
	return &CategoryResponse{ID: c.ID, Name: c.Name, Kind: c.Kind, Color: c.Color}
}

func categoriesToResponse(cats []*models.Category) []*CategoryResponse {
	out := make([]*CategoryResponse, 0, len(cats))
	for _, c := range cats {
		out = append(out, categoryToResponse(c))
	}
	return out
}

func parseTransactionFilter(r *http.Request) (models.TransactionFilter, error) {
	var filter models.TransactionFilter
	var err error

	if filter.From, err = parseDateParam(r, "from"); err != nil {
		return filter, err
	}
	if filter.To, err = parseDateParam(r, "to"); err != nil {
		return filter, err
	}

	filter.Kind = r.URL.Query().Get("kind")
	if filter.Kind != "" && filter.Kind != models.KindIncome && filter.Kind != models.KindExpense {
		return filter, errInvalidKind
	}
	filter.CategoryID = r.URL.Query().Get("categoryId")

	if raw := r.URL.Query().Get("limit"); raw != "" {
		if filter.Limit, err = strconv.Atoi(raw); err != nil || filter.Limit < 0 {
			return filter, errInvalidPagination
		}
	}
	if raw := r.URL.Query().Get("offset"); raw != "" {
		if filter.Offset, err = strconv.Atoi(raw); err != nil || filter.Offset < 0 {
			return filter, errInvalidPagination
		}
	}

	return filter, nil
}

// parseDateParam accepts RFC 3339 timestamps or bare dates.
func parseDateParam(r *http.Request, name string) (time.Time, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return time.Time{}, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02", raw)
}
