package users

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"go.uber.org/zap"

	"github.com/onboardly/backend/internal/api"
	"github.com/onboardly/backend/internal/auth"
	"github.com/onboardly/backend/internal/models"
	"github.com/onboardly/backend/internal/store"
	"github.com/onboardly/backend/internal/validate"
)

// UserStore defines the persistence operations the users handlers need.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	List(ctx context.Context, f store.ListFilter) ([]models.User, int, error)
	Insert(ctx context.Context, u *models.User) error
}

// Handler holds the /api/users HTTP handlers. The route family predates
// /api/auth and keeps its own conventions: collisions answer 409 here and
// no token is issued on create.
type Handler struct {
	users      UserStore
	validator  *validate.Validator
	logger     *zap.SugaredLogger
	production bool
}

func NewHandler(users UserStore, validator *validate.Validator, logger *zap.SugaredLogger, production bool) *Handler {
	return &Handler{users: users, validator: validator, logger: logger, production: production}
}

// Create registers a user without issuing a token.
func (h *Handler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateUserRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid JSON format"})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		var fes validate.FieldErrors
		if errors.As(err, &fes) {
			api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Validation failed", Details: fes})
			return
		}
		h.logger.Errorw("validator error", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Failed to create user"})
		return
	}

	_, err := h.users.FindByEmail(r.Context(), req.Email)
	if err == nil {
		api.WriteJSON(w, http.StatusConflict, api.Response{Error: "User with this email already exists"})
		return
	}
	if !errors.Is(err, store.ErrNotFound) {
		h.logger.Errorw("uniqueness pre-check failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Failed to create user"})
		return
	}

	hashed, err := auth.HashPassword(req.Password)
	if err != nil {
		h.logger.Errorw("password hash failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Failed to create user"})
		return
	}

	user := models.User{
		FullName: req.FullName,
		Email:    req.Email,
		Password: hashed,
		Phone:    req.Phone,
	}
	if err := h.users.Insert(r.Context(), &user); err != nil {
		if errors.Is(err, store.ErrDuplicate) {
			api.WriteJSON(w, http.StatusConflict, api.Response{Error: "User with this email already exists"})
			return
		}
		h.logger.Errorw("user insert failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Failed to create user"})
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.Response{
		Success: true,
		Data:    user,
		Message: "User created successfully",
	})
}

// Get serves both the single-record lookup (?id=) and the filtered list.
func (h *Handler) Get(w http.ResponseWriter, r *http.Request) {
	if raw := r.URL.Query().Get("id"); raw != "" {
		h.getByID(w, r, raw)
		return
	}
	h.list(w, r)
}

func (h *Handler) getByID(w http.ResponseWriter, r *http.Request, raw string) {
	id, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid user ID"})
		return
	}

	user, err := h.users.FindByID(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, api.Response{Error: "User not found"})
			return
		}
		h.logger.Errorw("user lookup failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Failed to retrieve users"})
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    user,
		Message: "User retrieved successfully",
	})
}

func (h *Handler) list(w http.ResponseWriter, r *http.Request) {
	filter := store.ListFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}

	users, total, err := h.users.List(r.Context(), filter)
	if err != nil {
		h.logger.Errorw("user list failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Failed to retrieve users"})
		return
	}

	if h.production {
		w.Header().Set("Cache-Control", "max-age=60, s-maxage=300, stale-while-revalidate=3600")
	}

	api.WriteJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    users,
		Total:   api.Int(total),
		Message: "Users retrieved successfully",
	})
}
