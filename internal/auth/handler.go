package auth

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/onboardly/backend/internal/api"
	"github.com/onboardly/backend/internal/models"
	"github.com/onboardly/backend/internal/store"
	"github.com/onboardly/backend/internal/validate"
)

// TokenCookie is the cookie that duplicates the login bearer token.
const TokenCookie = "token"

// UserStore defines the persistence operations the auth handlers need.
type UserStore interface {
	FindByEmail(ctx context.Context, email string) (*models.User, error)
	FindByID(ctx context.Context, id int64) (*models.User, error)
	FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error)
	List(ctx context.Context, f store.ListFilter) ([]models.User, int, error)
	Insert(ctx context.Context, u *models.User) error
	Update(ctx context.Context, id int64, f store.UpdateFields) (*models.User, error)
	Delete(ctx context.Context, id int64) (*models.User, error)
}

// Handler holds the /api/auth HTTP handlers.
type Handler struct {
	users      UserStore
	tokens     *TokenIssuer
	validator  *validate.Validator
	logger     *zap.SugaredLogger
	production bool
}

func NewHandler(users UserStore, tokens *TokenIssuer, validator *validate.Validator, logger *zap.SugaredLogger, production bool) *Handler {
	return &Handler{users: users, tokens: tokens, validator: validator, logger: logger, production: production}
}

// internalDetails exposes error detail outside production only.
func (h *Handler) internalDetails(err error) any {
	if h.production {
		return nil
	}
	return err.Error()
}

// validationFailed writes the 400 envelope when err carries field errors
// and reports whether it did.
func (h *Handler) validationFailed(w http.ResponseWriter, err error) bool {
	if err == nil {
		return false
	}
	var fes validate.FieldErrors
	if errors.As(err, &fes) {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{
			Error:   "Validation failed",
			Details: fes,
		})
		return true
	}
	h.logger.Errorw("validator error", "error", err)
	api.WriteJSON(w, http.StatusInternalServerError, api.Response{
		Error:   "Internal server error",
		Details: h.internalDetails(err),
	})
	return true
}

// Login authenticates a user and issues a 7-day token, duplicated as an
// HTTP-only cookie. The 401 message is deliberately the same whether the
// email is unknown or the password wrong.
func (h *Handler) Login(w http.ResponseWriter, r *http.Request) {
	var req models.LoginRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid JSON format"})
		return
	}

	if err := h.validator.Struct(&req); err != nil {
		var fes validate.FieldErrors
		if errors.As(err, &fes) {
			api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid input", Details: fes})
			return
		}
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Authentication failed"})
		return
	}

	user, err := h.users.FindByEmail(r.Context(), req.Email)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.WriteJSON(w, http.StatusUnauthorized, api.Response{Error: "Invalid credentials"})
			return
		}
		h.logger.Errorw("login lookup failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Authentication failed"})
		return
	}

	if !CheckPassword(req.Password, user.Password) {
		api.WriteJSON(w, http.StatusUnauthorized, api.Response{Error: "Invalid credentials"})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email, LoginTokenTTL)
	if err != nil {
		h.logger.Errorw("token issue failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{Error: "Authentication failed"})
		return
	}

	http.SetCookie(w, &http.Cookie{
		Name:     TokenCookie,
		Value:    token,
		Path:     "/",
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
		MaxAge:   int(LoginTokenTTL / time.Second),
	})

	api.WriteJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data: models.LoginResponse{
			Token: token,
			User:  models.LoginUser{ID: user.ID, Email: user.Email, FullName: user.FullName},
		},
	})
}

// Register creates a user after a uniqueness pre-check on email and phone.
// The pre-check picks the friendly message; the database constraint
// remains the authoritative guard against concurrent registrations.
func (h *Handler) Register(w http.ResponseWriter, r *http.Request) {
	var req models.RegisterRequest
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid JSON format"})
		return
	}

	if h.validationFailed(w, h.validator.Struct(&req)) {
		return
	}

	existing, err := h.users.FindByEmailOrPhone(r.Context(), req.Email, req.Phone)
	if err != nil {
		h.logger.Errorw("uniqueness pre-check failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}
	if existing != nil {
		// Email wins when the single returned row matches both fields.
		if existing.Email == req.Email {
			api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Email already exists"})
			return
		}
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Phone number already exists"})
		return
	}

	hashed, err := HashPassword(req.Password)
	if err != nil {
		h.logger.Errorw("password hash failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
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
			api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Email or phone number already exists"})
			return
		}
		h.logger.Errorw("user insert failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email, UserTokenTTL)
	if err != nil {
		h.logger.Errorw("token issue failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}

	api.WriteJSON(w, http.StatusCreated, api.Response{
		Success: true,
		Data:    user,
		Token:   token,
		Message: "User created successfully",
	})
}

// List returns users filtered by the optional search and limit query
// parameters. Total counts the post-filter, pre-limit result.
func (h *Handler) List(w http.ResponseWriter, r *http.Request) {
	filter := listFilterFromQuery(r)

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

// Update rewrites a user's profile. A present password is re-hashed; an
// absent one keeps the stored hash and a fresh 24-hour token is issued
// either way.
func (h *Handler) Update(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID any `json:"id"`
		models.UpdateUserRequest
	}
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid JSON format"})
		return
	}

	id, ok := numericID(req.ID)
	if !ok {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Valid ID is required"})
		return
	}

	if _, err := h.users.FindByID(r.Context(), id); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, api.Response{Error: "User not found"})
			return
		}
		h.logger.Errorw("update lookup failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}

	if h.validationFailed(w, h.validator.Struct(&req.UpdateUserRequest)) {
		return
	}

	fields := store.UpdateFields{
		FullName: req.FullName,
		Email:    req.Email,
		Phone:    req.Phone,
	}
	if req.Password != "" {
		hashed, err := HashPassword(req.Password)
		if err != nil {
			h.logger.Errorw("password hash failed", "error", err)
			api.WriteJSON(w, http.StatusInternalServerError, api.Response{
				Error:   "Internal server error",
				Details: h.internalDetails(err),
			})
			return
		}
		fields.Password = hashed
	}

	user, err := h.users.Update(r.Context(), id, fields)
	if err != nil {
		switch {
		case errors.Is(err, store.ErrNotFound):
			api.WriteJSON(w, http.StatusNotFound, api.Response{Error: "User not found"})
		case errors.Is(err, store.ErrDuplicate):
			api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Email or phone number already exists"})
		default:
			h.logger.Errorw("user update failed", "error", err)
			api.WriteJSON(w, http.StatusInternalServerError, api.Response{
				Error:   "Internal server error",
				Details: h.internalDetails(err),
			})
		}
		return
	}

	token, err := h.tokens.Issue(user.ID, user.Email, UserTokenTTL)
	if err != nil {
		h.logger.Errorw("token issue failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    user,
		Token:   token,
		Message: "User updated successfully",
	})
}

// Delete removes a user and returns the deleted row's snapshot.
func (h *Handler) Delete(w http.ResponseWriter, r *http.Request) {
	var req struct {
		ID any `json:"id"`
	}
	if err := api.DecodeJSON(r, &req); err != nil {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Invalid JSON format"})
		return
	}

	id, ok := numericID(req.ID)
	if !ok {
		api.WriteJSON(w, http.StatusBadRequest, api.Response{Error: "Valid ID is required"})
		return
	}

	user, err := h.users.Delete(r.Context(), id)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, api.Response{Error: "User not found"})
			return
		}
		h.logger.Errorw("user delete failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Response{
		Success: true,
		Data:    user,
		Message: "User deleted successfully",
	})
}

// Me returns the user asserted by the bearer token RequireAuth validated.
func (h *Handler) Me(w http.ResponseWriter, r *http.Request) {
	userID, ok := r.Context().Value("user_id").(int64)
	if !ok {
		api.WriteJSON(w, http.StatusUnauthorized, api.Response{Error: "not authenticated"})
		return
	}

	user, err := h.users.FindByID(r.Context(), userID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			api.WriteJSON(w, http.StatusNotFound, api.Response{Error: "User not found"})
			return
		}
		h.logger.Errorw("me lookup failed", "error", err)
		api.WriteJSON(w, http.StatusInternalServerError, api.Response{
			Error:   "Internal server error",
			Details: h.internalDetails(err),
		})
		return
	}

	api.WriteJSON(w, http.StatusOK, api.Response{Success: true, Data: user})
}

// numericID accepts only a JSON number id, matching the historical "Valid
// ID is required" contract. Strings and missing values are rejected.
func numericID(raw any) (int64, bool) {
	f, ok := raw.(float64)
	if !ok || f == 0 {
		return 0, false
	}
	return int64(f), true
}

// listFilterFromQuery parses search and limit. A non-numeric or
// non-positive limit is ignored rather than rejected.
func listFilterFromQuery(r *http.Request) store.ListFilter {
	filter := store.ListFilter{Search: r.URL.Query().Get("search")}
	if raw := r.URL.Query().Get("limit"); raw != "" {
		if n, err := strconv.Atoi(raw); err == nil && n > 0 {
			filter.Limit = n
		}
	}
	return filter
}
