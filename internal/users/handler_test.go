package users

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/onboardly/backend/internal/auth"
	"github.com/onboardly/backend/internal/models"
	"github.com/onboardly/backend/internal/store"
	"github.com/onboardly/backend/internal/validate"
)

// fakeStore implements UserStore in memory.
type fakeStore struct {
	users  []models.User
	nextID int64
}

func (f *fakeStore) FindByEmail(_ context.Context, email string) (*models.User, error) {
	for i := range f.users {
		if f.users[i].Email == email {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) FindByID(_ context.Context, id int64) (*models.User, error) {
	for i := range f.users {
		if f.users[i].ID == id {
			u := f.users[i]
			return &u, nil
		}
	}
	return nil, store.ErrNotFound
}

func (f *fakeStore) List(_ context.Context, filter store.ListFilter) ([]models.User, int, error) {
	filtered := make([]models.User, 0, len(f.users))
	needle := strings.ToLower(filter.Search)
	for _, u := range f.users {
		if needle == "" ||
			strings.Contains(strings.ToLower(u.FullName), needle) ||
			strings.Contains(strings.ToLower(u.Email), needle) {
			filtered = append(filtered, u)
		}
	}
	total := len(filtered)
	if filter.Limit > 0 && filter.Limit < len(filtered) {
		filtered = filtered[:filter.Limit]
	}
	return filtered, total, nil
}

func (f *fakeStore) Insert(_ context.Context, u *models.User) error {
	for _, existing := range f.users {
		if existing.Email == u.Email || existing.Phone == u.Phone {
			return store.ErrDuplicate
		}
	}
	f.nextID++
	u.ID = f.nextID
	now := time.Now()
	u.CreatedAt = now
	u.UpdatedAt = now
	f.users = append(f.users, *u)
	return nil
}

func newTestHandler(fs *fakeStore) *Handler {
	return NewHandler(fs, validate.New(), zap.NewNop().Sugar(), false)
}

func doJSON(t *testing.T, h http.HandlerFunc, method, target string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	rec := httptest.NewRecorder()
	h(rec, req)
	return rec
}

func decodeEnvelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var env map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &env))
	return env
}

func createBody() models.CreateUserRequest {
	return models.CreateUserRequest{
		FullName: "Jane Doe",
		Email:    "jane@example.com",
		Password: "secret123",
		Phone:    "0123456789",
	}
}

func TestCreate_Success(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	h := newTestHandler(fs)

	rec := doJSON(t, h.Create, http.MethodPost, "/api/users", createBody())

	require.Equal(t, http.StatusCreated, rec.Code)
	require.NotContains(t, rec.Body.String(), `"password"`)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, true, env["success"])
	assert.Equal(t, "User created successfully", env["message"])
	// unlike the register route, no token is issued here
	assert.NotContains(t, env, "token")

	// the password is persisted hashed
	require.Len(t, fs.users, 1)
	assert.NotEqual(t, "secret123", fs.users[0].Password)
	assert.True(t, auth.CheckPassword("secret123", fs.users[0].Password))
}

func TestCreate_EmailConflict(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	h := newTestHandler(fs)

	rec := doJSON(t, h.Create, http.MethodPost, "/api/users", createBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	// this route answers 409, unlike the 400 of the register route
	rec = doJSON(t, h.Create, http.MethodPost, "/api/users", createBody())
	require.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "User with this email already exists", decodeEnvelope(t, rec)["error"])
}

func TestCreate_PhoneConflictFromConstraint(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	h := newTestHandler(fs)

	rec := doJSON(t, h.Create, http.MethodPost, "/api/users", createBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	// fresh email slips past the pre-check; the phone constraint catches it
	body := createBody()
	body.Email = "other@example.com"
	rec = doJSON(t, h.Create, http.MethodPost, "/api/users", body)
	require.Equal(t, http.StatusConflict, rec.Code)
}

func TestCreate_Validation(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{})
	rec := doJSON(t, h.Create, http.MethodPost, "/api/users", models.CreateUserRequest{})

	require.Equal(t, http.StatusBadRequest, rec.Code)
	env := decodeEnvelope(t, rec)
	assert.Equal(t, "Validation failed", env["error"])
	assert.Len(t, env["details"], 4)
}

func TestGet_ByID(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	h := newTestHandler(fs)
	rec := doJSON(t, h.Create, http.MethodPost, "/api/users", createBody())
	require.Equal(t, http.StatusCreated, rec.Code)

	rec = doJSON(t, h.Get, http.MethodGet, "/api/users?id=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"password"`)

	env := decodeEnvelope(t, rec)
	assert.Equal(t, "User retrieved successfully", env["message"])
	data := env["data"].(map[string]any)
	assert.Equal(t, "jane@example.com", data["email"])
}

func TestGet_InvalidID(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{})
	rec := doJSON(t, h.Get, http.MethodGet, "/api/users?id=abc", nil)

	require.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Equal(t, "Invalid user ID", decodeEnvelope(t, rec)["error"])
}

func TestGet_NotFound(t *testing.T) {
	t.Parallel()

	h := newTestHandler(&fakeStore{})
	rec := doJSON(t, h.Get, http.MethodGet, "/api/users?id=42", nil)

	require.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "User not found", decodeEnvelope(t, rec)["error"])
}

func TestGet_List(t *testing.T) {
	t.Parallel()

	fs := &fakeStore{}
	h := newTestHandler(fs)
	for i, u := range []models.CreateUserRequest{
		{FullName: "Alice Smith", Email: "alice@example.com", Password: "secret123", Phone: "1111111111"},
		{FullName: "Bob Jones", Email: "bob@example.com", Password: "secret123", Phone: "2222222222"},
		{FullName: "Carol Smith", Email: "carol@other.org", Password: "secret123", Phone: "3333333333"},
	} {
		rec := doJSON(t, h.Create, http.MethodPost, "/api/users", u)
		require.Equal(t, http.StatusCreated, rec.Code, "seed %d", i)
	}

	rec := doJSON(t, h.Get, http.MethodGet, "/api/users?search=smith&limit=1", nil)
	require.Equal(t, http.StatusOK, rec.Code)
	require.NotContains(t, rec.Body.String(), `"password"`)

	env := decodeEnvelope(t, rec)
	assert.Len(t, env["data"], 1)
	assert.Equal(t, float64(2), env["total"])
	assert.Equal(t, "Users retrieved successfully", env["message"])
}
