package store

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/onboardly/backend/internal/models"
)

// ListFilter narrows a user listing. Search matches case-insensitively
// against full name or email as a substring; Limit truncates from the head
// of the result. Zero values disable either.
type ListFilter struct {
	Search string
	Limit  int
}

// UpdateFields carries the mutable user columns. An empty Password keeps
// the stored hash.
type UpdateFields struct {
	FullName string
	Email    string
	Phone    string
	Password string
}

// UserStore is the gorm-backed gateway to the users table. An optional
// UserCache fronts full-table listings; every write invalidates it.
type UserStore struct {
	db     *gorm.DB
	cache  *UserCache
	logger *zap.SugaredLogger
}

func NewUserStore(db *gorm.DB, cache *UserCache, logger *zap.SugaredLogger) *UserStore {
	return &UserStore{db: db, cache: cache, logger: logger}
}

// FindByEmail returns the user with the given email, or ErrNotFound.
func (s *UserStore) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ?", email).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by email: %w", err)
	}
	return &u, nil
}

// FindByID returns the user with the given id, or ErrNotFound.
func (s *UserStore) FindByID(ctx context.Context, id int64) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).First(&u, "id = ?", id).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find user by id: %w", err)
	}
	return &u, nil
}

// FindByEmailOrPhone returns the first row matching either field, or nil
// when none does. Callers compare the email first; when email and phone
// belong to two different rows only one of them is seen here, which is why
// the unique constraints stay authoritative.
func (s *UserStore) FindByEmailOrPhone(ctx context.Context, email, phone string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("email = ? OR phone = ?", email, phone).First(&u).Error
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("find user by email or phone: %w", err)
	}
	return &u, nil
}

// List fetches every user in id order and applies search and limit in
// memory, mirroring the historical behavior of the route. The returned
// count is the post-filter, pre-limit size.
func (s *UserStore) List(ctx context.Context, f ListFilter) ([]models.User, int, error) {
	users, ok := s.cache.Get(ctx)
	if !ok {
		if err := s.db.WithContext(ctx).Order("id asc").Find(&users).Error; err != nil {
			return nil, 0, fmt.Errorf("list users: %w", err)
		}
		s.cache.Set(ctx, users)
	}

	filtered, total := filterUsers(users, f)
	return filtered, total, nil
}

// Insert persists a new user. created_at and updated_at are set by gorm on
// the way in.
func (s *UserStore) Insert(ctx context.Context, u *models.User) error {
	if err := s.db.WithContext(ctx).Create(u).Error; err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return ErrDuplicate
		}
		return fmt.Errorf("insert user: %w", err)
	}
	s.cache.Invalidate(ctx)
	s.logger.Infow("user created", "user_id", u.ID, "email", u.Email)
	return nil
}

// Update applies the given fields to the user with the given id and
// returns the refreshed row. updated_at advances with the write.
func (s *UserStore) Update(ctx context.Context, id int64, f UpdateFields) (*models.User, error) {
	vals := map[string]any{
		"full_name": f.FullName,
		"email":     f.Email,
		"phone":     f.Phone,
	}
	if f.Password != "" {
		vals["password"] = f.Password
	}

	res := s.db.WithContext(ctx).Model(&models.User{}).Where("id = ?", id).Updates(vals)
	if res.Error != nil {
		if errors.Is(res.Error, gorm.ErrDuplicatedKey) {
			return nil, ErrDuplicate
		}
		return nil, fmt.Errorf("update user: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return nil, ErrNotFound
	}

	s.cache.Invalidate(ctx)
	s.logger.Infow("user updated", "user_id", id)
	return s.FindByID(ctx, id)
}

// Delete removes the user with the given id and returns its last snapshot.
func (s *UserStore) Delete(ctx context.Context, id int64) (*models.User, error) {
	u, err := s.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.db.WithContext(ctx).Delete(&models.User{}, "id = ?", id).Error; err != nil {
		return nil, fmt.Errorf("delete user: %w", err)
	}

	s.cache.Invalidate(ctx)
	s.logger.Infow("user deleted", "user_id", id)
	return u, nil
}

// filterUsers applies the in-memory search and limit pass.
func filterUsers(users []models.User, f ListFilter) ([]models.User, int) {
	filtered := users
	if filtered == nil {
		filtered = []models.User{}
	}
	if f.Search != "" {
		needle := strings.ToLower(f.Search)
		filtered = make([]models.User, 0, len(users))
		for _, u := range users {
			if strings.Contains(strings.ToLower(u.FullName), needle) ||
				strings.Contains(strings.ToLower(u.Email), needle) {
				filtered = append(filtered, u)
			}
		}
	}

	total := len(filtered)
	if f.Limit > 0 && f.Limit < len(filtered) {
		filtered = filtered[:f.Limit]
	}
	return filtered, total
}
