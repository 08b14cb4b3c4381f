package casdoor

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/casdoor/casdoor-go-sdk/casdoorsdk"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/SAP-F-2025/quiz-service/internal/models"
	"github.com/SAP-F-2025/quiz-service/internal/repositories"
)

// CasdoorConfig holds the connection settings for the Casdoor directory.
type CasdoorConfig struct {
	Endpoint         string
	ClientID         string
	ClientSecret     string
	Certificate      string
	OrganizationName string
	ApplicationName  string
}

const userCacheTTL = 15 * time.Minute

// UserCasdoor backs the local users table with the Casdoor directory.
// Reads go cache, then local table, then Casdoor; a directory hit is
// synced into the local table so class membership can attach to it.
type UserCasdoor struct {
	db     *gorm.DB
	client *casdoorsdk.Client
	redis  *redis.Client
}

func NewUserCasdoor(db *gorm.DB, config CasdoorConfig, redisClient *redis.Client) repositories.UserRepository {
	return &UserCasdoor{
		db: db,
		client: casdoorsdk.NewClient(
			config.Endpoint,
			config.ClientID,
			config.ClientSecret,
			config.Certificate,
			config.OrganizationName,
			config.ApplicationName,
		),
		redis: redisClient,
	}
}

func (u *UserCasdoor) GetByID(ctx context.Context, id string) (*models.User, error) {
	return u.lookup(ctx,
		"id:"+id,
		func(db *gorm.DB) *gorm.DB { return db.Where("id = ?", id) },
		func() (*casdoorsdk.User, error) { return u.client.GetUserByUserId(id) },
	)
}

func (u *UserCasdoor) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	return u.lookup(ctx,
		"email:"+email,
		func(db *gorm.DB) *gorm.DB { return db.Where("email = ?", email) },
		func() (*casdoorsdk.User, error) { return u.client.GetUserByEmail(email) },
	)
}

// lookup resolves a user through the three tiers. Cache errors are
// treated as misses so a flaky Redis never blocks authentication.
func (u *UserCasdoor) lookup(ctx context.Context, cacheKey string, scope func(*gorm.DB) *gorm.DB, fetch func() (*casdoorsdk.User, error)) (*models.User, error) {
	if cached, err := u.cacheGet(ctx, cacheKey); err == nil && cached != nil {
		return cached, nil
	}

	var local models.User
	err := scope(u.db.WithContext(ctx)).First(&local).Error
	if err == nil {
		u.cacheSet(ctx, cacheKey, &local)
		return &local, nil
	}
	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, err
	}

	directoryUser, err := fetch()
	if err != nil {
		return nil, fmt.Errorf("casdoor lookup failed: %w", err)
	}
	if directoryUser == nil {
		return nil, gorm.ErrRecordNotFound
	}

	synced, err := u.syncToLocal(ctx, u.fromDirectory(directoryUser))
	if err != nil {
		return nil, err
	}

	u.cacheSet(ctx, "id:"+synced.ID, synced)
	u.cacheSet(ctx, "email:"+synced.Email, synced)
	return synced, nil
}

// syncToLocal upserts a directory-sourced user into the local table,
// preserving the locally-managed class assignment.
func (u *UserCasdoor) syncToLocal(ctx context.Context, user *models.User) (*models.User, error) {
	var existing models.User
	err := u.db.WithContext(ctx).First(&existing, "id = ?", user.ID).Error
	switch {
	case err == nil:
		existing.FullName = user.FullName
		existing.Email = user.Email
		existing.Role = user.Role
		existing.AvatarURL = user.AvatarURL
		existing.EmailVerified = user.EmailVerified
		if saveErr := u.db.WithContext(ctx).Save(&existing).Error; saveErr != nil {
			return nil, fmt.Errorf("failed to sync user: %w", saveErr)
		}
		return &existing, nil
	case errors.Is(err, gorm.ErrRecordNotFound):
		if createErr := u.db.WithContext(ctx).Create(user).Error; createErr != nil {
			return nil, fmt.Errorf("failed to create synced user: %w", createErr)
		}
		return user, nil
	default:
		return nil, err
	}
}

func (u *UserCasdoor) fromDirectory(directoryUser *casdoorsdk.User) *models.User {
	var createdAt, updatedAt time.Time
	if directoryUser.CreatedTime != "" {
		createdAt, _ = time.Parse(time.RFC3339, directoryUser.CreatedTime)
	}
	if directoryUser.UpdatedTime != "" {
		updatedAt, _ = time.Parse(time.RFC3339, directoryUser.UpdatedTime)
	}

	avatar := directoryUser.Avatar
	return &models.User{
		ID:            directoryUser.Id,
		FullName:      directoryUser.DisplayName,
		Email:         directoryUser.Email,
		Role:          primaryRole(directoryUser),
		AvatarURL:     &avatar,
		EmailVerified: directoryUser.EmailVerified,
		CreatedAt:     createdAt,
		UpdatedAt:     updatedAt,
	}
}

// primaryRole collapses the directory's role list into the single role
// this service works with. Admin wins outright; otherwise the first
// recognized role is used, defaulting to student.
func primaryRole(directoryUser *casdoorsdk.User) models.UserRole {
	var roles []models.UserRole
	seen := make(map[models.UserRole]bool)
	for _, r := range directoryUser.Roles {
		mapped := roleFromName(r.Name)
		if !seen[mapped] {
			roles = append(roles, mapped)
			seen[mapped] = true
		}
	}

	if directoryUser.IsAdmin || slices.Contains(roles, models.RoleAdmin) {
		return models.RoleAdmin
	}
	if len(roles) == 0 {
		return models.RoleStudent
	}
	return roles[0]
}

func roleFromName(name string) models.UserRole {
	switch strings.ToLower(name) {
	case "admin", "administrator":
		return models.RoleAdmin
	case "teacher", "instructor":
		return models.RoleTeacher
	default:
		return models.RoleStudent
	}
}

func (u *UserCasdoor) Create(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if err := u.getDB(tx).WithContext(ctx).Create(user).Error; err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

func (u *UserCasdoor) Update(ctx context.Context, tx *gorm.DB, user *models.User) error {
	if err := u.getDB(tx).WithContext(ctx).Save(user).Error; err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}
	u.invalidate(ctx, user)
	return nil
}

func (u *UserCasdoor) Delete(ctx context.Context, tx *gorm.DB, id string) error {
	db := u.getDB(tx)

	var user models.User
	if err := db.WithContext(ctx).First(&user, "id = ?", id).Error; err != nil {
		return err
	}
	if err := db.WithContext(ctx).Delete(&user).Error; err != nil {
		return fmt.Errorf("failed to delete user: %w", err)
	}

	u.invalidate(ctx, &user)
	return nil
}

func (u *UserCasdoor) getDB(tx *gorm.DB) *gorm.DB {
	if tx != nil {
		return tx
	}
	return u.db
}

func (u *UserCasdoor) cacheGet(ctx context.Context, key string) (*models.User, error) {
	if u.redis == nil {
		return nil, nil
	}

	data, err := u.redis.Get(ctx, "user:"+key).Bytes()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return nil, nil
		}
		return nil, err
	}

	var user models.User
	if err := json.Unmarshal(data, &user); err != nil {
		return nil, fmt.Errorf("failed to unmarshal cached user: %w", err)
	}
	return &user, nil
}

func (u *UserCasdoor) cacheSet(ctx context.Context, key string, user *models.User) {
	if u.redis == nil {
		return
	}
	data, err := json.Marshal(user)
	if err != nil {
		return
	}
	u.redis.Set(ctx, "user:"+key, data, userCacheTTL)
}

func (u *UserCasdoor) invalidate(ctx context.Context, user *models.User) {
	if u.redis == nil || user == nil {
		return
	}
	u.redis.Del(ctx, "user:id:"+user.ID, "user:email:"+user.Email)
}
