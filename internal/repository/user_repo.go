package repository

import (
	"context"

	"portal/internal/apperror"
	"portal/internal/model"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

// UserRepository defines the interface for data access of User entities and
// their profiles.
type UserRepository interface {
	Store[model.User]
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	GetByEmail(ctx context.Context, email string) (*model.User, error)
	// GetWithProfile loads the user, its profile and the profile's default task.
	GetWithProfile(ctx context.Context, id uuid.UUID) (*model.User, error)
	ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error)

	GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error)
	// CreateProfileIfMissing inserts profile unless the user already has one.
	CreateProfileIfMissing(ctx context.Context, profile *model.Profile) error
	SaveProfile(ctx context.Context, profile *model.Profile) error
	ClearProfileDefaultTask(ctx context.Context, taskID uuid.UUID) error
}

type userRepository struct {
	store[model.User]
}

// NewUserRepository returns a new instance of UserRepository
func NewUserRepository(db *gorm.DB) UserRepository {
	s := newStore[model.User](db, "user", []string{"username", "email", "is_active", "is_superuser"}, "Profile").withoutArchive()
	return &userRepository{store: s}
}

func (r *userRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	if err := r.conn(ctx).Preload("Profile").First(&user, "username = ?", username).Error; err != nil {
		return nil, apperror.FromDB("user", err)
	}
	return &user, nil
}

func (r *userRepository) GetByEmail(ctx context.Context, email string) (*model.User, error) {
	var user model.User
	if err := r.conn(ctx).Preload("Profile").First(&user, "email = ?", email).Error; err != nil {
		return nil, apperror.FromDB("user", err)
	}
	return &user, nil
}

func (r *userRepository) GetWithProfile(ctx context.Context, id uuid.UUID) (*model.User, error) {
	var user model.User
	if err := r.conn(ctx).Preload("Profile.DefaultTask").First(&user, "id = ?", id).Error; err != nil {
		return nil, apperror.FromDB("user", err)
	}
	return &user, nil
}

func (r *userRepository) ListByIDs(ctx context.Context, ids []uuid.UUID) ([]model.User, error) {
	var users []model.User
	if len(ids) == 0 {
		return users, nil
	}
	if err := r.conn(ctx).Where("id IN ?", ids).Order("username asc").Find(&users).Error; err != nil {
		return nil, apperror.FromDB("user", err)
	}
	return users, nil
}

func (r *userRepository) GetProfile(ctx context.Context, userID uuid.UUID) (*model.Profile, error) {
	var profile model.Profile
	if err := r.conn(ctx).First(&profile, "user_id = ?", userID).Error; err != nil {
		return nil, apperror.FromDB("profile", err)
	}
	return &profile, nil
}

func (r *userRepository) CreateProfileIfMissing(ctx context.Context, profile *model.Profile) error {
	err := r.conn(ctx).
		Omit(clause.Associations).
		Clauses(clause.OnConflict{Columns: []clause.Column{{Name: "user_id"}}, DoNothing: true}).
		Create(profile).Error
	return apperror.FromDB("profile", err)
}

func (r *userRepository) SaveProfile(ctx context.Context, profile *model.Profile) error {
	return apperror.FromDB("profile", r.conn(ctx).Omit(clause.Associations).Save(profile).Error)
}

func (r *userRepository) ClearProfileDefaultTask(ctx context.Context, taskID uuid.UUID) error {
	return apperror.FromDB("profile", clearReference(ctx, r.db, "profiles", "default_task_id", taskID))
}
