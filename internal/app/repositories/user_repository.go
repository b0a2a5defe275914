package repositories

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Masterminds/squirrel"
	"github.com/google/uuid"
	"github.com/yigit/engnotes/internal/app/models"
	"github.com/yigit/engnotes/internal/db"
	"github.com/yigit/engnotes/internal/pkg/apperrors"
	"github.com/yigit/engnotes/internal/pkg/dberrors"
	"github.com/yigit/engnotes/internal/pkg/logger"
)

// IUserRepository defines the interface for user-related database operations
type IUserRepository interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id string) (*models.User, error)
	GetByUsername(ctx context.Context, username string) (*models.User, error)
	UsernameExists(ctx context.Context, username string) (bool, error)
}

var userColumns = []string{"id", "username", "password", "role", "created_at", "updated_at"}

// UserRepository handles database operations for accounts
type UserRepository struct {
	db *db.Database
	sb squirrel.StatementBuilderType
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(database *db.Database) *UserRepository {
	return &UserRepository{
		db: database,
		sb: database.Builder(),
	}
}

// Create inserts a user. user.Password must already be hashed.
func (r *UserRepository) Create(ctx context.Context, user *models.User) error {
	user.Username = strings.TrimSpace(user.Username)
	if user.Role == "" {
		user.Role = models.RoleUser
	}
	user.ID = uuid.NewString()
	user.CreatedAt = time.Now().UTC()
	user.UpdatedAt = user.CreatedAt

	query, args, err := r.sb.Insert("users").
		Columns(userColumns...).
		Values(user.ID, user.Username, user.Password, string(user.Role), user.CreatedAt, user.UpdatedAt).
		ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building create user SQL")
		return err
	}

	if _, err := r.db.SQL.ExecContext(ctx, query, args...); err != nil {
		if dberrors.IsUniqueViolation(err) {
			return apperrors.ErrUsernameExists
		}
		logger.Error().Err(err).Str("username", user.Username).Msg("Error executing create user query")
		return err
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Eq{"id": id})
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*models.User, error) {
	return r.getBy(ctx, squirrel.Eq{"username": strings.TrimSpace(username)})
}

// UsernameExists checks if a username is already taken
func (r *UserRepository) UsernameExists(ctx context.Context, username string) (bool, error) {
	query, args, err := r.sb.Select("COUNT(*)").
		From("users").
		Where(squirrel.Eq{"username": strings.TrimSpace(username)}).
		ToSql()
	if err != nil {
		return false, err
	}

	var count int
	if err := r.db.SQL.QueryRowContext(ctx, query, args...).Scan(&count); err != nil {
		logger.Error().Err(err).Msg("Error checking username")
		return false, err
	}
	return count > 0, nil
}

func (r *UserRepository) getBy(ctx context.Context, where squirrel.Eq) (*models.User, error) {
	query, args, err := r.sb.Select(userColumns...).From("users").Where(where).ToSql()
	if err != nil {
		logger.Error().Err(err).Msg("Error building get user SQL")
		return nil, err
	}

	var user models.User
	var role string
	err = r.db.SQL.QueryRowContext(ctx, query, args...).Scan(
		&user.ID,
		&user.Username,
		&user.Password,
		&role,
		&user.CreatedAt,
		&user.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, apperrors.ErrUserNotFound
		}
		logger.Error().Err(err).Msg("Error executing get user query")
		return nil, err
	}
	user.Role = models.RoleType(role)
	return &user, nil
}
