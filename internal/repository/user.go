package repository

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/Payphone-Digital/accounts/internal/model"
	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"gorm.io/gorm"
)

// ErrNoIdentifier is returned by FindByUsernameOrEmail when both values are blank.
var ErrNoIdentifier = errors.New("username or email required")

type UserRepository struct {
	db           *gorm.DB
	queryTimeout time.Duration
	now          func() time.Time
}

func NewUserRepository(db *gorm.DB, queryTimeout time.Duration) *UserRepository {
	return &UserRepository{db: db, queryTimeout: queryTimeout, now: time.Now}
}

// begin tags ctx for logging and bounds the statement by the query timeout.
func (r *UserRepository) begin(ctx context.Context, function string) (context.Context, context.CancelFunc) {
	ctx = ctxutil.WithOperation(ctx, "repository", function)
	if r.queryTimeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, r.queryTimeout)
}

func (r *UserRepository) FindByID(ctx context.Context, id string) (*model.User, error) {
	ctx, cancel := r.begin(ctx, "FindByID")
	defer cancel()

	logger.DebugWithContext(ctx, "Getting user by ID").
		String("user_id", id).
		Log()

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Where("id = ?", id).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		r.logReadError(ctx, "Failed to get user by ID", result.Error, duration)
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully").
		String("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

// FindByUsernameOrEmail matches either identifier; blank identifiers are ignored.
func (r *UserRepository) FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error) {
	ctx, cancel := r.begin(ctx, "FindByUsernameOrEmail")
	defer cancel()

	username = model.NormalizeUsername(username)
	email = model.NormalizeEmail(email)

	var clauses []string
	var args []interface{}
	if username != "" {
		clauses = append(clauses, "username = ?")
		args = append(args, username)
	}
	if email != "" {
		clauses = append(clauses, "email = ?")
		args = append(args, email)
	}
	if len(clauses) == 0 {
		return nil, ErrNoIdentifier
	}

	logger.DebugWithContext(ctx, "Getting user by username or email").
		String("username", username).
		String("email", email).
		Log()

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Where(strings.Join(clauses, " OR "), args...).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		r.logReadError(ctx, "Failed to get user by username or email", result.Error, duration)
		return nil, result.Error
	}

	logger.DebugWithContext(ctx, "User retrieved successfully by identifier").
		String("user_id", user.ID).
		Duration(duration).
		Log()

	return &user, nil
}

// FindByEmail finds user by email
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	ctx, cancel := r.begin(ctx, "FindByEmail")
	defer cancel()

	email = model.NormalizeEmail(email)

	start := time.Now()
	var user model.User
	result := r.db.WithContext(ctx).Where("email = ?", email).First(&user)
	duration := time.Since(start)

	if result.Error != nil {
		r.logReadError(ctx, "Failed to get user by email", result.Error, duration)
		return nil, result.Error
	}

	return &user, nil
}

// Create creates a new user. A unique index violation surfaces as gorm.ErrDuplicatedKey.
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	ctx, cancel := r.begin(ctx, "Create")
	defer cancel()

	user.Username = model.NormalizeUsername(user.Username)
	user.Email = model.NormalizeEmail(user.Email)

	logger.DebugWithContext(ctx, "Creating new user").
		String("username", user.Username).
		String("email", user.Email).
		Log()

	start := time.Now()
	result := r.db.WithContext(ctx).Create(user)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to create user").
			String("username", user.Username).
			Duration(duration).
			Err(result.Error).
			Log()
		return result.Error
	}

	logger.InfoWithContext(ctx, "User created successfully").
		String("user_id", user.ID).
		String("username", user.Username).
		Duration(duration).
		Log()

	return nil
}

// SetRefreshToken records digest as the user's only valid refresh token.
func (r *UserRepository) SetRefreshToken(ctx context.Context, id, digest string, expiresAt time.Time) error {
	ctx, cancel := r.begin(ctx, "SetRefreshToken")
	defer cancel()

	_, err := r.updateByID(ctx, id, nil, map[string]interface{}{
		"refresh_token_hash":       digest,
		"refresh_token_expires_at": expiresAt,
	})
	return err
}

// RotateRefreshToken swaps oldDigest for newDigest in one statement. It
// reports false, with no error, when the stored digest no longer matches.
func (r *UserRepository) RotateRefreshToken(ctx context.Context, id, oldDigest, newDigest string, expiresAt time.Time) (bool, error) {
	ctx, cancel := r.begin(ctx, "RotateRefreshToken")
	defer cancel()

	rows, err := r.updateByID(ctx, id, map[string]interface{}{"refresh_token_hash = ?": oldDigest}, map[string]interface{}{
		"refresh_token_hash":       newDigest,
		"refresh_token_expires_at": expiresAt,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.WarnWithContext(ctx, "Refresh token rotation lost the race or token was revoked").
			String("user_id", id).
			Log()
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return rows == 1, nil
}

// ClearRefreshToken sets both refresh token columns to NULL. Clearing an
// already cleared session is not an error.
func (r *UserRepository) ClearRefreshToken(ctx context.Context, id string) error {
	ctx, cancel := r.begin(ctx, "ClearRefreshToken")
	defer cancel()

	_, err := r.updateByID(ctx, id, nil, map[string]interface{}{
		"refresh_token_hash":       nil,
		"refresh_token_expires_at": nil,
	})
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil
	}
	return err
}

// UpdatePassword stores a new hash; with revokeSessions the refresh token is cleared too.
func (r *UserRepository) UpdatePassword(ctx context.Context, id, hashedPassword string, revokeSessions bool) error {
	ctx, cancel := r.begin(ctx, "UpdatePassword")
	defer cancel()

	values := map[string]interface{}{"password": hashedPassword}
	if revokeSessions {
		values["refresh_token_hash"] = nil
		values["refresh_token_expires_at"] = nil
	}
	_, err := r.updateByID(ctx, id, nil, values)
	return err
}

func (r *UserRepository) UpdateAccount(ctx context.Context, id, fullName, email string) error {
	ctx, cancel := r.begin(ctx, "UpdateAccount")
	defer cancel()

	_, err := r.updateByID(ctx, id, nil, map[string]interface{}{
		"full_name": strings.TrimSpace(fullName),
		"email":     model.NormalizeEmail(email),
	})
	return err
}

func (r *UserRepository) UpdateAvatar(ctx context.Context, id, url string) error {
	ctx, cancel := r.begin(ctx, "UpdateAvatar")
	defer cancel()

	_, err := r.updateByID(ctx, id, nil, map[string]interface{}{"avatar": url})
	return err
}

func (r *UserRepository) UpdateCoverImage(ctx context.Context, id, url string) error {
	ctx, cancel := r.begin(ctx, "UpdateCoverImage")
	defer cancel()

	_, err := r.updateByID(ctx, id, nil, map[string]interface{}{"cover_image": url})
	return err
}

// CleanupExpiredRefreshTokens clears refresh tokens whose expiry is before now (batch operation)
func (r *UserRepository) CleanupExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error) {
	ctx, cancel := r.begin(ctx, "CleanupExpiredRefreshTokens")
	defer cancel()

	start := time.Now()
	result := r.db.WithContext(ctx).
		Model(&model.User{}).
		Where("refresh_token_expires_at IS NOT NULL AND refresh_token_expires_at < ?", now).
		Updates(map[string]interface{}{
			"refresh_token_hash":       nil,
			"refresh_token_expires_at": nil,
			"updated_at":               r.now(),
		})
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to cleanup expired refresh tokens").
			Duration(duration).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	logger.InfoWithContext(ctx, "Expired refresh tokens cleaned up").
		Int64("cleaned_count", result.RowsAffected).
		Duration(duration).
		Log()

	return result.RowsAffected, nil
}

// updateByID applies values to the row with id and any extra conditions.
// Zero affected rows is reported as gorm.ErrRecordNotFound.
func (r *UserRepository) updateByID(ctx context.Context, id string, conditions map[string]interface{}, values map[string]interface{}) (int64, error) {
	values["updated_at"] = r.now()

	query := r.db.WithContext(ctx).Model(&model.User{}).Where("id = ?", id)
	for cond, arg := range conditions {
		query = query.Where(cond, arg)
	}

	start := time.Now()
	result := query.Updates(values)
	duration := time.Since(start)

	if result.Error != nil {
		logger.ErrorWithContext(ctx, "Failed to update user").
			String("user_id", id).
			Duration(duration).
			Err(result.Error).
			Log()
		return 0, result.Error
	}

	if result.RowsAffected == 0 {
		logger.DebugWithContext(ctx, "No user row matched update").
			String("user_id", id).
			Duration(duration).
			Log()
		return 0, gorm.ErrRecordNotFound
	}

	logger.DebugWithContext(ctx, "User updated successfully").
		String("user_id", id).
		Int64("rows_affected", result.RowsAffected).
		Duration(duration).
		Log()

	return result.RowsAffected, nil
}

func (r *UserRepository) logReadError(ctx context.Context, msg string, err error, duration time.Duration) {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		logger.DebugWithContext(ctx, "User not found").
			Duration(duration).
			Log()
		return
	}
	logger.ErrorWithContext(ctx, msg).
		Duration(duration).
		Err(err).
		Log()
}
