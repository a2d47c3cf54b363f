package service

import (
	"context"
	"crypto/subtle"
	"errors"
	"strings"
	"time"

	"github.com/Payphone-Digital/accounts/internal/dto"
	apperrors "github.com/Payphone-Digital/accounts/internal/errors"
	"github.com/Payphone-Digital/accounts/internal/model"
	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/Payphone-Digital/accounts/pkg/metrics"
	"github.com/Payphone-Digital/accounts/pkg/storage"
	"github.com/Payphone-Digital/accounts/pkg/validation"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// UserStore is the persistence the session controller needs. Lookups report
// a miss as gorm.ErrRecordNotFound; Create reports a unique index violation
// as gorm.ErrDuplicatedKey.
type UserStore interface {
	FindByID(ctx context.Context, id string) (*model.User, error)
	FindByUsernameOrEmail(ctx context.Context, username, email string) (*model.User, error)
	FindByEmail(ctx context.Context, email string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
	SetRefreshToken(ctx context.Context, id, digest string, expiresAt time.Time) error
	RotateRefreshToken(ctx context.Context, id, oldDigest, newDigest string, expiresAt time.Time) (bool, error)
	ClearRefreshToken(ctx context.Context, id string) error
	UpdatePassword(ctx context.Context, id, hashedPassword string, revokeSessions bool) error
	UpdateAccount(ctx context.Context, id, fullName, email string) error
	UpdateAvatar(ctx context.Context, id, url string) error
	UpdateCoverImage(ctx context.Context, id, url string) error
	CleanupExpiredRefreshTokens(ctx context.Context, now time.Time) (int64, error)
}

type TokenManager interface {
	IssueAccessToken(user *model.User) (string, time.Time, error)
	IssueRefreshToken(userID string) (string, time.Time, error)
	Verify(token string, kind TokenKind) (*Claims, error)
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(hash, password string) bool
}

// MediaUploader stores user images. Upload removes the local file it was given.
type MediaUploader interface {
	Upload(ctx context.Context, file storage.File) (*storage.UploadResult, error)
	Delete(ctx context.Context, key string) error
	KeyFromURL(url string) (string, bool)
}

type ProfileCache interface {
	GetProfile(ctx context.Context, userID string) (*dto.UserResponse, bool)
	SetProfile(ctx context.Context, profile *dto.UserResponse)
	InvalidateProfile(ctx context.Context, userID string)
}

type UserServiceDeps struct {
	Store   UserStore
	Tokens  TokenManager
	Hasher  PasswordHasher
	Media   MediaUploader
	Cache   ProfileCache
	Metrics *metrics.Metrics

	// RevokeOnPasswordChange clears the stored refresh token when the password changes.
	RevokeOnPasswordChange bool
}

type UserService struct {
	store   UserStore
	tokens  TokenManager
	hasher  PasswordHasher
	media   MediaUploader
	cache   ProfileCache
	metrics *metrics.Metrics
	revoke  bool
	now     func() time.Time
}

func NewUserService(deps UserServiceDeps) *UserService {
	return &UserService{
		store:   deps.Store,
		tokens:  deps.Tokens,
		hasher:  deps.Hasher,
		media:   deps.Media,
		cache:   deps.Cache,
		metrics: deps.Metrics,
		revoke:  deps.RevokeOnPasswordChange,
		now:     time.Now,
	}
}

// Register creates an account. The avatar is required; a failed cover upload
// is tolerated and stored as an empty URL.
func (s *UserService) Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Register")

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	req.Username = strings.TrimSpace(req.Username)
	if strings.TrimSpace(req.Password) == "" {
		req.Password = ""
	}

	logger.InfoWithContext(ctx, "Registering user").
		String("username", req.Username).
		String("email", req.Email).
		Log()

	if err := validationError(validation.Struct(req)); err != nil {
		return nil, err
	}

	username := model.NormalizeUsername(req.Username)
	email := model.NormalizeEmail(req.Email)

	existing, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	switch {
	case err == nil && existing != nil:
		logger.InfoWithContext(ctx, "Registration rejected, user exists").
			String("username", username).
			Log()
		return nil, apperrors.ErrUserExists
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if req.Avatar == nil || req.Avatar.Path == "" {
		return nil, apperrors.ErrAvatarMissing
	}

	avatar, err := s.media.Upload(ctx, *req.Avatar)
	if err != nil || avatar == nil || avatar.URL == "" {
		logger.ErrorWithContext(ctx, "Avatar upload failed").
			String("username", username).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrAvatarUploadFailed, err)
	}
	uploaded := []string{avatar.Key}

	coverURL := ""
	if req.Cover != nil && req.Cover.Path != "" {
		cover, err := s.media.Upload(ctx, *req.Cover)
		if err != nil || cover == nil {
			logger.WarnWithContext(ctx, "Cover image upload failed, continuing without it").
				String("username", username).
				Err(err).
				Log()
		} else {
			coverURL = cover.URL
			uploaded = append(uploaded, cover.Key)
		}
	}

	hashed, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.discardMedia(ctx, uploaded)
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	user := &model.User{
		Username:   username,
		Email:      email,
		FullName:   req.FullName,
		Password:   hashed,
		Avatar:     avatar.URL,
		CoverImage: coverURL,
	}
	if err := s.store.Create(ctx, user); err != nil {
		s.discardMedia(ctx, uploaded)
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrUserExists
		}
		return nil, apperrors.WrapError(apperrors.ErrUserNotCreated, err)
	}

	created, err := s.store.FindByID(ctx, user.ID)
	if err != nil {
		logger.ErrorWithContext(ctx, "Created user could not be read back").
			String("user_id", user.ID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrUserNotCreated, err)
	}

	logger.InfoWithContext(ctx, "User registered").
		String("user_id", created.ID).
		String("username", created.Username).
		Log()

	return dto.NewUserResponse(created), nil
}

// Login verifies credentials and starts a session, replacing any previous one.
func (s *UserService) Login(ctx context.Context, req *dto.LoginRequest) (resp *dto.LoginResponse, err error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Login")
	defer func() { s.metrics.SessionEvent("login", err) }()

	username := model.NormalizeUsername(req.Username)
	email := model.NormalizeEmail(req.Email)
	if username == "" && email == "" {
		return nil, apperrors.ErrIdentifierEmpty
	}
	if strings.TrimSpace(req.Password) == "" {
		return nil, apperrors.WithDetails(apperrors.ErrFieldsRequired, validation.Message("password", "required", ""))
	}

	user, err := s.store.FindByUsernameOrEmail(ctx, username, email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			logger.InfoWithContext(ctx, "Login for unknown user").
				String("username", username).
				String("email", email).
				Log()
			return nil, apperrors.ErrUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if !s.hasher.Verify(user.Password, req.Password) {
		logger.LogAuth(ctx, user.ID, "login", false, zap.String("reason", "password mismatch"))
		return nil, apperrors.ErrInvalidCredentials
	}

	pair, err := s.issuePair(user)
	if err != nil {
		return nil, err
	}
	if err := s.store.SetRefreshToken(ctx, user.ID, DigestToken(pair.RefreshToken), pair.RefreshExpiresAt); err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.LogAuth(ctx, user.ID, "login", true)

	return &dto.LoginResponse{User: dto.NewUserResponse(user), TokenPair: *pair}, nil
}

// Refresh exchanges the current refresh token for a new pair. The presented
// token is retired atomically, so a replayed or concurrently used token fails.
func (s *UserService) Refresh(ctx context.Context, presented string) (pair *dto.TokenPair, err error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Refresh")
	defer func() { s.metrics.SessionEvent("refresh", err) }()

	presented = strings.TrimSpace(presented)
	if presented == "" {
		return nil, apperrors.ErrUnauthorized
	}

	claims, err := s.tokens.Verify(presented, TokenRefresh)
	if err != nil {
		logger.InfoWithContext(ctx, "Refresh token rejected").
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInvalidRefreshToken, err)
	}

	user, err := s.store.FindByID(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperrors.ErrTokenUserNotFound
		}
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	presentedDigest := DigestToken(presented)
	if !user.HasRefreshToken() || subtle.ConstantTimeCompare([]byte(*user.RefreshTokenHash), []byte(presentedDigest)) != 1 {
		logger.WarnWithContext(ctx, "Refresh token does not match the current session").
			String("user_id", user.ID).
			Log()
		return nil, apperrors.ErrRefreshTokenReused
	}

	pair, err = s.issuePair(user)
	if err != nil {
		return nil, err
	}

	rotated, err := s.store.RotateRefreshToken(ctx, user.ID, presentedDigest, DigestToken(pair.RefreshToken), pair.RefreshExpiresAt)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	if !rotated {
		logger.WarnWithContext(ctx, "Refresh token was rotated concurrently").
			String("user_id", user.ID).
			Log()
		return nil, apperrors.ErrRefreshTokenReused
	}

	logger.LogAuth(ctx, user.ID, "refresh", true)
	return pair, nil
}

// Logout ends the user's session. Repeated calls succeed.
func (s *UserService) Logout(ctx context.Context, userID string) (err error) {
	ctx = ctxutil.WithOperation(ctx, "service", "Logout")
	defer func() { s.metrics.SessionEvent("logout", err) }()

	if err := s.store.ClearRefreshToken(ctx, userID); err != nil {
		logger.ErrorWithContext(ctx, "Failed to clear refresh token").
			String("user_id", userID).
			Err(err).
			Log()
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	logger.LogAuth(ctx, userID, "logout", true)
	return nil
}

func (s *UserService) ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) (err error) {
	ctx = ctxutil.WithOperation(ctx, "service", "ChangePassword")
	defer func() { s.metrics.SessionEvent("change_password", err) }()

	if strings.TrimSpace(req.OldPassword) == "" {
		req.OldPassword = ""
	}
	if strings.TrimSpace(req.NewPassword) == "" {
		req.NewPassword = ""
	}
	if err := validationError(validation.Struct(req)); err != nil {
		return err
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return err
	}

	if !s.hasher.Verify(user.Password, req.OldPassword) {
		logger.LogAuth(ctx, userID, "change_password", false, zap.String("reason", "old password mismatch"))
		return apperrors.ErrIncorrectPassword
	}

	hashed, err := s.hasher.Hash(req.NewPassword)
	if err != nil {
		return apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.store.UpdatePassword(ctx, userID, hashed, s.revoke); err != nil {
		return storeError(err)
	}

	logger.LogAuth(ctx, userID, "change_password", true, zap.Bool("sessions_revoked", s.revoke))
	return nil
}

func (s *UserService) UpdateAccount(ctx context.Context, userID string, req *dto.UpdateAccountRequest) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateAccount")

	req.FullName = strings.TrimSpace(req.FullName)
	req.Email = strings.TrimSpace(req.Email)
	if err := validationError(validation.Struct(req)); err != nil {
		return nil, err
	}

	email := model.NormalizeEmail(req.Email)
	owner, err := s.store.FindByEmail(ctx, email)
	switch {
	case err == nil && owner != nil && owner.ID != userID:
		return nil, apperrors.ErrEmailTaken
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound):
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	if err := s.store.UpdateAccount(ctx, userID, req.FullName, email); err != nil {
		if errors.Is(err, gorm.ErrDuplicatedKey) {
			return nil, apperrors.ErrEmailTaken
		}
		return nil, storeError(err)
	}

	logger.InfoWithContext(ctx, "Account details updated").
		String("user_id", userID).
		Log()

	return s.reload(ctx, userID)
}

// UpdateAvatar replaces the avatar and removes the previous object.
func (s *UserService) UpdateAvatar(ctx context.Context, userID string, file *storage.File) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateAvatar")
	if file == nil || file.Path == "" {
		return nil, apperrors.ErrAvatarMissing
	}
	return s.replaceImage(ctx, userID, *file, imageAvatar)
}

// UpdateCoverImage replaces the cover image and removes the previous object.
func (s *UserService) UpdateCoverImage(ctx context.Context, userID string, file *storage.File) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "UpdateCoverImage")
	if file == nil || file.Path == "" {
		return nil, apperrors.ErrFileMissing
	}
	return s.replaceImage(ctx, userID, *file, imageCover)
}

// GetCurrentUser returns the public profile, served from cache when possible.
func (s *UserService) GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "GetCurrentUser")

	if s.cache != nil {
		if profile, ok := s.cache.GetProfile(ctx, userID); ok {
			return profile, nil
		}
	}

	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	profile := dto.NewUserResponse(user)
	if s.cache != nil {
		s.cache.SetProfile(ctx, profile)
	}
	return profile, nil
}

// PurgeExpiredRefreshTokens clears sessions whose refresh token has expired.
func (s *UserService) PurgeExpiredRefreshTokens(ctx context.Context) (int64, error) {
	ctx = ctxutil.WithOperation(ctx, "service", "PurgeExpiredRefreshTokens")

	n, err := s.store.CleanupExpiredRefreshTokens(ctx, s.now())
	if err != nil {
		return 0, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	s.metrics.TokensPurged(n)
	return n, nil
}

type imageKind int

const (
	imageAvatar imageKind = iota
	imageCover
)

func (s *UserService) replaceImage(ctx context.Context, userID string, file storage.File, kind imageKind) (*dto.UserResponse, error) {
	user, err := s.findUser(ctx, userID)
	if err != nil {
		return nil, err
	}

	failure, previous, update := apperrors.ErrAvatarUploadFailed, user.Avatar, s.store.UpdateAvatar
	if kind == imageCover {
		failure, previous, update = apperrors.ErrUploadFailed, user.CoverImage, s.store.UpdateCoverImage
	}

	result, err := s.media.Upload(ctx, file)
	if err != nil || result == nil || result.URL == "" {
		logger.ErrorWithContext(ctx, "Image upload failed").
			String("user_id", userID).
			Err(err).
			Log()
		return nil, apperrors.WrapError(failure, err)
	}

	if err := update(ctx, userID, result.URL); err != nil {
		s.discardMedia(ctx, []string{result.Key})
		return nil, storeError(err)
	}

	if key, ok := s.media.KeyFromURL(previous); ok {
		s.discardMedia(ctx, []string{key})
	}

	return s.reload(ctx, userID)
}

func (s *UserService) issuePair(user *model.User) (*dto.TokenPair, error) {
	access, accessExp, err := s.tokens.IssueAccessToken(user)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	refresh, refreshExp, err := s.tokens.IssueRefreshToken(user.ID)
	if err != nil {
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}
	return &dto.TokenPair{
		AccessToken:      access,
		RefreshToken:     refresh,
		AccessExpiresAt:  accessExp,
		RefreshExpiresAt: refreshExp,
	}, nil
}

func (s *UserService) findUser(ctx context.Context, userID string) (*model.User, error) {
	user, err := s.store.FindByID(ctx, userID)
	if err != nil {
		return nil, storeError(err)
	}
	return user, nil
}

// reload drops the cached profile and returns the stored record. The entry is
// dropped again after the read so a profile cached by a reader that saw the
// old row does not outlive the write.
func (s *UserService) reload(ctx context.Context, userID string) (*dto.UserResponse, error) {
	if s.cache != nil {
		s.cache.InvalidateProfile(ctx, userID)
	}
	user, err := s.findUser(ctx, userID)
	if s.cache != nil {
		s.cache.InvalidateProfile(ctx, userID)
	}
	if err != nil {
		return nil, err
	}
	return dto.NewUserResponse(user), nil
}

// discardMedia deletes uploaded objects that no record refers to.
func (s *UserService) discardMedia(ctx context.Context, keys []string) {
	ctx = ctxutil.Detach(ctx)
	for _, key := range keys {
		if key == "" {
			continue
		}
		if err := s.media.Delete(ctx, key); err != nil {
			logger.WarnWithContext(ctx, "Failed to delete orphaned media").
				String("key", key).
				Err(err).
				Log()
		}
	}
}

func storeError(err error) error {
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return apperrors.ErrUserNotFound
	}
	return apperrors.WrapError(apperrors.ErrInternal, err)
}

func validationError(errs []validation.FieldError) error {
	if len(errs) == 0 {
		return nil
	}
	details := validation.Messages(errs)
	switch {
	case validation.HasTag(errs, "required"):
		return apperrors.WithDetails(apperrors.ErrFieldsRequired, details...)
	case validation.HasTag(errs, "contains"):
		return apperrors.WithDetails(apperrors.ErrInvalidEmail, details...)
	default:
		return apperrors.WithDetails(apperrors.Validation(errs[0].Message), details...)
	}
}
