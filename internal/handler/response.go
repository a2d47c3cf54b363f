package handler

import (
	"context"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/dto"
	apperrors "github.com/Payphone-Digital/accounts/internal/errors"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/Payphone-Digital/accounts/pkg/storage"
	"github.com/gin-gonic/gin"
)

// AccountService is the session controller the handlers drive.
type AccountService interface {
	Register(ctx context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error)
	Login(ctx context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error)
	Refresh(ctx context.Context, presented string) (*dto.TokenPair, error)
	Logout(ctx context.Context, userID string) error
	ChangePassword(ctx context.Context, userID string, req *dto.ChangePasswordRequest) error
	UpdateAccount(ctx context.Context, userID string, req *dto.UpdateAccountRequest) (*dto.UserResponse, error)
	UpdateAvatar(ctx context.Context, userID string, file *storage.File) (*dto.UserResponse, error)
	UpdateCoverImage(ctx context.Context, userID string, file *storage.File) (*dto.UserResponse, error)
	GetCurrentUser(ctx context.Context, userID string) (*dto.UserResponse, error)
}

func respondError(c *gin.Context, err error) {
	status := apperrors.ToHTTPStatus(err)
	c.JSON(status, constants.BuildErrorResponse(status, apperrors.GetErrorMessage(err), apperrors.GetErrorDetails(err)))
}

func respondBadRequest(c *gin.Context, err error) {
	c.JSON(http.StatusBadRequest, constants.BuildErrorResponse(http.StatusBadRequest, constants.MsgBadRequest, []string{err.Error()}))
}

// sessionCookies writes and clears the token cookies with one policy.
type sessionCookies struct {
	domain   string
	secure   bool
	sameSite http.SameSite
	now      func() time.Time
}

func newSessionCookies(cfg *config.Config) sessionCookies {
	return sessionCookies{
		domain:   cfg.Cookie.Domain,
		secure:   cfg.Cookie.Secure,
		sameSite: cfg.CookieSameSite(),
		now:      time.Now,
	}
}

func (s sessionCookies) set(c *gin.Context, pair *dto.TokenPair) {
	s.write(c, constants.CookieAccessToken, pair.AccessToken, s.maxAge(pair.AccessExpiresAt))
	s.write(c, constants.CookieRefreshToken, pair.RefreshToken, s.maxAge(pair.RefreshExpiresAt))
}

func (s sessionCookies) clear(c *gin.Context) {
	s.write(c, constants.CookieAccessToken, "", -1)
	s.write(c, constants.CookieRefreshToken, "", -1)
}

func (s sessionCookies) write(c *gin.Context, name, value string, maxAge int) {
	c.SetSameSite(s.sameSite)
	c.SetCookie(name, value, maxAge, constants.CookiePath, s.domain, s.secure, true)
}

func (s sessionCookies) maxAge(expiresAt time.Time) int {
	seconds := int(expiresAt.Sub(s.now()).Seconds())
	if seconds < 1 {
		return -1
	}
	return seconds
}

// uploadSaver moves multipart image parts into temporary files for the uploader.
type uploadSaver struct {
	dir     string
	maxSize int64
}

func newUploadSaver(cfg config.UploadConfig) uploadSaver {
	return uploadSaver{dir: cfg.TempDir, maxSize: cfg.MaxFileSize}
}

// save returns nil, nil when the form has no part named field.
func (u uploadSaver) save(c *gin.Context, field string) (*storage.File, error) {
	header, err := c.FormFile(field)
	if err != nil {
		if errors.Is(err, http.ErrMissingFile) || errors.Is(err, http.ErrNotMultipart) {
			return nil, nil
		}
		return nil, apperrors.Validation(fmt.Sprintf("%s could not be read", field))
	}
	if u.maxSize > 0 && header.Size > u.maxSize {
		return nil, apperrors.Validation(fmt.Sprintf("%s exceeds the maximum size of %d bytes", field, u.maxSize))
	}

	contentType := header.Header.Get(constants.HeaderContentType)
	if !constants.AllowedImageTypes[contentType] {
		return nil, apperrors.Validation(fmt.Sprintf("%s must be a jpeg, png, gif or webp image", field))
	}

	path, err := u.store(c, header)
	if err != nil {
		logger.ErrorWithContext(c.Request.Context(), "Failed to store upload").
			String("field", field).
			Err(err).
			Log()
		return nil, apperrors.WrapError(apperrors.ErrInternal, err)
	}

	return &storage.File{
		Path:        path,
		Filename:    header.Filename,
		ContentType: contentType,
		Size:        header.Size,
	}, nil
}

func (u uploadSaver) store(c *gin.Context, header *multipart.FileHeader) (string, error) {
	if u.dir != "" {
		if err := os.MkdirAll(u.dir, 0o755); err != nil {
			return "", err
		}
	}
	tmp, err := os.CreateTemp(u.dir, "upload-*"+filepath.Ext(header.Filename))
	if err != nil {
		return "", err
	}
	path := tmp.Name()
	tmp.Close()

	if err := c.SaveUploadedFile(header, path); err != nil {
		os.Remove(path)
		return "", err
	}
	return path, nil
}

// discard removes temporary files the uploader never consumed.
func discard(files ...*storage.File) {
	for _, f := range files {
		if f != nil && f.Path != "" {
			_ = os.Remove(f.Path)
		}
	}
}
