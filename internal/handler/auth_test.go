package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/dto"
	apperrors "github.com/Payphone-Digital/accounts/internal/errors"
	"github.com/Payphone-Digital/accounts/pkg/storage"
	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAccounts struct {
	registerFn func(req *dto.RegisterRequest) (*dto.UserResponse, error)
	loginFn    func(req *dto.LoginRequest) (*dto.LoginResponse, error)
	refreshFn  func(token string) (*dto.TokenPair, error)
	logoutFn   func(userID string) error
}

func (s *stubAccounts) Register(_ context.Context, req *dto.RegisterRequest) (*dto.UserResponse, error) {
	return s.registerFn(req)
}

func (s *stubAccounts) Login(_ context.Context, req *dto.LoginRequest) (*dto.LoginResponse, error) {
	return s.loginFn(req)
}

func (s *stubAccounts) Refresh(_ context.Context, token string) (*dto.TokenPair, error) {
	return s.refreshFn(token)
}

func (s *stubAccounts) Logout(_ context.Context, userID string) error {
	return s.logoutFn(userID)
}

func (s *stubAccounts) ChangePassword(context.Context, string, *dto.ChangePasswordRequest) error {
	return nil
}

func (s *stubAccounts) UpdateAccount(context.Context, string, *dto.UpdateAccountRequest) (*dto.UserResponse, error) {
	return nil, nil
}

func (s *stubAccounts) UpdateAvatar(context.Context, string, *storage.File) (*dto.UserResponse, error) {
	return nil, nil
}

func (s *stubAccounts) UpdateCoverImage(context.Context, string, *storage.File) (*dto.UserResponse, error) {
	return nil, nil
}

func (s *stubAccounts) GetCurrentUser(context.Context, string) (*dto.UserResponse, error) {
	return nil, nil
}

func testConfig(t *testing.T) *config.Config {
	return &config.Config{
		Cookie: config.CookieConfig{Secure: true, SameSite: "strict"},
		Upload: config.UploadConfig{TempDir: t.TempDir(), MaxFileSize: 1 << 20},
	}
}

func testPair() *dto.TokenPair {
	return &dto.TokenPair{
		AccessToken:      "access-1",
		RefreshToken:     "refresh-1",
		AccessExpiresAt:  time.Now().Add(15 * time.Minute),
		RefreshExpiresAt: time.Now().Add(240 * time.Hour),
	}
}

func newEngine(h *AuthHandler) *gin.Engine {
	r := gin.New()
	r.POST("/register", h.Register)
	r.POST("/login", h.Login)
	r.POST("/refresh-token", h.RefreshToken)
	r.POST("/logout", func(c *gin.Context) { c.Set(constants.GinKeyUserID, "u-1") }, h.Logout)
	return r
}

func cookiesByName(rec *httptest.ResponseRecorder) map[string]*http.Cookie {
	out := map[string]*http.Cookie{}
	for _, c := range rec.Result().Cookies() {
		out[c.Name] = c
	}
	return out
}

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return body
}

func TestLogin_SetsProtectedCookies(t *testing.T) {
	accounts := &stubAccounts{loginFn: func(req *dto.LoginRequest) (*dto.LoginResponse, error) {
		assert.Equal(t, "janed", req.Username)
		return &dto.LoginResponse{User: &dto.UserResponse{ID: "u-1", Username: "janed"}, TokenPair: *testPair()}, nil
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"janed","password":"pw123"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	cookies := cookiesByName(rec)
	for _, name := range []string{constants.CookieAccessToken, constants.CookieRefreshToken} {
		c, ok := cookies[name]
		require.True(t, ok, name)
		assert.True(t, c.HttpOnly, name)
		assert.True(t, c.Secure, name)
		assert.Equal(t, http.SameSiteStrictMode, c.SameSite, name)
		assert.Equal(t, "/", c.Path, name)
		assert.Greater(t, c.MaxAge, 0, name)
	}
	assert.Equal(t, "access-1", cookies[constants.CookieAccessToken].Value)

	body := decode(t, rec)
	assert.Equal(t, true, body["success"])
	data := body["data"].(map[string]any)
	assert.Equal(t, "refresh-1", data["refreshToken"])
	user := data["user"].(map[string]any)
	assert.NotContains(t, user, "password")
	assert.NotContains(t, user, "refreshToken")
}

func TestLogin_ErrorEnvelope(t *testing.T) {
	accounts := &stubAccounts{loginFn: func(*dto.LoginRequest) (*dto.LoginResponse, error) {
		return nil, apperrors.ErrInvalidCredentials
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/login", strings.NewReader(`{"username":"janed","password":"x"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	body := decode(t, rec)
	assert.Equal(t, false, body["success"])
	assert.Equal(t, float64(401), body["statusCode"])
	assert.Equal(t, "invalid user credentials", body["message"])
	assert.Nil(t, body["data"])
	assert.Equal(t, []any{}, body["errors"])
	assert.Empty(t, rec.Result().Cookies())
}

func TestRefreshToken_PrefersCookie(t *testing.T) {
	var presented string
	accounts := &stubAccounts{refreshFn: func(token string) (*dto.TokenPair, error) {
		presented = token
		return testPair(), nil
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(`{"refreshToken":"from-body"}`))
	req.Header.Set("Content-Type", "application/json")
	req.AddCookie(&http.Cookie{Name: constants.CookieRefreshToken, Value: "from-cookie"})
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "from-cookie", presented)
	assert.Equal(t, "refresh-1", cookiesByName(rec)[constants.CookieRefreshToken].Value)
}

func TestRefreshToken_FallsBackToBody(t *testing.T) {
	var presented string
	accounts := &stubAccounts{refreshFn: func(token string) (*dto.TokenPair, error) {
		presented = token
		return nil, apperrors.ErrRefreshTokenReused
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(`{"refreshToken":"from-body"}`))
	req.Header.Set("Content-Type", "application/json")
	r.ServeHTTP(rec, req)

	assert.Equal(t, "from-body", presented)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "refresh token is expired or used", decode(t, rec)["message"])
}

func TestRefreshToken_EmptyBodyOfUnknownLength(t *testing.T) {
	called := false
	accounts := &stubAccounts{refreshFn: func(token string) (*dto.TokenPair, error) {
		called = true
		assert.Equal(t, "", token)
		return nil, apperrors.ErrUnauthorized
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/refresh-token", strings.NewReader(""))
	req.Header.Set("Content-Type", "application/json")
	req.ContentLength = -1
	r.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusUnauthorized, rec.Code)
	assert.Equal(t, "unauthorized request", decode(t, rec)["message"])
}

func TestLogout_ClearsCookies(t *testing.T) {
	var loggedOut string
	accounts := &stubAccounts{logoutFn: func(userID string) error {
		loggedOut = userID
		return nil
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/logout", nil))

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "u-1", loggedOut)
	cookies := cookiesByName(rec)
	for _, name := range []string{constants.CookieAccessToken, constants.CookieRefreshToken} {
		c, ok := cookies[name]
		require.True(t, ok, name)
		assert.Equal(t, "", c.Value)
		assert.Less(t, c.MaxAge, 0, name)
		assert.True(t, c.HttpOnly)
	}
}

func multipartBody(t *testing.T, fields map[string]string, files map[string]string) (*bytes.Buffer, string) {
	t.Helper()
	buf := &bytes.Buffer{}
	w := multipart.NewWriter(buf)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	for field, contentType := range files {
		h := textproto.MIMEHeader{}
		h.Set("Content-Disposition", `form-data; name="`+field+`"; filename="`+field+`.png"`)
		h.Set("Content-Type", contentType)
		part, err := w.CreatePart(h)
		require.NoError(t, err)
		_, err = part.Write([]byte("\x89PNG fake image bytes"))
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())
	return buf, w.FormDataContentType()
}

func TestRegister_MultipartWithAvatar(t *testing.T) {
	var avatarPath string
	accounts := &stubAccounts{registerFn: func(req *dto.RegisterRequest) (*dto.UserResponse, error) {
		assert.Equal(t, "Jane Doe", req.FullName)
		assert.Equal(t, "JaneD", req.Username)
		require.NotNil(t, req.Avatar)
		assert.Nil(t, req.Cover)
		assert.Equal(t, "image/png", req.Avatar.ContentType)
		_, err := os.Stat(req.Avatar.Path)
		assert.NoError(t, err, "avatar should be on disk while the service runs")
		avatarPath = req.Avatar.Path
		return &dto.UserResponse{ID: "u-1", Username: "janed"}, nil
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Jane Doe", "email": "jane@x.com", "username": "JaneD", "password": "pw123",
	}, map[string]string{constants.FormFieldAvatar: "image/png"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	require.Equal(t, http.StatusCreated, rec.Code)
	assert.Equal(t, "user registered successfully", decode(t, rec)["message"])
	_, err := os.Stat(avatarPath)
	assert.True(t, os.IsNotExist(err), "temporary upload should be removed")
}

func TestRegister_RejectsNonImage(t *testing.T) {
	accounts := &stubAccounts{registerFn: func(*dto.RegisterRequest) (*dto.UserResponse, error) {
		t.Fatal("service must not be called")
		return nil, nil
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	body, contentType := multipartBody(t, map[string]string{"fullName": "Jane"},
		map[string]string{constants.FormFieldAvatar: "application/pdf"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestRegister_UnusableCoverIsDropped(t *testing.T) {
	called := false
	accounts := &stubAccounts{registerFn: func(req *dto.RegisterRequest) (*dto.UserResponse, error) {
		called = true
		require.NotNil(t, req.Avatar)
		assert.Nil(t, req.Cover)
		return &dto.UserResponse{ID: "u-1", Username: "janed"}, nil
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Jane Doe", "email": "jane@x.com", "username": "JaneD", "password": "pw123",
	}, map[string]string{
		constants.FormFieldAvatar:     "image/png",
		constants.FormFieldCoverImage: "application/pdf",
	})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	assert.True(t, called)
	assert.Equal(t, http.StatusCreated, rec.Code)
}

func TestRegister_ConflictStatus(t *testing.T) {
	accounts := &stubAccounts{registerFn: func(*dto.RegisterRequest) (*dto.UserResponse, error) {
		return nil, apperrors.ErrUserExists
	}}
	r := newEngine(NewAuthHandler(accounts, testConfig(t)))

	body, contentType := multipartBody(t, map[string]string{
		"fullName": "Jane Doe", "email": "jane@x.com", "username": "other", "password": "pw123",
	}, map[string]string{constants.FormFieldAvatar: "image/png"})

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/register", body)
	req.Header.Set("Content-Type", contentType)
	r.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusConflict, rec.Code)
	assert.Equal(t, "user already exists", decode(t, rec)["message"])
}
