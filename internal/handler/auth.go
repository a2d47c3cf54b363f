package handler

import (
	"errors"
	"io"
	"net/http"
	"strings"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/dto"
	"github.com/Payphone-Digital/accounts/internal/middleware"
	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/gin-gonic/gin"
)

type AuthHandler struct {
	accounts AccountService
	cookies  sessionCookies
	uploads  uploadSaver
}

func NewAuthHandler(accounts AccountService, cfg *config.Config) *AuthHandler {
	return &AuthHandler{
		accounts: accounts,
		cookies:  newSessionCookies(cfg),
		uploads:  newUploadSaver(cfg.Upload),
	}
}

// Register handles multipart account creation with avatar and optional cover image.
func (h *AuthHandler) Register(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Register")

	var req dto.RegisterRequest
	if err := c.ShouldBind(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid register request").
			Err(err).
			Log()
		respondBadRequest(c, err)
		return
	}

	avatar, err := h.uploads.save(c, constants.FormFieldAvatar)
	if err != nil {
		respondError(c, err)
		return
	}
	cover, err := h.uploads.save(c, constants.FormFieldCoverImage)
	if err != nil {
		// the cover is optional; an unusable one is dropped
		logger.WarnWithContext(ctx, "Cover image ignored").
			Err(err).
			Log()
		cover = nil
	}
	defer discard(avatar, cover)
	req.Avatar, req.Cover = avatar, cover

	user, err := h.accounts.Register(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Registration failed").
			String("username", req.Username).
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, constants.BuildSuccessResponse(http.StatusCreated, user, constants.MsgUserRegistered))
}

// Login verifies credentials and sets both session cookies.
func (h *AuthHandler) Login(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Login")

	var req dto.LoginRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		logger.WarnWithContext(ctx, "Invalid login request").
			Err(err).
			Log()
		respondBadRequest(c, err)
		return
	}

	logger.InfoWithContext(ctx, "User login attempt").
		String("email", req.Email).
		String("username", req.Username).
		Log()

	response, err := h.accounts.Login(ctx, &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Login failed").
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	h.cookies.set(c, &response.TokenPair)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, response, constants.MsgUserLoggedIn))
}

// RefreshToken rotates the session. The refresh token is read from its
// cookie first and from the JSON body otherwise.
func (h *AuthHandler) RefreshToken(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "RefreshToken")

	presented, _ := c.Cookie(constants.CookieRefreshToken)
	if strings.TrimSpace(presented) == "" {
		var req dto.RefreshTokenRequest
		if c.Request.ContentLength != 0 {
			if err := c.ShouldBindJSON(&req); err != nil && !errors.Is(err, io.EOF) {
				respondBadRequest(c, err)
				return
			}
		}
		presented = req.RefreshToken
	}

	pair, err := h.accounts.Refresh(ctx, presented)
	if err != nil {
		logger.WarnWithContext(ctx, "Token refresh failed").
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	h.cookies.set(c, pair)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, pair, constants.MsgTokenRefreshed))
}

// Logout ends the caller's session and clears both cookies.
func (h *AuthHandler) Logout(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "Logout")
	userID := middleware.UserID(c)

	if err := h.accounts.Logout(ctx, userID); err != nil {
		logger.ErrorWithContext(ctx, "Failed to logout user").
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	h.cookies.clear(c)
	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, gin.H{}, constants.MsgUserLoggedOut))
}
