package handler

import (
	"context"
	"net/http"

	"github.com/Payphone-Digital/accounts/config"
	"github.com/Payphone-Digital/accounts/internal/constants"
	"github.com/Payphone-Digital/accounts/internal/dto"
	apperrors "github.com/Payphone-Digital/accounts/internal/errors"
	"github.com/Payphone-Digital/accounts/internal/middleware"
	ctxutil "github.com/Payphone-Digital/accounts/pkg/context"
	"github.com/Payphone-Digital/accounts/pkg/logger"
	"github.com/Payphone-Digital/accounts/pkg/storage"
	"github.com/gin-gonic/gin"
)

type UserHandler struct {
	accounts AccountService
	uploads  uploadSaver
}

func NewUserHandler(accounts AccountService, cfg *config.Config) *UserHandler {
	return &UserHandler{accounts: accounts, uploads: newUploadSaver(cfg.Upload)}
}

func (h *UserHandler) CurrentUser(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "CurrentUser")

	user, err := h.accounts.GetCurrentUser(ctx, middleware.UserID(c))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, user, constants.MsgCurrentUser))
}

func (h *UserHandler) UpdateAccount(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "UpdateAccount")

	var req dto.UpdateAccountRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	user, err := h.accounts.UpdateAccount(ctx, middleware.UserID(c), &req)
	if err != nil {
		logger.WarnWithContext(ctx, "Account update failed").
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, user, constants.MsgAccountUpdated))
}

func (h *UserHandler) ChangePassword(c *gin.Context) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", "ChangePassword")

	var req dto.ChangePasswordRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondBadRequest(c, err)
		return
	}

	if err := h.accounts.ChangePassword(ctx, middleware.UserID(c), &req); err != nil {
		logger.WarnWithContext(ctx, "Password change failed").
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, gin.H{}, constants.MsgPasswordChanged))
}

func (h *UserHandler) UpdateAvatar(c *gin.Context) {
	h.updateImage(c, "UpdateAvatar", constants.FormFieldAvatar, apperrors.ErrAvatarMissing,
		h.accounts.UpdateAvatar, constants.MsgAvatarUpdated)
}

func (h *UserHandler) UpdateCoverImage(c *gin.Context) {
	h.updateImage(c, "UpdateCoverImage", constants.FormFieldCoverImage, apperrors.ErrFileMissing,
		h.accounts.UpdateCoverImage, constants.MsgCoverImageUpdate)
}

type imageUpdate func(ctx context.Context, userID string, file *storage.File) (*dto.UserResponse, error)

func (h *UserHandler) updateImage(c *gin.Context, function, field string, missing error, update imageUpdate, message string) {
	ctx := ctxutil.NewContextWithRequest(c.Request.Context(), c.Request, "handler", function)

	file, err := h.uploads.save(c, field)
	if err != nil {
		respondError(c, err)
		return
	}
	if file == nil {
		respondError(c, missing)
		return
	}
	defer discard(file)

	user, err := update(ctx, middleware.UserID(c), file)
	if err != nil {
		logger.WarnWithContext(ctx, "Image update failed").
			String("field", field).
			Err(err).
			Log()
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, constants.BuildSuccessResponse(http.StatusOK, user, message))
}
