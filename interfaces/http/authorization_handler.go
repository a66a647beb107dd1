package http

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"media-publisher/domain/model"
	"media-publisher/infrastructure/logger"
	"media-publisher/usecase"
)

type IAuthorizationHandler interface {
	BeginAuthorization(ctx *gin.Context)
	AuthorizationCallback(ctx *gin.Context)
	GetAuthorizationStatus(ctx *gin.Context)
	RevokeAccount(ctx *gin.Context)
	GetCredentialStatus(ctx *gin.Context)
}

type AuthorizationHandler struct {
	authorizationUsecase usecase.IAuthorizationUsecase
	credentialUsecase    usecase.ICredentialUsecase
}

func NewAuthorizationHandler(authorizationUsecase usecase.IAuthorizationUsecase, credentialUsecase usecase.ICredentialUsecase) IAuthorizationHandler {
	return &AuthorizationHandler{
		authorizationUsecase: authorizationUsecase,
		credentialUsecase:    credentialUsecase,
	}
}

// BeginAuthorization starts a consent flow and returns the URL to send the
// user to, plus the task id to poll with.
func (h *AuthorizationHandler) BeginAuthorization(ctx *gin.Context) {
	platform := ctx.Param("platform")
	userID := ctx.GetString("user_id")
	spaceID := ctx.Query("space_id")
	var scopes []string
	if raw := ctx.Query("scopes"); raw != "" {
		scopes = strings.Split(raw, ",")
	}

	res, err := h.authorizationUsecase.Begin(ctx.Request.Context(), userID, platform, spaceID, scopes)
	if err != nil {
		logger.GetLogger().
			WithField("platform", platform).
			WithField("error", err.Error()).
			Warn("begin authorization failed")
		ctx.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// AuthorizationCallback is where the platform redirects the user after
// consent; code and state arrive as query parameters.
func (h *AuthorizationHandler) AuthorizationCallback(ctx *gin.Context) {
	state := ctx.Query("state")
	code := ctx.Query("code")
	if state == "" || code == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "code and state required"})
		return
	}

	task, err := h.authorizationUsecase.Complete(ctx.Request.Context(), state, code)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "authorization task not found or expired"})
			return
		}
		logger.GetLogger().
			WithField("task_id", state).
			WithField("error", err.Error()).
			Warn("authorization completion failed")
		ctx.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"task_id": task.State, "status": task.Status, "account_id": task.AccountID})
}

func (h *AuthorizationHandler) GetAuthorizationStatus(ctx *gin.Context) {
	taskID := ctx.Query("task_id")
	if taskID == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "task_id required"})
		return
	}
	res, err := h.authorizationUsecase.GetStatus(ctx.Request.Context(), taskID)
	if err != nil {
		if errors.Is(err, model.ErrTaskNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "authorization task not found or expired"})
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, res)
}

// RevokeAccount drops the platform grant for an account.
func (h *AuthorizationHandler) RevokeAccount(ctx *gin.Context) {
	accountID := ctx.Param("accountId")
	platform := ctx.Query("platform")
	if platform == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "platform required"})
		return
	}
	if err := h.credentialUsecase.Revoke(ctx.Request.Context(), accountID, platform); err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"account_id": accountID, "revoked": true})
}

func (h *AuthorizationHandler) GetCredentialStatus(ctx *gin.Context) {
	accountID := ctx.Param("accountId")
	platform := ctx.Query("platform")
	if platform == "" {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "platform required"})
		return
	}
	status, err := h.credentialUsecase.GetCredentialStatus(ctx.Request.Context(), accountID, platform)
	if err != nil {
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, status)
}
