package http

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
	"media-publisher/infrastructure/logger"
	"media-publisher/usecase"
)

type IPublishHandler interface {
	Publish(ctx *gin.Context)
	GetPublishStatus(ctx *gin.Context)
	Webhook(ctx *gin.Context)
}

type PublishHandler struct {
	publishUsecase usecase.IPublishUsecase
}

func NewPublishHandler(publishUsecase usecase.IPublishUsecase) IPublishHandler {
	return &PublishHandler{publishUsecase: publishUsecase}
}

func (h *PublishHandler) Publish(ctx *gin.Context) {
	userID := ctx.GetString("user_id")
	if userID == "" {
		ctx.JSON(http.StatusUnauthorized, gin.H{"error": "unauthorized: missing user_id"})
		return
	}
	var req dto.PublishRequest
	if err := ctx.ShouldBindJSON(&req); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
		return
	}

	job, err := h.publishUsecase.Publish(ctx.Request.Context(), userID, &req)
	if err != nil {
		logger.GetLogger().
			WithField("account_id", req.AccountID).
			WithField("platform", req.Platform).
			WithField("error", err.Error()).
			Warn("publish request failed")
		status := http.StatusBadGateway
		switch {
		case errors.Is(err, model.ErrInvalidSource):
			status = http.StatusBadRequest
		case errors.Is(err, model.ErrAuthExpired):
			status = http.StatusUnauthorized
		}
		// A job that failed after creation still goes back to the caller so
		// the failure reason is inspectable.
		if job != nil {
			ctx.JSON(status, gin.H{"error": err.Error(), "job": job})
			return
		}
		ctx.JSON(status, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusCreated, job)
}

// GetPublishStatus is the client-facing poll: it reads the platform's current
// view and returns the (possibly advanced) job.
func (h *PublishHandler) GetPublishStatus(ctx *gin.Context) {
	jobID := ctx.Param("jobId")
	job, err := h.publishUsecase.PollStatus(ctx.Request.Context(), jobID)
	if err != nil {
		if errors.Is(err, model.ErrJobNotFound) {
			ctx.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		logger.GetLogger().
			WithField("job_id", jobID).
			WithField("error", err.Error()).
			Warn("status poll failed; returning stored state")
		if job != nil {
			ctx.JSON(http.StatusOK, job)
			return
		}
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	ctx.JSON(http.StatusOK, job)
}

// webhookBody is the raw ingress shape: the platform nests event details in
// a JSON-encoded content string.
type webhookBody struct {
	Event      string `json:"event"`
	UserOpenID string `json:"user_openid"`
	Content    string `json:"content"`
}

type webhookContent struct {
	PublishID string `json:"publish_id"`
	Reason    string `json:"reason"`
	PostID    string `json:"post_id"`
}

// Webhook ingests platform push notifications. It always acknowledges with
// 200 once the body parses; unknown publish ids are dropped downstream so the
// platform never retries storms at us.
func (h *PublishHandler) Webhook(ctx *gin.Context) {
	var body webhookBody
	if err := ctx.ShouldBindJSON(&body); err != nil {
		ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook body"})
		return
	}
	var content webhookContent
	if body.Content != "" {
		if err := json.Unmarshal([]byte(body.Content), &content); err != nil {
			ctx.JSON(http.StatusBadRequest, gin.H{"error": "invalid webhook content"})
			return
		}
	}

	event := &dto.WebhookEvent{
		EventName:         body.Event,
		PlatformPublishID: content.PublishID,
		UserOpenID:        body.UserOpenID,
		FailReason:        content.Reason,
		PostID:            content.PostID,
	}
	if err := h.publishUsecase.ApplyWebhookEvent(ctx.Request.Context(), event); err != nil {
		logger.GetLogger().
			WithField("event", body.Event).
			WithField("error", err.Error()).
			Error("webhook apply failed")
		ctx.JSON(http.StatusInternalServerError, gin.H{"error": "event not applied"})
		return
	}
	ctx.JSON(http.StatusOK, gin.H{"received": true})
}
