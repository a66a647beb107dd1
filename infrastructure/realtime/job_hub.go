package realtime

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gin-gonic/gin"

	"media-publisher/domain/dto"
	"media-publisher/domain/model"
)

// Hub maintains per-user subscribers listening for publish job status events.
// It satisfies the job notifier contract so it joins the same fanout as the
// message-bus notifiers.
type Hub struct {
	mu    sync.RWMutex
	users map[string]map[chan dto.JobStatusEvent]struct{}
}

func NewJobHub() *Hub {
	return &Hub{users: make(map[string]map[chan dto.JobStatusEvent]struct{})}
}

// Serve registers an SSE stream for the authenticated user (user_id set by middleware).
func (h *Hub) Serve(c *gin.Context) {
	userID := c.GetString("user_id")
	if userID == "" {
		c.Status(http.StatusUnauthorized)
		return
	}
	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // disable nginx buffering

	ch := make(chan dto.JobStatusEvent, 8)
	h.addSubscriber(userID, ch)
	defer h.removeSubscriber(userID, ch)

	// Initial comment to keep connection open
	c.Writer.Write([]byte(":ok\n\n"))
	c.Writer.Flush()

	notify := c.Writer.CloseNotify()
	for {
		select {
		case <-notify:
			return
		case evt := <-ch:
			data, _ := json.Marshal(evt)
			_, _ = c.Writer.Write([]byte("event: job_status\n"))
			_, _ = c.Writer.Write([]byte("data: "))
			_, _ = c.Writer.Write(data)
			_, _ = c.Writer.Write([]byte("\n\n"))
			c.Writer.Flush()
		case <-c.Request.Context().Done():
			return
		}
	}
}

func (h *Hub) addSubscriber(userID string, ch chan dto.JobStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.users[userID] == nil {
		h.users[userID] = make(map[chan dto.JobStatusEvent]struct{})
	}
	h.users[userID][ch] = struct{}{}
}

func (h *Hub) removeSubscriber(userID string, ch chan dto.JobStatusEvent) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if subs := h.users[userID]; subs != nil {
		delete(subs, ch)
		close(ch)
		if len(subs) == 0 {
			delete(h.users, userID)
		}
	}
}

// NotifyJobStatus broadcasts to all subscribers of the user who owns the job.
func (h *Hub) NotifyJobStatus(_ context.Context, job *model.PublishJob) error {
	if job == nil {
		return nil
	}
	evt := dto.JobStatusEvent{
		JobID:             job.JobID,
		AccountID:         job.AccountID,
		Platform:          job.Platform,
		Status:            string(job.Status),
		PlatformPublishID: job.PlatformPublishID,
		Permalink:         job.Permalink,
		FailReason:        job.ErrorReason,
		OccurredAt:        job.UpdatedAt,
	}
	h.mu.RLock()
	subs := h.users[job.UserID]
	for ch := range subs {
		select { // non-blocking
		case ch <- evt:
		default:
		}
	}
	h.mu.RUnlock()
	return nil
}
