package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/GoSim-25-26J-441/apk-studio-backend/internal/projects/domain"
)

var (
	keepAliveInterval = 15 * time.Second
	pollInterval      = 1 * time.Second
)

// stream pushes project state changes to the client as Server-Sent Events.
func (h *Handler) stream(c *gin.Context) {
	id := c.Param("id")
	project := c.MustGet(ctxProject).(*domain.Project)

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")
	c.Header("X-Accel-Buffering", "no") // nginx: disable buffering

	flusher, ok := c.Writer.(http.Flusher)
	if !ok {
		c.JSON(http.StatusInternalServerError, gin.H{"ok": false, "code": "internal", "error": "streaming unsupported"})
		return
	}

	send := func(event string, payload any) {
		data, _ := json.Marshal(payload)
		fmt.Fprintf(c.Writer, "event: %s\ndata: %s\n\n", event, data)
		flusher.Flush()
	}

	send("initial", gin.H{"project": projectView(project)})

	ctx := c.Request.Context()
	keepAlive := time.NewTicker(keepAliveInterval)
	defer keepAlive.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	lastUpdatedAt := project.UpdatedAt
	for {
		select {
		case <-ctx.Done():
			return

		case <-keepAlive.C:
			fmt.Fprint(c.Writer, ": keep-alive\n\n")
			flusher.Flush()

		case <-poll.C:
			updated, err := h.svc.Get(ctx, id)
			if err != nil {
				if domain.KindOf(err) == domain.KindNotFound {
					send("deleted", gin.H{"event": "deleted", "project_id": id})
					return
				}
				continue
			}
			if updated.UpdatedAt.After(lastUpdatedAt) {
				lastUpdatedAt = updated.UpdatedAt
				send("update", gin.H{"project": projectView(updated)})
			}
		}
	}
}
