package handlers

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/refresh"
	"github.com/joshua-takyi/slotbook/internal/services"
)

// StreamSlots pushes availability snapshots for one date as server-sent events. Each
// connection owns a refresh scheduler that stops when the client goes away. The first event
// carries the stream id the client uses to request refreshes and report visibility.
func StreamSlots(cs *services.CatalogService, streams *refresh.Registry, interval time.Duration, logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := entityParam(c)
		if !ok {
			return
		}
		date := c.Query("date")
		if date == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("date is required"))
			return
		}
		// fail fast on unknown entities and closed dates before switching to a stream
		if _, err := cs.DaySlots(c.Request.Context(), id.String(), date); err != nil {
			respondError(c, err)
			return
		}

		sched := refresh.New(cs.DaySlots, refresh.WithInterval(interval), refresh.WithLogger(logger))
		defer sched.Close()
		updates := sched.Subscribe()
		if err := sched.Select(id.String(), date); err != nil {
			respondError(c, err)
			return
		}
		streamID := streams.Add(id.String(), sched)
		defer streams.Remove(streamID)

		// the stream outlives the server's write timeout
		_ = http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{})
		c.Header("Cache-Control", "no-cache")
		c.Header("X-Accel-Buffering", "no")
		c.Header("X-Stream-ID", streamID)

		done := c.Request.Context().Done()
		announced := false
		c.Stream(func(w io.Writer) bool {
			if !announced {
				announced = true
				c.SSEvent("stream", gin.H{"stream_id": streamID})
				return true
			}
			select {
			case <-done:
				return false
			case snap, ok := <-updates:
				if !ok {
					return false
				}
				c.SSEvent("availability", snap)
				return true
			}
		})
		logger.Debug("availability stream closed", "entity_id", id, "date", date, "stream_id", streamID)
	}
}

type visibilityRequest struct {
	Visible *bool `json:"visible" binding:"required"`
}

// RefreshStream asks a live stream for an immediate re-read of the ledger.
func RefreshStream(streams *refresh.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched, ok := streamParam(c, streams)
		if !ok {
			return
		}
		if err := sched.RefreshNow(); err != nil {
			c.JSON(http.StatusConflict, helpers.ErrorResponse(err.Error()))
			return
		}
		c.JSON(http.StatusAccepted, helpers.SuccessResponse(nil, "refresh requested"))
	}
}

// StreamVisibility records the viewer going to the background or coming back. Coming back
// refreshes right away.
func StreamVisibility(streams *refresh.Registry) gin.HandlerFunc {
	return func(c *gin.Context) {
		sched, ok := streamParam(c, streams)
		if !ok {
			return
		}
		var req visibilityRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}
		sched.VisibilityChanged(*req.Visible)
		c.JSON(http.StatusAccepted, helpers.SuccessResponse(gin.H{"visible": *req.Visible}, ""))
	}
}

func streamParam(c *gin.Context, streams *refresh.Registry) (*refresh.Scheduler, bool) {
	id, ok := entityParam(c)
	if !ok {
		return nil, false
	}
	sched, found := streams.Get(id.String(), c.Param("stream_id"))
	if !found {
		c.JSON(http.StatusNotFound, helpers.ErrorResponse("stream not found"))
		return nil, false
	}
	return sched, true
}
