package handlers

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/slotbook/internal/dashboard"
	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/services"
)

func attendeeQuery(c *gin.Context) (services.AttendeeQuery, bool) {
	status, ok := dashboard.ParseStatusFilter(c.Query("status"))
	if !ok {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid status parameter"))
		return services.AttendeeQuery{}, false
	}
	sortKey, ok := dashboard.ParseSortKey(c.Query("sort"))
	if !ok {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid sort parameter"))
		return services.AttendeeQuery{}, false
	}
	return services.AttendeeQuery{
		Date:      c.Query("date"),
		Start:     c.Query("start"),
		End:       c.Query("end"),
		SessionID: c.Query("session_id"),
		Search:    c.Query("search"),
		Status:    status,
		SortKey:   sortKey,
		Direction: dashboard.ParseDirection(c.Query("order")),
	}, true
}

func ListAttendees(ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := entityParam(c)
		if !ok {
			return
		}
		q, ok := attendeeQuery(c)
		if !ok {
			return
		}

		records, access, err := ds.Attendees(c.Request.Context(), claims.UserID, id, q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(gin.H{
			"attendees": records,
			"access":    access,
		}, ""))
	}
}

func AttendeeStats(ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := entityParam(c)
		if !ok {
			return
		}
		q, ok := attendeeQuery(c)
		if !ok {
			return
		}

		stats, err := ds.Stats(c.Request.Context(), claims.UserID, id, q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(stats, ""))
	}
}

func ExportAttendees(ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := entityParam(c)
		if !ok {
			return
		}
		q, ok := attendeeQuery(c)
		if !ok {
			return
		}

		file, err := ds.Export(c.Request.Context(), claims.UserID, id, q)
		if err != nil {
			respondError(c, err)
			return
		}
		c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", file.Filename))
		c.Header("X-Export-Rows", fmt.Sprint(file.Rows))
		c.Data(http.StatusOK, "text/csv; charset=utf-8", file.Data)
	}
}

type checkInRequest struct {
	CheckedIn *bool `json:"checked_in" binding:"required"`
}

func CheckIn(ds *services.DashboardService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		bookingID := strings.TrimSpace(c.Param("id"))
		if bookingID == "" {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("booking ID is required"))
			return
		}
		var req checkInRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		booking, err := ds.CheckIn(c.Request.Context(), claims.UserID, bookingID, *req.CheckedIn)
		if err != nil {
			respondError(c, err)
			return
		}
		msg := "Attendee checked in"
		if !*req.CheckedIn {
			msg = "Attendee check-in cleared"
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(booking, msg))
	}
}
