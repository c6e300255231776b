package handlers

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"

	"github.com/joshua-takyi/slotbook/internal/dashboard"
	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/models"
	"github.com/joshua-takyi/slotbook/internal/services"
)

// respondError maps a service error to a status code. Anything unrecognised is attached to the
// context so ErrorHandler logs it, and the client gets a generic 500.
func respondError(c *gin.Context, err error) {
	var verrs validator.ValidationErrors
	switch {
	case errors.Is(err, models.ErrInsufficientCapacity), errors.Is(err, models.ErrSlotNotFound):
		c.JSON(http.StatusConflict, helpers.StaleResponse(err.Error()))
	case errors.Is(err, services.ErrCheckoutClosed), errors.Is(err, services.ErrCheckoutBusy):
		c.JSON(http.StatusConflict, helpers.ErrorResponse(err.Error()))
	case errors.Is(err, models.ErrInvalidEntity),
		errors.Is(err, models.ErrInvalidQuantity),
		errors.Is(err, models.ErrInvalidPrice),
		errors.Is(err, models.ErrFreeBookingUnsupported),
		errors.Is(err, models.ErrDateNotBookable),
		errors.Is(err, services.ErrInvalidSelection),
		errors.As(err, &verrs):
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
	case errors.Is(err, services.ErrGateway):
		c.JSON(http.StatusPaymentRequired, helpers.ErrorResponse(err.Error()))
	case errors.Is(err, models.ErrAccessDenied):
		c.JSON(http.StatusForbidden, helpers.ErrorResponse(err.Error()))
	case errors.Is(err, models.ErrEntityNotFound),
		errors.Is(err, models.ErrBookingNotFound),
		errors.Is(err, services.ErrCheckoutNotFound):
		c.JSON(http.StatusNotFound, helpers.ErrorResponse(err.Error()))
	case errors.Is(err, dashboard.ErrNothingToExport):
		c.JSON(http.StatusUnprocessableEntity, helpers.ErrorResponse(err.Error()))
	default:
		_ = c.Error(err)
		c.JSON(http.StatusInternalServerError, helpers.ErrorResponse("internal server error"))
	}
}

// entityParam reads the :id path parameter, tolerating stray quotes from templated clients.
func entityParam(c *gin.Context) (uuid.UUID, bool) {
	raw := strings.Trim(strings.TrimSpace(c.Param("id")), "\"'")
	if raw == "" {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("entity ID is required"))
		return uuid.Nil, false
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid entity ID format"))
		return uuid.Nil, false
	}
	return id, true
}

func currentUser(c *gin.Context) (*helpers.EnhancedClaims, uuid.UUID, bool) {
	claims, ok := helpers.UserFromContext(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, helpers.ErrorResponse("unauthorized"))
		return nil, uuid.Nil, false
	}
	userID, err := uuid.Parse(claims.UserID)
	if err != nil {
		c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid user ID in token"))
		return nil, uuid.Nil, false
	}
	return claims, userID, true
}
