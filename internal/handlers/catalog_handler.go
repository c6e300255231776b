package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/joshua-takyi/slotbook/internal/helpers"
	"github.com/joshua-takyi/slotbook/internal/models"
	"github.com/joshua-takyi/slotbook/internal/services"
)

func CreateEntity(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userID, ok := currentUser(c)
		if !ok {
			return
		}
		var entity models.Entity
		if err := c.ShouldBindJSON(&entity); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		created, err := cs.CreateEntity(c.Request.Context(), &entity, userID)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusCreated, helpers.SuccessResponse(created, "Entity created successfully"))
	}
}

func UpdateEntity(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		claims, _, ok := currentUser(c)
		if !ok {
			return
		}
		id, ok := entityParam(c)
		if !ok {
			return
		}
		var entity models.Entity
		if err := c.ShouldBindJSON(&entity); err != nil {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse(err.Error()))
			return
		}

		updated, err := cs.UpdateEntity(c.Request.Context(), claims.UserID, id, &entity)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(updated, "Entity updated successfully"))
	}
}

func GetEntity(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := entityParam(c)
		if !ok {
			return
		}
		entity, err := cs.GetEntity(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(entity, ""))
	}
}

func ListOrganizerEntities(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		_, userID, ok := currentUser(c)
		if !ok {
			return
		}
		limitInt, err := strconv.Atoi(c.DefaultQuery("limit", "10"))
		if err != nil || limitInt <= 0 {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid limit parameter"))
			return
		}
		offsetInt, err := strconv.Atoi(c.DefaultQuery("offset", "0"))
		if err != nil || offsetInt < 0 {
			c.JSON(http.StatusBadRequest, helpers.ErrorResponse("invalid offset parameter"))
			return
		}

		entities, total, err := cs.ListOrganizerEntities(c.Request.Context(), userID, offsetInt, limitInt)
		if err != nil {
			respondError(c, err)
			return
		}
		page := (offsetInt / limitInt) + 1
		c.JSON(http.StatusOK, helpers.PaginatedResponse(entities, page, limitInt, total))
	}
}

func AvailableDates(cs *services.CatalogService) gin.HandlerFunc {
	return func(c *gin.Context) {
		id, ok := entityParam(c)
		if !ok {
			return
		}
		dates, err := cs.AvailableDates(c.Request.Context(), id)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(dates, ""))
	}
}

func DaySlots(cs *services.CatalogService) gin.HandlerFunc {
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
		snap, err := cs.DaySlots(c.Request.Context(), id.String(), date)
		if err != nil {
			respondError(c, err)
			return
		}
		c.JSON(http.StatusOK, helpers.SuccessResponse(snap, ""))
	}
}
