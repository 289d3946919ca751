package handlers

import (
	"errors"
	"net/http"

	catalogRepo "parkly/database/repository/catalog"
	"parkly/middleware"
	"parkly/models"
	"parkly/utils"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CatalogHandler manages the space, vehicle, and tariff catalog.
type CatalogHandler struct {
	Catalog catalogRepo.CatalogRepository
}

func NewCatalogHandler(catalog catalogRepo.CatalogRepository) *CatalogHandler {
	return &CatalogHandler{Catalog: catalog}
}

// UpsertSpace handles PUT /catalog/spaces. Landlords write their own spaces.
func (h *CatalogHandler) UpsertSpace(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var space models.ParkingSpace
	if err := c.ShouldBindJSON(&space); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if actor.Role == models.RoleLandlord {
		space.LandlordID = actor.ID
	}
	if space.ID == "" {
		space.ID = uuid.New().String()
	}
	if space.Slots <= 0 || !utils.ValidCoordinate(space.Location.Lat, space.Location.Lng) {
		utils.JSONError(c, http.StatusBadRequest, "Space needs positive slots and valid coordinates", "")
		return
	}
	if err := h.Catalog.UpsertSpace(c.Request.Context(), &space); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save space", err.Error())
		return
	}
	c.JSON(http.StatusOK, space)
}

// UpsertVehicle handles PUT /catalog/vehicles. Drivers register their own
// vehicles.
func (h *CatalogHandler) UpsertVehicle(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var vehicle models.Vehicle
	if err := c.ShouldBindJSON(&vehicle); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if actor.Role == models.RoleDriver {
		vehicle.OwnerID = actor.ID
	}
	if vehicle.ID == "" {
		vehicle.ID = uuid.New().String()
	}
	if vehicle.Plate == "" || vehicle.Type == "" {
		utils.JSONError(c, http.StatusBadRequest, "Vehicle needs a plate and a type", "")
		return
	}
	if err := h.Catalog.UpsertVehicle(c.Request.Context(), &vehicle); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save vehicle", err.Error())
		return
	}
	c.JSON(http.StatusOK, vehicle)
}

// UpsertTariff handles PUT /catalog/tariffs. The landlord must own the space
// the tariff prices.
func (h *CatalogHandler) UpsertTariff(c *gin.Context) {
	actor, ok := middleware.ActorFromContext(c)
	if !ok {
		utils.JSONError(c, http.StatusUnauthorized, "Not authenticated", "")
		return
	}
	var tariff models.Tariff
	if err := c.ShouldBindJSON(&tariff); err != nil {
		utils.JSONError(c, http.StatusBadRequest, "Invalid request body", err.Error())
		return
	}
	if tariff.SpaceID == "" || tariff.BaseRatePerHour <= 0 {
		utils.JSONError(c, http.StatusBadRequest, "Tariff needs a space and a positive base rate", "")
		return
	}
	space, err := h.Catalog.SpaceByID(c.Request.Context(), tariff.SpaceID)
	if err != nil {
		if errors.Is(err, catalogRepo.ErrNotFound) {
			utils.JSONErrorCode(c, http.StatusNotFound, "not_found", "Space not found")
			return
		}
		utils.JSONError(c, http.StatusInternalServerError, "Failed to load space", err.Error())
		return
	}
	if actor.Role == models.RoleLandlord && space.LandlordID != actor.ID {
		utils.JSONErrorCode(c, http.StatusForbidden, "not_allowed", "Space belongs to another landlord")
		return
	}
	if err := h.Catalog.UpsertTariff(c.Request.Context(), &tariff); err != nil {
		utils.JSONError(c, http.StatusInternalServerError, "Failed to save tariff", err.Error())
		return
	}
	c.JSON(http.StatusOK, tariff)
}
