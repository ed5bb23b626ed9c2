package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	meterdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/meter/domain"
)

type updateMeterPriceRequest struct {
	PricePerUnit string `json:"price_per_unit"`
}

func (s *Server) CreateMeter(c *gin.Context) {
	var req meterdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.Create(c.Request.Context(), meterdomain.CreateRequest{
		PropertyID:   strings.TrimSpace(req.PropertyID),
		UtilityType:  strings.TrimSpace(req.UtilityType),
		PricePerUnit: strings.TrimSpace(req.PricePerUnit),
		Currency:     strings.TrimSpace(req.Currency),
		SerialNumber: strings.TrimSpace(req.SerialNumber),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListMeters(c *gin.Context) {
	var query struct {
		PropertyID string `form:"property_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.List(c.Request.Context(), strings.TrimSpace(query.PropertyID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetMeterByID(c *gin.Context) {
	id, err := meterdomain.ParseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, meterdomain.ErrInvalidID)
		return
	}

	resp, err := s.meterSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) UpdateMeterPrice(c *gin.Context) {
	var req updateMeterPriceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.meterSvc.UpdatePrice(c.Request.Context(), meterdomain.UpdatePriceRequest{
		ID:           strings.TrimSpace(c.Param("id")),
		PricePerUnit: strings.TrimSpace(req.PricePerUnit),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
