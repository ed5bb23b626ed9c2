package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	propertydomain "github.com/AlexVasiliu-dev/rentalmanager/internal/property/domain"
)

func (s *Server) CreateProperty(c *gin.Context) {
	var req propertydomain.CreatePropertyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.propertySvc.CreateProperty(c.Request.Context(), propertydomain.CreatePropertyRequest{
		OwnerID: strings.TrimSpace(req.OwnerID),
		Name:    strings.TrimSpace(req.Name),
		Address: strings.TrimSpace(req.Address),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) ListProperties(c *gin.Context) {
	var query struct {
		OwnerID string `form:"owner_id"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.propertySvc.ListProperties(c.Request.Context(), strings.TrimSpace(query.OwnerID))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetPropertyByID(c *gin.Context) {
	resp, err := s.propertySvc.GetProperty(c.Request.Context(), strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) CreateLease(c *gin.Context) {
	var req propertydomain.CreateLeaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	resp, err := s.propertySvc.CreateLease(c.Request.Context(), propertydomain.CreateLeaseRequest{
		PropertyID: strings.TrimSpace(req.PropertyID),
		TenantID:   strings.TrimSpace(req.TenantID),
		StartDate:  req.StartDate,
		EndDate:    req.EndDate,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) GetLeaseByID(c *gin.Context) {
	id, err := propertydomain.ParseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, propertydomain.ErrInvalidID)
		return
	}

	resp, err := s.propertySvc.GetLease(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
