package server

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	billingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/billing/domain"
	"github.com/bwmarrin/snowflake"
)

func (s *Server) ListBills(c *gin.Context) {
	var query struct {
		LeaseID string `form:"lease_id"`
		Paid    string `form:"paid"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	paid, err := parseOptionalBool(query.Paid)
	if err != nil {
		AbortWithError(c, newValidationError("paid", "invalid_paid", "invalid paid"))
		return
	}

	resp, err := s.billingSvc.List(c.Request.Context(), billingdomain.ListRequest{
		LeaseID: strings.TrimSpace(query.LeaseID),
		Paid:    paid,
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) GetBillByID(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, billingdomain.ErrInvalidID)
		return
	}

	resp, err := s.billingSvc.GetByID(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) PayBill(c *gin.Context) {
	id, err := snowflake.ParseString(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, billingdomain.ErrInvalidID)
		return
	}

	resp, err := s.billingSvc.MarkPaid(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}
