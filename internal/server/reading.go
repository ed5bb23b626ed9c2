package server

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	readingdomain "github.com/AlexVasiliu-dev/rentalmanager/internal/reading/domain"
	"github.com/AlexVasiliu-dev/rentalmanager/pkg/db/pagination"
)

func (s *Server) IngestReading(c *gin.Context) {
	var req readingdomain.IngestRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	c.Set("meter_id", strings.TrimSpace(req.MeterID))

	resp, err := s.readingSvc.Ingest(c.Request.Context(), readingdomain.IngestRequest{
		MeterID:     strings.TrimSpace(req.MeterID),
		LeaseID:     strings.TrimSpace(req.LeaseID),
		Kind:        strings.TrimSpace(req.Kind),
		Value:       strings.TrimSpace(req.Value),
		PhotoURL:    strings.TrimSpace(req.PhotoURL),
		Notes:       req.Notes,
		ReadingAt:   req.ReadingAt,
		PeriodStart: strings.TrimSpace(req.PeriodStart),
		PeriodEnd:   strings.TrimSpace(req.PeriodEnd),
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": resp})
}

func (s *Server) VerifyReading(c *gin.Context) {
	id, err := readingdomain.ParseID(strings.TrimSpace(c.Param("id")))
	if err != nil {
		AbortWithError(c, readingdomain.ErrInvalidID)
		return
	}

	resp, err := s.readingSvc.Verify(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp})
}

func (s *Server) ListReadings(c *gin.Context) {
	var query struct {
		MeterID   string `form:"meter_id"`
		LeaseID   string `form:"lease_id"`
		Verified  string `form:"verified"`
		PageToken string `form:"page_token"`
		PageSize  string `form:"page_size"`
	}
	if err := c.ShouldBindQuery(&query); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	verified, err := parseOptionalBool(query.Verified)
	if err != nil {
		AbortWithError(c, newValidationError("verified", "invalid_verified", "invalid verified"))
		return
	}
	pageSize, err := parseOptionalInt(query.PageSize)
	if err != nil {
		AbortWithError(c, newValidationError("page_size", "invalid_page_size", "invalid page size"))
		return
	}

	resp, err := s.readingSvc.List(c.Request.Context(), readingdomain.ListRequest{
		MeterID:  strings.TrimSpace(query.MeterID),
		LeaseID:  strings.TrimSpace(query.LeaseID),
		Verified: verified,
		Pagination: pagination.Pagination{
			PageToken: strings.TrimSpace(query.PageToken),
			PageSize:  pageSize,
		},
	})
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Data, "page_info": resp.PageInfo})
}

func parseOptionalBool(raw string) (*bool, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, nil
	}
	value, err := strconv.ParseBool(raw)
	if err != nil {
		return nil, err
	}
	return &value, nil
}

func parseOptionalInt(raw string) (int, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return 0, nil
	}
	return strconv.Atoi(raw)
}
