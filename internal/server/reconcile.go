package server

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/AlexVasiliu-dev/rentalmanager/internal/actorctx"
)

type runReconciliationRequest struct {
	PeriodStart string `json:"period_start"`
	PeriodEnd   string `json:"period_end"`
}

// RunReconciliation replays a period's readings against the bill table on
// demand. Managers and owners only.
func (s *Server) RunReconciliation(c *gin.Context) {
	actor, ok := actorctx.ActorFromContext(c.Request.Context())
	if !ok {
		AbortWithError(c, ErrUnauthorized)
		return
	}
	if !actorctx.CapabilitiesFor(actor.Role).CanVerifyReadings {
		AbortWithError(c, ErrForbidden)
		return
	}

	var req runReconciliationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, invalidRequestError())
		return
	}

	periodStart, err := time.Parse("2006-01-02", strings.TrimSpace(req.PeriodStart))
	if err != nil {
		AbortWithError(c, newValidationError("period_start", "invalid_period", "invalid period start"))
		return
	}
	periodEnd, err := time.Parse("2006-01-02", strings.TrimSpace(req.PeriodEnd))
	if err != nil {
		AbortWithError(c, newValidationError("period_end", "invalid_period", "invalid period end"))
		return
	}

	applied, err := s.reconciler.ReconcilePeriod(c.Request.Context(), periodStart, periodEnd)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": gin.H{"applied": applied}})
}
