package server

import (
	"net/http"
	"strings"

	"github.com/bwmarrin/snowflake"
	"github.com/gin-gonic/gin"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	settlementdomain "github.com/fieldworks/wellbill/internal/settlement/domain"
)

func (s *Server) ListBillingPeriods(c *gin.Context) {
	var req billingdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.periodSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Periods, "page_info": resp.PageInfo})
}

func (s *Server) CreateBillingPeriod(c *gin.Context) {
	var req billingdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	period, err := s.periodSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": period})
}

func (s *Server) GetBillingPeriodByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := s.periodSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) DeleteBillingPeriod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.periodSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) CalculateBillingPeriod(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	rows, err := s.periodSvc.Calculate(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": rows})
}

func (s *Server) ClearBillingPeriodDistributions(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.periodSvc.ClearDistributions(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) RecordPeriodPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req settlementdomain.RecordPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.PeriodID = id

	if err := s.settlementSvc.RecordPayment(c.Request.Context(), req); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "paid"})
}

func (s *Server) ReversePeriodPayment(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.settlementSvc.ReversePayment(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "reversed"})
}

// pathID validates the :id path segment before it reaches a service.
func pathID(c *gin.Context) (string, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := snowflake.ParseString(id); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return "", false
	}
	return id, true
}
