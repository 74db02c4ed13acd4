package server

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
)

func (s *Server) ListDebts(c *gin.Context) {
	var req debtdomain.ListRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	resp, err := s.debtSvc.List(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": resp.Debts, "page_info": resp.PageInfo})
}

func (s *Server) CreateDebt(c *gin.Context) {
	var req debtdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	debt, err := s.debtSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusCreated, gin.H{"data": debt})
}

func (s *Server) GetDebtByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := s.debtSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) DeleteDebt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.debtSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}

	c.Status(http.StatusNoContent)
}

func (s *Server) PayDebt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var req debtdomain.PayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}
	req.DebtID = id

	result, err := s.debtSvc.Pay(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": result})
}

func (s *Server) CancelDebt(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	debt, err := s.debtSvc.Cancel(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"data": debt})
}

func (s *Server) MarkDebtsOverdue(c *gin.Context) {
	count, err := s.debtSvc.MarkOverdue(c.Request.Context(), time.Now().UTC())
	if err != nil {
		AbortWithError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"marked_overdue": count})
}
