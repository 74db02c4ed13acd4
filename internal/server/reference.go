package server

import (
	"net/http"

	"github.com/gin-gonic/gin"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
)

// -------- Owners --------

func (s *Server) ListOwners(c *gin.Context) {
	owners, err := s.ownerSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": owners})
}

func (s *Server) CreateOwner(c *gin.Context) {
	var req ownerdomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	owner, err := s.ownerSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": owner})
}

func (s *Server) GetOwnerByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	owner, err := s.ownerSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": owner})
}

func (s *Server) DeleteOwner(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.ownerSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -------- Wells --------

func (s *Server) ListWells(c *gin.Context) {
	wells, err := s.wellSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": wells})
}

func (s *Server) CreateWell(c *gin.Context) {
	var req welldomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	well, err := s.wellSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": well})
}

func (s *Server) GetWellByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	well, err := s.wellSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": well})
}

func (s *Server) DeleteWell(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.wellSvc.Delete(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

// -------- Fields --------

func (s *Server) ListFields(c *gin.Context) {
	fields, err := s.fieldSvc.List(c.Request.Context())
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": fields})
}

func (s *Server) CreateField(c *gin.Context) {
	var req fielddomain.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	field, err := s.fieldSvc.Create(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": field})
}

func (s *Server) GetFieldByID(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	detail, err := s.fieldSvc.Get(c.Request.Context(), id)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": detail})
}

func (s *Server) SetFieldOwnership(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	var shares []fielddomain.OwnershipShare
	if err := c.ShouldBindJSON(&shares); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	ownerships, err := s.fieldSvc.SetOwnership(c.Request.Context(), id, shares)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": ownerships})
}

// -------- Irrigation logs --------

func (s *Server) ListIrrigationLogs(c *gin.Context) {
	var req irrigationdomain.ListLogsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	logs, err := s.irrigationSvc.ListLogs(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"data": logs})
}

func (s *Server) CreateIrrigationLog(c *gin.Context) {
	var req irrigationdomain.CreateLogRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		AbortWithError(c, ErrInvalidRequest)
		return
	}

	entry, err := s.irrigationSvc.CreateLog(c.Request.Context(), req)
	if err != nil {
		AbortWithError(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"data": entry})
}

func (s *Server) DeleteIrrigationLog(c *gin.Context) {
	id, ok := pathID(c)
	if !ok {
		return
	}

	if err := s.irrigationSvc.DeleteLog(c.Request.Context(), id); err != nil {
		AbortWithError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
