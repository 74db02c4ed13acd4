package server

import (
	"errors"
	"net/http"

	"github.com/fieldworks/wellbill/internal/allocation"
	billingdomain "github.com/fieldworks/wellbill/internal/billingperiod/domain"
	debtdomain "github.com/fieldworks/wellbill/internal/debt/domain"
	distributiondomain "github.com/fieldworks/wellbill/internal/distribution/domain"
	fielddomain "github.com/fieldworks/wellbill/internal/field/domain"
	irrigationdomain "github.com/fieldworks/wellbill/internal/irrigation/domain"
	ownerdomain "github.com/fieldworks/wellbill/internal/owner/domain"
	settlementdomain "github.com/fieldworks/wellbill/internal/settlement/domain"
	usagedomain "github.com/fieldworks/wellbill/internal/usage/domain"
	welldomain "github.com/fieldworks/wellbill/internal/well/domain"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

type errorPayload struct {
	Type    string `json:"type"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type errorResponse struct {
	Error errorPayload `json:"error"`
}

var (
	ErrNotFound       = errors.New("not_found")
	ErrConflict       = errors.New("conflict")
	ErrInvalidRequest = errors.New("invalid_request")
	ErrInternal       = errors.New("internal_error")
)

// ErrorHandlingMiddleware maps domain errors onto HTTP statuses after the
// handler chain runs.
func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.AbortWithStatusJSON(status, errorResponse{Error: payload})
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func mapError(err error) (int, errorPayload) {
	switch {
	case isNotFoundError(err):
		return http.StatusNotFound, errorPayload{
			Type:    "not_found",
			Code:    err.Error(),
			Message: "not found",
		}
	case isConflictError(err):
		return http.StatusConflict, errorPayload{
			Type:    "conflict",
			Code:    err.Error(),
			Message: "conflict",
		}
	case isValidationError(err):
		return http.StatusBadRequest, errorPayload{
			Type:    "validation_error",
			Code:    err.Error(),
			Message: "validation error",
		}
	case isUnprocessableError(err):
		return http.StatusUnprocessableEntity, errorPayload{
			Type:    "unprocessable",
			Code:    err.Error(),
			Message: "request cannot be processed",
		}
	default:
		// distributiondomain.ErrSumMismatch lands here on purpose: a ledger
		// that does not reconcile is an internal defect, not a client error.
		return http.StatusInternalServerError, errorPayload{
			Type:    "internal_error",
			Code:    "internal_error",
			Message: "internal server error",
		}
	}
}

func isNotFoundError(err error) bool {
	switch {
	case errors.Is(err, ErrNotFound),
		errors.Is(err, billingdomain.ErrPeriodNotFound),
		errors.Is(err, billingdomain.ErrWellNotFound),
		errors.Is(err, billingdomain.ErrIssuerNotFound),
		errors.Is(err, settlementdomain.ErrPeriodNotFound),
		errors.Is(err, debtdomain.ErrDebtNotFound),
		errors.Is(err, fielddomain.ErrFieldNotFound),
		errors.Is(err, ownerdomain.ErrOwnerNotFound),
		errors.Is(err, welldomain.ErrWellNotFound),
		errors.Is(err, irrigationdomain.ErrLogNotFound),
		errors.Is(err, gorm.ErrRecordNotFound):
		return true
	default:
		return false
	}
}

func isConflictError(err error) bool {
	switch {
	case errors.Is(err, ErrConflict),
		errors.Is(err, billingdomain.ErrAlreadyCalculated),
		errors.Is(err, billingdomain.ErrPeriodSettled),
		errors.Is(err, settlementdomain.ErrAlreadyPaid),
		errors.Is(err, settlementdomain.ErrNotPaid),
		errors.Is(err, distributiondomain.ErrLinkedDebtTouched),
		errors.Is(err, debtdomain.ErrDebtNotPending),
		errors.Is(err, debtdomain.ErrDebtHasHistory),
		errors.Is(err, debtdomain.ErrDebtCancelled),
		errors.Is(err, debtdomain.ErrDebtAlreadyPaid),
		errors.Is(err, ownerdomain.ErrOwnerHasDebts),
		errors.Is(err, welldomain.ErrWellHasPeriods):
		return true
	default:
		return false
	}
}

func isValidationError(err error) bool {
	switch {
	case errors.Is(err, ErrInvalidRequest),
		errors.Is(err, billingdomain.ErrInvalidPeriod),
		errors.Is(err, debtdomain.ErrInvalidDebt),
		errors.Is(err, debtdomain.ErrInvalidAmount),
		errors.Is(err, settlementdomain.ErrInvalidPayment),
		errors.Is(err, ownerdomain.ErrInvalidOwner),
		errors.Is(err, welldomain.ErrInvalidWell),
		errors.Is(err, fielddomain.ErrInvalidField),
		errors.Is(err, fielddomain.ErrInvalidOwnership),
		errors.Is(err, irrigationdomain.ErrInvalidLog),
		errors.Is(err, usagedomain.ErrInvalidWindow),
		errors.Is(err, allocation.ErrInvalidTotal):
		return true
	default:
		return false
	}
}

func isUnprocessableError(err error) bool {
	switch {
	case errors.Is(err, usagedomain.ErrNoUsage),
		errors.Is(err, fielddomain.ErrPercentageMismatch),
		errors.Is(err, allocation.ErrNoBasis),
		errors.Is(err, distributiondomain.ErrNothingToWrite),
		errors.Is(err, debtdomain.ErrExceedsRemaining):
		return true
	default:
		return false
	}
}
