package handler

import (
	"errors"

	"cantina/internal/repository"
	"cantina/internal/service"
	"cantina/pkg/response"

	"github.com/gin-gonic/gin"
)

// writeServiceError maps the business error taxonomy onto stable response
// codes. Internal errors never leak SQL or stack detail to the caller.
func writeServiceError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, service.ErrValidation):
		response.ParamError(c, err.Error())
	case errors.Is(err, service.ErrOutOfStock):
		response.BusinessError(c, response.CodeOutOfStock, err.Error())
	case errors.Is(err, service.ErrCreditUnavailable):
		response.BusinessError(c, response.CodeCreditUnavailable, err.Error())
	case errors.Is(err, service.ErrNoCreditAccount):
		response.BusinessError(c, response.CodeNoCreditAccount, err.Error())
	case errors.Is(err, service.ErrAccountNotActive):
		response.BusinessError(c, response.CodeAccountNotActive, err.Error())
	case errors.Is(err, service.ErrAmountExceedsDebt):
		response.BusinessError(c, response.CodeAmountExceedsDebt, err.Error())
	case errors.Is(err, service.ErrNegativeBalance):
		response.BusinessError(c, response.CodeNegativeBalance, err.Error())
	case errors.Is(err, service.ErrInvalidStateTransition),
		errors.Is(err, repository.ErrOrderStatusInvalid):
		response.BusinessError(c, response.CodeInvalidStateTransition, err.Error())
	case errors.Is(err, service.ErrCapacityExceeded),
		errors.Is(err, repository.ErrCapacityExceeded):
		response.BusinessError(c, response.CodeCapacityExceeded, err.Error())
	case errors.Is(err, service.ErrDuplicateReservation):
		response.BusinessError(c, response.CodeDuplicateReservation, err.Error())
	case errors.Is(err, service.ErrAlreadyOnWaitlist):
		response.BusinessError(c, response.CodeAlreadyOnWaitlist, err.Error())
	case errors.Is(err, service.ErrDeadlinePassed),
		errors.Is(err, service.ErrMenuInactive):
		response.BusinessError(c, response.CodeDeadlinePassed, err.Error())
	case errors.Is(err, repository.ErrAccountNotFound),
		errors.Is(err, repository.ErrStockItemNotFound),
		errors.Is(err, repository.ErrOrderNotFound),
		errors.Is(err, repository.ErrMenuNotFound),
		errors.Is(err, repository.ErrReservationNotFound),
		errors.Is(err, repository.ErrWaitlistEntryNotFound),
		errors.Is(err, repository.ErrPaymentNotFound):
		response.NotFound(c, err.Error())
	case errors.Is(err, repository.ErrOptimisticLock),
		errors.Is(err, repository.ErrInsufficientStock):
		response.BusinessError(c, response.CodeConflict, err.Error())
	case errors.Is(err, repository.ErrDuplicateMenuDate):
		response.BusinessError(c, response.CodeBusinessError, err.Error())
	default:
		response.ServerError(c, "internal error")
	}
}
