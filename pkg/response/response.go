package response

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

const (
	CodeSuccess       = 0
	CodeParamError    = 400
	CodeUnauthorized  = 401
	CodeForbidden     = 403
	CodeNotFound      = 404
	CodeServerError   = 500
	CodeBusinessError = 1000
)

// Stable business error codes. Callers branch on these, never on message
// strings.
const (
	CodeOutOfStock             = 1001
	CodeCreditUnavailable      = 1002
	CodeNoCreditAccount        = 1003
	CodeAmountExceedsDebt      = 1004
	CodeNegativeBalance        = 1005
	CodeInvalidStateTransition = 1006
	CodeCapacityExceeded       = 1007
	CodeDuplicateReservation   = 1008
	CodeDeadlinePassed         = 1009
	CodeConflict               = 1010
	CodeAccountNotActive       = 1011
	CodeAlreadyOnWaitlist      = 1012
)

type Response struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

func Success(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Response{
		Code:    CodeSuccess,
		Message: "success",
		Data:    data,
	})
}

func Error(c *gin.Context, code int, message string) {
	c.JSON(http.StatusOK, Response{
		Code:    code,
		Message: message,
	})
}

func ParamError(c *gin.Context, message string) {
	Error(c, CodeParamError, message)
}

func NotFound(c *gin.Context, message string) {
	Error(c, CodeNotFound, message)
}

func ServerError(c *gin.Context, message string) {
	Error(c, CodeServerError, message)
}

func BusinessError(c *gin.Context, code int, message string) {
	Error(c, code, message)
}
