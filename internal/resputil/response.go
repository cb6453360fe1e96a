package resputil

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"k8s.io/klog/v2"

	"github.com/raids-lab/ptms/pkg/bizerr"
)

// Response is the envelope of every JSON answer.
type Response[T any] struct {
	Code ErrorCode `json:"code"`
	Data T         `json:"data"`
	Msg  string    `json:"msg"`
}

func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response[any]{
		Code: OK,
		Data: data,
		Msg:  "success",
	})
}

// Error answers 500 with a custom code.
func Error(c *gin.Context, msg string, code ErrorCode) {
	HTTPError(c, http.StatusInternalServerError, msg, code)
}

func HTTPError(c *gin.Context, httpCode int, msg string, code ErrorCode) {
	c.JSON(httpCode, Response[any]{
		Code: code,
		Data: nil,
		Msg:  msg,
	})
}

func BadRequestError(c *gin.Context, msg string) {
	HTTPError(c, http.StatusBadRequest, msg, InvalidRequest)
}

// HandleError maps classified business errors to their status codes. Anything
// unclassified is logged and reported as a 500.
func HandleError(c *gin.Context, err error) {
	switch bizerr.KindOf(err) {
	case bizerr.KindNotFound:
		HTTPError(c, http.StatusNotFound, bizerr.Message(err), ResourceNotFound)
	case bizerr.KindForbidden:
		HTTPError(c, http.StatusForbidden, bizerr.Message(err), UserNotAllowed)
	case bizerr.KindBadRequest:
		BadRequestError(c, bizerr.Message(err))
	default:
		klog.Errorf("%s %s: %v", c.Request.Method, c.FullPath(), err)
		Error(c, err.Error(), ServiceError)
	}
}
