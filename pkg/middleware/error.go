package middleware

import (
	"context"
	"errors"
	"net/http"

	"bakimla-reward/pkg/errutil"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"
)

// Error renders the last handler error as the errutil envelope.
func Error() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		last := c.Errors.Last()
		if last == nil || c.Writer.Written() {
			return
		}

		be := toBaseError(last.Err)
		if be.Code.HTTPStatus() >= http.StatusInternalServerError {
			zap.L().Error("request failed",
				zap.String("method", c.Request.Method),
				zap.String("path", c.FullPath()),
				zap.Error(last.Err),
			)
		}

		c.AbortWithStatusJSON(be.Code.HTTPStatus(), be.JSON())
	}
}

func toBaseError(err error) errutil.BaseError {
	var be errutil.BaseError
	if errors.As(err, &be) {
		return be
	}

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		details := make([]errutil.Detail, 0, len(verrs))
		for _, fe := range verrs {
			details = append(details, errutil.Detail{Field: fe.Field(), Message: fe.Tag()})
		}
		return errutil.BaseError{Code: errutil.StatusValidationFailed, Message: "invalid request", Details: details, Err: err}
	}

	if errors.Is(err, context.Canceled) {
		return errutil.BaseError{Code: errutil.StatusClientClosedRequest, Message: "request canceled", Err: err}
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return errutil.BaseError{Code: errutil.StatusTimeout, Message: "request timed out", Err: err}
	}

	return errutil.BaseError{Code: errutil.StatusInternal, Message: "internal error", Err: err}
}
