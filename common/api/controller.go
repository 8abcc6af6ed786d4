package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/pkg/errors"
)

const httpStatusCodeInternalError = 600

// Wrap adapts a controller to a gin handler. Results are wrapped in a BusinessError
// envelope with code 0, and errors are mapped to business error codes.
func Wrap(controller func(c *gin.Context) (interface{}, error)) gin.HandlerFunc {
	return func(c *gin.Context) {
		result, err := controller(c)
		if err != nil {
			c.JSON(statusOf(err))
		} else if result == nil {
			c.JSON(http.StatusOK, ErrNil)
		} else {
			c.JSON(http.StatusOK, ErrNil.WithData(result))
		}
	}
}

func statusOf(err error) (int, *BusinessError) {
	var businessErr *BusinessError
	if errors.As(err, &businessErr) {
		return http.StatusOK, businessErr
	}

	var validationErr validator.ValidationErrors
	if errors.As(err, &validationErr) {
		return http.StatusOK, ErrValidation.WithData(validationErr.Error())
	}

	return httpStatusCodeInternalError, ErrInternal.WithData(err.Error())
}

// Abort writes the error envelope of err, for handlers that stream their own
// response on success.
func Abort(c *gin.Context, err error) {
	c.AbortWithStatusJSON(statusOf(err))
}
