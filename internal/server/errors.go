package server

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/josephgoksu/taskflow/internal/workflow"
)

const (
	errTypeValidation = "ValidationError"
	errTypeBusiness   = "BusinessError"
	errTypeNotFound   = "NotFound"
	errTypeInternal   = "InternalError"
	errTypeForbidden  = "Forbidden"
)

// apiError is the body of every non-2xx response.
type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
	Field   string `json:"field,omitempty"`
}

var internalError = apiError{
	Message: "An unexpected error occurred. Please try again later.",
	Type:    errTypeInternal,
}

func badRequest(c *gin.Context, field, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Message: msg, Type: errTypeValidation, Field: field})
}

// writeError maps service errors to status codes. Unexpected errors are
// logged and hidden from the caller.
func (s *Server) writeError(c *gin.Context, op string, err error) {
	var (
		ve *workflow.ValidationError
		be *workflow.BusinessError
	)
	switch {
	case errors.As(err, &ve):
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Message: ve.Error(), Type: errTypeValidation, Field: ve.Field})
	case errors.As(err, &be):
		c.AbortWithStatusJSON(http.StatusBadRequest, apiError{Message: be.Message, Type: errTypeBusiness})
	case workflow.IsNotFound(err):
		c.AbortWithStatusJSON(http.StatusNotFound, apiError{Message: err.Error(), Type: errTypeNotFound})
	default:
		s.log.WithError(err).WithFields(logrus.Fields{
			"operation":  op,
			"request_id": c.GetString(requestIDKey),
		}).Error("unexpected error")
		c.AbortWithStatusJSON(http.StatusInternalServerError, internalError)
	}
}
