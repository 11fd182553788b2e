package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
)

type Response struct {
	Error string `json:"error"`
}

// FieldErrorResponse is returned for malformed input: one entry per failing
// field, keyed by the field name, before any handler logic has run.
type FieldErrorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func fieldErrors(err error) map[string]string {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return nil
	}
	fields := map[string]string{}
	for _, fe := range verrs {
		fields[fe.Field()] = fe.Tag()
	}
	return fields
}

// bindJSON binds and validates a JSON body, rejecting the request with a
// structured field-error map before the handler does anything else.
func bindJSON(c *gin.Context, obj any) bool {
	if err := c.ShouldBindJSON(obj); err != nil {
		c.JSON(http.StatusBadRequest, FieldErrorResponse{Error: err.Error(), Fields: fieldErrors(err)})
		return false
	}
	return true
}

func bindQuery(c *gin.Context, obj any) bool {
	if err := c.ShouldBindQuery(obj); err != nil {
		c.JSON(http.StatusBadRequest, FieldErrorResponse{Error: err.Error(), Fields: fieldErrors(err)})
		return false
	}
	return true
}
