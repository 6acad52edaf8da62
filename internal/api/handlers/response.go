package handlers

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/piwi3910/barcut/internal/model"
)

// errorBody is the JSON shape of every error response. PlanErrors are
// included when the failure is a domain error a client can act on.
type errorBody struct {
	Error  string             `json:"error"`
	Errors []*model.PlanError `json:"errors,omitempty"`
}

func errorResponse(c *gin.Context, log zerolog.Logger, status int, err error) {
	body := errorBody{Error: err.Error(), Errors: planErrors(err)}

	if status >= http.StatusInternalServerError {
		log.Error().Err(err).Str("path", c.Request.URL.Path).Msg("request failed")
	}
	c.AbortWithStatusJSON(status, body)
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, errorBody{Error: msg})
}

// planErrors flattens joined errors into their PlanError parts.
func planErrors(err error) []*model.PlanError {
	if joined, ok := err.(interface{ Unwrap() []error }); ok {
		var out []*model.PlanError
		for _, e := range joined.Unwrap() {
			out = append(out, planErrors(e)...)
		}
		return out
	}
	var pe *model.PlanError
	if errors.As(err, &pe) {
		return []*model.PlanError{pe}
	}
	return nil
}
