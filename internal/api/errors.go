package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/prabaj-wq/allinonecompdev-sub012/internal/graph"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/model"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/run"
	"github.com/prabaj-wq/allinonecompdev-sub012/internal/store"
)

// Error codes for failures that carry no engine code of their own.
const (
	CodeBadRequest = "BadRequest"
	CodeNotFound   = "NotFound"
	CodeInternal   = "Internal"
)

// ErrorBody is the JSON body of every non-2xx response.
type ErrorBody struct {
	Error model.ErrorInfo `json:"error"`
}

// fail maps err onto a status code and writes an ErrorBody.
func fail(c *gin.Context, err error) {
	status, info := classify(err)
	c.AbortWithStatusJSON(status, ErrorBody{Error: info})
}

func badRequest(c *gin.Context, err error) {
	info := model.ErrorInfo{Code: CodeBadRequest, Message: err.Error(), Details: model.FieldErrors(err)}
	c.AbortWithStatusJSON(http.StatusBadRequest, ErrorBody{Error: info})
}

func notFound(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusNotFound, ErrorBody{Error: model.ErrorInfo{Code: CodeNotFound, Message: msg}})
}

func classify(err error) (int, model.ErrorInfo) {
	if fields := model.FieldErrors(err); fields != nil {
		return http.StatusBadRequest, model.ErrorInfo{Code: CodeBadRequest, Message: err.Error(), Details: fields}
	}
	if store.IsNotFound(err) {
		return http.StatusNotFound, model.ErrorInfo{Code: CodeNotFound, Message: err.Error()}
	}
	if ge, ok := graph.AsGraphError(err); ok {
		return http.StatusUnprocessableEntity, model.ErrorInfo{Code: string(ge.Code), Message: ge.Message, NodeID: ge.NodeID}
	}
	if ce, ok := run.AsCommitError(err); ok {
		status := http.StatusConflict
		if ce.Code == run.ErrCodeCommitBlocked || ce.Code == run.ErrCodeCurrencyMismatch {
			status = http.StatusUnprocessableEntity
		}
		return status, *ce.Info()
	}
	return http.StatusInternalServerError, model.ErrorInfo{Code: CodeInternal, Message: err.Error()}
}
