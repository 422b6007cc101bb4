package errors

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ProblemDetails is an RFC 7807 problem document.
type ProblemDetails struct {
	Type     string `json:"type"`
	Title    string `json:"title"`
	Status   int    `json:"status"`
	Detail   string `json:"detail,omitempty"`
	Instance string `json:"instance,omitempty"`
	Code     string `json:"code,omitempty"`
	TraceID  string `json:"trace_id,omitempty"`
}

const problemTypeBase = "https://api.aurumdesk.io/problems/"

var statusByCode = map[Code]int{
	CodeInvalidInput:           http.StatusBadRequest,
	CodeProductNotFound:        http.StatusNotFound,
	CodeNotFound:               http.StatusNotFound,
	CodeOutOfStock:             http.StatusUnprocessableEntity,
	CodeInsufficientStock:      http.StatusUnprocessableEntity,
	CodeBelowMinimumOrder:      http.StatusUnprocessableEntity,
	CodeWorkflowInvalidState:   http.StatusConflict,
	CodeAlreadyTerminal:        http.StatusConflict,
	CodeConcurrentModification: http.StatusConflict,
	CodeInvalidSignature:       http.StatusUnauthorized,
	CodeForbidden:              http.StatusForbidden,
	CodeTransientFailure:       http.StatusServiceUnavailable,
	CodeInternal:               http.StatusInternalServerError,
}

var titleByCode = map[Code]string{
	CodeInvalidInput:           "Invalid Request",
	CodeProductNotFound:        "Product Not Found",
	CodeNotFound:               "Not Found",
	CodeOutOfStock:             "Out Of Stock",
	CodeInsufficientStock:      "Insufficient Stock",
	CodeBelowMinimumOrder:      "Below Minimum Order Quantity",
	CodeWorkflowInvalidState:   "Invalid Order State",
	CodeAlreadyTerminal:        "Order Already Finalized",
	CodeConcurrentModification: "Concurrent Modification",
	CodeInvalidSignature:       "Invalid Signature",
	CodeForbidden:              "Forbidden",
	CodeTransientFailure:       "Temporarily Unavailable",
	CodeInternal:               "Internal Server Error",
}

// Problem converts any error into an RFC 7807 document. Internal and
// transient failures hide the underlying cause behind a correlation id;
// business rejections render their message verbatim.
func Problem(err error, instance string) *ProblemDetails {
	code := CodeOf(err)
	status, ok := statusByCode[code]
	if !ok {
		status = http.StatusInternalServerError
	}

	pd := &ProblemDetails{
		Type:     problemTypeBase + string(code),
		Title:    titleByCode[code],
		Status:   status,
		Instance: instance,
		Code:     string(code),
	}

	switch code {
	case CodeInternal, CodeTransientFailure:
		pd.TraceID = uuid.New().String()
		pd.Detail = "The request could not be completed. Contact support with the trace id."
	default:
		var de *Error
		if As(err, &de) {
			pd.Detail = de.Message
		} else {
			pd.Detail = err.Error()
		}
	}
	return pd
}

// AbortWithError writes the RFC 7807 response for err and aborts the
// request.
func AbortWithError(c *gin.Context, err error) {
	pd := Problem(err, c.Request.URL.Path)
	if traceID := c.GetString("trace_id"); traceID != "" {
		pd.TraceID = traceID
	}
	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(pd.Status, pd)
}
