// internal/api/handlers/errors.go
package handlers

import (
	"log"
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	goerrors "github.com/goliatone/go-errors"
)

var errInvalidID = goerrors.New("id must be a positive integer", goerrors.CategoryBadInput).
	WithTextCode("INVALID_ID").
	WithCode(goerrors.CodeBadRequest)

var statusByCategory = map[goerrors.Category]int{
	goerrors.CategoryValidation: http.StatusBadRequest,
	goerrors.CategoryBadInput:   http.StatusBadRequest,
	goerrors.CategoryAuth:       http.StatusUnauthorized,
	goerrors.CategoryAuthz:      http.StatusForbidden,
	goerrors.CategoryNotFound:   http.StatusNotFound,
	goerrors.CategoryConflict:   http.StatusConflict,
	goerrors.CategoryRateLimit:  http.StatusTooManyRequests,
	goerrors.CategoryInternal:   http.StatusInternalServerError,
}

// richError returns the first *goerrors.Error in err's chain. Anything else
// is wrapped as an internal failure.
func richError(err error) *goerrors.Error {
	var richErr *goerrors.Error
	if goerrors.As(err, &richErr) {
		return richErr
	}
	if err == nil {
		return goerrors.New("unexpected error", goerrors.CategoryInternal).WithCode(goerrors.CodeInternal)
	}
	return goerrors.Wrap(err, goerrors.CategoryInternal, "unexpected error").
		WithCode(goerrors.CodeInternal)
}

// HTTPStatus maps an error to its response code. An explicit code on the
// error wins over its category.
func HTTPStatus(err error) int {
	richErr := richError(err)
	if richErr.Code >= 400 && richErr.Code < 600 {
		return richErr.Code
	}
	if code, ok := statusByCategory[richErr.Category]; ok {
		return code
	}
	return http.StatusInternalServerError
}

// RespondError writes err as {"error": ...}. Internal failures only carry
// their detail when gin runs in debug mode.
func RespondError(c *gin.Context, err error) {
	richErr := richError(err)
	status := HTTPStatus(richErr)

	if status >= http.StatusInternalServerError {
		log.Printf("[%s] %s %s failed: %s: %v",
			c.GetString("request_id"), c.Request.Method, c.FullPath(), richErr.Message, richErr.Source)
		body := gin.H{"error": "Something went wrong!", "message": "Internal server error"}
		if gin.Mode() == gin.DebugMode {
			body["message"] = richErr.Message
			if richErr.Source != nil {
				body["message"] = richErr.Message + ": " + richErr.Source.Error()
			}
		}
		c.AbortWithStatusJSON(status, body)
		return
	}

	body := gin.H{"error": richErr.Message}
	if fields := richErr.ValidationMap(); len(fields) > 0 {
		body["fields"] = fields
	}
	c.AbortWithStatusJSON(status, body)
}

// bindError reports a request body that could not be decoded.
func bindError(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "Invalid request body: " + err.Error()})
}

func parseID(c *gin.Context) (int64, error) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errInvalidID
	}
	return id, nil
}
