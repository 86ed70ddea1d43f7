package handlers

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pixelforge/internal/middlewares"
	"pixelforge/internal/policy"
	"pixelforge/internal/responses"

	"github.com/gin-gonic/gin"
)

const msgInvalidBody = "Invalid request body"

// currentCaller reads the Caller set by the Authenticate middleware, answering 401 if the
// route was mounted without it.
func currentCaller(c *gin.Context) (policy.Caller, bool) {
	caller, ok := middlewares.CallerFromContext(c)
	if !ok {
		responses.Fail(c, http.StatusUnauthorized, nil, "Unauthorized - No token provided")
	}
	return caller, ok
}

// malformedBody reports whether a binding error means the body was not usable JSON at all,
// as opposed to a well-formed body failing a binding tag. An empty body is not malformed.
func malformedBody(err error) bool {
	var syntaxErr *json.SyntaxError
	var typeErr *json.UnmarshalTypeError
	return errors.As(err, &syntaxErr) ||
		errors.As(err, &typeErr) ||
		errors.Is(err, io.ErrUnexpectedEOF)
}

// bindJSON decodes the body into req. It writes a 400 and returns false only for a
// malformed body; tag failures are left to the service, which reports the precise field.
func bindJSON(c *gin.Context, req any) (tagsOK bool, ok bool) {
	err := c.ShouldBindJSON(req)
	if err == nil {
		return true, true
	}
	if malformedBody(err) {
		responses.Fail(c, http.StatusBadRequest, nil, msgInvalidBody)
		return false, false
	}
	return false, true
}
