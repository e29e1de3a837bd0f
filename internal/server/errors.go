package server

import (
	"errors"
	"fmt"
	"net/http"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
	lifecycledomain "github.com/smallbiznis/bonos/internal/lifecycle/domain"
)

const kindRateLimited = "rate_limited"

type ValidationError struct {
	Field   string `json:"field"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

type ValidationErrors struct {
	Errors []ValidationError `json:"errors"`
}

func (v ValidationErrors) Error() string {
	return "validation error"
}

// envelope is the response shape of every /api/v1 route.
type envelope struct {
	Success   bool              `json:"success"`
	Data      any               `json:"data,omitempty"`
	ErrorKind string            `json:"errorKind,omitempty"`
	Message   string            `json:"message,omitempty"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

var (
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrRateLimited     = errors.New("rate_limited")
	ErrInvalidRequest  = lifecycledomain.ErrInvalidRequest
)

// failure carries a partial result alongside an error, e.g. the rejected
// lines of a batch issuance.
type failure struct {
	err  error
	data any
}

func (f *failure) Error() string { return f.err.Error() }
func (f *failure) Unwrap() error { return f.err }

func ErrorHandlingMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if c.Writer.Written() {
			return
		}

		lastErr := c.Errors.Last()
		if lastErr == nil {
			return
		}

		status, payload := mapError(lastErr.Err)
		c.Header("Content-Type", "application/json")
		c.AbortWithStatusJSON(status, payload)
	}
}

func AbortWithError(c *gin.Context, err error) {
	if err == nil {
		return
	}
	_ = c.Error(err)
	c.Abort()
}

func abortWithData(c *gin.Context, err error, data any) {
	AbortWithError(c, &failure{err: err, data: data})
}

func respond(c *gin.Context, status int, data any) {
	c.JSON(status, envelope{Success: true, Data: data})
}

func invalidRequestError() error {
	return newValidationError("request", "invalid_request", "invalid request")
}

func newValidationError(field, code, message string) error {
	return &ValidationErrors{
		Errors: []ValidationError{
			{
				Field:   field,
				Code:    code,
				Message: message,
			},
		},
	}
}

var registerFieldNames sync.Once

// useJSONFieldNames makes validation errors name fields by their json key.
func useJSONFieldNames() {
	registerFieldNames.Do(func() {
		v, ok := binding.Validator.Engine().(*validator.Validate)
		if !ok {
			return
		}
		v.RegisterTagNameFunc(func(f reflect.StructField) string {
			name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name == "" {
				return f.Name
			}
			return name
		})
	})
}

// bindingError converts gin binding failures into field-level validation errors.
func bindingError(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return invalidRequestError()
	}
	out := &ValidationErrors{}
	for _, fe := range verrs {
		field := fe.Field()
		out.Errors = append(out.Errors, ValidationError{
			Field:   field,
			Code:    "invalid_" + field,
			Message: validationMessage(fe),
		})
	}
	return out
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", fe.Field())
	case "min", "gte", "gt":
		return fmt.Sprintf("%s must be at least %s", fe.Field(), fe.Param())
	case "max", "lte":
		return fmt.Sprintf("%s must be at most %s", fe.Field(), fe.Param())
	case "dive":
		return "invalid item"
	default:
		return "invalid value"
	}
}

func mapError(err error) (int, envelope) {
	payload := envelope{Success: false}
	if err == nil {
		payload.ErrorKind = lifecycledomain.KindInternal
		payload.Message = "internal server error"
		return http.StatusInternalServerError, payload
	}

	var partial *failure
	if errors.As(err, &partial) {
		payload.Data = partial.data
	}

	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil {
		payload.ErrorKind = lifecycledomain.KindInvalidRequest
		payload.Message = "validation error"
		payload.Errors = vErr.Errors
		return http.StatusBadRequest, payload
	}

	switch {
	case errors.Is(err, ErrUnauthenticated):
		payload.ErrorKind = lifecycledomain.KindUnauthorized
		payload.Message = "actor headers are required"
		return http.StatusUnauthorized, payload
	case errors.Is(err, ErrRateLimited):
		payload.ErrorKind = kindRateLimited
		payload.Message = "too many requests"
		return http.StatusTooManyRequests, payload
	}

	kind := lifecycledomain.Kind(err)
	payload.ErrorKind = kind
	payload.Message = err.Error()
	switch kind {
	case lifecycledomain.KindInvalidRequest:
		return http.StatusBadRequest, payload
	case lifecycledomain.KindInvalidToken:
		return http.StatusBadRequest, payload
	case lifecycledomain.KindUnauthorized:
		return http.StatusForbidden, payload
	case lifecycledomain.KindNotFound:
		return http.StatusNotFound, payload
	case lifecycledomain.KindInsufficientAllocation,
		lifecycledomain.KindInvalidStateTransition:
		return http.StatusConflict, payload
	default:
		payload.Message = "internal server error"
		return http.StatusInternalServerError, payload
	}
}

// classifyErrorForLog feeds the request logger's error_kind and error_code fields.
func classifyErrorForLog(err error) (string, string) {
	var vErr *ValidationErrors
	if errors.As(err, &vErr) && vErr != nil && len(vErr.Errors) > 0 {
		return lifecycledomain.KindInvalidRequest, vErr.Errors[0].Code
	}
	if errors.Is(err, ErrUnauthenticated) {
		return lifecycledomain.KindUnauthorized, ErrUnauthenticated.Error()
	}
	if errors.Is(err, ErrRateLimited) {
		return kindRateLimited, kindRateLimited
	}
	kind := lifecycledomain.Kind(err)
	if kind == lifecycledomain.KindInternal {
		return kind, "internal_error"
	}
	return kind, rootCode(err)
}

func rootCode(err error) string {
	for {
		next := errors.Unwrap(err)
		if next == nil {
			return err.Error()
		}
		err = next
	}
}
