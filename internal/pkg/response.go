package pkg

import (
	"errors"
	"net/http"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/simp-lee/pagination"

	"github.com/simp-lee/wbdash/internal/domain"
)

// Response is the JSON envelope every API endpoint answers with.
type Response struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
	Data    any    `json:"data"`
}

// ValidationErrorResponse is the envelope for rejected input, keyed by the
// parameter name the client sent.
type ValidationErrorResponse struct {
	Code    int               `json:"code"`
	Message string            `json:"message"`
	Errors  map[string]string `json:"errors"`
}

// Success writes data with status 200.
func Success(c *gin.Context, data any) {
	c.JSON(http.StatusOK, Response{Code: http.StatusOK, Message: "success", Data: data})
}

// List writes a page of results with status 200.
func List[T any](c *gin.Context, result *pagination.Pagination[T]) {
	Success(c, result)
}

// Error writes err with the status mapped from its domain code. Only the
// message of a *domain.AppError reaches the client; anything else is
// reported as an internal error.
func Error(c *gin.Context, err error) {
	status := domain.HTTPStatusCode(err)
	msg := "internal error"
	var appErr *domain.AppError
	if errors.As(err, &appErr) {
		msg = appErr.Message
	}
	c.JSON(status, Response{Code: status, Message: msg})
}

// ValidationError writes a 400 listing the failing fields of err.
func ValidationError(c *gin.Context, err error) {
	writeValidationError(c, err, nil)
}

// BindAndValidate binds the request into obj and runs its binding rules. On
// failure it has already written a 400 and returns false:
//
//	if !pkg.BindAndValidate(c, &req) { return }
func BindAndValidate(c *gin.Context, obj any) bool {
	if err := c.ShouldBind(obj); err != nil {
		writeValidationError(c, err, obj)
		return false
	}
	return true
}

func writeValidationError(c *gin.Context, err error, obj any) {
	var ve validator.ValidationErrors
	if !errors.As(err, &ve) {
		c.JSON(http.StatusBadRequest, Response{Code: http.StatusBadRequest, Message: err.Error()})
		return
	}

	names := paramNames(obj)
	fields := make(map[string]string, len(ve))
	for _, fe := range ve {
		name, ok := names[fe.StructField()]
		if !ok {
			name = strings.ToLower(fe.Field())
		}
		rule := fe.Tag()
		if fe.Param() != "" {
			rule += "=" + fe.Param()
		}
		fields[name] = rule
	}

	c.JSON(http.StatusBadRequest, ValidationErrorResponse{
		Code:    http.StatusBadRequest,
		Message: "validation error",
		Errors:  fields,
	})
}

// paramNames maps the struct fields of obj to their json name, falling back
// to the form name. A nil or non-struct obj yields nil.
func paramNames(obj any) map[string]string {
	if obj == nil {
		return nil
	}
	t := reflect.TypeOf(obj)
	for t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	m := make(map[string]string, t.NumField())
	for i := range t.NumField() {
		f := t.Field(i)
		for _, key := range []string{"json", "form"} {
			if name := tagName(f.Tag.Get(key)); name != "" {
				m[f.Name] = name
				break
			}
		}
	}
	return m
}

// tagName returns the name part of a struct tag value, or "" when the field
// is unnamed or skipped.
func tagName(tag string) string {
	name, _, _ := strings.Cut(tag, ",")
	if name == "-" {
		return ""
	}
	return name
}
