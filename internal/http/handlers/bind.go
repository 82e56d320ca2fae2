package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"reflect"
	"strings"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/validator/v10"
)

type FieldError struct {
	Field   string `json:"field"`
	Rule    string `json:"rule"`
	Param   string `json:"param,omitempty"`
	Message string `json:"message,omitempty"`
}

// normalizer is implemented by request types that fix up casing and
// defaults before their binding tags are checked.
type normalizer interface {
	Normalize()
}

// fieldMessager lets a request type supply its own client-facing message
// for a failed rule.
type fieldMessager interface {
	FieldMessage(field, rule, param string) (string, bool)
}

// BindJSON decodes the body into out, normalizes it and validates it. On
// failure it writes the 400 response and returns false.
func BindJSON(ctx *gin.Context, out interface{}) bool {
	err := decodeJSON(ctx.Request.Body, out)

	// a type mismatch still leaves the rest of the object decoded, so the
	// remaining fields are validated alongside it
	var typeError *json.UnmarshalTypeError
	if err != nil && !errors.As(err, &typeError) {
		RespondBadRequest(ctx, "Invalid request body", parseBodyError(err))
		return false
	}

	if n, ok := out.(normalizer); ok {
		n.Normalize()
	}

	var fields []FieldError
	if typeError != nil {
		fields = append(fields, typeFieldError(typeError, out))
	}

	if err := validateStruct(out); err != nil {
		vfields, ok := validationFields(err, out)
		if !ok {
			RespondBadRequest(ctx, "Invalid request body", gin.H{"reason": err.Error()})
			return false
		}
		fields = mergeFieldErrors(fields, vfields)
	}

	if len(fields) > 0 {
		RespondValidation(ctx, fields)
		return false
	}

	return true
}

var useJSONNames sync.Once

// validateStruct runs gin's validator with field names taken from json tags.
func validateStruct(out interface{}) error {
	useJSONNames.Do(func() {
		if v, ok := binding.Validator.Engine().(*validator.Validate); ok {
			v.RegisterTagNameFunc(jsonTagName)
		}
	})
	return binding.Validator.ValidateStruct(out)
}

func decodeJSON(body io.Reader, out interface{}) error {
	if body == nil {
		return io.EOF
	}
	return json.NewDecoder(body).Decode(out)
}

func validationFields(err error, out interface{}) ([]FieldError, bool) {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return nil, false
	}

	messager, _ := out.(fieldMessager)
	fields := make([]FieldError, 0, len(validationErrors))

	for _, fe := range validationErrors {
		field := fieldPath(fe)

		fields = append(fields, FieldError{
			Field:   field,
			Rule:    fe.Tag(),
			Param:   fe.Param(),
			Message: messageFor(messager, field, fe.Tag(), fe.Param()),
		})
	}
	return fields, true
}

// typeFieldError reports a JSON type mismatch. The decoder already gives
// the path in JSON names.
func typeFieldError(typeError *json.UnmarshalTypeError, out interface{}) FieldError {
	messager, _ := out.(fieldMessager)
	field := strings.TrimSpace(typeError.Field)

	msg, ok := fieldMessage(messager, field, "type", "")
	if !ok {
		msg = fmt.Sprintf("%s must be of type %s", field, typeError.Type)
	}

	return FieldError{Field: field, Rule: "type", Message: msg}
}

// mergeFieldErrors appends the validator's findings, skipping fields that
// already failed on type. A mistyped value is left zero, so its required
// or min rule would only repeat the same problem.
func mergeFieldErrors(typed, validated []FieldError) []FieldError {
	if len(typed) == 0 {
		return validated
	}

	seen := make(map[string]bool, len(typed))
	for _, f := range typed {
		seen[f.Field] = true
	}

	out := typed
	for _, f := range validated {
		root, _, _ := strings.Cut(f.Field, "[")
		if seen[f.Field] || seen[root] {
			continue
		}
		out = append(out, f)
	}
	return out
}

func parseBodyError(err error) gin.H {
	if errors.Is(err, io.EOF) {
		return gin.H{"json": "empty_body"}
	}

	var syntaxError *json.SyntaxError

	if errors.As(err, &syntaxError) || errors.Is(err, io.ErrUnexpectedEOF) {
		return gin.H{"json": "invalid_json_syntax"}
	}

	return gin.H{"reason": err.Error()}
}

func fieldMessage(m fieldMessager, field, rule, param string) (string, bool) {
	if m == nil {
		return "", false
	}
	return m.FieldMessage(field, rule, param)
}

func messageFor(m fieldMessager, field, rule, param string) string {
	if msg, ok := fieldMessage(m, field, rule, param); ok {
		return msg
	}
	return field + " " + validationMessage(rule, param)
}

// fieldPath drops the root struct name from the namespace, leaving e.g.
// "language[1]".
func fieldPath(fe validator.FieldError) string {
	if _, rest, ok := strings.Cut(fe.Namespace(), "."); ok && rest != "" {
		return rest
	}
	return fe.Field()
}

func jsonTagName(sf reflect.StructField) string {
	name, _, _ := strings.Cut(sf.Tag.Get("json"), ",")
	switch name {
	case "-":
		return ""
	case "":
		return sf.Name
	}
	return name
}

func validationMessage(rule, param string) string {
	switch rule {
	case "required":
		return "is required"
	case "email":
		return "must be a valid email address"
	case "min":
		return "must be at least " + param
	case "max":
		return "must be at most " + param
	case "len":
		return "must be exactly " + param
	case "oneof":
		return "must be one of " + strings.ReplaceAll(strings.ReplaceAll(param, "'", ""), " ", ", ")
	case "gte":
		return "must be at least " + param
	case "eqfield":
		return "must match " + param
	default:
		if param != "" {
			return fmt.Sprintf("failed %s validation (%s)", rule, param)
		}
		return "failed " + rule + " validation"
	}
}
