package validator

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"

	"hotelier/shared/constant"
	"hotelier/shared/failure"

	val "github.com/go-playground/validator/v10"
)

var validate *val.Validate

func init() {
	validate = val.New(val.WithRequiredStructEnabled())

	// Field errors are keyed by the wire name, not the Go field name.
	validate.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" || name == "" {
			return field.Name
		}

		return name
	})
}

// Validate reads the request body into the given struct and validates it.
// JSON and form-encoded bodies are both accepted; the rule set is declared on
// the struct via validate tags. All rule violations accumulate per field
// rather than short-circuiting on the first.
func Validate[T any](r *http.Request, data *T) error {
	contentType := r.Header.Get(constant.RequestHeaderContentType)

	if strings.HasPrefix(contentType, constant.ContentTypeFormURLEncoded) {
		if err := r.ParseForm(); err != nil {
			return failure.BadRequest(fmt.Errorf("failed to parse form body: %w", err))
		}

		if err := decodeForm(r.PostForm, data); err != nil {
			return err
		}

		return ValidateStruct(data)
	}

	return ValidateJSON(r.Body, data)
}

// RejectFields fails when the raw body names any of the given fields. Immutable
// attributes are rejected loudly instead of being dropped on the floor. The
// body is rewound so a later Validate call still sees it.
func RejectFields(r *http.Request, fields ...string) error {
	if r.Body == nil {
		return nil
	}

	body, err := io.ReadAll(r.Body)
	if err != nil {
		return failure.BadRequest(fmt.Errorf("failed to read request body: %w", err))
	}

	r.Body = io.NopCloser(bytes.NewReader(body))

	if len(body) == 0 {
		return nil
	}

	present := map[string]bool{}

	if strings.HasPrefix(r.Header.Get(constant.RequestHeaderContentType), constant.ContentTypeFormURLEncoded) {
		if values, parseErr := url.ParseQuery(string(body)); parseErr == nil {
			for key := range values {
				present[key] = true
			}
		}
	} else {
		raw := map[string]json.RawMessage{}
		if unmarshalErr := json.Unmarshal(body, &raw); unmarshalErr == nil {
			for key := range raw {
				present[key] = true
			}
		}
	}

	violations := map[string][]string{}

	for _, field := range fields {
		if present[field] {
			violations[field] = append(violations[field], field+" cannot be changed")
		}
	}

	if len(violations) > 0 {
		return failure.ValidationFailed(violations)
	}

	return nil
}

// ValidateJSON decodes a JSON body into the given struct and validates it.
func ValidateJSON[T any](r io.Reader, data *T) error {
	decoder := json.NewDecoder(r)

	if err := decoder.Decode(data); err != nil {
		return failure.BadRequest(fmt.Errorf("failed to decode request body: %w", err))
	}

	return ValidateStruct(data)
}

// ValidateStruct runs the declared rules and accumulates every violation.
func ValidateStruct[T any](data *T) error {
	err := validate.Struct(data)
	if err == nil {
		return nil
	}

	var valErrors val.ValidationErrors
	if !fieldErrors(err, &valErrors) {
		return failure.BadRequestFromString(err.Error())
	}

	fields := map[string][]string{}
	for _, valErr := range valErrors {
		field := valErr.Field()
		fields[field] = append(fields[field], message(valErr))
	}

	return failure.ValidationFailed(fields)
}

// decodeForm fills struct fields from form values using json tag names.
// Only flat string/int/bool fields appear on request DTOs, so that is all it
// supports.
func decodeForm[T any](values url.Values, data *T) error {
	elem := reflect.ValueOf(data).Elem()
	typ := elem.Type()

	for i := range typ.NumField() {
		name := strings.SplitN(typ.Field(i).Tag.Get("json"), ",", 2)[0]
		if name == "" || name == "-" || !values.Has(name) {
			continue
		}

		raw := values.Get(name)
		field := elem.Field(i)

		target := field
		if field.Kind() == reflect.Pointer {
			target = reflect.New(field.Type().Elem()).Elem()
		}

		switch target.Kind() {
		case reflect.String:
			target.SetString(raw)
		case reflect.Int, reflect.Int64:
			n, err := strconv.ParseInt(raw, 10, 64)
			if err != nil {
				return failure.FieldError(name, fmt.Sprintf("%s must be an integer", name))
			}

			target.SetInt(n)
		case reflect.Bool:
			b, err := strconv.ParseBool(raw)
			if err != nil {
				return failure.FieldError(name, fmt.Sprintf("%s must be a boolean", name))
			}

			target.SetBool(b)
		default:
			continue
		}

		if field.Kind() == reflect.Pointer {
			field.Set(target.Addr())
		}
	}

	return nil
}
