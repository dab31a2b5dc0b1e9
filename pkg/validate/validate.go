// Package validate provides struct-tag validation for request payloads.
//
// Supported rules (comma-separated in the `validate` tag):
//
//	required            field must not be zero/empty
//	nullable            if empty, skip all remaining rules for this field
//	email               valid email address
//	url                 valid URL (http/https)
//	objectid            24-character hex MongoDB ObjectID
//	latitude            number within [-90, 90]
//	longitude           number within [-180, 180]
//	numeric             any number
//	min=N               string: min char length | number: min value
//	max=N               string: max char length | number: max value
//	gte=N               number >= N
//	lte=N               number <= N
//	between=min,max     number or string length between min and max (inclusive)
//	in=a,b,c            value must be one of the listed items
//
// Rules past required and nullable are checked by go-playground/validator;
// this package keeps the tag dialect (in= and between= take comma lists)
// and the Laravel-style messages.
//
// Example:
//
//	type LoginInput struct {
//	    Email    string `json:"email"    validate:"required,email"`
//	    Password string `json:"password" validate:"required,min=6"`
//	}
package validate

import (
	"fmt"
	"reflect"
	"regexp"
	"strings"

	"github.com/go-playground/validator/v10"
)

var (
	engine     = newEngine()
	objectIDRE = regexp.MustCompile(`^[0-9a-fA-F]{24}$`)
)

func newEngine() *validator.Validate {
	v := validator.New()
	v.RegisterValidation("objectid", func(fl validator.FieldLevel) bool { //nolint:errcheck
		return objectIDRE.MatchString(fl.Field().String())
	})
	return v
}

// Struct validates all exported fields of v that carry a `validate` tag.
// Returns a map of fieldName → error message; empty map means no errors.
func Struct(v interface{}) map[string]string {
	errs := make(map[string]string)
	rv := reflect.ValueOf(v)
	if rv.Kind() == reflect.Ptr {
		rv = rv.Elem()
	}
	if rv.Kind() != reflect.Struct {
		return errs
	}
	rt := rv.Type()

	for i := 0; i < rt.NumField(); i++ {
		field := rt.Field(i)
		value := rv.Field(i)

		tag := field.Tag.Get("validate")
		if tag == "" || !field.IsExported() {
			continue
		}

		name := jsonFieldName(field)
		rules := splitRules(tag)

		if hasRule(rules, "nullable") && isEmpty(value) {
			continue
		}
		if value.Kind() == reflect.Ptr && !value.IsNil() {
			value = value.Elem()
		}

		for _, rule := range rules {
			if rule == "nullable" {
				continue
			}
			if msg := applyRule(rule, name, value); msg != "" {
				errs[name] = msg
				break // first failing rule per field
			}
		}
	}

	return errs
}

// HasErrors returns true when the errs map is non-empty.
func HasErrors(errs map[string]string) bool { return len(errs) > 0 }

// applyRule checks one rule and returns its message on failure.
func applyRule(rule, field string, v reflect.Value) string {
	key, param, _ := strings.Cut(rule, "=")

	if key == "required" {
		if isEmpty(v) {
			return fmt.Sprintf("The %s field is required.", field)
		}
		return ""
	}
	// A nil pointer without nullable has nothing to check beyond required.
	if !v.IsValid() || (v.Kind() == reflect.Ptr && v.IsNil()) {
		return ""
	}

	tag, ok := translate(key, param)
	if !ok || check(v.Interface(), tag) {
		return ""
	}
	return message(key, param, field, v)
}

// translate maps a rule onto validator's tag syntax.
func translate(key, param string) (string, bool) {
	switch key {
	case "email", "latitude", "longitude", "numeric", "objectid":
		return key, true
	case "url":
		return "http_url", true
	case "min", "max", "gte", "lte":
		return key + "=" + strings.TrimSpace(param), true
	case "between":
		lo, hi, found := strings.Cut(param, ",")
		if !found {
			return "", false
		}
		return "min=" + strings.TrimSpace(lo) + ",max=" + strings.TrimSpace(hi), true
	case "in":
		opts := strings.Split(param, ",")
		for i := range opts {
			opts[i] = strings.TrimSpace(opts[i])
		}
		return "oneof=" + strings.Join(opts, " "), true
	}
	return "", false
}

// check runs tag against val. validator panics on a rule that does not fit
// the field's kind; that counts as a failed rule.
func check(val interface{}, tag string) (ok bool) {
	defer func() {
		if recover() != nil {
			ok = false
		}
	}()
	return engine.Var(val, tag) == nil
}

func message(key, param, field string, v reflect.Value) string {
	numeric := isNumericKind(v)
	switch key {
	case "email":
		return fmt.Sprintf("The %s must be a valid email address.", field)
	case "url":
		return fmt.Sprintf("The %s must be a valid URL.", field)
	case "objectid":
		return fmt.Sprintf("The %s must be a valid id.", field)
	case "latitude":
		return fmt.Sprintf("The %s must be between -90 and 90.", field)
	case "longitude":
		return fmt.Sprintf("The %s must be between -180 and 180.", field)
	case "numeric":
		return fmt.Sprintf("The %s field must be a number.", field)
	case "min":
		if numeric {
			return fmt.Sprintf("The %s must be at least %s.", field, param)
		}
		return fmt.Sprintf("The %s must be at least %s characters.", field, param)
	case "max":
		if numeric {
			return fmt.Sprintf("The %s must not be greater than %s.", field, param)
		}
		return fmt.Sprintf("The %s must not exceed %s characters.", field, param)
	case "gte":
		return fmt.Sprintf("The %s must be greater than or equal to %s.", field, param)
	case "lte":
		return fmt.Sprintf("The %s must be less than or equal to %s.", field, param)
	case "between":
		lo, hi, _ := strings.Cut(param, ",")
		if numeric {
			return fmt.Sprintf("The %s must be between %s and %s.", field, lo, hi)
		}
		return fmt.Sprintf("The %s must be between %s and %s characters.", field, lo, hi)
	case "in":
		return fmt.Sprintf("The selected %s is invalid.", field)
	}
	return fmt.Sprintf("The %s is invalid.", field)
}

func isEmpty(v reflect.Value) bool {
	if !v.IsValid() {
		return true
	}
	switch v.Kind() {
	case reflect.String:
		return strings.TrimSpace(v.String()) == ""
	case reflect.Slice, reflect.Map, reflect.Array:
		return v.Len() == 0
	case reflect.Ptr, reflect.Interface:
		return v.IsNil()
	case reflect.Bool:
		return false // false is a valid boolean value
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	}
	return false
}

func isNumericKind(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		return true
	}
	return false
}

func jsonFieldName(f reflect.StructField) string {
	name := f.Tag.Get("json")
	if name == "" || name == "-" {
		return strings.ToLower(f.Name)
	}
	if idx := strings.Index(name, ","); idx != -1 {
		name = name[:idx]
	}
	return name
}

// splitRules splits the validate tag by comma while keeping multi-value
// rule parameters (in=, between=) intact.
// e.g. "required,in=PLACED,SHIPPED,max=10" → ["required","in=PLACED,SHIPPED","max=10"]
func splitRules(tag string) []string {
	var rules []string
	var current strings.Builder
	inParam := false

	for i := 0; i < len(tag); i++ {
		ch := tag[i]
		if ch != ',' {
			current.WriteByte(ch)
			if !inParam {
				s := current.String()
				inParam = strings.HasSuffix(s, "in=") || strings.HasSuffix(s, "between=")
			}
			continue
		}
		if inParam && !looksLikeNewRule(tag[i+1:]) {
			current.WriteByte(ch)
			continue
		}
		rules = append(rules, current.String())
		current.Reset()
		inParam = false
	}
	if current.Len() > 0 {
		rules = append(rules, current.String())
	}
	return rules
}

var knownRules = []string{
	"required", "nullable", "email", "url", "objectid", "latitude",
	"longitude", "numeric", "min=", "max=", "gte=", "lte=", "in=", "between=",
}

// looksLikeNewRule reports whether s starts with a rule keyword rather
// than continuing a multi-value parameter.
func looksLikeNewRule(s string) bool {
	for _, k := range knownRules {
		if strings.HasPrefix(s, k) {
			return true
		}
	}
	return false
}

func hasRule(rules []string, target string) bool {
	for _, r := range rules {
		if strings.TrimSpace(r) == target {
			return true
		}
	}
	return false
}
