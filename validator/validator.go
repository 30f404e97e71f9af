// Package validator turns ozzo-validation field errors into layered errors.
package validator

import (
	"errors"
	"fmt"
	"maps"
	"slices"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"

	"github.com/rhusar/jgroups-opentelemetry/errcode"
)

// Validatable is implemented by configuration structs.
type Validatable interface {
	Validate() error
}

// Validate runs v.Validate and converts the result with Convert.
func Validate(v Validatable, base *errcode.LayeredError) error {
	return Convert(v.Validate(), base)
}

// Convert returns a copy of base describing err. Field errors become the
// message, sorted by field, and the "fields" data entry:
//
//	exporter.type: unsupported exporter type "zipkin"; scope_name: cannot be blank
//
// Nested structs produce dotted field names. Other errors are wrapped as is.
func Convert(err error, base *errcode.LayeredError) error {
	if err == nil {
		return nil
	}
	var errs validation.Errors
	if !errors.As(err, &errs) {
		return base.Wrap(err)
	}

	fields := Fields(errs)
	parts := make([]string, 0, len(fields))
	for _, field := range slices.Sorted(maps.Keys(fields)) {
		parts = append(parts, fmt.Sprintf("%s: %s", field, fields[field]))
	}
	return base.WithMsgf("%s", strings.Join(parts, "; ")).WithData("fields", fields)
}

// Fields flattens errs into field name to message.
func Fields(errs validation.Errors) map[string]string {
	fields := make(map[string]string, len(errs))
	collect(fields, "", errs)
	return fields
}

func collect(fields map[string]string, prefix string, errs validation.Errors) {
	for name, err := range errs {
		if err == nil {
			continue
		}
		if prefix != "" {
			name = prefix + "." + name
		}
		var nested validation.Errors
		if errors.As(err, &nested) {
			collect(fields, name, nested)
			continue
		}
		fields[name] = err.Error()
	}
}
