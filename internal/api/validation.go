/*
Copyright (C) 2026 Friends Incode

SPDX-License-Identifier: AGPL-3.0-or-later
*/

package api

import (
	"reflect"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"

	"github.com/friendsincode/eventdesk/internal/clock"
)

func newValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("clock", validateClock)
	_ = v.RegisterValidation("eventdate", validateEventDate)
	return v
}

// validateClock accepts any time the resolver can use as an anchor.
func validateClock(fl validator.FieldLevel) bool {
	_, ok := clock.Parse(fl.Field().String())
	return ok
}

func validateEventDate(fl validator.FieldLevel) bool {
	_, err := time.Parse("2006-01-02", fl.Field().String())
	return err == nil
}

// validationFields returns field name to failed tag, e.g. "start_time": "clock".
func validationFields(errs validator.ValidationErrors) map[string]string {
	out := make(map[string]string, len(errs))
	for _, e := range errs {
		out[e.Field()] = e.Tag()
	}
	return out
}
