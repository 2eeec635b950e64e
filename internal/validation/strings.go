// MIT License
//
// Copyright (c) 2022-2026 GoAkt Team
//
// Permission is hereby granted, free of charge, to any person obtaining a copy
// of this software and associated documentation files (the "Software"), to deal
// in the Software without restriction, including without limitation the rights
// to use, copy, modify, merge, publish, distribute, sublicense, and/or sell
// copies of the Software, and to permit persons to whom the Software is
// furnished to do so, subject to the following conditions:
//
// The above copyright notice and this permission notice shall be included in all
// copies or substantial portions of the Software.
//
// THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND, EXPRESS OR
// IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF MERCHANTABILITY,
// FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT. IN NO EVENT SHALL THE
// AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY CLAIM, DAMAGES OR OTHER
// LIABILITY, WHETHER IN AN ACTION OF CONTRACT, TORT OR OTHERWISE, ARISING FROM,
// OUT OF OR IN CONNECTION WITH THE SOFTWARE OR THE USE OR OTHER DEALINGS IN THE
// SOFTWARE.

package validation

import (
	"fmt"
	"regexp"
	"strings"
)

const maxIDLength = 255

var idPattern = regexp.MustCompile(`^[A-Za-z0-9][A-Za-z0-9._:\-]*$`)

type emptyStringValidator struct {
	field string
	value string
}

// NewEmptyStringValidator fails when value is blank.
func NewEmptyStringValidator(field, value string) Validator {
	return emptyStringValidator{field: field, value: value}
}

func (v emptyStringValidator) Validate() error {
	if strings.TrimSpace(v.value) == "" {
		return fmt.Errorf("the [%s] is required", v.field)
	}
	return nil
}

// IDValidator checks actor and service identifiers.
type IDValidator struct {
	field string
	id    string
}

var _ Validator = (*IDValidator)(nil)

// NewIDValidator creates an IDValidator. An identifier starts with a letter
// or digit and contains letters, digits, '.', '_', ':' or '-'.
func NewIDValidator(field, id string) *IDValidator {
	return &IDValidator{field: field, id: id}
}

// Validate implements Validator.
func (v *IDValidator) Validate() error {
	switch {
	case strings.TrimSpace(v.id) == "":
		return fmt.Errorf("the [%s] is required", v.field)
	case len(v.id) > maxIDLength:
		return fmt.Errorf("the [%s] exceeds %d characters", v.field, maxIDLength)
	case !idPattern.MatchString(v.id):
		return fmt.Errorf("the [%s] contains invalid characters: %q", v.field, v.id)
	}
	return nil
}
