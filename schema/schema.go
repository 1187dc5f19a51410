/*******************************************************************************
 * Copyright (c) 2026 Genome Research Ltd.
 *
 * Permission is hereby granted, free of charge, to any person obtaining
 * a copy of this software and associated documentation files (the
 * "Software"), to deal in the Software without restriction, including
 * without limitation the rights to use, copy, modify, merge, publish,
 * distribute, sublicense, and/or sell copies of the Software, and to
 * permit persons to whom the Software is furnished to do so, subject to
 * the following conditions:
 *
 * The above copyright notice and this permission notice shall be included
 * in all copies or substantial portions of the Software.
 *
 * THE SOFTWARE IS PROVIDED "AS IS", WITHOUT WARRANTY OF ANY KIND,
 * EXPRESS OR IMPLIED, INCLUDING BUT NOT LIMITED TO THE WARRANTIES OF
 * MERCHANTABILITY, FITNESS FOR A PARTICULAR PURPOSE AND NONINFRINGEMENT.
 * IN NO EVENT SHALL THE AUTHORS OR COPYRIGHT HOLDERS BE LIABLE FOR ANY
 * CLAIM, DAMAGES OR OTHER LIABILITY, WHETHER IN AN ACTION OF CONTRACT,
 * TORT OR OTHERWISE, ARISING FROM, OUT OF OR IN CONNECTION WITH THE
 * SOFTWARE OR THE USE OR OTHER DEALINGS IN THE SOFTWARE.
 ******************************************************************************/

// Package schema describes the parameter catalogs metadata is stored against,
// and classifies metadata values as numeric or string according to them.
package schema

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/metaman/internal/logs"
	"github.com/wtsi-hgi/metaman/metaman"
)

// Error is the type of the constant Err* variables.
type Error string

// Error returns a string version of the error.
func (e Error) Error() string { return string(e) }

const (
	ErrBadType       = Error("invalid parameter type")
	ErrNotNumeric    = Error("value is not numeric")
	ErrDuplicateName = Error("parameter defined more than once")
)

// Type is the data type of a parameter.
type Type uint8

const (
	String Type = iota
	Numeric
)

func (t Type) String() string {
	if t == Numeric {
		return "numeric"
	}

	return "string"
}

// ParseType converts "numeric" or "string" (in any case) to a Type.
func ParseType(s string) (Type, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "numeric", "number":
		return Numeric, nil
	case "string", "":
		return String, nil
	}

	return String, fmt.Errorf("%w: %q", ErrBadType, s)
}

// Name is the definition of one parameter in a schema.
type Name struct {
	ID       int64
	Name     string
	FullName string
	Units    string
	Type     Type
}

// Schema is a catalog of parameter names under a namespace.
type Schema struct {
	ID        int64
	Namespace string
	names     map[string]*Name
}

// New returns a Schema holding the given Names, which must be unique ignoring
// case.
func New(namespace string, names ...*Name) (*Schema, error) {
	s := &Schema{Namespace: namespace, names: make(map[string]*Name, len(names))}

	for _, n := range names {
		if err := s.add(n); err != nil {
			return nil, err
		}
	}

	return s, nil
}

func (s *Schema) add(n *Name) error {
	key := strings.ToLower(n.Name)

	if _, ok := s.names[key]; ok {
		return fmt.Errorf("%w: %s in %s", ErrDuplicateName, n.Name, s.Namespace)
	}

	s.names[key] = n

	return nil
}

// Lookup finds the Name matching the given key, ignoring case.
func (s *Schema) Lookup(key string) (*Name, bool) {
	n, ok := s.names[strings.ToLower(key)]

	return n, ok
}

// Names returns our Names sorted by name.
func (s *Schema) Names() []*Name {
	names := make([]*Name, 0, len(s.names))

	for _, n := range s.names {
		names = append(names, n)
	}

	sort.Slice(names, func(i, j int) bool {
		return names[i].Name < names[j].Name
	})

	return names
}

// Value is a metadata value classified against a Name.
type Value struct {
	Name    *Name
	String  string
	Numeric float64
}

// IsNumeric returns true if our Name is of the Numeric Type.
func (v Value) IsNumeric() bool {
	return v.Name.Type == Numeric
}

// ParseNumeric parses a value such as "12.5 mm" and returns the number and
// any unit that followed it.
//
// The unit is not checked against the parameter's declared units.
func ParseNumeric(value string) (float64, string, error) {
	number, unit, _ := strings.Cut(value, " ")

	f, err := strconv.ParseFloat(number, 64)
	if err != nil {
		return 0, "", fmt.Errorf("%w: %q", ErrNotNumeric, value)
	}

	unit, _, _ = strings.Cut(unit, " ")

	return f, unit, nil
}

// Classify resolves each key of params against the Schema and returns a Value
// for each of its values, in order.
//
// Keys not in the schema, and values of numeric parameters that can't be
// parsed as numbers, are logged to logger (which may be nil) and skipped.
func (s *Schema) Classify(params *metaman.Params, logger log15.Logger) []Value {
	logger = logs.OrDiscard(logger)

	var values []Value

	params.Each(func(key string, vals []string) {
		name, ok := s.Lookup(key)
		if !ok {
			logger.Warn("parameter not found in schema", "parameter", key, "schema", s.Namespace)

			return
		}

		for _, val := range vals {
			v, err := classify(name, val)
			if err != nil {
				logger.Warn("parameter value skipped", "parameter", key, "value", val, "err", err)

				continue
			}

			values = append(values, v)
		}
	})

	return values
}

func classify(name *Name, val string) (Value, error) {
	if name.Type != Numeric {
		return Value{Name: name, String: val}, nil
	}

	f, _, err := ParseNumeric(val)
	if err != nil {
		return Value{}, err
	}

	return Value{Name: name, Numeric: f}, nil
}
