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
package schema

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"
)

const (
	ErrHeaderNotFound = Error("header not found")
	ErrTooFewColumns  = Error("too few tab separated columns")
)

var tsvHeaders = [...]string{
	"namespace",
	"name",
	"full_name",
	"units",
	"type",
}

const (
	colNamespace = iota
	colName
	colFullName
	colUnits
	colType
)

type headers [len(tsvHeaders)]int

// ParseTSV reads parameter catalogs from tab separated data with a header
// line naming the columns namespace, name, full_name, units and type (in any
// order). Each distinct namespace becomes a Schema; Schemas are returned in
// the order their namespace first appears.
func ParseTSV(r io.Reader) ([]*Schema, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	h, maxHeader, err := parseHeaders(cr)
	if err != nil {
		return nil, err
	}

	var schemas []*Schema

	byNamespace := make(map[string]*Schema)

	for {
		line, err := cr.Read()
		if errors.Is(err, io.EOF) {
			break
		} else if err != nil {
			return nil, err
		}

		if len(line) <= maxHeader {
			return nil, fmt.Errorf("%w: %q", ErrTooFewColumns, strings.Join(line, "\t"))
		}

		n, err := parseName(line, h)
		if err != nil {
			return nil, err
		}

		ns := strings.TrimSpace(line[h[colNamespace]])

		s, ok := byNamespace[ns]
		if !ok {
			s, _ = New(ns) //nolint:errcheck
			byNamespace[ns] = s
			schemas = append(schemas, s)
		}

		if err := s.add(n); err != nil {
			return nil, err
		}
	}

	return schemas, nil
}

func parseHeaders(cr *csv.Reader) (headers, int, error) {
	var h headers

	line, err := cr.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			err = io.ErrUnexpectedEOF
		}

		return h, 0, err
	}

	maxHeader := 0

	for n, header := range tsvHeaders {
		pos := slices.Index(line, header)
		if pos == -1 {
			return h, 0, fmt.Errorf("%s: %w", header, ErrHeaderNotFound)
		}

		h[n] = pos

		maxHeader = max(maxHeader, pos)
	}

	return h, maxHeader, nil
}

func parseName(line []string, h headers) (*Name, error) {
	t, err := ParseType(line[h[colType]])
	if err != nil {
		return nil, err
	}

	return &Name{
		Name:     strings.TrimSpace(line[h[colName]]),
		FullName: line[h[colFullName]],
		Units:    line[h[colUnits]],
		Type:     t,
	}, nil
}
