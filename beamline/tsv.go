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
package beamline

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"strings"

	"golang.org/x/exp/slices"
)

var tsvHeaders = [...]string{
	"name",
	"filetypes",
	"strategy",
	"parameter",
	"metadata",
	"schema",
	"group",
}

const (
	colName = iota
	colFileTypes
	colStrategy
	colParameter
	colMetadata
	colSchema
	colGroup
)

type headers [len(tsvHeaders)]int

// ParseTSV reads beamline definitions from tab separated data and returns a
// Registry of them.
//
// The first line must be a header containing the following columns, in any
// order:
//
//	name       the beamline short name
//	filetypes  regular expression matched against accepted file basenames
//	strategy   file-suffix-split, path-segment, sample-name or none
//	parameter  separator or segment index for the strategy, if needed
//	metadata   regular expression for dataset metadata files; may be blank
//	schema     namespace of the datafile parameter schema
//	group      name of the group granted read access
//
// Blank lines and lines starting with # are ignored.
func ParseTSV(r io.Reader) (*Registry, error) {
	cr := csv.NewReader(r)
	cr.Comma = '\t'
	cr.Comment = '#'
	cr.FieldsPerRecord = -1
	cr.LazyQuotes = true

	headers, maxHeader, err := parseHeaders(cr)
	if err != nil {
		return nil, err
	}

	var configs []*Config

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

		c, err := parseLine(line, headers)
		if err != nil {
			return nil, fmt.Errorf("beamline %q: %w", line[headers[colName]], err)
		}

		configs = append(configs, c)
	}

	return New(configs...)
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

func parseLine(line []string, h headers) (*Config, error) {
	fileTypes, err := CompilePattern(line[h[colFileTypes]])
	if err != nil {
		return nil, err
	}

	strategy, err := ParseStrategy(line[h[colStrategy]], line[h[colParameter]])
	if err != nil {
		return nil, err
	}

	c := &Config{
		Name:           strings.TrimSpace(line[h[colName]]),
		FileTypes:      fileTypes,
		Strategy:       strategy,
		DatafileSchema: strings.TrimSpace(line[h[colSchema]]),
		AccessGroup:    strings.TrimSpace(line[h[colGroup]]),
	}

	if md := line[h[colMetadata]]; md != "" {
		if c.Metadata, err = CompilePattern(md); err != nil {
			return nil, err
		}
	}

	return c, nil
}
