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
	"strconv"
	"strings"
)

// Strategy describes how the datafiles of a beamline are grouped into
// datasets. It is one of FileSuffix, PathSegment, SampleName or NoGrouping.
type Strategy interface {
	String() string
	strategy()
}

// FileSuffix groups files whose paths share everything before the last
// occurrence of Separator.
type FileSuffix struct {
	Separator string
}

// PathSegment groups files by the '/' separated path segment at Index.
type PathSegment struct {
	Index int
}

// SampleName groups files by their sample_name metadata, falling back to the
// second path segment.
type SampleName struct{}

// NoGrouping puts every file in a dataset of its own, named after its path.
type NoGrouping struct{}

func (FileSuffix) strategy()  {}
func (PathSegment) strategy() {}
func (SampleName) strategy()  {}
func (NoGrouping) strategy()  {}

const (
	strategyFileSuffix  = "file-suffix-split"
	strategyPathSegment = "path-segment"
	strategySampleName  = "sample-name"
	strategyNone        = "none"
)

func (f FileSuffix) String() string  { return strategyFileSuffix + "(" + strconv.Quote(f.Separator) + ")" }
func (p PathSegment) String() string { return strategyPathSegment + "(" + strconv.Itoa(p.Index) + ")" }
func (SampleName) String() string    { return strategySampleName }
func (NoGrouping) String() string    { return strategyNone }

// ParseStrategy returns the Strategy with the given kind, which is one of
// "file-suffix-split", "path-segment", "sample-name" or "none". The older
// names "file", "directory" and "sample" are also accepted.
//
// param is the separator for file-suffix-split and the segment index for
// path-segment; it is ignored for the other kinds.
func ParseStrategy(kind, param string) (Strategy, error) { //nolint:ireturn
	switch strings.TrimSpace(kind) {
	case strategyFileSuffix, "file":
		if param == "" {
			return nil, ErrBadStrategyParam
		}

		return FileSuffix{Separator: param}, nil
	case strategyPathSegment, "directory":
		idx, err := strconv.Atoi(strings.TrimSpace(param))
		if err != nil || idx < 0 {
			return nil, ErrBadStrategyParam
		}

		return PathSegment{Index: idx}, nil
	case strategySampleName, "sample":
		return SampleName{}, nil
	case strategyNone, "":
		return NoGrouping{}, nil
	}

	return nil, ErrBadStrategy
}
