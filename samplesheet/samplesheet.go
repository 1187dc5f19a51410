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

// Package samplesheet parses the optional sample sheets that accompany a
// MetaMan export. A sample sheet is a list of "key : value" lines describing
// one or more samples, each made of zero or more chemicals:
//
//	SampleDescription : powder in can
//	Mass : 5 mg
//	ChemicalName : NaCl
//	Mass : 3 mg
package samplesheet

import (
	"bufio"
	"io"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/metaman/internal/kv"
	"github.com/wtsi-hgi/metaman/internal/logs"
	"github.com/wtsi-hgi/metaman/metaman"
)

// Kind says whether a Grouping describes a sample or a chemical.
type Kind uint8

const (
	KindSample Kind = iota
	KindChemical
)

func (k Kind) String() string {
	if k == KindChemical {
		return "chemical"
	}

	return "sample"
}

const (
	sampleKey   = "SampleDescription"
	chemicalKey = "ChemicalName"
)

// Grouping holds the values of one sample or chemical, in line order.
type Grouping struct {
	Kind Kind

	// Sample is the index of the sample grouping this grouping belongs to; for
	// a sample grouping it is its own index.
	Sample int

	Params metaman.Params
}

// Parse reads a sample sheet and returns its groupings in the order they were
// opened. A SampleDescription line, or the first line, opens a new sample; a
// ChemicalName line opens a new chemical within the current sample. Other
// lines add their value to the open chemical, or the sample if there is no
// open chemical. Lines with an empty value open groupings but store nothing.
//
// Lines without a " : " separator are logged to logger, which may be nil, and
// skipped. Lines longer than metaman.MaxLineLength are an error.
func Parse(r io.Reader, logger log15.Logger) ([]*Grouping, error) {
	logger = logs.OrDiscard(logger)
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), metaman.MaxLineLength)

	var (
		groupings []*Grouping
		sample    *Grouping
		chemical  *Grouping
		lineNum   int
	)

	for scanner.Scan() {
		lineNum++

		line := strings.TrimSuffix(scanner.Text(), "\r")
		if line == "" {
			continue
		}

		key, value, ok := kv.SplitTrailing(line)
		if !ok {
			logger.Warn("malformed sample sheet line", "line", lineNum, "text", line)

			continue
		}

		switch {
		case key == sampleKey || sample == nil:
			sample = &Grouping{Kind: KindSample, Sample: len(groupings)}
			chemical = nil
			groupings = append(groupings, sample)
		case key == chemicalKey:
			chemical = &Grouping{Kind: KindChemical, Sample: sample.Sample}
			groupings = append(groupings, chemical)
		}

		if value == "" {
			continue
		}

		active := sample
		if chemical != nil {
			active = chemical
		}

		active.Params.Add(key, value)
	}

	return groupings, scanner.Err()
}
