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
package ingest

import (
	"strings"
	"time"
)

const (
	listSeparator       = ", "
	researcherSeparator = " ~ "
)

// Request holds the details of an experiment that accompany a MetaMan upload.
type Request struct {
	// Beamlines are the beamline names the upload is for. Names not in the
	// Registry are ignored when parsing, but are still recorded against the
	// experiment.
	Beamlines []string

	// InstrumentURLs and InstrumentScientists are aligned with Beamlines.
	InstrumentURLs       []string
	InstrumentScientists []string

	EPN             string
	ProgramID       string
	Title           string
	InstitutionName string
	Description     string
	Start           time.Time
	End             time.Time

	// Owner is the first author of the experiment, followed by Researchers.
	Owner       string
	Researchers []string

	CreatedBy string
}

// ParseList splits a ", " separated list, as sent for the beamline,
// instrument_url and instrument_scientists fields. An empty string gives an
// empty list.
func ParseList(s string) []string {
	if s == "" {
		return nil
	}

	return strings.Split(s, listSeparator)
}

// ParseResearchers splits a " ~ " separated list of researchers, dropping
// blank entries.
func ParseResearchers(s string) []string {
	var researchers []string

	for _, r := range strings.Split(s, researcherSeparator) {
		if r == "" {
			continue
		}

		researchers = append(researchers, r)
	}

	return researchers
}

// Authors returns the Owner followed by the Researchers.
func (r *Request) Authors() []string {
	authors := make([]string, 0, len(r.Researchers)+1)

	if r.Owner != "" {
		authors = append(authors, r.Owner)
	}

	return append(authors, r.Researchers...)
}
