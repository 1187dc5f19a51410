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

// Package grouping clusters parsed Datafiles into named datasets, following
// the grouping rules of each file's beamline.
package grouping

import (
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/internal/logs"
	"github.com/wtsi-hgi/metaman/metaman"
)

const (
	// SampleNameKey is the metadata key that names a file's sample, and the key
	// dataset metadata is seeded with.
	SampleNameKey = "sample_name"

	// LogBooks is the dataset that log book files end up in when they have no
	// sample name.
	LogBooks = "Log Books"

	logBookPrefix = "LogBook"
)

// Result holds the datasets built by Group.
type Result struct {
	// Names lists the names of datasets that have files, in the order their
	// first file was seen.
	Names []string

	// Datasets maps dataset names to their files, in parse order.
	Datasets map[string][]*metaman.Datafile

	// Metadata maps dataset names to their dataset level metadata. It has an
	// entry for every name in Names, and may have entries for datasets whose
	// only file carried dataset metadata.
	Metadata map[string]*metaman.Params
}

// Files returns the total number of files in our Datasets.
func (r *Result) Files() int {
	n := 0

	for _, files := range r.Datasets {
		n += len(files)
	}

	return n
}

// Group sorts the given Datafiles into datasets. Files without metadata, and
// files whose beamline is not in the registry, are left out.
//
// Group does not modify its inputs, so calling it again with the same files
// gives the same Result.
func Group(files []*metaman.Datafile, registry *beamline.Registry, logger log15.Logger) *Result {
	logger = logs.OrDiscard(logger)

	r := &Result{
		Datasets: make(map[string][]*metaman.Datafile),
		Metadata: make(map[string]*metaman.Params),
	}

	for _, df := range files {
		if !df.HasMetadata() {
			continue
		}

		c, err := registry.Lookup(df.Beamline())
		if err != nil {
			logger.Warn("datafile has unknown beamline", "path", df.Path, "beamline", df.Beamline())

			continue
		}

		r.add(df, c)
	}

	return r
}

func (r *Result) add(df *metaman.Datafile, c *beamline.Config) {
	name := DatasetName(df, c.Strategy)

	if _, ok := r.Metadata[name]; !ok {
		r.Metadata[name] = metaman.NewParams(SampleNameKey, name)
	}

	if c.IsDatasetMetadata(df.Path) {
		r.Metadata[name] = &df.Params

		return
	}

	if _, ok := r.Datasets[name]; !ok {
		r.Names = append(r.Names, name)
	}

	r.Datasets[name] = append(r.Datasets[name], df)
}

// DatasetName returns the name of the dataset the given Datafile belongs to
// under the given Strategy.
func DatasetName(df *metaman.Datafile, strategy beamline.Strategy) string {
	switch s := strategy.(type) {
	case beamline.FileSuffix:
		if i := strings.LastIndex(df.Path, s.Separator); i >= 0 {
			return df.Path[:i]
		}
	case beamline.PathSegment:
		if segments := strings.Split(df.Path, "/"); s.Index >= 0 && s.Index < len(segments) {
			return segments[s.Index]
		}
	case beamline.SampleName:
		return sampleDatasetName(df)
	case beamline.NoGrouping:
	}

	return df.Path
}

func sampleDatasetName(df *metaman.Datafile) string {
	if name, ok := df.First(SampleNameKey); ok {
		return name
	}

	segments := strings.SplitN(df.Path, "/", 3) //nolint:mnd
	if len(segments) < 2 { //nolint:mnd
		return df.Path
	}

	if strings.HasPrefix(segments[1], logBookPrefix) {
		return LogBooks
	}

	return segments[1]
}
