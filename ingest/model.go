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
	"fmt"
	"io"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/grouping"
	"github.com/wtsi-hgi/metaman/internal/logs"
	"github.com/wtsi-hgi/metaman/metaman"
	"github.com/wtsi-hgi/metaman/samplesheet"
	"golang.org/x/exp/slices"
)

// PropDBLinkTemplate gives the proposal page for an EPN.
const PropDBLinkTemplate = "https://neutron.ansto.gov.au/Bragg/proposal/ProposalView.jsp?id=%s"

// Experiment parameter keys.
const (
	ParamEPN                  = "epn"
	ParamPropDBLink           = "propdb_link"
	ParamBeamline             = "beamline"
	ParamInstrumentURL        = "instrument_url"
	ParamInstrumentScientists = "instrument_scientists"
	ParamProgramID            = "program_id"
)

const datasetPrefix = "Data/"

// Dataset is a named group of Datafiles, ready to be stored.
type Dataset struct {
	Name        string
	Description string
	Metadata    *metaman.Params
	Files       []*Datafile
}

// Model is everything that will be written for an ingestion, built before any
// writes happen.
type Model struct {
	Experiment       Experiment
	Authors          []string
	ExperimentParams *metaman.Params

	// HasSamples is true if a sample sheet was supplied, even an empty one.
	HasSamples bool
	Samples    []*samplesheet.Grouping

	Datasets []*Dataset

	// ACLs are only granted when the experiment is new.
	ACLs []ACL

	// Schemas lists every schema namespace the Model is stored against.
	Schemas []string
}

// Datafiles returns the total number of files in our Datasets.
func (m *Model) Datafiles() int {
	n := 0

	for _, ds := range m.Datasets {
		n += len(ds.Files)
	}

	return n
}

// Build parses the given MetaMan export and optional sample sheet (which may
// be nil) and returns the Model that ingesting them for req would store.
//
// Returns ErrNoBeamlines if none of req's Beamlines are in the registry.
func Build(req *Request, registry *beamline.Registry, metamanR, sample io.Reader,
	logger log15.Logger) (*Model, error) {
	logger = logs.OrDiscard(logger)

	beamlines := registry.Filter(req.Beamlines)
	if len(beamlines) == 0 {
		return nil, fmt.Errorf("%w: %q", ErrNoBeamlines, req.Beamlines)
	}

	m := &Model{
		Experiment: Experiment{
			EPN:             req.EPN,
			Title:           req.Title,
			InstitutionName: req.InstitutionName,
			Description:     req.Description,
			Start:           req.Start,
			End:             req.End,
			CreatedBy:       req.CreatedBy,
		},
		Authors:          req.Authors(),
		ExperimentParams: experimentParams(req),
		Schemas:          []string{beamline.ExperimentSchema},
	}

	if sample != nil {
		samples, err := samplesheet.Parse(sample, logger)
		if err != nil {
			return nil, fmt.Errorf("sample sheet: %w", err)
		}

		m.HasSamples = true
		m.Samples = samples
		m.Schemas = append(m.Schemas, beamline.SampleSchema, beamline.ChemicalSchema)
	}

	files, err := metaman.Parse(metamanR, registry, beamlines, logger)
	if err != nil {
		return nil, fmt.Errorf("metaman: %w", err)
	}

	m.addDatasets(grouping.Group(files, registry, logger), registry)
	m.addBeamlines(req.EPN, beamlines, registry)

	return m, nil
}

func experimentParams(req *Request) *metaman.Params {
	p := metaman.NewParams(ParamEPN, req.EPN)
	p.Set(ParamPropDBLink, fmt.Sprintf(PropDBLinkTemplate, req.EPN))
	p.Set(ParamBeamline, req.Beamlines...)
	p.Set(ParamInstrumentURL, req.InstrumentURLs...)
	p.Set(ParamInstrumentScientists, req.InstrumentScientists...)

	if req.ProgramID != "" {
		p.Set(ParamProgramID, req.ProgramID)
	}

	return p
}

func (m *Model) addDatasets(result *grouping.Result, registry *beamline.Registry) {
	m.Schemas = append(m.Schemas, beamline.DatasetSchema)

	for _, name := range result.Names {
		ds := &Dataset{
			Name:        name,
			Description: strings.ReplaceAll(name, datasetPrefix, ""),
			Metadata:    result.Metadata[name],
		}

		for _, df := range result.Datasets[name] {
			c, err := registry.Lookup(df.Beamline())
			if err != nil {
				continue
			}

			ds.Files = append(ds.Files, &Datafile{
				Filename: df.Basename(),
				URL:      df.URL(),
				Protocol: metaman.Protocol,
				Size:     df.Size,
				Schema:   c.DatafileSchema,
				Params:   &df.Params,
			})
		}

		m.Datasets = append(m.Datasets, ds)
	}
}

func (m *Model) requireSchema(namespace string) {
	if !slices.Contains(m.Schemas, namespace) {
		m.Schemas = append(m.Schemas, namespace)
	}
}

// addBeamlines requires the datafile schema of each selected beamline, and
// grants the beamline's group access.
func (m *Model) addBeamlines(epn string, beamlines []string, registry *beamline.Registry) {
	for _, name := range beamlines {
		c, err := registry.Lookup(name)
		if err != nil {
			continue
		}

		m.requireSchema(c.DatafileSchema)

		if c.AccessGroup == "" {
			continue
		}

		m.ACLs = append(m.ACLs, ACL{Plugin: PluginGroup, Entity: c.AccessGroup, CanRead: true})
	}

	m.ACLs = append(m.ACLs,
		ACL{Plugin: PluginVBL, Entity: epn, CanRead: true},
		ACL{Plugin: PluginGroup, Entity: AdminGroup, IsOwner: true, CanRead: true},
	)
}
