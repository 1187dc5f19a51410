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

// Package ingest turns a MetaMan export, an optional sample sheet and the
// details of an experiment into a Model, and writes that Model to a Store in
// a single UnitOfWork.
//
// If an experiment with the same EPN already exists, ingestion runs in update
// mode: authors and parameter sets are replaced rather than merged, existing
// datasets and datafiles are reused, and access grants are left alone.
package ingest

import (
	"context"
	"fmt"
	"io"

	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/internal/logs"
	"github.com/wtsi-hgi/metaman/samplesheet"
)

// Error is the type of the constant Err* variables.
type Error string

// Error returns a string version of the error.
func (e Error) Error() string { return string(e) }

const ErrNoBeamlines = Error("no known beamlines in request")

// Outcome summarises a successful ingestion.
type Outcome struct {
	ExperimentID int64
	Update       bool
	Datasets     int
	Datafiles    int
}

// Ingester builds Models and writes them to a Store.
type Ingester struct {
	Registry *beamline.Registry
	Store    Store
	Logger   log15.Logger
}

// Ingest builds the Model for the given streams (sample may be nil) and writes
// it. Nothing is written if building fails; if writing fails, everything
// written is rolled back.
func (i *Ingester) Ingest(ctx context.Context, req *Request, metamanR, sample io.Reader) (*Outcome, error) {
	m, err := Build(req, i.Registry, metamanR, sample, i.logger(req.EPN))
	if err != nil {
		return nil, err
	}

	return i.Write(ctx, m)
}

// Write stores an already built Model in a single UnitOfWork, in update mode
// if its experiment's EPN is already stored.
func (i *Ingester) Write(ctx context.Context, m *Model) (*Outcome, error) {
	return i.write(ctx, m, i.logger(m.Experiment.EPN))
}

func (i *Ingester) logger(epn string) log15.Logger { //nolint:ireturn
	return logs.OrDiscard(i.Logger).New("epn", epn)
}

func (i *Ingester) write(ctx context.Context, m *Model, logger log15.Logger) (out *Outcome, err error) {
	uow, err := i.Store.Begin(ctx)
	if err != nil {
		return nil, err
	}

	defer func() {
		if err == nil {
			err = uow.Commit()
		} else if errr := uow.Rollback(); errr != nil {
			err = multierror.Append(err, errr)
		}

		if err != nil {
			out = nil
		}
	}()

	w := &writer{uow: uow, model: m, logger: logger}

	return w.write(ctx)
}

type writer struct {
	uow    UnitOfWork
	model  *Model
	logger log15.Logger
	update bool
}

func (w *writer) write(ctx context.Context) (*Outcome, error) {
	for _, namespace := range w.model.Schemas {
		if err := w.uow.RequireSchema(ctx, namespace); err != nil {
			return nil, err
		}
	}

	expID, err := w.writeExperiment(ctx)
	if err != nil {
		return nil, err
	}

	if err = w.writeSamples(ctx, expID); err != nil {
		return nil, err
	}

	for _, ds := range w.model.Datasets {
		if err = w.writeDataset(ctx, expID, ds); err != nil {
			return nil, fmt.Errorf("dataset %q: %w", ds.Name, err)
		}
	}

	w.logger.Debug("ingestion done", "datasets", len(w.model.Datasets), "datafiles", w.model.Datafiles())

	if err = w.writeACLs(ctx, expID); err != nil {
		return nil, err
	}

	return &Outcome{
		ExperimentID: expID,
		Update:       w.update,
		Datasets:     len(w.model.Datasets),
		Datafiles:    w.model.Datafiles(),
	}, nil
}

func (w *writer) writeExperiment(ctx context.Context) (int64, error) {
	exp, update, err := w.uow.FindOrCreateExperiment(ctx, w.model.Experiment.EPN)
	if err != nil {
		return 0, err
	}

	w.update = update

	if update {
		w.logger.Info("experiment exists, running in update mode", "experiment", exp.ID)
	} else {
		w.logger.Info("running in create mode", "experiment", exp.ID)
	}

	details := w.model.Experiment
	details.ID = exp.ID

	if err = w.uow.UpdateExperiment(ctx, details); err != nil {
		return 0, err
	}

	if err = w.uow.ReplaceAuthors(ctx, exp.ID, w.model.Authors); err != nil {
		return 0, err
	}

	owner := Owner{Kind: OwnerExperiment, ID: exp.ID}

	if err = w.replaceParameters(ctx, beamline.ExperimentSchema, owner); err != nil {
		return 0, err
	}

	return exp.ID, w.uow.SaveParameters(ctx, beamline.ExperimentSchema, owner, w.model.ExperimentParams)
}

// replaceParameters deletes the owner's existing parameter sets in the schema
// when in update mode.
func (w *writer) replaceParameters(ctx context.Context, schema string, owner Owner) error {
	if !w.update {
		return nil
	}

	return w.uow.DeleteParameterSets(ctx, owner, schema)
}

func (w *writer) writeSamples(ctx context.Context, expID int64) error {
	if !w.model.HasSamples {
		return nil
	}

	owner := Owner{Kind: OwnerExperiment, ID: expID}

	for _, schema := range [...]string{beamline.SampleSchema, beamline.ChemicalSchema} {
		if err := w.replaceParameters(ctx, schema, owner); err != nil {
			return err
		}
	}

	for _, g := range w.model.Samples {
		schema := beamline.SampleSchema
		if g.Kind == samplesheet.KindChemical {
			schema = beamline.ChemicalSchema
		}

		if err := w.uow.SaveParameters(ctx, schema, owner, &g.Params); err != nil {
			return err
		}
	}

	return nil
}

func (w *writer) writeDataset(ctx context.Context, expID int64, ds *Dataset) error {
	dsID, err := w.uow.CreateOrUpdateDataset(ctx, expID, ds.Description, w.update)
	if err != nil {
		return err
	}

	if ds.Metadata != nil {
		owner := Owner{Kind: OwnerDataset, ID: dsID}

		if err = w.replaceParameters(ctx, beamline.DatasetSchema, owner); err != nil {
			return err
		}

		if err = w.uow.SaveParameters(ctx, beamline.DatasetSchema, owner, ds.Metadata); err != nil {
			return err
		}
	}

	for _, df := range ds.Files {
		dfID, err := w.uow.CreateOrUpdateDatafile(ctx, dsID, df, w.update)
		if err != nil {
			return fmt.Errorf("%s: %w", df.URL, err)
		}

		owner := Owner{Kind: OwnerDatafile, ID: dfID}

		if err = w.replaceParameters(ctx, df.Schema, owner); err != nil {
			return err
		}

		if err = w.uow.SaveParameters(ctx, df.Schema, owner, df.Params); err != nil {
			return err
		}
	}

	return nil
}

func (w *writer) writeACLs(ctx context.Context, expID int64) error {
	if w.update {
		w.logger.Debug("update mode, experiment acls not touched")

		return nil
	}

	for _, acl := range w.model.ACLs {
		if err := w.uow.GrantAccess(ctx, expID, acl); err != nil {
			return fmt.Errorf("grant %s %s: %w", acl.Plugin, acl.Entity, err)
		}
	}

	return nil
}
