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
	"context"
	"time"

	"github.com/wtsi-hgi/metaman/metaman"
)

// Experiment is the stored form of an experiment.
type Experiment struct {
	ID              int64
	EPN             string
	Title           string
	InstitutionName string
	Description     string
	Start           time.Time
	End             time.Time
	CreatedBy       string
}

// OwnerKind says what sort of thing a parameter set belongs to.
type OwnerKind uint8

const (
	OwnerExperiment OwnerKind = iota
	OwnerDataset
	OwnerDatafile
)

func (k OwnerKind) String() string {
	switch k {
	case OwnerDataset:
		return "dataset"
	case OwnerDatafile:
		return "datafile"
	default:
		return "experiment"
	}
}

// Owner identifies the experiment, dataset or datafile a parameter set
// belongs to.
type Owner struct {
	Kind OwnerKind
	ID   int64
}

// Plugins that ACL entities are resolved by.
const (
	// PluginGroup entities are local group names.
	PluginGroup = "django_group"

	// PluginVBL entities are EPNs.
	PluginVBL = "vbl_group"

	// AdminGroup is always made an owner of new experiments.
	AdminGroup = "admin"
)

// ACL is an access grant on an experiment.
type ACL struct {
	Plugin  string
	Entity  string
	IsOwner bool
	CanRead bool
}

// Datafile is the stored form of a file within a dataset.
type Datafile struct {
	Filename string
	URL      string
	Protocol string
	Size     int64

	// Schema is the namespace Params are stored against.
	Schema string
	Params *metaman.Params
}

// Store is something that can persist ingested experiments.
type Store interface {
	// Begin starts a UnitOfWork. Nothing written through it is visible to
	// others until it is committed.
	Begin(ctx context.Context) (UnitOfWork, error)
}

// UnitOfWork is an all-or-nothing set of writes to a Store.
type UnitOfWork interface {
	// RequireSchema returns an error if the given schema namespace is not
	// known.
	RequireSchema(ctx context.Context, namespace string) error

	// FindOrCreateExperiment returns the experiment with the given EPN,
	// creating it if necessary. update is true if it already existed.
	FindOrCreateExperiment(ctx context.Context, epn string) (exp Experiment, update bool, err error)

	UpdateExperiment(ctx context.Context, exp Experiment) error

	// ReplaceAuthors sets the experiment's authors, in order.
	ReplaceAuthors(ctx context.Context, experimentID int64, authors []string) error

	// DeleteParameterSets removes the owner's parameter sets in the given
	// schema.
	DeleteParameterSets(ctx context.Context, owner Owner, schema string) error

	// SaveParameters creates a new parameter set for the owner in the given
	// schema and stores each of params' values in it. Keys not in the schema
	// and numeric values that can't be parsed are skipped.
	SaveParameters(ctx context.Context, schema string, owner Owner, params *metaman.Params) error

	// CreateOrUpdateDataset returns the id of a new dataset, or, if update is
	// true, of the experiment's existing dataset with the same description
	// when there is one.
	CreateOrUpdateDataset(ctx context.Context, experimentID int64, description string, update bool) (int64, error)

	// CreateOrUpdateDatafile is like CreateOrUpdateDataset, matching existing
	// datafiles by URL and protocol and updating their size.
	CreateOrUpdateDatafile(ctx context.Context, datasetID int64, df *Datafile, update bool) (int64, error)

	GrantAccess(ctx context.Context, experimentID int64, acl ACL) error

	Commit() error
	Rollback() error
}
