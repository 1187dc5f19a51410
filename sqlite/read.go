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
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/wtsi-hgi/metaman/ingest"
)

// Dataset is a stored dataset.
type Dataset struct {
	ID          int64
	Description string
}

// Datafile is a stored datafile.
type Datafile struct {
	ID       int64
	Filename string
	URL      string
	Size     int64
	Protocol string
}

// Parameter is a stored parameter value. Numeric is only set if String is
// not.
type Parameter struct {
	Set     int64
	Schema  string
	Name    string
	String  sql.NullString
	Numeric sql.NullFloat64
}

type scanner interface {
	Scan(dest ...any) error
}

func scanExperiment(row scanner) (ingest.Experiment, error) {
	var (
		exp        ingest.Experiment
		start, end int64
	)

	err := row.Scan(&exp.ID, &exp.EPN, &exp.Title, &exp.InstitutionName, &exp.Description,
		&start, &end, &exp.CreatedBy)

	exp.Start = fromUnix(start)
	exp.End = fromUnix(end)

	return exp, err
}

// Experiment returns the experiment with the given EPN.
func (d *DB) Experiment(ctx context.Context, epn string) (ingest.Experiment, error) {
	exp, err := scanExperiment(d.selectExperiment.QueryRowContext(ctx, epn))
	if errors.Is(err, sql.ErrNoRows) {
		return exp, fmt.Errorf("%w: %s", ErrExperimentNotFound, epn)
	}

	return exp, err
}

// Experiments returns every experiment, oldest first.
func (d *DB) Experiments(ctx context.Context) ([]ingest.Experiment, error) {
	return query(ctx, d.selectExperiments, scanExperiment)
}

// Authors returns an experiment's authors in order.
func (d *DB) Authors(ctx context.Context, experimentID int64) ([]string, error) {
	return query(ctx, d.selectAuthors, func(row scanner) (string, error) {
		var author string

		err := row.Scan(&author)

		return author, err
	}, experimentID)
}

// Datasets returns an experiment's datasets in the order they were created.
func (d *DB) Datasets(ctx context.Context, experimentID int64) ([]Dataset, error) {
	return query(ctx, d.selectDatasets, func(row scanner) (Dataset, error) {
		var ds Dataset

		err := row.Scan(&ds.ID, &ds.Description)

		return ds, err
	}, experimentID)
}

// Datafiles returns a dataset's datafiles in the order they were created.
func (d *DB) Datafiles(ctx context.Context, datasetID int64) ([]Datafile, error) {
	return query(ctx, d.selectDatafiles, func(row scanner) (Datafile, error) {
		var df Datafile

		err := row.Scan(&df.ID, &df.Filename, &df.URL, &df.Size, &df.Protocol)

		return df, err
	}, datasetID)
}

// Parameters returns all parameter values for the given owner, in the order
// they were stored.
func (d *DB) Parameters(ctx context.Context, owner ingest.Owner) ([]Parameter, error) {
	return query(ctx, d.selectParameters, func(row scanner) (Parameter, error) {
		var p Parameter

		err := row.Scan(&p.Set, &p.Schema, &p.Name, &p.String, &p.Numeric)

		return p, err
	}, owner.Kind, owner.ID)
}

// ACLs returns an experiment's access grants. Group entities are given as
// group ids.
func (d *DB) ACLs(ctx context.Context, experimentID int64) ([]ingest.ACL, error) {
	return query(ctx, d.selectACLs, func(row scanner) (ingest.ACL, error) {
		var acl ingest.ACL

		err := row.Scan(&acl.Plugin, &acl.Entity, &acl.IsOwner, &acl.CanRead)

		return acl, err
	}, experimentID)
}

// GroupName returns the name of the group with the given id, as found in the
// Entity of django_group ACLs.
func (d *DB) GroupName(ctx context.Context, id int64) (string, error) {
	var name string

	err := d.selectGroupName.QueryRowContext(ctx, id).Scan(&name)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("%w: %d", ErrGroupNotFound, id)
	}

	return name, err
}

func query[T any](ctx context.Context, stmt *sql.Stmt, scan func(scanner) (T, error), args ...any) ([]T, error) {
	rows, err := stmt.QueryContext(ctx, args...)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var results []T

	for rows.Next() {
		r, err := scan(rows)
		if err != nil {
			return nil, err
		}

		results = append(results, r)
	}

	return results, rows.Err()
}
