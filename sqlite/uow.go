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
	"strconv"

	"github.com/wtsi-hgi/metaman/ingest"
	"github.com/wtsi-hgi/metaman/metaman"
	"github.com/wtsi-hgi/metaman/schema"
)

type unitOfWork struct {
	db      *DB
	tx      *sql.Tx
	schemas map[string]*schema.Schema
}

func (u *unitOfWork) stmt(ctx context.Context, stmt *sql.Stmt) *sql.Stmt {
	return u.tx.StmtContext(ctx, stmt)
}

func (u *unitOfWork) insert(ctx context.Context, stmt *sql.Stmt, args ...any) (int64, error) {
	res, err := u.stmt(ctx, stmt).ExecContext(ctx, args...)
	if err != nil {
		return 0, err
	}

	return res.LastInsertId()
}

// schema returns the Schema with the given namespace, loading its parameter
// names the first time.
func (u *unitOfWork) schema(ctx context.Context, namespace string) (*schema.Schema, error) {
	if s, ok := u.schemas[namespace]; ok {
		return s, nil
	}

	var id int64

	err := u.stmt(ctx, u.db.selectSchema).QueryRowContext(ctx, namespace).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrSchemaNotFound, namespace)
	} else if err != nil {
		return nil, err
	}

	names, err := u.names(ctx, id)
	if err != nil {
		return nil, err
	}

	s, err := schema.New(namespace, names...)
	if err != nil {
		return nil, err
	}

	s.ID = id
	u.schemas[namespace] = s

	return s, nil
}

func (u *unitOfWork) names(ctx context.Context, schemaID int64) ([]*schema.Name, error) {
	rows, err := u.stmt(ctx, u.db.selectNames).QueryContext(ctx, schemaID)
	if err != nil {
		return nil, err
	}

	defer rows.Close()

	var names []*schema.Name

	for rows.Next() {
		n := new(schema.Name)

		if err = rows.Scan(&n.ID, &n.Name, &n.FullName, &n.Units, &n.Type); err != nil {
			return nil, err
		}

		names = append(names, n)
	}

	return names, rows.Err()
}

func (u *unitOfWork) RequireSchema(ctx context.Context, namespace string) error {
	_, err := u.schema(ctx, namespace)

	return err
}

func (u *unitOfWork) FindOrCreateExperiment(ctx context.Context, epn string) (ingest.Experiment, bool, error) {
	exp, err := scanExperiment(u.stmt(ctx, u.db.selectExperiment).QueryRowContext(ctx, epn))
	if err == nil {
		return exp, true, nil
	} else if !errors.Is(err, sql.ErrNoRows) {
		return exp, false, err
	}

	id, err := u.insert(ctx, u.db.insertExperiment, epn)

	return ingest.Experiment{ID: id, EPN: epn}, false, err
}

func (u *unitOfWork) UpdateExperiment(ctx context.Context, exp ingest.Experiment) error {
	_, err := u.stmt(ctx, u.db.updateExperiment).ExecContext(ctx,
		exp.Title, exp.InstitutionName, exp.Description,
		toUnix(exp.Start), toUnix(exp.End), exp.CreatedBy, exp.ID)

	return err
}

func (u *unitOfWork) ReplaceAuthors(ctx context.Context, experimentID int64, authors []string) error {
	if _, err := u.stmt(ctx, u.db.deleteAuthors).ExecContext(ctx, experimentID); err != nil {
		return err
	}

	insert := u.stmt(ctx, u.db.insertAuthor)

	for n, author := range authors {
		if _, err := insert.ExecContext(ctx, experimentID, author, n); err != nil {
			return err
		}
	}

	return nil
}

func (u *unitOfWork) DeleteParameterSets(ctx context.Context, owner ingest.Owner, namespace string) error {
	s, err := u.schema(ctx, namespace)
	if err != nil {
		return err
	}

	if _, err = u.stmt(ctx, u.db.deleteParameters).ExecContext(ctx, owner.Kind, owner.ID, s.ID); err != nil {
		return err
	}

	_, err = u.stmt(ctx, u.db.deleteParamSets).ExecContext(ctx, owner.Kind, owner.ID, s.ID)

	return err
}

func (u *unitOfWork) SaveParameters(ctx context.Context, namespace string, owner ingest.Owner,
	params *metaman.Params) error {
	s, err := u.schema(ctx, namespace)
	if err != nil {
		return err
	}

	setID, err := u.insert(ctx, u.db.insertParamSet, s.ID, owner.Kind, owner.ID)
	if err != nil {
		return err
	}

	insert := u.stmt(ctx, u.db.insertParameter)
	logger := u.db.logger.New("owner", owner.Kind.String(), "id", owner.ID)

	for _, v := range s.Classify(params, logger) {
		var (
			str sql.NullString
			num sql.NullFloat64
		)

		if v.IsNumeric() {
			num = sql.NullFloat64{Float64: v.Numeric, Valid: true}
		} else {
			str = sql.NullString{String: v.String, Valid: true}
		}

		if _, err = insert.ExecContext(ctx, setID, v.Name.ID, str, num); err != nil {
			return fmt.Errorf("%s %s: %w", namespace, v.Name.Name, err)
		}
	}

	return nil
}

func (u *unitOfWork) existing(ctx context.Context, stmt *sql.Stmt, args ...any) (int64, bool, error) {
	var id int64

	err := u.stmt(ctx, stmt).QueryRowContext(ctx, args...).Scan(&id)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, false, nil
	}

	return id, err == nil, err
}

func (u *unitOfWork) CreateOrUpdateDataset(ctx context.Context, experimentID int64,
	description string, update bool) (int64, error) {
	if update {
		id, ok, err := u.existing(ctx, u.db.selectDataset, experimentID, description)
		if err != nil || ok {
			return id, err
		}
	}

	return u.insert(ctx, u.db.insertDataset, experimentID, description)
}

func (u *unitOfWork) CreateOrUpdateDatafile(ctx context.Context, datasetID int64, df *ingest.Datafile,
	update bool) (int64, error) {
	if update {
		id, ok, err := u.existing(ctx, u.db.selectDatafile, datasetID, df.URL, df.Protocol)
		if err != nil {
			return 0, err
		}

		if ok {
			_, err = u.stmt(ctx, u.db.updateDatafile).ExecContext(ctx, df.Size, id)

			return id, err
		}
	}

	return u.insert(ctx, u.db.insertDatafile, datasetID, df.Filename, df.URL, df.Size, df.Protocol)
}

func (u *unitOfWork) GrantAccess(ctx context.Context, experimentID int64, acl ingest.ACL) error {
	entity := acl.Entity

	if acl.Plugin == ingest.PluginGroup {
		id, err := u.group(ctx, acl.Entity)
		if err != nil {
			return err
		}

		entity = strconv.FormatInt(id, 10)
	}

	_, err := u.stmt(ctx, u.db.insertACL).ExecContext(ctx, experimentID, acl.Plugin, entity, acl.IsOwner, acl.CanRead)

	return err
}

// group returns the id of the named group, creating it if necessary.
func (u *unitOfWork) group(ctx context.Context, name string) (int64, error) {
	id, ok, err := u.existing(ctx, u.db.selectGroup, name)
	if err != nil {
		return 0, err
	}

	if ok {
		u.db.logger.Debug("registering existing group", "group", name)

		return id, nil
	}

	u.db.logger.Debug("registering new group", "group", name)

	return u.insert(ctx, u.db.insertGroup, name)
}

func (u *unitOfWork) Commit() error {
	return u.tx.Commit()
}

func (u *unitOfWork) Rollback() error {
	return u.tx.Rollback()
}
