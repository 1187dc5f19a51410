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

// Package sqlite stores ingested experiments in an SQLite database, and
// implements ingest.Store.
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	_ "github.com/mattn/go-sqlite3" //
	"github.com/wtsi-hgi/metaman/ingest"
	"github.com/wtsi-hgi/metaman/internal/logs"
	"github.com/wtsi-hgi/metaman/schema"
)

// Error is the type of the constant Err* variables.
type Error string

// Error returns a string version of the error.
func (e Error) Error() string { return string(e) }

const (
	ErrSchemaNotFound     = Error("schema not found")
	ErrExperimentNotFound = Error("experiment not found")
	ErrGroupNotFound      = Error("group not found")
)

var tables = [...]string{ //nolint:gochecknoglobals
	`CREATE TABLE IF NOT EXISTS [schemas] (
		id INTEGER PRIMARY KEY,
		namespace TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS [parameter_names] (
		id INTEGER PRIMARY KEY,
		schema_id INTEGER NOT NULL REFERENCES [schemas] (id),
		name TEXT NOT NULL COLLATE NOCASE,
		full_name TEXT NOT NULL DEFAULT '',
		units TEXT NOT NULL DEFAULT '',
		data_type INTEGER NOT NULL DEFAULT 0,
		UNIQUE (schema_id, name)
	)`,
	`CREATE TABLE IF NOT EXISTS [experiments] (
		id INTEGER PRIMARY KEY,
		epn TEXT NOT NULL UNIQUE,
		title TEXT NOT NULL DEFAULT '',
		institution_name TEXT NOT NULL DEFAULT '',
		description TEXT NOT NULL DEFAULT '',
		start_time INTEGER NOT NULL DEFAULT 0,
		end_time INTEGER NOT NULL DEFAULT 0,
		created_by TEXT NOT NULL DEFAULT ''
	)`,
	`CREATE TABLE IF NOT EXISTS [authors] (
		experiment_id INTEGER NOT NULL REFERENCES [experiments] (id),
		author TEXT NOT NULL,
		position INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS [datasets] (
		id INTEGER PRIMARY KEY,
		experiment_id INTEGER NOT NULL REFERENCES [experiments] (id),
		description TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS [datafiles] (
		id INTEGER PRIMARY KEY,
		dataset_id INTEGER NOT NULL REFERENCES [datasets] (id),
		filename TEXT NOT NULL,
		url TEXT NOT NULL,
		size INTEGER NOT NULL,
		protocol TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS [parameter_sets] (
		id INTEGER PRIMARY KEY,
		schema_id INTEGER NOT NULL REFERENCES [schemas] (id),
		owner_kind INTEGER NOT NULL,
		owner_id INTEGER NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS [parameters] (
		parameter_set_id INTEGER NOT NULL REFERENCES [parameter_sets] (id),
		name_id INTEGER NOT NULL REFERENCES [parameter_names] (id),
		string_value TEXT,
		numerical_value REAL
	)`,
	`CREATE TABLE IF NOT EXISTS [groups] (
		id INTEGER PRIMARY KEY,
		name TEXT NOT NULL UNIQUE
	)`,
	`CREATE TABLE IF NOT EXISTS [acls] (
		experiment_id INTEGER NOT NULL REFERENCES [experiments] (id),
		plugin TEXT NOT NULL,
		entity TEXT NOT NULL,
		is_owner BOOLEAN NOT NULL,
		can_read BOOLEAN NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS datasetExperiment ON [datasets] (experiment_id)`,
	`CREATE INDEX IF NOT EXISTS datafileDataset ON [datafiles] (dataset_id)`,
	`CREATE INDEX IF NOT EXISTS parameterSetOwner ON [parameter_sets] (owner_kind, owner_id)`,
	`CREATE INDEX IF NOT EXISTS parameterSet ON [parameters] (parameter_set_id)`,
}

// DB is an SQLite database of experiments.
type DB struct {
	db     *sql.DB
	logger log15.Logger

	insertSchema      *sql.Stmt
	selectSchema      *sql.Stmt
	upsertName        *sql.Stmt
	selectNames       *sql.Stmt
	selectExperiment  *sql.Stmt
	insertExperiment  *sql.Stmt
	updateExperiment  *sql.Stmt
	deleteAuthors     *sql.Stmt
	insertAuthor      *sql.Stmt
	selectAuthors     *sql.Stmt
	deleteParameters  *sql.Stmt
	deleteParamSets   *sql.Stmt
	insertParamSet    *sql.Stmt
	insertParameter   *sql.Stmt
	selectParameters  *sql.Stmt
	selectDataset     *sql.Stmt
	insertDataset     *sql.Stmt
	selectDatasets    *sql.Stmt
	selectDatafile    *sql.Stmt
	insertDatafile    *sql.Stmt
	updateDatafile    *sql.Stmt
	selectDatafiles   *sql.Stmt
	selectGroup       *sql.Stmt
	selectGroupName   *sql.Stmt
	insertGroup       *sql.Stmt
	insertACL         *sql.Stmt
	selectACLs        *sql.Stmt
	selectExperiments *sql.Stmt
}

// Open opens, creating if necessary, the SQLite database at the given path.
// Problems with parameter values are logged to logger, which may be nil.
func Open(dbPath string, logger log15.Logger) (*DB, error) {
	db, err := sql.Open("sqlite3", dbPath)
	if err != nil {
		return nil, err
	}

	db.SetMaxOpenConns(1)

	for _, table := range tables {
		if _, err = db.Exec(table); err != nil {
			return nil, multierror.Append(err, db.Close())
		}
	}

	sdb := &DB{db: db, logger: logs.OrDiscard(logger)}

	if err = sdb.prepare(); err != nil {
		return nil, multierror.Append(err, sdb.Close())
	}

	return sdb, nil
}

func (d *DB) prepare() error {
	for stmt, query := range map[**sql.Stmt]string{
		&d.insertSchema: "INSERT OR IGNORE INTO [schemas] (namespace) VALUES (?);",
		&d.selectSchema: "SELECT [id] FROM [schemas] WHERE [namespace] = ?;",
		&d.upsertName: "INSERT INTO [parameter_names] (schema_id, name, full_name, units, data_type) " +
			"VALUES (?, ?, ?, ?, ?) ON CONFLICT (schema_id, name) DO UPDATE SET " +
			"full_name = excluded.full_name, units = excluded.units, data_type = excluded.data_type;",
		&d.selectNames: "SELECT [id], [name], [full_name], [units], [data_type] " +
			"FROM [parameter_names] WHERE [schema_id] = ?;",
		&d.selectExperiment: "SELECT [id], [epn], [title], [institution_name], [description], " +
			"[start_time], [end_time], [created_by] FROM [experiments] WHERE [epn] = ?;",
		&d.selectExperiments: "SELECT [id], [epn], [title], [institution_name], [description], " +
			"[start_time], [end_time], [created_by] FROM [experiments] ORDER BY [id];",
		&d.insertExperiment: "INSERT INTO [experiments] (epn) VALUES (?);",
		&d.updateExperiment: "UPDATE [experiments] SET [title] = ?, [institution_name] = ?, " +
			"[description] = ?, [start_time] = ?, [end_time] = ?, [created_by] = ? WHERE [id] = ?;",
		&d.deleteAuthors: "DELETE FROM [authors] WHERE [experiment_id] = ?;",
		&d.insertAuthor:  "INSERT INTO [authors] (experiment_id, author, position) VALUES (?, ?, ?);",
		&d.selectAuthors: "SELECT [author] FROM [authors] WHERE [experiment_id] = ? ORDER BY [position];",
		&d.deleteParameters: "DELETE FROM [parameters] WHERE [parameter_set_id] IN " +
			"(SELECT [id] FROM [parameter_sets] WHERE [owner_kind] = ? AND [owner_id] = ? AND [schema_id] = ?);",
		&d.deleteParamSets: "DELETE FROM [parameter_sets] " +
			"WHERE [owner_kind] = ? AND [owner_id] = ? AND [schema_id] = ?;",
		&d.insertParamSet: "INSERT INTO [parameter_sets] (schema_id, owner_kind, owner_id) VALUES (?, ?, ?);",
		&d.insertParameter: "INSERT INTO [parameters] (parameter_set_id, name_id, string_value, numerical_value) " +
			"VALUES (?, ?, ?, ?);",
		&d.selectParameters: "SELECT [parameter_sets].[id], [schemas].[namespace], [parameter_names].[name], " +
			"[parameters].[string_value], [parameters].[numerical_value] FROM [parameters] " +
			"JOIN [parameter_sets] ON [parameter_sets].[id] = [parameters].[parameter_set_id] " +
			"JOIN [schemas] ON [schemas].[id] = [parameter_sets].[schema_id] " +
			"JOIN [parameter_names] ON [parameter_names].[id] = [parameters].[name_id] " +
			"WHERE [parameter_sets].[owner_kind] = ? AND [parameter_sets].[owner_id] = ? " +
			"ORDER BY [parameters].[rowid];",
		&d.selectDataset: "SELECT [id] FROM [datasets] WHERE [experiment_id] = ? AND [description] = ? " +
			"ORDER BY [id] LIMIT 1;",
		&d.insertDataset:  "INSERT INTO [datasets] (experiment_id, description) VALUES (?, ?);",
		&d.selectDatasets: "SELECT [id], [description] FROM [datasets] WHERE [experiment_id] = ? ORDER BY [id];",
		&d.selectDatafile: "SELECT [id] FROM [datafiles] WHERE [dataset_id] = ? AND [url] = ? AND [protocol] = ? " +
			"ORDER BY [id] LIMIT 1;",
		&d.insertDatafile: "INSERT INTO [datafiles] (dataset_id, filename, url, size, protocol) " +
			"VALUES (?, ?, ?, ?, ?);",
		&d.updateDatafile: "UPDATE [datafiles] SET [size] = ? WHERE [id] = ?;",
		&d.selectDatafiles: "SELECT [id], [filename], [url], [size], [protocol] FROM [datafiles] " +
			"WHERE [dataset_id] = ? ORDER BY [id];",
		&d.selectGroup:     "SELECT [id] FROM [groups] WHERE [name] = ?;",
		&d.selectGroupName: "SELECT [name] FROM [groups] WHERE [id] = ?;",
		&d.insertGroup: "INSERT INTO [groups] (name) VALUES (?);",
		&d.insertACL: "INSERT INTO [acls] (experiment_id, plugin, entity, is_owner, can_read) " +
			"VALUES (?, ?, ?, ?, ?);",
		&d.selectACLs: "SELECT [plugin], [entity], [is_owner], [can_read] FROM [acls] " +
			"WHERE [experiment_id] = ? ORDER BY [rowid];",
	} {
		var err error

		if *stmt, err = d.db.Prepare(query); err != nil {
			return fmt.Errorf("%w: %s", err, query)
		}
	}

	return nil
}

func (d *DB) statements() []*sql.Stmt {
	return []*sql.Stmt{
		d.insertSchema, d.selectSchema, d.upsertName, d.selectNames,
		d.selectExperiment, d.insertExperiment, d.updateExperiment,
		d.deleteAuthors, d.insertAuthor, d.selectAuthors,
		d.deleteParameters, d.deleteParamSets, d.insertParamSet,
		d.insertParameter, d.selectParameters,
		d.selectDataset, d.insertDataset, d.selectDatasets,
		d.selectDatafile, d.insertDatafile, d.updateDatafile, d.selectDatafiles,
		d.selectGroup, d.selectGroupName, d.insertGroup, d.insertACL, d.selectACLs,
		d.selectExperiments,
	}
}

// RegisterSchema adds the given schema and its parameter names to the
// database. Names that already exist have their details updated.
func (d *DB) RegisterSchema(ctx context.Context, s *schema.Schema) (err error) {
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err == nil {
			err = tx.Commit()
		} else if errr := tx.Rollback(); errr != nil {
			err = multierror.Append(err, errr)
		}
	}()

	if _, err = tx.StmtContext(ctx, d.insertSchema).ExecContext(ctx, s.Namespace); err != nil {
		return err
	}

	var schemaID int64

	if err = tx.StmtContext(ctx, d.selectSchema).QueryRowContext(ctx, s.Namespace).Scan(&schemaID); err != nil {
		return err
	}

	upsert := tx.StmtContext(ctx, d.upsertName)

	for _, n := range s.Names() {
		if _, err = upsert.ExecContext(ctx, schemaID, n.Name, n.FullName, n.Units, n.Type); err != nil {
			return fmt.Errorf("%s %s: %w", s.Namespace, n.Name, err)
		}
	}

	return nil
}

// Begin starts a transaction that implements ingest.UnitOfWork.
func (d *DB) Begin(ctx context.Context) (ingest.UnitOfWork, error) { //nolint:ireturn
	tx, err := d.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, err
	}

	return &unitOfWork{
		db:      d,
		tx:      tx,
		schemas: make(map[string]*schema.Schema),
	}, nil
}

// Close closes our prepared statements and the database.
func (d *DB) Close() error {
	var merr *multierror.Error

	for _, stmt := range d.statements() {
		if stmt == nil {
			continue
		}

		if err := stmt.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	if err := d.db.Close(); err != nil {
		merr = multierror.Append(merr, err)
	}

	return merr.ErrorOrNil()
}

func fromUnix(secs int64) time.Time {
	if secs == 0 {
		return time.Time{}
	}

	return time.Unix(secs, 0).UTC()
}

func toUnix(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}

	return t.Unix()
}
