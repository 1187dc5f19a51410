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
package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/metaman/ingest"
	"github.com/wtsi-hgi/metaman/sqlite"
)

// options for this cmd.
var (
	showDB    string
	showFiles bool
)

// showCmd represents the show command.
var showCmd = &cobra.Command{
	Use:   "show [epn]",
	Short: "Show stored experiments",
	Long: `Show stored experiments.

With no arguments, prints a table of the experiments in the --db (or
METAMAN_DB), oldest first.

Given an EPN, prints the details of that experiment: its authors, its
experiment level parameters, its datasets and who has access to it. With
--files, each file of each dataset is listed along with its parameters.`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) > 1 {
			die("you may supply at most one EPN")
		}

		db, err := openDB(showDB)
		if err != nil {
			die("failed to open database: %s", err)
		}

		defer func() {
			if errc := db.Close(); errc != nil {
				warn("failed to close database: %s", errc)
			}
		}()

		ctx := context.Background()

		if len(args) == 0 {
			err = printExperiments(ctx, db)
		} else {
			err = printExperiment(ctx, db, args[0])
		}

		if err != nil {
			die("%s", err)
		}
	},
}

func init() {
	RootCmd.AddCommand(showCmd)

	showCmd.Flags().StringVar(&showDB, "db", "", "path to the database")
	showCmd.Flags().BoolVarP(&showFiles, "files", "f", false, "list each file")
}

func printExperiments(ctx context.Context, db *sqlite.DB) error {
	exps, err := db.Experiments(ctx)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"ID", "EPN", "Title", "Start", "Created By"})

	for _, exp := range exps {
		table.Append([]string{
			fmt.Sprintf("%d", exp.ID),
			exp.EPN,
			exp.Title,
			formatTime(exp.Start),
			exp.CreatedBy,
		})
	}

	table.Render()

	return nil
}

func printExperiment(ctx context.Context, db *sqlite.DB, epn string) error {
	exp, err := db.Experiment(ctx, epn)
	if err != nil {
		return err
	}

	authors, err := db.Authors(ctx, exp.ID)
	if err != nil {
		return err
	}

	cliPrint("experiment %d: %s\n", exp.ID, exp.EPN)
	cliPrint("title: %s\n", exp.Title)
	cliPrint("institution: %s\n", exp.InstitutionName)
	cliPrint("description: %s\n", exp.Description)
	cliPrint("start: %s\nend: %s\n", formatTime(exp.Start), formatTime(exp.End))
	cliPrint("created by: %s\n", exp.CreatedBy)
	cliPrint("authors: %s\n", strings.Join(authors, ", "))

	params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerExperiment, ID: exp.ID})
	if err != nil {
		return err
	}

	printParameters(params)

	if err = printStoredDatasets(ctx, db, exp.ID); err != nil {
		return err
	}

	return printAccess(ctx, db, exp.ID)
}

func printParameters(params []sqlite.Parameter) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Schema", "Name", "Value"})

	for _, p := range params {
		table.Append([]string{p.Schema, p.Name, parameterValue(p)})
	}

	table.Render()
}

func parameterValue(p sqlite.Parameter) string {
	if p.String.Valid {
		return p.String.String
	}

	return strconv.FormatFloat(p.Numeric.Float64, 'g', -1, 64)
}

func printStoredDatasets(ctx context.Context, db *sqlite.DB, expID int64) error {
	datasets, err := db.Datasets(ctx, expID)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)

	if showFiles {
		table.SetHeader([]string{"Dataset", "File", "Size", "Parameters"})
	} else {
		table.SetHeader([]string{"Dataset", "Files", "Size", "Parameters"})
	}

	for _, ds := range datasets {
		files, err := db.Datafiles(ctx, ds.ID)
		if err != nil {
			return err
		}

		if showFiles {
			if err = appendFiles(ctx, db, table, ds, files); err != nil {
				return err
			}

			continue
		}

		params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerDataset, ID: ds.ID})
		if err != nil {
			return err
		}

		var size int64

		for _, df := range files {
			size += df.Size
		}

		table.Append([]string{
			ds.Description,
			fmt.Sprintf("%d", len(files)),
			humanize.IBytes(uint64(size)), //nolint:gosec
			joinParameters(params),
		})
	}

	table.Render()

	return nil
}

func appendFiles(ctx context.Context, db *sqlite.DB, table *tablewriter.Table,
	ds sqlite.Dataset, files []sqlite.Datafile) error {
	for _, df := range files {
		params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerDatafile, ID: df.ID})
		if err != nil {
			return err
		}

		table.Append([]string{
			ds.Description,
			df.Filename,
			humanize.IBytes(uint64(df.Size)), //nolint:gosec
			joinParameters(params),
		})
	}

	return nil
}

func joinParameters(params []sqlite.Parameter) string {
	pairs := make([]string, len(params))

	for i, p := range params {
		pairs[i] = p.Name + "=" + parameterValue(p)
	}

	return strings.Join(pairs, ",")
}

func printAccess(ctx context.Context, db *sqlite.DB, expID int64) error {
	acls, err := db.ACLs(ctx, expID)
	if err != nil {
		return err
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Plugin", "Entity", "Owner", "Read"})

	for _, acl := range acls {
		entity, err := aclEntity(ctx, db, acl)
		if err != nil {
			return err
		}

		table.Append([]string{
			acl.Plugin,
			entity,
			strconv.FormatBool(acl.IsOwner),
			strconv.FormatBool(acl.CanRead),
		})
	}

	table.Render()

	return nil
}

// aclEntity returns the group name for group grants, which are stored by id.
func aclEntity(ctx context.Context, db *sqlite.DB, acl ingest.ACL) (string, error) {
	if acl.Plugin != ingest.PluginGroup {
		return acl.Entity, nil
	}

	id, err := strconv.ParseInt(acl.Entity, 10, 64)
	if err != nil {
		return "", fmt.Errorf("invalid group id %q: %w", acl.Entity, err)
	}

	return db.GroupName(ctx, id)
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return "-"
	}

	return t.Format(time.DateTime)
}
