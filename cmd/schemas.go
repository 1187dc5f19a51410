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
	"os"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/metaman/schema"
	"github.com/wtsi-hgi/metaman/sqlite"
)

var schemasDB string

var schemasCmd = &cobra.Command{
	Use:   "schemas",
	Short: "Register parameter schemas",
	Long: `Register parameter schemas.

Provide the paths to one or more TSV files describing parameter names, with the
header:

namespace	name	full_name	units	type

where type is string (the default) or numeric. Each namespace is
registered in the --db (or METAMAN_DB) as a schema, along with its names.

Registering is additive: existing schemas and names are kept, with the units,
full names and types of names that are given again updated.`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) == 0 {
			die("you must supply at least one schema TSV file")
		}

		db, err := openDB(schemasDB)
		if err != nil {
			die("failed to open database: %s", err)
		}

		defer db.Close()

		for _, path := range args {
			n, err := registerSchemas(db, path)
			if err != nil {
				die("failed to register %s: %s", path, err)
			}

			info("registered %d schemas from %s", n, path)
		}
	},
}

func init() {
	schemasCmd.Flags().StringVar(&schemasDB, "db", "", "path to the database")

	RootCmd.AddCommand(schemasCmd)
}

func registerSchemas(db *sqlite.DB, path string) (int, error) {
	f, err := os.Open(path)
	if err != nil {
		return 0, err
	}

	defer f.Close()

	schemas, err := schema.ParseTSV(f)
	if err != nil {
		return 0, err
	}

	for _, s := range schemas {
		if err := db.RegisterSchema(context.Background(), s); err != nil {
			return 0, err
		}
	}

	return len(schemas), nil
}
