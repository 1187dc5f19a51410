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
	"os"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
)

var beamlinesPath string

var beamlinesCmd = &cobra.Command{
	Use:   "beamlines",
	Short: "List the configured beamlines",
	Long: `List the configured beamlines.

Prints the built-in beamline definitions, or those in the TSV file given with
--beamlines (or METAMAN_BEAMLINES), showing how each groups its files into
datasets, the schema its file metadata is stored against and the group given
access to its experiments.`,
	Run: func(_ *cobra.Command, _ []string) {
		registry, err := openRegistry(beamlinesPath)
		if err != nil {
			die("failed to load beamlines: %s", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"Name", "Strategy", "Schema", "Group"})

		for _, name := range registry.Names() {
			bc, err := registry.Lookup(name)
			if err != nil {
				die("%s", err)
			}

			table.Append([]string{name, bc.Strategy.String(), bc.DatafileSchema, bc.AccessGroup})
		}

		table.Render()
	},
}

func init() {
	beamlinesCmd.Flags().StringVar(&beamlinesPath, "beamlines", "",
		"path to a TSV file of beamline definitions")

	RootCmd.AddCommand(beamlinesCmd)
}
