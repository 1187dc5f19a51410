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
	"fmt"
	"os"
	"strings"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/grouping"
	"github.com/wtsi-hgi/metaman/ingest"
	"github.com/wtsi-hgi/metaman/metaman"
	"github.com/wtsi-hgi/metaman/samplesheet"
)

// options for this cmd.
var (
	inspectBeamlines    string
	inspectBeamlineList string
	inspectSample       string
	inspectFiles        bool
)

// inspectCmd represents the inspect command.
var inspectCmd = &cobra.Command{
	Use:   "inspect",
	Short: "Show how a MetaMan export would be grouped",
	Long: `Show how a MetaMan export would be grouped.

Provide the path to a MetaMan export (which may be gzip compressed, if its name
ends in .gz, or - to read STDIN), and the comma separated --beamline names the
export is for. Files for other beamlines are ignored.

A table of the datasets the files would be grouped into is printed, with the
number of files in each, their total size and the number of dataset level
metadata keys. With --files, each file is listed instead.

If you also supply a --sample sheet, its sample and chemical groupings are
printed too.

Nothing is stored. Lines that can't be parsed are logged as warnings.

--beamlines can be used to supply a TSV file of beamline definitions in place
of the built-in ones.`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("you must supply the path to a MetaMan export")
		}

		if !verbose && logPath == "" {
			setCLIFormat()
		}

		registry, err := openRegistry(inspectBeamlines)
		if err != nil {
			die("failed to load beamlines: %s", err)
		}

		beamlines := registry.Filter(splitCommaList(inspectBeamlineList))
		if len(beamlines) == 0 {
			die("%s", ingest.ErrNoBeamlines)
		}

		files := parseMetaMan(args[0], registry, beamlines)
		result := grouping.Group(files, registry, appLogger)

		if inspectFiles {
			printFiles(result)
		} else {
			printDatasets(result)
		}

		if inspectSample != "" {
			printSamples(inspectSample)
		}
	},
}

func init() {
	RootCmd.AddCommand(inspectCmd)

	inspectCmd.Flags().StringVarP(&inspectBeamlineList, "beamline", "b", "",
		"comma separated beamline names")
	inspectCmd.Flags().StringVar(&inspectBeamlines, "beamlines", "",
		"path to a TSV file of beamline definitions")
	inspectCmd.Flags().StringVarP(&inspectSample, "sample", "s", "",
		"path to a sample sheet")
	inspectCmd.Flags().BoolVarP(&inspectFiles, "files", "f", false,
		"list each file")
}

func splitCommaList(list string) []string {
	var items []string

	for _, item := range strings.Split(list, ",") {
		if item = strings.TrimSpace(item); item != "" {
			items = append(items, item)
		}
	}

	return items
}

func parseMetaMan(path string, registry *beamline.Registry, beamlines []string) []*metaman.Datafile {
	r, closeFn, err := openInput(path)
	if err != nil {
		die("failed to open MetaMan export: %s", err)
	}

	defer closeFn() //nolint:errcheck

	files, err := metaman.Parse(r, registry, beamlines, appLogger)
	if err != nil {
		die("failed to read MetaMan export: %s", err)
	}

	return files
}

func printDatasets(result *grouping.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Dataset", "Files", "Size", "Metadata"})

	for _, name := range result.Names {
		var size int64

		for _, df := range result.Datasets[name] {
			size += df.Size
		}

		table.Append([]string{
			name,
			fmt.Sprintf("%d", len(result.Datasets[name])),
			humanize.IBytes(uint64(size)), //nolint:gosec
			fmt.Sprintf("%d", result.Metadata[name].Len()),
		})
	}

	table.Render()

	cliPrint("%d datasets, %d files\n", len(result.Names), result.Files())
}

func printFiles(result *grouping.Result) {
	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Dataset", "Path", "Size", "Keys"})

	for _, name := range result.Names {
		for _, df := range result.Datasets[name] {
			table.Append([]string{
				name,
				df.Path,
				humanize.IBytes(uint64(df.Size)), //nolint:gosec
				strings.Join(df.Keys(), ","),
			})
		}
	}

	table.Render()
}

func printSamples(path string) {
	r, closeFn, err := openInput(path)
	if err != nil {
		die("failed to open sample sheet: %s", err)
	}

	defer closeFn() //nolint:errcheck

	groupings, err := samplesheet.Parse(r, appLogger)
	if err != nil {
		die("failed to read sample sheet: %s", err)
	}

	table := tablewriter.NewWriter(os.Stdout)
	table.SetHeader([]string{"Kind", "Sample", "Keys"})

	for _, g := range groupings {
		table.Append([]string{
			g.Kind.String(),
			fmt.Sprintf("%d", g.Sample),
			strings.Join(g.Params.Keys(), ","),
		})
	}

	table.Render()
}
