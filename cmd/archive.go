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
	"time"

	"github.com/dustin/go-humanize" //nolint:misspell
	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/metaman/archive"
)

// options for this cmd.
var (
	archivePath      string
	archiveDB        string
	archiveBeamlines string
	archiveFailed    bool
)

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Manage archived uploads",
	Long: `Manage archived uploads.

Uploads received by 'metaman server' or 'metaman ingest' with an --archive are
kept, compressed, in the archive database along with the outcome of their most
recent ingestion. Use the 'list' and 'replay' subcommands to work with them.`,
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived uploads",
	Long: `List archived uploads.

Prints a table of the uploads in the --archive (or METAMAN_ARCHIVE), oldest
first, with the size of their MetaMan export, whether their ingestion failed
and the ID of the experiment they were stored as.`,
	Run: func(_ *cobra.Command, _ []string) {
		a := openArchive()
		defer a.Close()

		entries, err := a.List()
		if err != nil {
			die("failed to list archive: %s", err)
		}

		table := tablewriter.NewWriter(os.Stdout)
		table.SetHeader([]string{"ID", "EPN", "Received", "Size", "Status", "Experiment"})

		for _, e := range entries {
			table.Append([]string{
				e.ID,
				e.EPN,
				e.Received.Format(time.DateTime),
				humanize.IBytes(uint64(e.MetaManSize)), //nolint:gosec
				entryStatus(e),
				fmt.Sprintf("%d", e.ExperimentID),
			})
		}

		table.Render()
	},
}

var archiveReplayCmd = &cobra.Command{
	Use:   "replay",
	Short: "Ingest archived uploads again",
	Long: `Ingest archived uploads again.

Provide the IDs of entries in the --archive (or METAMAN_ARCHIVE) to ingest them
again into the --db (or METAMAN_DB), or use --failed to replay every entry
whose most recent ingestion failed. The outcome of each replay is recorded
against its entry.`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) == 0 && !archiveFailed {
			die("you must supply entry IDs, or --failed")
		}

		if failed := replay(args); failed > 0 {
			die("%d replays failed", failed)
		}
	},
}

// replay ingests the requested entries again, returning the number that
// failed.
func replay(ids []string) int {
	a := openArchive()
	defer a.Close()

	entries, err := replayEntries(a, ids)
	if err != nil {
		die("%s", err)
	}

	ingester, closeFn := newIngester(archiveDB, archiveBeamlines)
	defer closeFn()

	failed := 0

	for _, e := range entries {
		out, err := replayEntry(context.Background(), ingester, a, e)
		if err != nil {
			warn("replay of %s (epn %s) failed: %s", e.ID, e.EPN, err)

			failed++

			continue
		}

		printOutcome(out)
	}

	info("replayed %d entries, %d failed", len(entries), failed)

	return failed
}

func init() {
	archiveCmd.PersistentFlags().StringVar(&archivePath, "archive", "", "path to the archive database")

	archiveReplayCmd.Flags().StringVar(&archiveDB, "db", "", "path to the database")
	archiveReplayCmd.Flags().StringVar(&archiveBeamlines, "beamlines", "",
		"path to a TSV file of beamline definitions")
	archiveReplayCmd.Flags().BoolVar(&archiveFailed, "failed", false, "replay every failed entry")

	archiveCmd.AddCommand(archiveListCmd, archiveReplayCmd)
	RootCmd.AddCommand(archiveCmd)
}

func openArchive() *archive.Archive {
	path, err := requiredFlagOrEnv(archivePath, envArchive, errArchiveRequired)
	if err != nil {
		die("%s", err)
	}

	a, err := archive.Open(path)
	if err != nil {
		die("failed to open archive: %s", err)
	}

	return a
}

func entryStatus(e *archive.Entry) string {
	switch {
	case e.Ingested.IsZero():
		return "pending"
	case e.Failed:
		return "failed"
	case e.Update:
		return "updated"
	default:
		return "created"
	}
}

// replayEntries returns the entries with the given IDs, followed by any
// failed entries if --failed was given.
func replayEntries(a *archive.Archive, ids []string) ([]*archive.Entry, error) {
	entries := make([]*archive.Entry, 0, len(ids))
	seen := make(map[string]bool, len(ids))

	for _, id := range ids {
		e, err := a.Get(id)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", id, err)
		}

		entries = append(entries, e)
		seen[id] = true
	}

	if !archiveFailed {
		return entries, nil
	}

	all, err := a.List()
	if err != nil {
		return nil, err
	}

	for _, e := range all {
		if e.Failed && !seen[e.ID] {
			entries = append(entries, e)
		}
	}

	return entries, nil
}
