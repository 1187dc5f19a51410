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
	"io"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/metaman/archive"
	"github.com/wtsi-hgi/metaman/ingest"
)

// options for this cmd.
var (
	ingestDB                   string
	ingestArchive              string
	ingestBeamlines            string
	ingestBeamlineList         string
	ingestInstrumentURL        string
	ingestInstrumentScientists string
	ingestEPN                  string
	ingestProgramID            string
	ingestTitle                string
	ingestInstitution          string
	ingestDescription          string
	ingestStart                string
	ingestEnd                  string
	ingestOwner                string
	ingestResearchers          string
	ingestSample               string
	ingestCreatedBy            string
)

// ingestCmd represents the ingest command.
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Store a MetaMan export",
	Long: `Store a MetaMan export.

Provide the path to a MetaMan export (which may be gzip compressed, if its name
ends in .gz, or - to read STDIN), the --db to store it in (or set
METAMAN_DB), the --epn of the experiment and the comma separated --beamline
names it is for.

The first time an EPN is ingested a new experiment is created and access is
granted to the beamline groups. Ingesting the same EPN again updates the
experiment details and replaces the metadata of its existing datasets and
files.

Supply a --sample sheet to also store sample and chemical metadata.

--start and --end take times in RFC3339 format, eg. 2024-01-02T15:04:05Z.
--researchers takes names separated by " ~ ".

If --archive (or METAMAN_ARCHIVE) is set, the export is kept in that archive
database along with the outcome, so it can be replayed with
'metaman archive replay'.

The schemas metadata is stored against must have been registered with
'metaman schemas' first.`,
	Run: func(_ *cobra.Command, args []string) {
		if len(args) != 1 {
			die("you must supply the path to a MetaMan export")
		}

		req, err := ingestRequest()
		if err != nil {
			die("%s", err)
		}

		ingester, closeFn := newIngester(ingestDB, ingestBeamlines)
		defer closeFn()

		metamanR, closeMetaMan, err := openInput(args[0])
		if err != nil {
			die("failed to open MetaMan export: %s", err)
		}

		defer closeMetaMan() //nolint:errcheck

		var sample io.Reader

		if ingestSample != "" {
			r, closeSample, errs := openInput(ingestSample)
			if errs != nil {
				die("failed to open sample sheet: %s", errs)
			}

			defer closeSample() //nolint:errcheck

			sample = r
		}

		out, err := ingestStreams(ingester, req, metamanR, sample)
		if err != nil {
			die("ingestion failed: %s", err)
		}

		printOutcome(out)
	},
}

func init() {
	RootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringVar(&ingestDB, "db", "", "path to the database")
	ingestCmd.Flags().StringVar(&ingestArchive, "archive", "", "path to an archive database")
	ingestCmd.Flags().StringVar(&ingestBeamlines, "beamlines", "",
		"path to a TSV file of beamline definitions")
	ingestCmd.Flags().StringVarP(&ingestBeamlineList, "beamline", "b", "",
		"comma separated beamline names")
	ingestCmd.Flags().StringVar(&ingestInstrumentURL, "instrument_url", "",
		"comma separated instrument URLs")
	ingestCmd.Flags().StringVar(&ingestInstrumentScientists, "instrument_scientists", "",
		"comma separated instrument scientist names")
	ingestCmd.Flags().StringVarP(&ingestEPN, "epn", "e", "", "experiment proposal number")
	ingestCmd.Flags().StringVar(&ingestProgramID, "program", "", "program ID")
	ingestCmd.Flags().StringVarP(&ingestTitle, "title", "t", "", "experiment title")
	ingestCmd.Flags().StringVar(&ingestInstitution, "institution", "", "institution name")
	ingestCmd.Flags().StringVar(&ingestDescription, "description", "", "experiment description")
	ingestCmd.Flags().StringVar(&ingestStart, "start", "", "experiment start time")
	ingestCmd.Flags().StringVar(&ingestEnd, "end", "", "experiment end time")
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "experiment owner")
	ingestCmd.Flags().StringVar(&ingestResearchers, "researchers", "", "researcher names")
	ingestCmd.Flags().StringVarP(&ingestSample, "sample", "s", "", "path to a sample sheet")
	ingestCmd.Flags().StringVar(&ingestCreatedBy, "user", "", "user to record as creating the experiment")
}

func ingestRequest() (*ingest.Request, error) {
	if ingestEPN == "" {
		return nil, errEPNRequired
	}

	req := &ingest.Request{
		Beamlines:            splitCommaList(ingestBeamlineList),
		InstrumentURLs:       splitCommaList(ingestInstrumentURL),
		InstrumentScientists: splitCommaList(ingestInstrumentScientists),
		EPN:                  ingestEPN,
		ProgramID:            ingestProgramID,
		Title:                ingestTitle,
		InstitutionName:      ingestInstitution,
		Description:          ingestDescription,
		Owner:                ingestOwner,
		Researchers:          ingest.ParseResearchers(ingestResearchers),
		CreatedBy:            ingestCreatedBy,
	}

	var err error

	if req.Start, err = parseFlagTime("start", ingestStart); err != nil {
		return nil, err
	}

	if req.End, err = parseFlagTime("end", ingestEnd); err != nil {
		return nil, err
	}

	return req, nil
}

func parseFlagTime(name, value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return t, fmt.Errorf("invalid --%s: %w", name, err)
	}

	return t, nil
}

// newIngester opens the database and beamline definitions, returning an
// Ingester and a function that closes the database.
func newIngester(dbFlag, beamlinesFlag string) (*ingest.Ingester, func()) {
	registry, err := openRegistry(beamlinesFlag)
	if err != nil {
		die("failed to load beamlines: %s", err)
	}

	db, err := openDB(dbFlag)
	if err != nil {
		die("failed to open database: %s", err)
	}

	return &ingest.Ingester{Registry: registry, Store: db, Logger: appLogger}, func() {
		if errc := db.Close(); errc != nil {
			warn("failed to close database: %s", errc)
		}
	}
}

// ingestStreams ingests directly, or via the archive if one was configured.
func ingestStreams(ingester *ingest.Ingester, req *ingest.Request,
	metamanR, sample io.Reader) (*ingest.Outcome, error) {
	ctx := context.Background()

	path := flagOrEnv(ingestArchive, envArchive)
	if path == "" {
		return ingester.Ingest(ctx, req, metamanR, sample)
	}

	a, err := archive.Open(path)
	if err != nil {
		return nil, err
	}

	defer a.Close()

	entry, err := a.Put(req, metamanR, sample)
	if err != nil {
		return nil, err
	}

	info("archived as %s", entry.ID)

	return replayEntry(ctx, ingester, a, entry)
}

// replayEntry ingests the archived streams of the given entry and records the
// outcome against it.
func replayEntry(ctx context.Context, ingester *ingest.Ingester, a *archive.Archive,
	entry *archive.Entry) (*ingest.Outcome, error) {
	metamanR, sample, closeFn, err := a.Streams(entry.ID)
	if err != nil {
		return nil, err
	}

	out, err := ingester.Ingest(ctx, entry.Request, metamanR, sample)
	if errc := closeFn(); errc != nil {
		err = multierror.Append(err, errc)
	}

	if _, errr := a.Record(entry.ID, out, err); errr != nil {
		warn("failed to record outcome of %s: %s", entry.ID, errr)
	}

	return out, err
}

func printOutcome(out *ingest.Outcome) {
	action := "created"
	if out.Update {
		action = "updated"
	}

	cliPrint("experiment %d %s: %d datasets, %d files\n",
		out.ExperimentID, action, out.Datasets, out.Datafiles)
}
