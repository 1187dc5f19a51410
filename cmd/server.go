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
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"github.com/wtsi-hgi/metaman/archive"
	"github.com/wtsi-hgi/metaman/server"
)

// options for this cmd.
var (
	serverDB        string
	serverArchive   string
	serverBeamlines string
	serverBind      string
	serverMaxUpload string
)

// serverCmd represents the server command.
var serverCmd = &cobra.Command{
	Use:   "server",
	Short: "Start the upload server",
	Long: `Start the upload server.

Starts a web server that MetaMan exports can be registered with, by POSTing a
multipart form to /register/metaman. The form must have a 'metaman' file and
an 'epn' field, and may have a 'sample' file and the fields beamline,
instrument_url, instrument_scientists, program_id, title, institution_name,
description, start_time, end_time (RFC3339), experiment_owner, researchers
(separated by " ~ ") and username.

The response is the ID of the created or updated experiment. Bad requests get a
400 response; failed ingestions a 500 response, with details only in the logs.

GET /beamlines lists the configured beamlines as JSON.
GET /metrics serves Prometheus metrics about ingestions.

The server listens on --bind (or METAMAN_ADDR, default :8080) and stores in the
--db (or METAMAN_DB). If --archive (or METAMAN_ARCHIVE) is given, every upload
is kept in that archive database before being ingested.

Request bodies larger than --max_upload (eg. 256M) are rejected.

The server stops gracefully on SIGINT or SIGTERM.`,
	Run: func(_ *cobra.Command, _ []string) {
		ingester, closeFn := newIngester(serverDB, serverBeamlines)
		defer closeFn()

		maxUpload, err := parseSize(serverMaxUpload)
		if err != nil {
			die("%s", err)
		}

		s := server.New(ingester, appLogger)
		s.SetMaxUpload(maxUpload)

		if path := flagOrEnv(serverArchive, envArchive); path != "" {
			a, err := archive.Open(path)
			if err != nil {
				die("failed to open archive: %s", err)
			}

			defer a.Close()

			s.SetArchive(a)
		}

		stopOnSignal(s)

		addr := flagOrEnv(serverBind, envAddr)
		if addr == "" {
			addr = defaultAddr
		}

		if err := s.Start(addr); err != nil {
			die("%s", err)
		}

		info("server stopped")
	},
}

func init() {
	RootCmd.AddCommand(serverCmd)

	serverCmd.Flags().StringVar(&serverDB, "db", "", "path to the database")
	serverCmd.Flags().StringVar(&serverArchive, "archive", "", "path to an archive database")
	serverCmd.Flags().StringVar(&serverBeamlines, "beamlines", "",
		"path to a TSV file of beamline definitions")
	serverCmd.Flags().StringVarP(&serverBind, "bind", "b", "",
		"address to bind to, eg host:port")
	serverCmd.Flags().StringVar(&serverMaxUpload, "max_upload", defaultMaxUpload,
		"largest accepted request body")
}

func stopOnSignal(s *server.Server) {
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, os.Interrupt, syscall.SIGTERM)

	go func() {
		sig := <-sigs
		info("received %s, stopping", sig)

		if err := s.Stop(); err != nil {
			warn("failed to stop server: %s", err)
		}
	}()
}
