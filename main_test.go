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
package main

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	internaltest "github.com/wtsi-hgi/metaman/internal/test"
)

const app = "metaman_test"

func TestMain(m *testing.M) {
	d1 := buildSelf()
	if d1 == nil {
		return
	}

	defer os.Exit(m.Run())
	defer d1()
}

func buildSelf() func() {
	cmd := exec.Command(
		"go", "build",
		"-ldflags=-X github.com/wtsi-hgi/metaman/cmd.Version=TESTVERSION",
		"-o", app,
	)

	cmd.Env = append(os.Environ(), "CGO_ENABLED=1")
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr

	if err := cmd.Run(); err != nil {
		failMainTest(err.Error())

		return nil
	}

	return func() {
		os.Remove(app)
	}
}

func failMainTest(err string) {
	fmt.Println(err) //nolint:forbidigo
}

func TestVersion(t *testing.T) {
	Convey("metaman prints the correct version", t, func() {
		output, stderr, err := runMetaMan("version")
		So(err, ShouldBeNil)
		So(strings.TrimSpace(output), ShouldEqual, "TESTVERSION")
		So(stderr, ShouldBeBlank)
	})
}

func TestBeamlines(t *testing.T) {
	Convey("beamlines lists the built-in beamlines", t, func() {
		output, _, err := runMetaMan("beamlines")
		So(err, ShouldBeNil)

		for _, name := range []string{"Echidna", "Kowari", "Platypus", "Quokka", "Wombat"} {
			So(output, ShouldContainSubstring, name)
		}

		So(output, ShouldContainSubstring, "BEAMLINE_WBT")
	})
}

func TestInspect(t *testing.T) {
	Convey("inspect shows how an export would be grouped", t, func() {
		dir := t.TempDir()
		mmPath := writeFile(t, dir, "metaman.txt", internaltest.MetaMan)

		output, _, err := runMetaMan("inspect", "-b", "Wombat", mmPath)
		So(err, ShouldBeNil)
		So(output, ShouldContainSubstring, "RunA")
		So(output, ShouldContainSubstring, "2 datasets, 3 files")

		Convey("but not for unknown beamlines", func() {
			_, stderr, err := runMetaMan("inspect", "-b", "Unknown", mmPath)
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "no known beamlines")
		})
	})
}

func TestIngest(t *testing.T) {
	Convey("Given registered schemas", t, func() {
		dir := t.TempDir()
		dbPath := filepath.Join(dir, "metaman.db")
		archivePath := filepath.Join(dir, "archive.db")
		mmPath := writeFile(t, dir, "metaman.txt", internaltest.MetaMan)
		samplePath := writeFile(t, dir, "sample.txt", internaltest.SampleSheet)
		schemasPath := writeFile(t, dir, "schemas.tsv", internaltest.Schemas)

		_, stderr, err := runMetaMan("schemas", "--db", dbPath, schemasPath)
		So(err, ShouldBeNil)
		So(stderr, ShouldContainSubstring, "registered 5 schemas")

		ingestArgs := []string{
			"ingest", "--db", dbPath, "--archive", archivePath,
			"-b", "Wombat", "--epn", internaltest.EPN, "--title", "Powder",
			"--start", "2024-01-02T03:04:05Z", "--owner", "Owner",
			"--researchers", "R1 ~ R2", "-s", samplePath, mmPath,
		}

		Convey("an export can be ingested and then updated", func() {
			output, _, err := runMetaMan(ingestArgs...)
			So(err, ShouldBeNil)
			So(output, ShouldEqual, "experiment 1 created: 2 datasets, 3 files\n")

			output, _, err = runMetaMan(ingestArgs...)
			So(err, ShouldBeNil)
			So(output, ShouldEqual, "experiment 1 updated: 2 datasets, 3 files\n")

			Convey("and the uploads are archived", func() {
				output, _, err := runMetaMan("archive", "list", "--archive", archivePath)
				So(err, ShouldBeNil)
				So(strings.Count(output, "updated"), ShouldEqual, 1)
				So(strings.Count(output, "created"), ShouldEqual, 1)

				_, stderr, err := runMetaMan("archive", "replay", "--archive", archivePath,
					"--db", dbPath, "--failed")
				So(err, ShouldBeNil)
				So(stderr, ShouldContainSubstring, "replayed 0 entries, 0 failed")
			})

			Convey("and the stored experiment can be shown", func() {
				output, _, err := runMetaMan("show", "--db", dbPath)
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, internaltest.EPN)
				So(output, ShouldContainSubstring, "Powder")
				So(output, ShouldContainSubstring, "2024-01-02 03:04:05")

				output, _, err = runMetaMan("show", "--db", dbPath, internaltest.EPN)
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "experiment 1: "+internaltest.EPN)
				So(output, ShouldContainSubstring, "authors: Owner, R1, R2")
				So(output, ShouldContainSubstring, "RunA")
				So(output, ShouldContainSubstring, "Log Books")
				So(output, ShouldContainSubstring, "BEAMLINE_WBT")
				So(output, ShouldNotContainSubstring, "WBT0001.hdf")

				output, _, err = runMetaMan("show", "--db", dbPath, "--files", internaltest.EPN)
				So(err, ShouldBeNil)
				So(output, ShouldContainSubstring, "WBT0001.hdf")
				So(output, ShouldContainSubstring, "wavelength=2.41")

				_, stderr, err := runMetaMan("show", "--db", dbPath, "nope")
				So(err, ShouldNotBeNil)
				So(stderr, ShouldContainSubstring, "experiment not found")
			})
		})

		Convey("bad arguments are rejected", func() {
			_, stderr, err := runMetaMan("ingest", "--db", dbPath, "-b", "Wombat", mmPath)
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "--epn is required")

			_, stderr, err = runMetaMan("ingest", "--db", dbPath, "-b", "Wombat",
				"--epn", internaltest.EPN, "--start", "yesterday", mmPath)
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "invalid --start")
		})

		Convey("failed ingestions can be replayed", func() {
			emptyDB := filepath.Join(dir, "empty.db")

			_, stderr, err := runMetaMan(append([]string{"ingest", "--db", emptyDB}, ingestArgs[3:]...)...)
			So(err, ShouldNotBeNil)
			So(stderr, ShouldContainSubstring, "schema not found")

			output, _, err := runMetaMan("archive", "list", "--archive", archivePath)
			So(err, ShouldBeNil)
			So(output, ShouldContainSubstring, "failed")

			output, _, err = runMetaMan("archive", "replay", "--archive", archivePath,
				"--db", dbPath, "--failed")
			So(err, ShouldBeNil)
			So(output, ShouldEqual, "experiment 1 created: 2 datasets, 3 files\n")
		})
	})
}

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()

	path := filepath.Join(dir, name)

	So(os.WriteFile(path, []byte(content), 0600), ShouldBeNil)

	return path
}

func runMetaMan(args ...string) (string, string, error) {
	var stdout, stderr strings.Builder

	cmd := exec.CommandContext(context.Background(), "./"+app, args...)
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr
	cmd.Env = metamanEnv()

	err := cmd.Run()

	return stdout.String(), stderr.String(), err
}

// metamanEnv returns the environment without any METAMAN_ settings.
func metamanEnv() []string {
	env := make([]string, 0, len(os.Environ()))

	for _, kv := range os.Environ() {
		if !strings.HasPrefix(kv, "METAMAN_") {
			env = append(env, kv)
		}
	}

	return env
}
