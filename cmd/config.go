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
	"errors"
	"fmt"
	"io"
	"os"
	"strings"

	"code.cloudfoundry.org/bytefmt"
	"github.com/joho/godotenv"
	"github.com/klauspost/pgzip"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/sqlite"
)

const (
	envDB        = "METAMAN_DB"
	envArchive   = "METAMAN_ARCHIVE"
	envBeamlines = "METAMAN_BEAMLINES"
	envAddr      = "METAMAN_ADDR"

	defaultAddr      = ":8080"
	defaultMaxUpload = "256M"
	gzSuffix         = ".gz"
	stdinPath        = "-"
)

var (
	errDBRequired      = errors.New("database path required (--db or " + envDB + ")")
	errArchiveRequired = errors.New("archive path required (--archive or " + envArchive + ")")
	errEPNRequired     = errors.New("--epn is required")
)

var dotEnvKeys = []string{ //nolint:gochecknoglobals
	envDB,
	envArchive,
	envBeamlines,
	envAddr,
}

func loadDotEnv() {
	orig := originalEnvKeys(dotEnvKeys)

	loadDotEnvFile(".env", orig)
	loadDotEnvFile(".env.local", orig)
}

func originalEnvKeys(keys []string) map[string]struct{} {
	orig := map[string]struct{}{}

	for _, key := range keys {
		if _, ok := os.LookupEnv(key); ok {
			orig[key] = struct{}{}
		}
	}

	return orig
}

// loadDotEnvFile sets our keys from the given file, unless they were set in
// the original environment. Later files override earlier ones.
func loadDotEnvFile(path string, orig map[string]struct{}) {
	env, err := godotenv.Read(path)
	if err != nil {
		return
	}

	for _, key := range dotEnvKeys {
		val, ok := env[key]
		if !ok {
			continue
		}

		if _, ok := orig[key]; ok {
			continue
		}

		_ = os.Setenv(key, val)
	}
}

func flagOrEnv(flagValue string, envKey string) string {
	if v := strings.TrimSpace(flagValue); v != "" {
		return v
	}

	return strings.TrimSpace(os.Getenv(envKey))
}

func requiredFlagOrEnv(flagValue string, envKey string, missing error) (string, error) {
	v := flagOrEnv(flagValue, envKey)
	if v == "" {
		return "", missing
	}

	return v, nil
}

// openRegistry returns the beamlines defined in the TSV file at the given path
// (or the path in METAMAN_BEAMLINES), or the default beamlines if neither is
// set.
func openRegistry(pathFlag string) (*beamline.Registry, error) {
	path := flagOrEnv(pathFlag, envBeamlines)
	if path == "" {
		return beamline.Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}

	defer f.Close()

	r, err := beamline.ParseTSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", path, err)
	}

	return r, nil
}

func openDB(pathFlag string) (*sqlite.DB, error) {
	path, err := requiredFlagOrEnv(pathFlag, envDB, errDBRequired)
	if err != nil {
		return nil, err
	}

	return sqlite.Open(path, appLogger)
}

// openInput opens the file at the given path for reading, decompressing it if
// its name ends in .gz. A path of "-" reads STDIN.
func openInput(path string) (io.Reader, func() error, error) {
	if path == stdinPath {
		return os.Stdin, func() error { return nil }, nil
	}

	fh, err := os.Open(path)
	if err != nil {
		return nil, nil, err
	}

	if !strings.HasSuffix(path, gzSuffix) {
		return fh, fh.Close, nil
	}

	gz, err := pgzip.NewReader(fh)
	if err != nil {
		_ = fh.Close()

		return nil, nil, err
	}

	closeFn := func() error {
		gzErr := gz.Close()
		fhErr := fh.Close()

		return errors.Join(gzErr, fhErr)
	}

	return gz, closeFn, nil
}

func parseSize(size string) (int64, error) {
	n, err := bytefmt.ToBytes(size)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", size, err)
	}

	return int64(n), nil //nolint:gosec
}
