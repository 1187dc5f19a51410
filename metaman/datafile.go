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
package metaman

import (
	"path"
	"strconv"
	"strings"
)

const (
	sizeKey    = "File Size"
	sizeSuffix = " bytes"

	// Protocol is the transfer protocol recorded for every datafile.
	Protocol = "vbl"
)

var keyReplacer = strings.NewReplacer(" ", "", "/", "") //nolint:gochecknoglobals

// Datafile holds the metadata parsed from a single file block.
type Datafile struct {
	// Path is the file's path as given in the export, without any leading
	// '/'. Its first segment is the beamline name.
	Path string

	// Size is taken from the "File Size" line, in bytes.
	Size int64

	Params
}

// NewDatafile returns an empty Datafile for the given path.
func NewDatafile(path string) *Datafile {
	return &Datafile{Path: path}
}

// Add records a key and value from the file's block. The "File Size" key sets
// Size and is not kept as metadata; all other keys are normalised by
// NormaliseKey and may be repeated.
//
// Returns an error only if a "File Size" value is not a number of bytes.
func (d *Datafile) Add(key, value string) error {
	if key == sizeKey {
		size, err := strconv.ParseInt(strings.TrimSpace(strings.ReplaceAll(value, sizeSuffix, "")), 10, 64)
		if err != nil {
			return err
		}

		d.Size = size

		return nil
	}

	d.Params.Add(NormaliseKey(key), value)

	return nil
}

// HasMetadata returns true if any metadata besides the size was recorded.
func (d *Datafile) HasMetadata() bool {
	return d.Len() > 0
}

// Beamline returns the first segment of our Path.
func (d *Datafile) Beamline() string {
	beamline, _, _ := strings.Cut(d.Path, "/")

	return beamline
}

// Basename returns the last segment of our Path.
func (d *Datafile) Basename() string {
	return path.Base(d.Path)
}

// URL returns the location recorded for this file in the repository.
func (d *Datafile) URL() string {
	return Protocol + "://" + d.Path
}

// NormaliseKey removes spaces and slashes from a metadata key, so that it can
// be matched against parameter names in a schema.
func NormaliseKey(key string) string {
	return keyReplacer.Replace(key)
}
