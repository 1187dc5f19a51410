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

// Package metaman parses the text exports written by MetaMan, in which the
// metadata of each file is printed as a block:
//
//	<b>Wombat/Data/WBT0001.hdf</b>:
//	File Size : 1024 bytes
//	sample_name : RunA
//	Wavelength : 2.41 Angstrom
//
// Blocks are separated by blank lines.
package metaman

import (
	"bufio"
	"io"
	"strings"

	"github.com/inconshreveable/log15"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/internal/kv"
	"github.com/wtsi-hgi/metaman/internal/logs"
)

const (
	markerStart = "<b>"
	markerEnd   = "</b>:"

	// MaxLineLength is the longest line, in bytes, an export may contain.
	MaxLineLength = 1024 * 1024
)

// Parser reads Datafiles from a MetaMan export.
type Parser struct {
	scanner  *bufio.Scanner
	registry *beamline.Registry
	selected map[string]bool
	logger   log15.Logger
	lineNum  int
	current  *Datafile
	done     *Datafile
	error    error
}

// NewParser returns a Parser that reads MetaMan output from r.
//
// Only blocks for files of the given beamlines, whose basenames are accepted
// by that beamline's Config in the registry, result in a Datafile. Beamlines
// not in the registry are ignored. Problems with individual lines are logged
// to logger, which may be nil.
func NewParser(r io.Reader, registry *beamline.Registry, beamlines []string, logger log15.Logger) *Parser {
	scanner := bufio.NewScanner(r)
	scanner.Buffer(make([]byte, 0, bufio.MaxScanTokenSize), MaxLineLength)

	selected := make(map[string]bool, len(beamlines))
	for _, name := range registry.Filter(beamlines) {
		selected[name] = true
	}

	return &Parser{
		scanner:  scanner,
		registry: registry,
		selected: selected,
		logger:   logs.OrDiscard(logger),
	}
}

// Scan reads until the next accepted file block has been completely read,
// which is then available through the Datafile method.
//
// It returns false when the scan stops, either by reaching the end of the
// input or an error. After Scan returns false, the Err method will return any
// error that occurred during reading, except that if it was io.EOF, Err will
// return nil.
func (p *Parser) Scan() bool {
	p.done = nil

	for p.done == nil {
		if !p.scanner.Scan() {
			p.error = p.scanner.Err()
			p.closeBlock()

			return p.done != nil
		}

		p.lineNum++
		p.parseLine(strings.TrimSuffix(p.scanner.Text(), "\r"))
	}

	return true
}

func (p *Parser) parseLine(line string) {
	switch {
	case isMarker(line):
		p.closeBlock()
		p.openBlock(strings.TrimPrefix(line[len(markerStart):len(line)-len(markerEnd)], "/"))
	case line == "":
		p.closeBlock()
	case p.current != nil:
		p.addMetadata(line)
	}
}

func isMarker(line string) bool {
	return len(line) >= len(markerStart)+len(markerEnd) &&
		strings.HasPrefix(line, markerStart) && strings.HasSuffix(line, markerEnd)
}

func (p *Parser) closeBlock() {
	if p.current != nil {
		p.done = p.current
		p.current = nil
	}
}

func (p *Parser) openBlock(path string) {
	name := (&Datafile{Path: path}).Beamline()

	if !p.selected[name] {
		p.logger.Debug("skipping datafile from unselected beamline", "path", path, "beamline", name)

		return
	}

	c, err := p.registry.Lookup(name)
	if err != nil || !c.Accepts(path) {
		p.logger.Debug("skipping datafile of unaccepted type", "path", path)

		return
	}

	p.current = NewDatafile(path)
}

func (p *Parser) addMetadata(line string) {
	key, value, ok := kv.Split(line)
	if !ok {
		p.logger.Warn("malformed metadata line", "path", p.current.Path, "line", p.lineNum, "text", line)

		return
	}

	if err := p.current.Add(key, value); err != nil {
		p.logger.Warn("bad metadata value", "path", p.current.Path, "line", p.lineNum, "key", key, "err", err)
	}
}

// Datafile returns the Datafile read by the last successful call to Scan.
func (p *Parser) Datafile() *Datafile {
	return p.done
}

// Err returns the first non-EOF error that was encountered, available after
// Scan() returns false.
func (p *Parser) Err() error {
	return p.error
}

// Parse reads all accepted Datafiles from r, in the order their blocks appear.
// See NewParser for the meaning of the other arguments.
func Parse(r io.Reader, registry *beamline.Registry, beamlines []string, logger log15.Logger) ([]*Datafile, error) {
	p := NewParser(r, registry, beamlines, logger)

	var files []*Datafile

	for p.Scan() {
		files = append(files, p.Datafile())
	}

	return files, p.Err()
}
