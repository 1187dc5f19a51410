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

// Package test holds fixtures and helpers shared by the tests of other
// packages.
package test

import (
	"io/fs"
	"strings"

	"github.com/inconshreveable/log15"
)

// EPN is the experiment identifier used throughout the fixtures.
const EPN = "1234"

// MetaMan is an export with blocks for two Wombat files grouped as "RunA", a
// log book file, a file without metadata, and blocks that should be skipped
// because of their beamline or file type.
const MetaMan = `<b>/Wombat/RunA/WBT0001.hdf</b>:
File Size : 2048 bytes
sample_name : RunA
Wavelength : 2.41 Angstrom
Monitor Counts/sec : 10
Monitor Counts/sec : 12
this line is malformed

<b>Echidna/RunA/ECH0001.hdf</b>:
File Size : 99 bytes
sample_name : RunA

<b>Wombat/RunA/WBT0001.tif</b>:
sample_name : RunA

<b>Wombat/RunA/WBT0002.hdf</b>:
File Size : 4096 bytes
Wavelength : 2.41 Angstrom
Temperature : 310 K
Temperature : abc

<b>Wombat/LogBook2024/notes.pdf</b>:
File Size : 10 bytes
Comment : beam down

<b>Wombat/RunB/WBT0003.hdf</b>:
File Size : 7 bytes
`

// SampleSheet describes one sample with two chemicals.
const SampleSheet = `SampleDescription : powder in can
Mass : 5 mg
ChemicalName : NaCl
Mass : 3 mg

ChemicalName : KCl
Formula :
Mass : 2 mg
`

// Schemas is a parameter catalog covering the experiment wide schemas and
// the Wombat datafile schema, in the format read by schema.ParseTSV.
const Schemas = "namespace\tname\tfull_name\tunits\ttype\n" +
	"http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21\tEPN\tEPN\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21\tpropdb_link\tProposal\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21\tbeamline\tBeamline\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21\tinstrument_url\tInstrument URL\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21\tinstrument_scientists\tScientists\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/experiment/2011/06/21\tprogram_id\tProgram\t\tstring\n" +
	"http://gendsschema.com/\tsample_name\tSample\t\tstring\n" +
	"http://gendsschema.com/\tComment\tComment\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/sample/2011/06/21\tSampleDescription\tDescription\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/sample/2011/06/21\tMass\tMass\tmg\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/chemical/2011/06/21\tChemicalName\tName\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/chemical/2011/06/21\tMass\tMass\tmg\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/wbt/2011/06/21\tsample_name\tSample\t\tstring\n" +
	"http://www.tardis.edu.au/schemas/ansto/wbt/2011/06/21\twavelength\tWavelength\tAngstrom\tnumeric\n" +
	"http://www.tardis.edu.au/schemas/ansto/wbt/2011/06/21\tMonitorCountssec\tMonitor\tcounts/s\tnumeric\n" +
	"http://www.tardis.edu.au/schemas/ansto/wbt/2011/06/21\tTemperature\tTemperature\tK\tnumeric\n" +
	"http://www.tardis.edu.au/schemas/ansto/wbt/2011/06/21\tComment\tComment\t\tstring\n"

// StringBuilder is a strings.Builder that can be used as an io.WriteCloser.
type StringBuilder struct {
	strings.Builder
}

func (*StringBuilder) Close() error {
	return nil
}

// NewLogger returns a log15.Logger that writes logfmt records to the returned
// StringBuilder, at every level.
func NewLogger() (log15.Logger, *StringBuilder) { //nolint:ireturn
	sb := new(StringBuilder)
	l := log15.New()
	l.SetHandler(log15.StreamHandler(sb, log15.LogfmtFormat()))

	return l, sb
}

// BadReader is an io.Reader that always fails.
type BadReader struct{}

func (BadReader) Read([]byte) (int, error) {
	return 0, fs.ErrClosed
}
