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
package beamline

import (
	"errors"
	"regexp"
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
)

func TestRegistry(t *testing.T) {
	Convey("Given the default registry", t, func() {
		r := Default()

		Convey("you can look up beamlines by their case-sensitive name", func() {
			c, err := r.Lookup("Wombat")
			So(err, ShouldBeNil)
			So(c.Name, ShouldEqual, "Wombat")
			So(c.DatafileSchema, ShouldEqual, "http://www.tardis.edu.au/schemas/ansto/wbt/2011/06/21")
			So(c.AccessGroup, ShouldEqual, "BEAMLINE_WBT")
			So(c.Strategy, ShouldResemble, SampleName{})
			So(c.Metadata, ShouldBeNil)

			_, err = r.Lookup("wombat")
			So(err, ShouldEqual, ErrUnknownBeamline)

			_, err = r.Lookup("Bilby")
			So(err, ShouldEqual, ErrUnknownBeamline)
		})

		Convey("Names lists every beamline in sorted order", func() {
			So(r.Names(), ShouldResemble, []string{"Echidna", "Kowari", "Platypus", "Quokka", "Wombat"})
		})

		Convey("Filter drops unknown and repeated names but keeps order", func() {
			So(r.Filter([]string{"Wombat", "Bilby", "Echidna", "Wombat", ""}),
				ShouldResemble, []string{"Wombat", "Echidna"})
			So(r.Filter(nil), ShouldBeEmpty)
		})

		Convey("Accepts matches file types case-insensitively against the basename only", func() {
			c, err := r.Lookup("Quokka")
			So(err, ShouldBeNil)

			So(c.Accepts("Quokka/Data/QKK0001.hdf"), ShouldBeTrue)
			So(c.Accepts("Quokka/Data/QKK0001.HDF"), ShouldBeTrue)
			So(c.Accepts("Quokka/Reports/summary.Pdf"), ShouldBeTrue)
			So(c.Accepts("Quokka/Data/QKK0001.tif"), ShouldBeFalse)
			So(c.Accepts("Quokka/file.hdf/QKK0001.txt"), ShouldBeFalse)
			So(c.Accepts("Quokka/Data/QKK0001.hdf.bak"), ShouldBeFalse)
		})
	})

	Convey("New rejects", t, func() {
		good := func() *Config {
			return &Config{
				Name:      "Bilby",
				FileTypes: regexp.MustCompile(`.*`),
				Strategy:  NoGrouping{},
			}
		}

		Convey("duplicate names", func() {
			_, err := New(good(), good())
			So(errors.Is(err, ErrDuplicate), ShouldBeTrue)
		})

		Convey("incomplete configs", func() {
			c := good()
			c.Name = ""
			_, err := New(c)
			So(err, ShouldEqual, ErrNoName)

			c = good()
			c.FileTypes = nil
			_, err = New(c)
			So(err, ShouldEqual, ErrNoFileTypes)

			c = good()
			c.Strategy = nil
			_, err = New(c)
			So(err, ShouldEqual, ErrNoStrategy)
		})
	})

	Convey("IsDatasetMetadata uses the optional metadata pattern", t, func() {
		md, err := CompilePattern(`dataset_.*\.txt$`)
		So(err, ShouldBeNil)

		c := &Config{Name: "Bilby", FileTypes: regexp.MustCompile(`.*`), Strategy: NoGrouping{}, Metadata: md}
		So(c.IsDatasetMetadata("Bilby/run1/Dataset_info.TXT"), ShouldBeTrue)
		So(c.IsDatasetMetadata("Bilby/dataset_info.txt/run1.hdf"), ShouldBeFalse)

		c.Metadata = nil
		So(c.IsDatasetMetadata("Bilby/run1/dataset_info.txt"), ShouldBeFalse)
	})
}

func TestParseStrategy(t *testing.T) {
	Convey("ParseStrategy understands current and legacy names", t, func() {
		s, err := ParseStrategy("file-suffix-split", "_")
		So(err, ShouldBeNil)
		So(s, ShouldResemble, FileSuffix{Separator: "_"})

		s, err = ParseStrategy("file", ".")
		So(err, ShouldBeNil)
		So(s, ShouldResemble, FileSuffix{Separator: "."})

		s, err = ParseStrategy("path-segment", "1")
		So(err, ShouldBeNil)
		So(s, ShouldResemble, PathSegment{Index: 1})

		s, err = ParseStrategy("directory", " 2 ")
		So(err, ShouldBeNil)
		So(s, ShouldResemble, PathSegment{Index: 2})

		s, err = ParseStrategy("sample", "")
		So(err, ShouldBeNil)
		So(s, ShouldResemble, SampleName{})

		s, err = ParseStrategy("none", "ignored")
		So(err, ShouldBeNil)
		So(s, ShouldResemble, NoGrouping{})
		So(s.String(), ShouldEqual, "none")

		Convey("and rejects bad input", func() {
			_, err = ParseStrategy("file-suffix-split", "")
			So(err, ShouldEqual, ErrBadStrategyParam)

			_, err = ParseStrategy("path-segment", "-1")
			So(err, ShouldEqual, ErrBadStrategyParam)

			_, err = ParseStrategy("path-segment", "x")
			So(err, ShouldEqual, ErrBadStrategyParam)

			_, err = ParseStrategy("by-colour", "")
			So(err, ShouldEqual, ErrBadStrategy)
		})
	})
}

func TestParseTSV(t *testing.T) {
	Convey("Given tab separated beamline definitions", t, func() {
		data := "# custom instruments\n" +
			"group\tname\tfiletypes\tstrategy\tparameter\tmetadata\tschema\n" +
			"BEAMLINE_BLB\tBilby\t.*\\.nx\\.hdf$\tfile-suffix-split\t_\t\thttp://example.com/blb\n" +
			"\n" +
			"BEAMLINE_TPN\tTaipan\t.*\\.hdf$\tpath-segment\t1\tmeta.*\\.txt$\thttp://example.com/tpn\n"

		Convey("ParseTSV returns a registry of them", func() {
			r, err := ParseTSV(strings.NewReader(data))
			So(err, ShouldBeNil)
			So(r.Names(), ShouldResemble, []string{"Bilby", "Taipan"})

			c, err := r.Lookup("Bilby")
			So(err, ShouldBeNil)
			So(c.Strategy, ShouldResemble, FileSuffix{Separator: "_"})
			So(c.Metadata, ShouldBeNil)
			So(c.AccessGroup, ShouldEqual, "BEAMLINE_BLB")
			So(c.DatafileSchema, ShouldEqual, "http://example.com/blb")
			So(c.Accepts("Bilby/x/BLB0001.NX.HDF"), ShouldBeTrue)
			So(c.Accepts("Bilby/x/BLB0001.hdf"), ShouldBeFalse)

			c, err = r.Lookup("Taipan")
			So(err, ShouldBeNil)
			So(c.Strategy, ShouldResemble, PathSegment{Index: 1})
			So(c.IsDatasetMetadata("Taipan/x/metadata.txt"), ShouldBeTrue)
		})

		Convey("missing headers are reported", func() {
			_, err := ParseTSV(strings.NewReader("name\tfiletypes\n"))
			So(errors.Is(err, ErrHeaderNotFound), ShouldBeTrue)

			_, err = ParseTSV(strings.NewReader(""))
			So(err, ShouldNotBeNil)
		})

		Convey("bad rows are reported with the beamline name", func() {
			bad := "name\tfiletypes\tstrategy\tparameter\tmetadata\tschema\tgroup\n" +
				"Bilby\t.*\tpath-segment\tx\t\ts\tg\n"

			_, err := ParseTSV(strings.NewReader(bad))
			So(errors.Is(err, ErrBadStrategyParam), ShouldBeTrue)
			So(err.Error(), ShouldContainSubstring, "Bilby")

			short := "name\tfiletypes\tstrategy\tparameter\tmetadata\tschema\tgroup\nBilby\t.*\n"

			_, err = ParseTSV(strings.NewReader(short))
			So(errors.Is(err, ErrTooFewColumns), ShouldBeTrue)
		})
	})
}
