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
package samplesheet

import (
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	internaltest "github.com/wtsi-hgi/metaman/internal/test"
	"github.com/wtsi-hgi/metaman/metaman"
)

func TestParse(t *testing.T) {
	Convey("A sample followed by a chemical gives two groupings", t, func() {
		gs, err := Parse(strings.NewReader("SampleDescription : foo\nChemicalName : bar\nMass : 5 mg\n"), nil)
		So(err, ShouldBeNil)
		So(len(gs), ShouldEqual, 2)

		So(gs[0].Kind, ShouldEqual, KindSample)
		So(gs[0].Params.Keys(), ShouldResemble, []string{"SampleDescription"})

		desc, _ := gs[0].Params.First("SampleDescription")
		So(desc, ShouldEqual, "foo")

		So(gs[1].Kind, ShouldEqual, KindChemical)
		So(gs[1].Sample, ShouldEqual, 0)
		So(gs[1].Params.Keys(), ShouldResemble, []string{"ChemicalName", "Mass"})

		mass, _ := gs[1].Params.First("Mass")
		So(mass, ShouldEqual, "5 mg")
	})

	Convey("Given a sheet with several chemicals", t, func() {
		logger, logs := internaltest.NewLogger()

		gs, err := Parse(strings.NewReader(internaltest.SampleSheet+"garbage\n"), logger)
		So(err, ShouldBeNil)

		Convey("values go to the open chemical, or else the sample", func() {
			So(len(gs), ShouldEqual, 3)
			So(gs[0].Kind.String(), ShouldEqual, "sample")
			So(gs[0].Params.Keys(), ShouldResemble, []string{"SampleDescription", "Mass"})

			mass, _ := gs[0].Params.First("Mass")
			So(mass, ShouldEqual, "5 mg")

			So(gs[1].Kind.String(), ShouldEqual, "chemical")
			name, _ := gs[1].Params.First("ChemicalName")
			So(name, ShouldEqual, "NaCl")

			mass, _ = gs[1].Params.First("Mass")
			So(mass, ShouldEqual, "3 mg")
		})

		Convey("empty values are not stored", func() {
			So(gs[2].Params.Keys(), ShouldResemble, []string{"ChemicalName", "Mass"})
		})

		Convey("malformed lines are logged and skipped", func() {
			So(logs.String(), ShouldContainSubstring, "malformed sample sheet line")
		})
	})

	Convey("The first line always opens a sample", t, func() {
		gs, err := Parse(strings.NewReader("Mass : 1 g\nSampleDescription : second\nChemicalName :\nMass : 2 g\n"), nil)
		So(err, ShouldBeNil)
		So(len(gs), ShouldEqual, 3)

		So(gs[0].Kind, ShouldEqual, KindSample)
		So(gs[0].Params.Keys(), ShouldResemble, []string{"Mass"})

		So(gs[1].Kind, ShouldEqual, KindSample)
		So(gs[1].Sample, ShouldEqual, 1)

		So(gs[2].Kind, ShouldEqual, KindChemical)
		So(gs[2].Sample, ShouldEqual, 1)
		So(gs[2].Params.Keys(), ShouldResemble, []string{"Mass"})
	})

	Convey("A ChemicalName on the first line opens a sample and not a chemical", t, func() {
		gs, err := Parse(strings.NewReader("ChemicalName : water\n"), nil)
		So(err, ShouldBeNil)
		So(len(gs), ShouldEqual, 1)
		So(gs[0].Kind, ShouldEqual, KindSample)
		So(gs[0].Params.Keys(), ShouldResemble, []string{"ChemicalName"})
	})

	Convey("Values longer than a default scanner buffer are kept", t, func() {
		long := strings.Repeat("x", 100*1024)

		gs, err := Parse(strings.NewReader("SampleDescription : "+long+"\nMass : 5 mg\n"), nil)
		So(err, ShouldBeNil)
		So(len(gs), ShouldEqual, 1)

		v, ok := gs[0].Params.First("SampleDescription")
		So(ok, ShouldBeTrue)
		So(v, ShouldEqual, long)

		Convey("but lines over the maximum length are an error", func() {
			_, err := Parse(strings.NewReader("SampleDescription : "+
				strings.Repeat("x", metaman.MaxLineLength)+"\n"), nil)
			So(err, ShouldNotBeNil)
		})
	})

	Convey("Empty input gives no groupings", t, func() {
		gs, err := Parse(strings.NewReader("\n\n"), nil)
		So(err, ShouldBeNil)
		So(gs, ShouldBeEmpty)

		_, err = Parse(internaltest.BadReader{}, nil)
		So(err, ShouldNotBeNil)
	})
}
