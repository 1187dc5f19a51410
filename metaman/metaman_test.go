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
	"strings"
	"testing"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/metaman/beamline"
	internaltest "github.com/wtsi-hgi/metaman/internal/test"
)

func TestParams(t *testing.T) {
	Convey("Params keep keys in insertion order with multiple values", t, func() {
		var p Params

		So(p.Len(), ShouldEqual, 0)

		p.Add("b", "1")
		p.Add("a", "2")
		p.Add("b", "3")

		So(p.Keys(), ShouldResemble, []string{"b", "a"})
		So(p.Len(), ShouldEqual, 2)

		vals, ok := p.Get("b")
		So(ok, ShouldBeTrue)
		So(vals, ShouldResemble, []string{"1", "3"})

		first, ok := p.First("b")
		So(ok, ShouldBeTrue)
		So(first, ShouldEqual, "1")

		_, ok = p.First("c")
		So(ok, ShouldBeFalse)

		p.Set("b", "x")
		vals, _ = p.Get("b")
		So(vals, ShouldResemble, []string{"x"})
		So(p.Keys(), ShouldResemble, []string{"b", "a"})

		var seen []string

		p.Each(func(key string, values []string) {
			seen = append(seen, key+"="+strings.Join(values, ","))
		})

		So(seen, ShouldResemble, []string{"b=x", "a=2"})

		Convey("and a nil Params is empty", func() {
			var np *Params

			So(np.Len(), ShouldEqual, 0)
			So(np.Keys(), ShouldBeNil)

			_, ok := np.Get("a")
			So(ok, ShouldBeFalse)
		})
	})
}

func TestDatafile(t *testing.T) {
	Convey("Given a Datafile", t, func() {
		df := NewDatafile("Wombat/RunA/WBT0001.hdf")

		So(df.Beamline(), ShouldEqual, "Wombat")
		So(df.Basename(), ShouldEqual, "WBT0001.hdf")
		So(df.URL(), ShouldEqual, "vbl://Wombat/RunA/WBT0001.hdf")
		So(df.HasMetadata(), ShouldBeFalse)

		Convey("File Size sets the size and is not kept as metadata", func() {
			So(df.Add("File Size", "2048 bytes"), ShouldBeNil)
			So(df.Size, ShouldEqual, 2048)
			So(df.HasMetadata(), ShouldBeFalse)

			_, ok := df.Get("FileSize")
			So(ok, ShouldBeFalse)

			So(df.Add("File Size", "lots bytes"), ShouldNotBeNil)
			So(df.Size, ShouldEqual, 2048)
		})

		Convey("keys lose their spaces and slashes and may repeat", func() {
			So(df.Add("Monitor Counts/sec", "10"), ShouldBeNil)
			So(df.Add("Monitor Counts/sec", "12"), ShouldBeNil)
			So(df.Add("sample_name", "RunA"), ShouldBeNil)

			So(df.Keys(), ShouldResemble, []string{"MonitorCountssec", "sample_name"})

			vals, ok := df.Get("MonitorCountssec")
			So(ok, ShouldBeTrue)
			So(vals, ShouldResemble, []string{"10", "12"})
			So(df.HasMetadata(), ShouldBeTrue)
		})
	})
}

func TestParser(t *testing.T) {
	registry := beamline.Default()

	Convey("Given a MetaMan export", t, func() {
		logger, logs := internaltest.NewLogger()

		Convey("you get a Datafile for each accepted block of the selected beamlines", func() {
			files, err := Parse(strings.NewReader(internaltest.MetaMan), registry, []string{"Wombat", "Bilby"}, logger)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 4)

			paths := make([]string, len(files))
			for n, f := range files {
				paths[n] = f.Path
			}

			So(paths, ShouldResemble, []string{
				"Wombat/RunA/WBT0001.hdf",
				"Wombat/RunA/WBT0002.hdf",
				"Wombat/LogBook2024/notes.pdf",
				"Wombat/RunB/WBT0003.hdf",
			})

			So(files[0].Size, ShouldEqual, 2048)
			So(files[0].Keys(), ShouldResemble, []string{"sample_name", "Wavelength", "MonitorCountssec"})

			vals, _ := files[0].Get("MonitorCountssec")
			So(vals, ShouldResemble, []string{"10", "12"})

			vals, _ = files[1].Get("Temperature")
			So(vals, ShouldResemble, []string{"310 K", "abc"})

			So(files[3].Size, ShouldEqual, 7)
			So(files[3].HasMetadata(), ShouldBeFalse)

			So(logs.String(), ShouldContainSubstring, "malformed metadata line")
			So(logs.String(), ShouldContainSubstring, "this line is malformed")
		})

		Convey("blocks of beamlines that were not selected are skipped", func() {
			files, err := Parse(strings.NewReader(internaltest.MetaMan), registry, []string{"Echidna"}, logger)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 1)
			So(files[0].Path, ShouldEqual, "Echidna/RunA/ECH0001.hdf")

			files, err = Parse(strings.NewReader(internaltest.MetaMan), registry, []string{"Kowari"}, logger)
			So(err, ShouldBeNil)
			So(files, ShouldBeEmpty)

			files, err = Parse(strings.NewReader(internaltest.MetaMan), registry, nil, logger)
			So(err, ShouldBeNil)
			So(files, ShouldBeEmpty)
		})

		Convey("you can Scan through the Datafiles one at a time", func() {
			p := NewParser(strings.NewReader(internaltest.MetaMan), registry, []string{"Wombat"}, nil)

			So(p.Scan(), ShouldBeTrue)
			So(p.Datafile().Path, ShouldEqual, "Wombat/RunA/WBT0001.hdf")
			So(p.Scan(), ShouldBeTrue)
			So(p.Datafile().Path, ShouldEqual, "Wombat/RunA/WBT0002.hdf")
			So(p.Scan(), ShouldBeTrue)
			So(p.Scan(), ShouldBeTrue)
			So(p.Scan(), ShouldBeFalse)
			So(p.Datafile(), ShouldBeNil)
			So(p.Err(), ShouldBeNil)
		})
	})

	Convey("Block boundaries are found when", t, func() {
		Convey("a marker directly follows another block", func() {
			data := "<b>Wombat/a/1.hdf</b>:\nx : 1\n<b>Wombat/a/2.hdf</b>:\ny : 2\n"

			files, err := Parse(strings.NewReader(data), registry, []string{"Wombat"}, nil)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 2)
			So(files[0].Keys(), ShouldResemble, []string{"x"})
			So(files[1].Keys(), ShouldResemble, []string{"y"})
		})

		Convey("a skipped marker follows an open block, whose lines are then ignored", func() {
			data := "<b>Wombat/a/1.hdf</b>:\nx : 1\n<b>Wombat/a/2.tif</b>:\ny : 2\n"

			files, err := Parse(strings.NewReader(data), registry, []string{"Wombat"}, nil)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 1)
			So(files[0].Keys(), ShouldResemble, []string{"x"})
		})

		Convey("metadata lines appear outside of any block", func() {
			data := "x : 1\n\n<b>Wombat/a/1.hdf</b>:\r\ny : 2\r\n\r\nz : 3\n"

			files, err := Parse(strings.NewReader(data), registry, []string{"Wombat"}, nil)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 1)
			So(files[0].Keys(), ShouldResemble, []string{"y"})
		})

		Convey("the input ends without a blank line", func() {
			files, err := Parse(strings.NewReader("<b>Wombat/a/1.hdf</b>:\nv : a : b"), registry, []string{"Wombat"}, nil)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 1)

			vals, _ := files[0].Get("v")
			So(vals, ShouldResemble, []string{"a : b"})
		})
	})

	Convey("Read errors are returned by Err", t, func() {
		files, err := Parse(internaltest.BadReader{}, registry, []string{"Wombat"}, nil)
		So(err, ShouldNotBeNil)
		So(files, ShouldBeEmpty)
	})
}
