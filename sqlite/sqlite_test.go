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
package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	. "github.com/smartystreets/goconvey/convey"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/ingest"
	internaltest "github.com/wtsi-hgi/metaman/internal/test"
	"github.com/wtsi-hgi/metaman/schema"
)

func openTestDB(t *testing.T, register bool) *DB {
	t.Helper()

	logger, _ := internaltest.NewLogger()

	db, err := Open(filepath.Join(t.TempDir(), "metaman.db"), logger)
	So(err, ShouldBeNil)

	if !register {
		return db
	}

	schemas, err := schema.ParseTSV(strings.NewReader(internaltest.Schemas))
	So(err, ShouldBeNil)

	for _, s := range schemas {
		So(db.RegisterSchema(context.Background(), s), ShouldBeNil)
	}

	return db
}

func testRequest() *ingest.Request {
	return &ingest.Request{
		Beamlines:            []string{"Wombat"},
		InstrumentURLs:       []string{"http://wombat"},
		InstrumentScientists: []string{"Alice"},
		EPN:                  internaltest.EPN,
		Title:                "Powder",
		Start:                time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC),
		Owner:                "Owner",
		Researchers:          []string{"R1"},
	}
}

func TestDB(t *testing.T) {
	ctx := context.Background()

	Convey("Given a database with registered schemas", t, func() {
		db := openTestDB(t, true)

		defer func() {
			So(db.Close(), ShouldBeNil)
		}()

		i := &ingest.Ingester{Registry: beamline.Default(), Store: db}

		ingestFixture := func() (*ingest.Outcome, error) {
			return i.Ingest(ctx, testRequest(), strings.NewReader(internaltest.MetaMan),
				strings.NewReader(internaltest.SampleSheet))
		}

		Convey("schemas can be registered again", func() {
			s, err := schema.New(beamline.DatasetSchema, &schema.Name{Name: "sample_name", FullName: "Sample name"})
			So(err, ShouldBeNil)
			So(db.RegisterSchema(ctx, s), ShouldBeNil)
		})

		Convey("an ingestion is stored", func() {
			out, err := ingestFixture()
			So(err, ShouldBeNil)
			So(out.Update, ShouldBeFalse)

			exp, err := db.Experiment(ctx, internaltest.EPN)
			So(err, ShouldBeNil)
			So(exp.ID, ShouldEqual, out.ExperimentID)
			So(exp.Title, ShouldEqual, "Powder")
			So(exp.Start.Equal(time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)), ShouldBeTrue)
			So(exp.End.IsZero(), ShouldBeTrue)

			authors, err := db.Authors(ctx, exp.ID)
			So(err, ShouldBeNil)
			So(authors, ShouldResemble, []string{"Owner", "R1"})

			datasets, err := db.Datasets(ctx, exp.ID)
			So(err, ShouldBeNil)
			So(len(datasets), ShouldEqual, 2)
			So(datasets[0].Description, ShouldEqual, "RunA")
			So(datasets[1].Description, ShouldEqual, "Log Books")

			files, err := db.Datafiles(ctx, datasets[0].ID)
			So(err, ShouldBeNil)
			So(len(files), ShouldEqual, 2)
			So(files[0].Filename, ShouldEqual, "WBT0001.hdf")
			So(files[0].URL, ShouldEqual, "vbl://Wombat/RunA/WBT0001.hdf")
			So(files[0].Size, ShouldEqual, 2048)
			So(files[0].Protocol, ShouldEqual, "vbl")

			Convey("with values classified by their schema", func() {
				params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerDatafile, ID: files[0].ID})
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 4)

				So(params[0].Name, ShouldEqual, "sample_name")
				So(params[0].String.String, ShouldEqual, "RunA")
				So(params[0].Numeric.Valid, ShouldBeFalse)

				So(params[1].Name, ShouldEqual, "wavelength")
				So(params[1].String.Valid, ShouldBeFalse)
				So(params[1].Numeric.Float64, ShouldEqual, 2.41)

				So(params[2].Numeric.Float64, ShouldEqual, 10)
				So(params[3].Numeric.Float64, ShouldEqual, 12)

				params, err = db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerDatafile, ID: files[1].ID})
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 2)
				So(params[1].Name, ShouldEqual, "Temperature")
				So(params[1].Numeric.Float64, ShouldEqual, 310)

				params, err = db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerDataset, ID: datasets[0].ID})
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 1)
				So(params[0].Schema, ShouldEqual, beamline.DatasetSchema)
			})

			Convey("with experiment, sample and chemical parameter sets", func() {
				params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerExperiment, ID: exp.ID})
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 11)

				So(params[0].Name, ShouldEqual, "EPN")
				So(params[0].String.String, ShouldEqual, internaltest.EPN)
				So(params[1].String.String, ShouldEqual,
					"https://neutron.ansto.gov.au/Bragg/proposal/ProposalView.jsp?id=1234")

				sets := make(map[int64]bool)

				for _, p := range params {
					sets[p.Set] = true
				}

				So(len(sets), ShouldEqual, 4)
				So(params[5].Schema, ShouldEqual, beamline.SampleSchema)
				So(params[7].Schema, ShouldEqual, beamline.ChemicalSchema)
				So(params[10].Name, ShouldEqual, "Mass")
				So(params[10].String.String, ShouldEqual, "2 mg")
			})

			Convey("with access grants", func() {
				acls, err := db.ACLs(ctx, exp.ID)
				So(err, ShouldBeNil)
				So(len(acls), ShouldEqual, 3)

				groupName := func(entity string) string {
					id, errp := strconv.ParseInt(entity, 10, 64)
					So(errp, ShouldBeNil)

					name, errg := db.GroupName(ctx, id)
					So(errg, ShouldBeNil)

					return name
				}

				So(groupName(acls[0].Entity), ShouldEqual, "BEAMLINE_WBT")
				So(groupName(acls[2].Entity), ShouldEqual, ingest.AdminGroup)

				acls[0].Entity, acls[2].Entity = "", ""

				So(acls, ShouldResemble, []ingest.ACL{
					{Plugin: ingest.PluginGroup, CanRead: true},
					{Plugin: ingest.PluginVBL, Entity: internaltest.EPN, CanRead: true},
					{Plugin: ingest.PluginGroup, IsOwner: true, CanRead: true},
				})

				_, err = db.GroupName(ctx, 999)
				So(errors.Is(err, ErrGroupNotFound), ShouldBeTrue)
			})

			Convey("and ingesting it again updates it in place", func() {
				out2, err := ingestFixture()
				So(err, ShouldBeNil)
				So(out2.Update, ShouldBeTrue)
				So(out2.ExperimentID, ShouldEqual, out.ExperimentID)

				exps, err := db.Experiments(ctx)
				So(err, ShouldBeNil)
				So(len(exps), ShouldEqual, 1)

				datasets, err := db.Datasets(ctx, exp.ID)
				So(err, ShouldBeNil)
				So(len(datasets), ShouldEqual, 2)

				files, err := db.Datafiles(ctx, datasets[0].ID)
				So(err, ShouldBeNil)
				So(len(files), ShouldEqual, 2)

				params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerExperiment, ID: exp.ID})
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 11)

				params, err = db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerDatafile, ID: files[0].ID})
				So(err, ShouldBeNil)
				So(len(params), ShouldEqual, 4)

				acls, err := db.ACLs(ctx, exp.ID)
				So(err, ShouldBeNil)
				So(len(acls), ShouldEqual, 3)

				authors, err := db.Authors(ctx, exp.ID)
				So(err, ShouldBeNil)
				So(authors, ShouldResemble, []string{"Owner", "R1"})
			})
		})

		Convey("unknown experiments are reported", func() {
			_, err := db.Experiment(ctx, "none")
			So(errors.Is(err, ErrExperimentNotFound), ShouldBeTrue)
		})
	})

	Convey("Without registered schemas, ingestion fails and writes nothing", t, func() {
		db := openTestDB(t, false)

		defer func() {
			So(db.Close(), ShouldBeNil)
		}()

		i := &ingest.Ingester{Registry: beamline.Default(), Store: db}

		_, err := i.Ingest(ctx, testRequest(), strings.NewReader(internaltest.MetaMan), nil)
		So(errors.Is(err, ErrSchemaNotFound), ShouldBeTrue)

		exps, err := db.Experiments(ctx)
		So(err, ShouldBeNil)
		So(exps, ShouldBeEmpty)
	})

	Convey("Given a catalog where sample Mass is numeric", t, func() {
		logger, logs := internaltest.NewLogger()

		db, err := Open(filepath.Join(t.TempDir(), "metaman.db"), logger)
		So(err, ShouldBeNil)

		defer func() {
			So(db.Close(), ShouldBeNil)
		}()

		catalog := strings.Replace(internaltest.Schemas,
			beamline.SampleSchema+"\tMass\tMass\tmg\tstring",
			beamline.SampleSchema+"\tMass\tMass\tmg\tnumeric", 1)
		So(catalog, ShouldNotEqual, internaltest.Schemas)

		schemas, err := schema.ParseTSV(strings.NewReader(catalog))
		So(err, ShouldBeNil)

		for _, sc := range schemas {
			So(db.RegisterSchema(ctx, sc), ShouldBeNil)
		}

		i := &ingest.Ingester{Registry: beamline.Default(), Store: db}

		Convey("sample values that are not numbers are dropped", func() {
			sheet := "SampleDescription : a\nMass : abc\n\nSampleDescription : b\nMass : 5 mg\n"

			out, err := i.Ingest(ctx, testRequest(), strings.NewReader(internaltest.MetaMan),
				strings.NewReader(sheet))
			So(err, ShouldBeNil)

			params, err := db.Parameters(ctx, ingest.Owner{Kind: ingest.OwnerExperiment, ID: out.ExperimentID})
			So(err, ShouldBeNil)

			var sample []Parameter

			for _, p := range params {
				if p.Schema == beamline.SampleSchema {
					sample = append(sample, p)
				}
			}

			So(len(sample), ShouldEqual, 3)
			So(sample[0].Name, ShouldEqual, "SampleDescription")
			So(sample[0].String.String, ShouldEqual, "a")
			So(sample[1].Name, ShouldEqual, "SampleDescription")
			So(sample[1].String.String, ShouldEqual, "b")
			So(sample[2].Name, ShouldEqual, "Mass")
			So(sample[2].String.Valid, ShouldBeFalse)
			So(sample[2].Numeric.Float64, ShouldEqual, 5)

			So(logs.String(), ShouldContainSubstring, "parameter value skipped")
			So(logs.String(), ShouldContainSubstring, "abc")
		})
	})

	Convey("Open fails on an unusable path", t, func() {
		_, err := Open(filepath.Join(t.TempDir(), "missing", "metaman.db"), nil)
		So(err, ShouldNotBeNil)
	})
}
