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

// Package archive keeps the raw uploads received for ingestion, compressed,
// along with a record of how their ingestion went, so that they can be
// inspected and replayed later.
package archive

import (
	"bytes"
	"io"
	"sort"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/go-multierror"
	"github.com/klauspost/pgzip"
	"github.com/ugorji/go/codec"
	"github.com/wtsi-hgi/metaman/ingest"
	bolt "go.etcd.io/bbolt"
)

// Error is the type of the constant Err* variables.
type Error string

// Error returns a string version of the error.
func (e Error) Error() string { return string(e) }

const ErrNotFound = Error("archive entry not found")

const (
	dbOpenMode = 0600

	entriesBucket = "entries"
	metamanBucket = "metaman"
	sampleBucket  = "sample"
)

// Entry describes an archived upload.
type Entry struct {
	ID       string
	EPN      string
	Received time.Time
	Request  *ingest.Request

	// MetaManSize and SampleSize are the uncompressed sizes of the uploaded
	// streams. HasSample is false if no sample sheet was uploaded.
	MetaManSize int64
	SampleSize  int64
	HasSample   bool

	// Ingested is the time of the most recent ingestion attempt.
	Ingested     time.Time
	ExperimentID int64
	Update       bool
	Datasets     int
	Datafiles    int
	Failed       bool
	Error        string
}

// Archive is a bolt database of uploads.
type Archive struct {
	db *bolt.DB
	ch codec.Handle
}

// Open opens, creating if necessary, the archive database at the given path.
func Open(path string) (*Archive, error) {
	db, err := bolt.Open(path, dbOpenMode, &bolt.Options{
		Timeout:      time.Second,
		FreelistType: bolt.FreelistMapType,
	})
	if err != nil {
		return nil, err
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range [...]string{entriesBucket, metamanBucket, sampleBucket} {
			if _, errc := tx.CreateBucketIfNotExists([]byte(bucket)); errc != nil {
				return errc
			}
		}

		return nil
	})
	if err != nil {
		return nil, multierror.Append(err, db.Close())
	}

	return &Archive{db: db, ch: new(codec.BincHandle)}, nil
}

// Put archives the given request and its streams (sample may be nil) under a
// new ID, and returns the Entry describing them.
func (a *Archive) Put(req *ingest.Request, metaman, sample io.Reader) (*Entry, error) {
	entry := &Entry{
		ID:       uuid.NewString(),
		EPN:      req.EPN,
		Received: time.Now(),
		Request:  req,
	}

	mm, n, err := compress(metaman)
	if err != nil {
		return nil, err
	}

	entry.MetaManSize = n

	var ss []byte

	if sample != nil {
		if ss, entry.SampleSize, err = compress(sample); err != nil {
			return nil, err
		}

		entry.HasSample = true
	}

	err = a.db.Update(func(tx *bolt.Tx) error {
		key := []byte(entry.ID)

		if errp := tx.Bucket([]byte(metamanBucket)).Put(key, mm); errp != nil {
			return errp
		}

		if ss != nil {
			if errp := tx.Bucket([]byte(sampleBucket)).Put(key, ss); errp != nil {
				return errp
			}
		}

		return a.putEntry(tx, entry)
	})

	return entry, err
}

func compress(r io.Reader) ([]byte, int64, error) {
	var buf bytes.Buffer

	w := pgzip.NewWriter(&buf)

	n, err := io.Copy(w, r)
	if err != nil {
		return nil, 0, multierror.Append(err, w.Close())
	}

	if err = w.Close(); err != nil {
		return nil, 0, err
	}

	return buf.Bytes(), n, nil
}

func (a *Archive) putEntry(tx *bolt.Tx, entry *Entry) error {
	var encoded []byte

	if err := codec.NewEncoderBytes(&encoded, a.ch).Encode(entry); err != nil {
		return err
	}

	return tx.Bucket([]byte(entriesBucket)).Put([]byte(entry.ID), encoded)
}

func (a *Archive) getEntry(tx *bolt.Tx, id string) (*Entry, error) {
	v := tx.Bucket([]byte(entriesBucket)).Get([]byte(id))
	if v == nil {
		return nil, ErrNotFound
	}

	return a.decode(v)
}

func (a *Archive) decode(v []byte) (*Entry, error) {
	entry := new(Entry)

	if err := codec.NewDecoderBytes(v, a.ch).Decode(entry); err != nil {
		return nil, err
	}

	return entry, nil
}

// Record notes the result of ingesting the entry with the given ID: either
// its Outcome, or the error it failed with.
func (a *Archive) Record(id string, outcome *ingest.Outcome, ingestErr error) (*Entry, error) {
	var entry *Entry

	err := a.db.Update(func(tx *bolt.Tx) error {
		var errg error

		if entry, errg = a.getEntry(tx, id); errg != nil {
			return errg
		}

		entry.Ingested = time.Now()
		entry.Failed = ingestErr != nil
		entry.Error = ""

		if ingestErr != nil {
			entry.Error = ingestErr.Error()
		}

		if outcome != nil {
			entry.ExperimentID = outcome.ExperimentID
			entry.Update = outcome.Update
			entry.Datasets = outcome.Datasets
			entry.Datafiles = outcome.Datafiles
		}

		return a.putEntry(tx, entry)
	})

	return entry, err
}

// Get returns the Entry with the given ID.
func (a *Archive) Get(id string) (*Entry, error) {
	var entry *Entry

	err := a.db.View(func(tx *bolt.Tx) error {
		var errg error

		entry, errg = a.getEntry(tx, id)

		return errg
	})

	return entry, err
}

// List returns every Entry, oldest first.
func (a *Archive) List() ([]*Entry, error) {
	var entries []*Entry

	err := a.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(entriesBucket)).ForEach(func(_, v []byte) error {
			entry, err := a.decode(v)
			if err != nil {
				return err
			}

			entries = append(entries, entry)

			return nil
		})
	})

	sort.Slice(entries, func(i, j int) bool {
		return entries[i].Received.Before(entries[j].Received)
	})

	return entries, err
}

// Streams returns readers of the uncompressed MetaMan export and sample sheet
// archived for the entry with the given ID, and a function that must be called
// to release them once done, whether or not they were read. The sample reader
// is nil if no sample sheet was uploaded.
func (a *Archive) Streams(id string) (io.Reader, io.Reader, func() error, error) {
	var mm, ss []byte

	err := a.db.View(func(tx *bolt.Tx) error {
		v := tx.Bucket([]byte(metamanBucket)).Get([]byte(id))
		if v == nil {
			return ErrNotFound
		}

		mm = bytes.Clone(v)

		if v = tx.Bucket([]byte(sampleBucket)).Get([]byte(id)); v != nil {
			ss = bytes.Clone(v)
		}

		return nil
	})
	if err != nil {
		return nil, nil, nil, err
	}

	metaman, err := pgzip.NewReader(bytes.NewReader(mm))
	if err != nil {
		return nil, nil, nil, err
	}

	if ss == nil {
		return metaman, nil, metaman.Close, nil
	}

	sample, err := pgzip.NewReader(bytes.NewReader(ss))
	if err != nil {
		return nil, nil, nil, multierror.Append(err, metaman.Close())
	}

	closeFn := func() error {
		var merr *multierror.Error

		if errc := metaman.Close(); errc != nil {
			merr = multierror.Append(merr, errc)
		}

		if errc := sample.Close(); errc != nil {
			merr = multierror.Append(merr, errc)
		}

		return merr.ErrorOrNil()
	}

	return metaman, sample, closeFn, nil
}

// Close closes the database.
func (a *Archive) Close() error {
	return a.db.Close()
}
