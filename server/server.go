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

// Package server provides the HTTP endpoint that MetaMan uploads are
// registered through.
package server

import (
	"context"
	"errors"
	"io"
	"mime/multipart"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hashicorp/go-multierror"
	"github.com/inconshreveable/log15"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/wtsi-hgi/metaman/archive"
	"github.com/wtsi-hgi/metaman/beamline"
	"github.com/wtsi-hgi/metaman/ingest"
	"github.com/wtsi-hgi/metaman/internal/logs"
)

// Error is the type of the constant Err* variables.
type Error string

// Error returns a string version of the error.
func (e Error) Error() string { return string(e) }

const (
	ErrNoMetaMan = Error("metaman file is required")
	ErrNoEPN     = Error("epn is required")
	ErrBadTime   = Error("times must be in RFC3339 format")
)

const (
	EndPointRegister  = "/register/metaman"
	EndPointBeamlines = "/beamlines"

	// DefaultMaxUpload is the default limit on the size of a register request
	// body, in bytes.
	DefaultMaxUpload = 256 << 20

	multipartMemory = 32 << 20
	shutdownTimeout = 10 * time.Second
)

// Form field names of register requests.
const (
	FieldMetaMan              = "metaman"
	FieldSample               = "sample"
	FieldBeamline             = "beamline"
	FieldInstrumentURL        = "instrument_url"
	FieldInstrumentScientists = "instrument_scientists"
	FieldEPN                  = "epn"
	FieldProgramID            = "program_id"
	FieldTitle                = "title"
	FieldInstitutionName      = "institution_name"
	FieldDescription          = "description"
	FieldStartTime            = "start_time"
	FieldEndTime              = "end_time"
	FieldExperimentOwner      = "experiment_owner"
	FieldResearchers          = "researchers"
	FieldUsername             = "username"
)

// Server serves the register endpoint.
type Server struct {
	router    *gin.Engine
	srv       *http.Server
	ingester  *ingest.Ingester
	archive   *archive.Archive
	metrics   *metrics
	logger    log15.Logger
	maxUpload int64
}

// New returns a Server that ingests uploads with the given Ingester. Requests
// and failures are logged to logger, which may be nil.
func New(ingester *ingest.Ingester, logger log15.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		router:    gin.New(),
		ingester:  ingester,
		metrics:   newMetrics(),
		logger:    logs.OrDiscard(logger),
		maxUpload: DefaultMaxUpload,
	}

	s.router.Use(s.logRequests, gin.Recovery())
	s.router.POST(EndPointRegister, s.register)
	s.router.GET(EndPointBeamlines, s.getBeamlines)
	s.router.GET(EndPointMetrics, s.metrics.handler())

	return s
}

// SetArchive makes the Server archive every upload before ingesting it.
func (s *Server) SetArchive(a *archive.Archive) {
	s.archive = a
}

// SetMaxUpload sets the largest register request body, in bytes, that will be
// accepted.
func (s *Server) SetMaxUpload(n int64) {
	s.maxUpload = n
}

// Router returns the gin Engine handling our endpoints.
func (s *Server) Router() *gin.Engine {
	return s.router
}

// Start listens on the given address and serves requests until Stop is called.
func (s *Server) Start(addr string) error {
	s.srv = &http.Server{
		Addr:              addr,
		Handler:           s.router,
		ReadHeaderTimeout: time.Minute,
	}

	s.logger.Info("server starting", "addr", addr)

	err := s.srv.ListenAndServe()
	if errors.Is(err, http.ErrServerClosed) {
		return nil
	}

	return err
}

// Stop gracefully stops a Started server.
func (s *Server) Stop() error {
	if s.srv == nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	return s.srv.Shutdown(ctx)
}

func (s *Server) logRequests(c *gin.Context) {
	start := time.Now()

	c.Next()

	s.logger.Debug("request", "method", c.Request.Method, "path", c.Request.URL.Path,
		"status", c.Writer.Status(), "took", time.Since(start))
}

// BeamlineInfo describes a configured beamline.
type BeamlineInfo struct {
	Name           string `json:"name"`
	Strategy       string `json:"strategy"`
	DatafileSchema string `json:"datafile_schema"`
	AccessGroup    string `json:"access_group"`
}

func (s *Server) getBeamlines(c *gin.Context) {
	registry := s.ingester.Registry
	names := registry.Names()
	infos := make([]BeamlineInfo, 0, len(names))

	for _, name := range names {
		bc, err := registry.Lookup(name)
		if err != nil {
			c.AbortWithError(http.StatusInternalServerError, err) //nolint:errcheck

			return
		}

		infos = append(infos, BeamlineInfo{
			Name:           bc.Name,
			Strategy:       bc.Strategy.String(),
			DatafileSchema: bc.DatafileSchema,
			AccessGroup:    bc.AccessGroup,
		})
	}

	c.IndentedJSON(http.StatusOK, infos)
}

func (s *Server) register(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, s.maxUpload)

	req, err := parseRequest(c)
	if err != nil {
		s.logger.Warn("bad register request", "err", err)
		s.metrics.ingestions.WithLabelValues(outcomeRejected).Inc()
		c.AbortWithError(http.StatusBadRequest, err) //nolint:errcheck

		return
	}

	logger := s.logger.New("epn", req.EPN)
	logger.Info("ingestion request")

	timer := prometheus.NewTimer(s.metrics.duration)

	out, err := s.ingestUpload(c, req, logger)

	timer.ObserveDuration()

	if err != nil {
		logger.Error("ingestion failed", "err", err)
		s.metrics.ingestions.WithLabelValues(outcomeFailed).Inc()
		c.AbortWithStatus(http.StatusInternalServerError)

		return
	}

	s.recordOutcome(out)

	logger.Info("ingestion finished", "experiment", out.ExperimentID, "update", out.Update,
		"datasets", out.Datasets, "datafiles", out.Datafiles)
	c.String(http.StatusOK, strconv.FormatInt(out.ExperimentID, 10))
}

func (s *Server) recordOutcome(out *ingest.Outcome) {
	outcome := outcomeCreated
	if out.Update {
		outcome = outcomeUpdated
	}

	s.metrics.ingestions.WithLabelValues(outcome).Inc()
	s.metrics.datafiles.Add(float64(out.Datafiles))
}

func parseRequest(c *gin.Context) (*ingest.Request, error) {
	if err := c.Request.ParseMultipartForm(multipartMemory); err != nil {
		return nil, err
	}

	req := &ingest.Request{
		Beamlines:            ingest.ParseList(c.PostForm(FieldBeamline)),
		InstrumentURLs:       ingest.ParseList(c.PostForm(FieldInstrumentURL)),
		InstrumentScientists: ingest.ParseList(c.PostForm(FieldInstrumentScientists)),
		EPN:                  strings.TrimSpace(c.PostForm(FieldEPN)),
		ProgramID:            c.PostForm(FieldProgramID),
		Title:                c.PostForm(FieldTitle),
		InstitutionName:      c.PostForm(FieldInstitutionName),
		Description:          c.PostForm(FieldDescription),
		Owner:                c.PostForm(FieldExperimentOwner),
		Researchers:          ingest.ParseResearchers(c.PostForm(FieldResearchers)),
		CreatedBy:            c.PostForm(FieldUsername),
	}

	if req.EPN == "" {
		return nil, ErrNoEPN
	}

	var err error

	if req.Start, err = parseTime(c.PostForm(FieldStartTime)); err != nil {
		return nil, err
	}

	if req.End, err = parseTime(c.PostForm(FieldEndTime)); err != nil {
		return nil, err
	}

	if _, ok := c.Request.MultipartForm.File[FieldMetaMan]; !ok {
		return nil, ErrNoMetaMan
	}

	return req, nil
}

func parseTime(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, nil
	}

	t, err := time.Parse(time.RFC3339, value)
	if err != nil {
		return t, ErrBadTime
	}

	return t, nil
}

func (s *Server) ingestUpload(c *gin.Context, req *ingest.Request,
	logger log15.Logger) (out *ingest.Outcome, err error) {
	metaman, sample, err := openUploads(c)
	if err != nil {
		return nil, err
	}

	defer func() {
		if errc := closeUploads(metaman, sample); errc != nil {
			err = multierror.Append(err, errc)
		}
	}()

	mm, ss := io.Reader(metaman), io.Reader(nil)
	if sample != nil {
		ss = sample
	}

	if s.archive == nil {
		return s.ingester.Ingest(c.Request.Context(), req, mm, ss)
	}

	return s.ingestArchived(c.Request.Context(), req, mm, ss, logger)
}

func (s *Server) ingestArchived(ctx context.Context, req *ingest.Request, mm, ss io.Reader,
	logger log15.Logger) (*ingest.Outcome, error) {
	entry, err := s.archive.Put(req, mm, ss)
	if err != nil {
		return nil, err
	}

	logger.Debug("upload archived", "id", entry.ID, "size", entry.MetaManSize)

	mm, ss, closeFn, err := s.archive.Streams(entry.ID)
	if err != nil {
		return nil, err
	}

	out, err := s.ingester.Ingest(ctx, req, mm, ss)
	if errc := closeFn(); errc != nil {
		err = multierror.Append(err, errc)
	}

	if _, errr := s.archive.Record(entry.ID, out, err); errr != nil {
		logger.Warn("failed to record ingestion in archive", "id", entry.ID, "err", errr)
	}

	return out, err
}

func openUploads(c *gin.Context) (multipart.File, multipart.File, error) {
	mh, err := c.FormFile(FieldMetaMan)
	if err != nil {
		return nil, nil, err
	}

	metaman, err := mh.Open()
	if err != nil {
		return nil, nil, err
	}

	sh, err := c.FormFile(FieldSample)
	if errors.Is(err, http.ErrMissingFile) {
		return metaman, nil, nil
	} else if err != nil {
		return nil, nil, multierror.Append(err, metaman.Close())
	}

	sample, err := sh.Open()
	if err != nil {
		return nil, nil, multierror.Append(err, metaman.Close())
	}

	return metaman, sample, nil
}

func closeUploads(files ...multipart.File) error {
	var merr *multierror.Error

	for _, f := range files {
		if f == nil {
			continue
		}

		if err := f.Close(); err != nil {
			merr = multierror.Append(merr, err)
		}
	}

	return merr.ErrorOrNil()
}
