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
package server

import (
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const EndPointMetrics = "/metrics"

// Outcome labels of the ingestions counter.
const (
	outcomeCreated  = "created"
	outcomeUpdated  = "updated"
	outcomeFailed   = "failed"
	outcomeRejected = "rejected"
)

type metrics struct {
	registry   *prometheus.Registry
	ingestions *prometheus.CounterVec
	duration   prometheus.Histogram
	datafiles  prometheus.Counter
}

func newMetrics() *metrics {
	m := &metrics{
		registry: prometheus.NewRegistry(),
		ingestions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "metaman",
				Name:      "ingestions_total",
				Help:      "Register requests by outcome (created, updated, failed or rejected)",
			},
			[]string{"outcome"},
		),
		duration: prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "metaman",
				Name:      "ingestion_duration_seconds",
				Help:      "Time taken to archive and ingest an upload",
				Buckets:   prometheus.DefBuckets,
			},
		),
		datafiles: prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: "metaman",
				Name:      "datafiles_total",
				Help:      "Datafiles stored by successful ingestions",
			},
		),
	}

	m.registry.MustRegister(m.ingestions, m.duration, m.datafiles)

	return m
}

func (m *metrics) handler() gin.HandlerFunc {
	return gin.WrapH(promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{}))
}
