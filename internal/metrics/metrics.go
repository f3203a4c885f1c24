// ABOUTME: Prometheus collector for refill scheduler and sink statistics
// ABOUTME: Snapshots counters on every scrape and serves them over HTTP
package metrics

import (
	"context"
	"errors"
	"log"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/Resonate-Protocol/alpipe-go/pkg/playback"
)

const namespace = "alpipe"

// StatsSource is satisfied by *playback.Tracker.
type StatsSource interface {
	Stats() playback.Stats
}

// SinkStats is satisfied by every sink backed by an output.Queue.
type SinkStats interface {
	Underruns() uint64
	SamplesPlayed() uint64
}

// Collector exports tracker and sink counters. Values are read at scrape
// time so nothing needs to be pushed from the hot path.
type Collector struct {
	tracker StatsSource
	sinks   map[string]SinkStats

	ticks           *prometheus.Desc
	buffersFilled   *prometheus.Desc
	samplesUploaded *prometheus.Desc
	finished        *prometheus.Desc
	refillErrors    *prometheus.Desc
	tracked         *prometheus.Desc
	underruns       *prometheus.Desc
	samplesPlayed   *prometheus.Desc
}

// NewCollector builds a collector. sinks maps a label (usually the player
// id) to its sink; it may be nil.
func NewCollector(tracker StatsSource, sinks map[string]SinkStats) *Collector {
	desc := func(name, help string, labels ...string) *prometheus.Desc {
		return prometheus.NewDesc(prometheus.BuildFQName(namespace, "", name), help, labels, nil)
	}
	return &Collector{
		tracker:         tracker,
		sinks:           sinks,
		ticks:           desc("tracker_ticks_total", "Refill passes run by the tracker"),
		buffersFilled:   desc("tracker_buffers_filled_total", "Hardware buffers uploaded and queued"),
		samplesUploaded: desc("tracker_samples_uploaded_total", "Samples uploaded to sinks"),
		finished:        desc("tracker_finished_total", "Streams that played to completion"),
		refillErrors:    desc("tracker_refill_errors_total", "Refill passes halted by a sink or stream error"),
		tracked:         desc("tracker_tracked_players", "Players currently registered with the tracker"),
		underruns:       desc("sink_underruns_total", "Device reads that found no queued data", "player"),
		samplesPlayed:   desc("sink_samples_played_total", "Samples handed to the device", "player"),
	}
}

// Describe implements prometheus.Collector.
func (c *Collector) Describe(ch chan<- *prometheus.Desc) {
	ch <- c.ticks
	ch <- c.buffersFilled
	ch <- c.samplesUploaded
	ch <- c.finished
	ch <- c.refillErrors
	ch <- c.tracked
	ch <- c.underruns
	ch <- c.samplesPlayed
}

// Collect implements prometheus.Collector.
func (c *Collector) Collect(ch chan<- prometheus.Metric) {
	if c.tracker != nil {
		s := c.tracker.Stats()
		ch <- prometheus.MustNewConstMetric(c.ticks, prometheus.CounterValue, float64(s.Ticks))
		ch <- prometheus.MustNewConstMetric(c.buffersFilled, prometheus.CounterValue, float64(s.BuffersFilled))
		ch <- prometheus.MustNewConstMetric(c.samplesUploaded, prometheus.CounterValue, float64(s.SamplesUploaded))
		ch <- prometheus.MustNewConstMetric(c.finished, prometheus.CounterValue, float64(s.Finished))
		ch <- prometheus.MustNewConstMetric(c.refillErrors, prometheus.CounterValue, float64(s.Errors))
		ch <- prometheus.MustNewConstMetric(c.tracked, prometheus.GaugeValue, float64(s.Tracked))
	}
	for label, sink := range c.sinks {
		ch <- prometheus.MustNewConstMetric(c.underruns, prometheus.CounterValue, float64(sink.Underruns()), label)
		ch <- prometheus.MustNewConstMetric(c.samplesPlayed, prometheus.CounterValue, float64(sink.SamplesPlayed()), label)
	}
}

// Register creates a collector and registers it on reg.
func Register(reg prometheus.Registerer, tracker StatsSource, sinks map[string]SinkStats) (*Collector, error) {
	c := NewCollector(tracker, sinks)
	if err := reg.Register(c); err != nil {
		return nil, err
	}
	return c, nil
}

// Serve exposes reg on addr at /metrics until ctx is cancelled.
func Serve(ctx context.Context, addr string, reg *prometheus.Registry) error {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.HandlerFor(reg, promhttp.HandlerOpts{Registry: reg}))

	srv := &http.Server{
		Addr:              addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = srv.Shutdown(shutdownCtx)
	}()

	log.Printf("Serving metrics on %s/metrics", addr)
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}
