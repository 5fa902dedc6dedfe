// Package metrics provides a lightweight run-metrics recorder for campaign
// workflows. Counters and timings accumulate during a run and flush as a
// single structured JSON line, so one log line summarises the whole
// campaign: model calls, cache hits, fallbacks, and elapsed times.
package metrics

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"sync"
	"time"
)

// Metric units.
const (
	UnitMilliseconds = "Milliseconds"
	UnitCount        = "Count"
	UnitBytes        = "Bytes"
	UnitNone         = "None"
)

// metricDef holds the name and unit for a single metric.
type metricDef struct {
	Name string `json:"name"`
	Unit string `json:"unit"`
}

// Recorder accumulates dimensions, metrics, and properties for a single
// campaign run. It is safe for concurrent use — per-post visual tasks
// record into the shared run recorder.
type Recorder struct {
	mu         sync.Mutex
	namespace  string
	out        io.Writer
	dimensions map[string]string
	metrics    map[string]metricDef
	values     map[string]float64
	properties map[string]any
}

// New creates a Recorder with the given namespace, writing to stdout.
func New(namespace string) *Recorder {
	return NewWithWriter(namespace, os.Stdout)
}

// NewWithWriter creates a Recorder flushing to the given writer.
func NewWithWriter(namespace string, out io.Writer) *Recorder {
	return &Recorder{
		namespace:  namespace,
		out:        out,
		dimensions: make(map[string]string),
		metrics:    make(map[string]metricDef),
		values:     make(map[string]float64),
		properties: make(map[string]any),
	}
}

// Dimension adds a dimension key-value pair (e.g. campaignId).
func (r *Recorder) Dimension(key, value string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dimensions[key] = value
	return r
}

// Metric records a named metric value with a unit, replacing any prior value.
func (r *Recorder) Metric(name string, value float64, unit string) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[name] = metricDef{Name: name, Unit: unit}
	r.values[name] = value
	return r
}

// Add increments a count metric by delta, creating it at zero if absent.
func (r *Recorder) Add(name string, delta float64) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.metrics[name] = metricDef{Name: name, Unit: UnitCount}
	r.values[name] += delta
	return r
}

// Count increments a count metric by one.
func (r *Recorder) Count(name string) *Recorder {
	return r.Add(name, 1)
}

// Timing records a duration metric in milliseconds.
func (r *Recorder) Timing(name string, d time.Duration) *Recorder {
	return r.Metric(name, float64(d.Milliseconds()), UnitMilliseconds)
}

// Property adds a non-metric field to the flushed document.
func (r *Recorder) Property(key string, value any) *Recorder {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.properties[key] = value
	return r
}

// Value returns the current value of a metric, zero if unrecorded.
func (r *Recorder) Value(name string) float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.values[name]
}

// Flush serializes the run document as a single JSON line. After flushing,
// the Recorder should not be reused.
func (r *Recorder) Flush() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if len(r.metrics) == 0 {
		return
	}

	doc := map[string]any{
		"namespace": r.namespace,
		"timestamp": time.Now().UnixMilli(),
	}
	for k, v := range r.dimensions {
		doc[k] = v
	}
	for k, v := range r.values {
		doc[k] = v
	}
	for k, v := range r.properties {
		doc[k] = v
	}

	data, err := json.Marshal(doc)
	if err != nil {
		fmt.Fprintf(os.Stderr, "metrics: failed to marshal run document: %v\n", err)
		return
	}

	fmt.Fprintln(r.out, string(data))
}
