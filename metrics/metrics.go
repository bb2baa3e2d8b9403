// Package metrics wraps armon/go-metrics with the in-memory sink the
// broker and coordinator record produce/fetch latency, fetch bytes-out,
// and rebalance/group-size counters into (SPEC_FULL.md §2.3). No
// external sink is wired; scraping/export is out of scope.
package metrics

import (
	"strconv"
	"time"

	gometrics "github.com/armon/go-metrics"
)

// Registry is a small facade over a process-local go-metrics sink.
type Registry struct {
	sink   *gometrics.InmemSink
	prefix string
}

// New creates a registry retaining 1-minute buckets for 10 minutes,
// labeling every metric under prefix (e.g. "broker", "coordinator").
func New(prefix string) *Registry {
	sink := gometrics.NewInmemSink(time.Minute, 10*time.Minute)
	gometrics.NewGlobal(gometrics.DefaultConfig(prefix), sink)
	return &Registry{sink: sink, prefix: prefix}
}

// ProduceLatency records how long a Produce call took for topic/partition.
func (r *Registry) ProduceLatency(topic string, partition int32, start time.Time) {
	gometrics.MeasureSinceWithLabels([]string{r.prefix, "produce", "latency_ms"}, start,
		[]gometrics.Label{{Name: "topic", Value: topic}, {Name: "partition", Value: partitionLabel(partition)}})
}

// FetchLatency records how long a Fetch call took for topic/partition.
func (r *Registry) FetchLatency(topic string, partition int32, start time.Time) {
	gometrics.MeasureSinceWithLabels([]string{r.prefix, "fetch", "latency_ms"}, start,
		[]gometrics.Label{{Name: "topic", Value: topic}, {Name: "partition", Value: partitionLabel(partition)}})
}

// FetchBytes records the number of payload bytes (record keys plus
// values) returned by a Fetch.
func (r *Registry) FetchBytes(topic string, partition int32, n int) {
	gometrics.AddSampleWithLabels([]string{r.prefix, "fetch", "bytes_out"}, float32(n),
		[]gometrics.Label{{Name: "topic", Value: topic}, {Name: "partition", Value: partitionLabel(partition)}})
}

// RebalanceCount increments the rebalance counter for a group.
func (r *Registry) RebalanceCount(group string) {
	gometrics.IncrCounterWithLabels([]string{r.prefix, "rebalance", "count"}, 1,
		[]gometrics.Label{{Name: "group", Value: group}})
}

// GroupSize records the current member count of a group.
func (r *Registry) GroupSize(group string, size int) {
	gometrics.SetGaugeWithLabels([]string{r.prefix, "group", "size"}, float32(size),
		[]gometrics.Label{{Name: "group", Value: group}})
}

// Snapshot returns the sink's retained intervals of aggregated data for
// in-process inspection. The /healthz handlers do not report it.
func (r *Registry) Snapshot() []gometrics.IntervalMetrics {
	data := r.sink.Data()
	out := make([]gometrics.IntervalMetrics, len(data))
	for i, d := range data {
		out[i] = *d
	}
	return out
}

func partitionLabel(p int32) string {
	return strconv.Itoa(int(p))
}
