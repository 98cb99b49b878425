package metrics

import (
	"fmt"

	dto "github.com/prometheus/client_model/go"

	"github.com/engagestory/engagestory/pkg/types"
)

// Summary is the JSON view of the registry served at /api/v1/stats.
type Summary struct {
	Live           int64   `json:"live"`
	Simulated      int64   `json:"simulated"`
	Superseded     int64   `json:"superseded"`
	InternalFaults int64   `json:"internal_faults"`
	RemoteAttempts int64   `json:"remote_attempts"`
	LiveRatio      float64 `json:"live_ratio"`
	Generation     uint64  `json:"generation"`
}

// Summary gathers the registry and folds the service metrics into a Summary.
func (r *Recorder) Summary() (Summary, error) {
	families, err := r.reg.Gather()
	if err != nil {
		return Summary{}, fmt.Errorf("metrics: gather: %w", err)
	}
	mfs := make(map[string]*dto.MetricFamily, len(families))
	for _, mf := range families {
		mfs[mf.GetName()] = mf
	}

	s := Summary{
		Live:           int64(sumFamily(mfs[PredictionsTotal], "source", string(types.SourceLive))),
		Simulated:      int64(sumFamily(mfs[PredictionsTotal], "source", string(types.SourceSimulated))),
		Superseded:     int64(sumFamily(mfs[SupersededTotal], "", "")),
		InternalFaults: int64(sumFamily(mfs[InternalFaultsTotal], "", "")),
		RemoteAttempts: int64(sumFamily(mfs[RemoteLatency], "", "")),
		Generation:     uint64(sumFamily(mfs[Generation], "", "")),
	}
	if total := s.Live + s.Simulated; total > 0 {
		s.LiveRatio = float64(s.Live) / float64(total)
	}
	return s, nil
}

// sumFamily adds up counter, gauge, untyped and histogram-count values in a
// MetricFamily. When label is non-empty only series with label=value count.
// Returns 0 if mf is nil (metric not present).
func sumFamily(mf *dto.MetricFamily, label, value string) float64 {
	if mf == nil {
		return 0
	}
	var total float64
	for _, m := range mf.GetMetric() {
		if label != "" && !hasLabel(m, label, value) {
			continue
		}
		switch {
		case m.Counter != nil:
			total += m.Counter.GetValue()
		case m.Gauge != nil:
			total += m.Gauge.GetValue()
		case m.Untyped != nil:
			total += m.Untyped.GetValue()
		case m.Histogram != nil:
			total += float64(m.Histogram.GetSampleCount())
		}
	}
	return total
}

func hasLabel(m *dto.Metric, name, value string) bool {
	for _, lp := range m.GetLabel() {
		if lp.GetName() == name {
			return lp.GetValue() == value
		}
	}
	return false
}
