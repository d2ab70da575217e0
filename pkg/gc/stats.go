package gc

import (
	"fmt"
	"io"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"objsys/pkg/pool"
)

// Stats is the collector's prometheus-backed telemetry: a cycle counter, and
// per size class a live-slot gauge, a swept-slot counter and a block-count
// gauge. Register it with whatever registry the host process exposes on
// /metrics.
type Stats struct {
	cycles     prometheus.Counter
	liveSlots  *prometheus.GaugeVec
	sweptTotal *prometheus.CounterVec
	blocks     *prometheus.GaugeVec
}

// NewStats builds an unregistered Stats. Pass Collectors() to a
// prometheus.Registerer's MustRegister to wire it in.
func NewStats() *Stats {
	return &Stats{
		cycles: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "objsys",
			Subsystem: "gc",
			Name:      "cycles_total",
			Help:      "Number of completed mark-and-sweep collection cycles.",
		}),
		liveSlots: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "objsys",
			Subsystem: "gc",
			Name:      "live_slots",
			Help:      "Allocated, still-reachable slots observed by the most recent sweep, per size class.",
		}, []string{"size_class"}),
		sweptTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "objsys",
			Subsystem: "gc",
			Name:      "swept_slots_total",
			Help:      "Slots destroyed and freed by sweep, per size class.",
		}, []string{"size_class"}),
		blocks: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: "objsys",
			Subsystem: "pool",
			Name:      "blocks",
			Help:      "Growth blocks currently allocated, per size class.",
		}, []string{"size_class"}),
	}
}

// Collectors returns every metric Stats owns, for bulk registration:
// registry.MustRegister(stats.Collectors()...).
func (s *Stats) Collectors() []prometheus.Collector {
	return []prometheus.Collector{s.cycles, s.liveSlots, s.sweptTotal, s.blocks}
}

// WriteText gathers every metric Stats owns through a private registry and
// writes a one-shot plain-text dump of it to w - for a CLI's "stats"
// command or any other caller that wants the numbers without standing up a
// /metrics HTTP endpoint.
func (s *Stats) WriteText(w io.Writer) error {
	reg := prometheus.NewRegistry()
	for _, c := range s.Collectors() {
		if err := reg.Register(c); err != nil {
			return err
		}
	}

	families, err := reg.Gather()
	if err != nil {
		return err
	}
	for _, mf := range families {
		for _, m := range mf.GetMetric() {
			if _, err := fmt.Fprintf(w, "%s%s %s\n", mf.GetName(), formatLabels(m.GetLabel()), formatValue(m)); err != nil {
				return err
			}
		}
	}
	return nil
}

func formatLabels(labels []*dto.LabelPair) string {
	if len(labels) == 0 {
		return ""
	}
	out := ""
	for _, lp := range labels {
		out += fmt.Sprintf("{%s=%q}", lp.GetName(), lp.GetValue())
	}
	return out
}

func formatValue(m *dto.Metric) string {
	switch {
	case m.Counter != nil:
		return strconv.FormatFloat(m.GetCounter().GetValue(), 'g', -1, 64)
	case m.Gauge != nil:
		return strconv.FormatFloat(m.GetGauge().GetValue(), 'g', -1, 64)
	default:
		return ""
	}
}

func (s *Stats) observePool(p *pool.Pool, live, swept int) {
	class := strconv.FormatUint(uint64(p.ElementSize()), 10)
	s.liveSlots.WithLabelValues(class).Set(float64(live))
	if swept > 0 {
		s.sweptTotal.WithLabelValues(class).Add(float64(swept))
	}
	s.blocks.WithLabelValues(class).Set(float64(p.BlockCount()))
}
