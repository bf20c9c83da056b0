// Package metrics は貸出ワークフローの Prometheus カウンタ。
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Recorder は nil でも呼べる（テストでは未設定のまま使う）
type Recorder struct {
	reg         *prometheus.Registry
	transitions *prometheus.CounterVec
	stockRefuse *prometheus.CounterVec
	violations  *prometheus.CounterVec
	submitted   prometheus.Counter
}

func New() *Recorder {
	r := &Recorder{
		reg: prometheus.NewRegistry(),
		transitions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lab",
			Name:      "request_transitions_total",
			Help:      "Request status transitions by action and resulting status.",
		}, []string{"action", "to"}),
		stockRefuse: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lab",
			Name:      "stock_refusals_total",
			Help:      "Requests refused or auto-rejected for insufficient stock, by stage.",
		}, []string{"stage"}),
		violations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "lab",
			Name:      "inventory_violations_total",
			Help:      "Inventory counter adjustments that had to be clamped or recomputed.",
		}, []string{"op"}),
		submitted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "lab",
			Name:      "batches_submitted_total",
			Help:      "Request batches accepted at submission.",
		}),
	}
	r.reg.MustRegister(
		r.transitions, r.stockRefuse, r.violations, r.submitted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return r
}

func (r *Recorder) Transition(action, to string, n int) {
	if r == nil || n <= 0 {
		return
	}
	r.transitions.WithLabelValues(action, to).Add(float64(n))
}

func (r *Recorder) StockRefused(stage string) {
	if r == nil {
		return
	}
	r.stockRefuse.WithLabelValues(stage).Inc()
}

func (r *Recorder) Violation(op string) {
	if r == nil {
		return
	}
	r.violations.WithLabelValues(op).Inc()
}

func (r *Recorder) BatchSubmitted() {
	if r == nil {
		return
	}
	r.submitted.Inc()
}

// Handler は /metrics 用
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.reg, promhttp.HandlerOpts{Registry: r.reg})
}

// Gatherer はテストでの値確認用
func (r *Recorder) Gatherer() prometheus.Gatherer { return r.reg }
