// Package lattice provides constraint solving over abstract domains.
// This file exposes solver statistics as Prometheus metrics, for embedders
// that solve continuously and scrape their processes.
package lattice

import "github.com/prometheus/client_golang/prometheus"

var (
	nodesDesc = prometheus.NewDesc(
		"golattice_search_nodes_total",
		"Search tree steps performed.",
		nil, nil)
	solutionsDesc = prometheus.NewDesc(
		"golattice_solutions_total",
		"Solutions recorded.",
		nil, nil)
	backtracksDesc = prometheus.NewDesc(
		"golattice_backtracks_total",
		"Search tree steps that reduced the depth.",
		nil, nil)
	failuresDesc = prometheus.NewDesc(
		"golattice_failures_total",
		"Propagations that made the current node inconsistent.",
		nil, nil)
	peakDepthDesc = prometheus.NewDesc(
		"golattice_peak_depth",
		"Deepest node visited.",
		nil, nil)
)

// StatsCollector exposes a solver's Statistics as Prometheus metrics.
// Register it with a prometheus.Registerer; Collect reads the counters
// through Solver.Stats, which is safe while the solver runs.
type StatsCollector struct {
	solver *Solver
}

// NewStatsCollector creates a collector over the solver.
func NewStatsCollector(solver *Solver) *StatsCollector {
	return &StatsCollector{solver: solver}
}

// Describe implements prometheus.Collector.
func (c *StatsCollector) Describe(ch chan<- *prometheus.Desc) {
	ch <- nodesDesc
	ch <- solutionsDesc
	ch <- backtracksDesc
	ch <- failuresDesc
	ch <- peakDepthDesc
}

// Collect implements prometheus.Collector.
func (c *StatsCollector) Collect(ch chan<- prometheus.Metric) {
	stats := c.solver.Stats()
	ch <- prometheus.MustNewConstMetric(nodesDesc, prometheus.CounterValue, float64(stats.Nodes))
	ch <- prometheus.MustNewConstMetric(solutionsDesc, prometheus.CounterValue, float64(stats.Solutions))
	ch <- prometheus.MustNewConstMetric(backtracksDesc, prometheus.CounterValue, float64(stats.Backtracks))
	ch <- prometheus.MustNewConstMetric(failuresDesc, prometheus.CounterValue, float64(stats.Failures))
	ch <- prometheus.MustNewConstMetric(peakDepthDesc, prometheus.GaugeValue, float64(stats.PeakDepth))
}
