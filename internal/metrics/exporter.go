// Package metrics exposes the monitor's readings and the process's runtime
// memory statistics as Prometheus metrics.
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

// Source is the reading surface the exporter scrapes. *perfmon.Monitor
// satisfies it.
type Source interface {
	GlobalCPUUtilization() float64
	ProcessCPUUtilization() float64
	CPUCoreUtilization() []float64
	GPUEngineNames() []string
	GPUEngineUtilization(key string) float64
	GPUDedicatedMemoryBytes() uint64
	GPUSharedMemoryBytes() uint64
}

var (
	descCPU = prometheus.NewDesc(
		"perfmon_cpu_utilization_percent",
		"CPU utilization percentage by scope.",
		[]string{"scope"}, nil,
	)
	descCore = prometheus.NewDesc(
		"perfmon_cpu_core_utilization_percent",
		"Per-core CPU utilization percentage.",
		[]string{"core"}, nil,
	)
	descEngine = prometheus.NewDesc(
		"perfmon_gpu_engine_utilization_percent",
		"Process GPU utilization percentage by engine type.",
		[]string{"engine"}, nil,
	)
	descGPUMemory = prometheus.NewDesc(
		"perfmon_gpu_memory_bytes",
		"Process GPU memory usage in bytes by kind.",
		[]string{"kind"}, nil,
	)
)

// Exporter is a prometheus.Collector reading the latest published sampling
// round on every scrape. Scrapes never block the sampling loop.
type Exporter struct {
	source Source
}

// NewExporter creates an exporter over the given source.
func NewExporter(source Source) *Exporter {
	return &Exporter{source: source}
}

// Describe implements prometheus.Collector.
func (e *Exporter) Describe(ch chan<- *prometheus.Desc) {
	ch <- descCPU
	ch <- descCore
	ch <- descEngine
	ch <- descGPUMemory
}

// Collect implements prometheus.Collector.
func (e *Exporter) Collect(ch chan<- prometheus.Metric) {
	ch <- prometheus.MustNewConstMetric(descCPU, prometheus.GaugeValue,
		e.source.GlobalCPUUtilization(), "global")
	ch <- prometheus.MustNewConstMetric(descCPU, prometheus.GaugeValue,
		e.source.ProcessCPUUtilization(), "process")

	for i, v := range e.source.CPUCoreUtilization() {
		ch <- prometheus.MustNewConstMetric(descCore, prometheus.GaugeValue,
			v, strconv.Itoa(i))
	}
	for _, name := range e.source.GPUEngineNames() {
		ch <- prometheus.MustNewConstMetric(descEngine, prometheus.GaugeValue,
			e.source.GPUEngineUtilization(name), name)
	}

	ch <- prometheus.MustNewConstMetric(descGPUMemory, prometheus.GaugeValue,
		float64(e.source.GPUDedicatedMemoryBytes()), "dedicated")
	ch <- prometheus.MustNewConstMetric(descGPUMemory, prometheus.GaugeValue,
		float64(e.source.GPUSharedMemoryBytes()), "shared")
}
