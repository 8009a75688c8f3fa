// Package metrics 提供 EcomInsight 的 Prometheus 监控指标
package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "ecom_insight"

// 计算指标
var (
	// ComputationDuration 派生表计算耗时
	ComputationDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "computation_duration_seconds",
			Help:      "派生表计算耗时(秒)",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5},
		},
		[]string{"table"},
	)

	// ComputationErrors 计算错误数
	ComputationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "computation_errors_total",
			Help:      "计算错误总数",
		},
		[]string{"table", "kind"}, // kind: DATA_ERROR, COMPUTATION_ERROR, OTHER
	)
)

// 数据集指标
var (
	// DatasetRows 当前快照行数
	DatasetRows = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_rows",
			Help:      "当前数据快照行数",
		},
		[]string{"dataset"}, // orders, locations
	)

	// DatasetReloads 数据集重新加载次数
	DatasetReloads = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "dataset_reloads_total",
			Help:      "数据集重新加载次数",
		},
		[]string{"result"}, // success, failed
	)

	// DatasetLastLoad 最后一次成功加载时间
	DatasetLastLoad = promauto.NewGauge(
		prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "dataset_last_load_timestamp",
			Help:      "最后一次成功加载的时间戳",
		},
	)
)

// 报表指标
var (
	// ReportExports 报表导出次数
	ReportExports = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "report_exports_total",
			Help:      "报表导出次数",
		},
		[]string{"trigger", "result"}, // trigger: cron, cli, http
	)

	// HTTPRequests 看板请求数
	HTTPRequests = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "看板 HTTP 请求总数",
		},
		[]string{"route", "status"},
	)
)

// RecordComputation 记录一次计算，kind 为空表示成功
func RecordComputation(table, kind string, durationSeconds float64) {
	ComputationDuration.WithLabelValues(table).Observe(durationSeconds)
	if kind != "" {
		ComputationErrors.WithLabelValues(table, kind).Inc()
	}
}

// RecordReload 记录一次数据集加载
func RecordReload(ok bool, orders, locations int, timestamp float64) {
	if !ok {
		DatasetReloads.WithLabelValues("failed").Inc()
		return
	}
	DatasetReloads.WithLabelValues("success").Inc()
	DatasetRows.WithLabelValues("orders").Set(float64(orders))
	DatasetRows.WithLabelValues("locations").Set(float64(locations))
	DatasetLastLoad.Set(timestamp)
}

// RecordExport 记录一次报表导出
func RecordExport(trigger string, ok bool) {
	result := "success"
	if !ok {
		result = "failed"
	}
	ReportExports.WithLabelValues(trigger, result).Inc()
}

// RecordHTTPRequest 记录一次看板请求，route 使用模板路径
func RecordHTTPRequest(route string, status int) {
	HTTPRequests.WithLabelValues(route, strconv.Itoa(status)).Inc()
}
