package ses

// VDM metric types from AWS SES used by the platform reputation check.
// SES VDM exposes no reject metric, so rejects are always reported as zero.
const (
	MetricSend            = "SEND"
	MetricPermanentBounce = "PERMANENT_BOUNCE"
	MetricTransientBounce = "TRANSIENT_BOUNCE"
	MetricComplaint       = "COMPLAINT"
)

// statisticsMetrics returns the metrics queried for send statistics.
func statisticsMetrics() []string {
	return []string{
		MetricSend,
		MetricPermanentBounce,
		MetricTransientBounce,
		MetricComplaint,
	}
}

// containsMetric checks if the query ID ends with the metric name.
func containsMetric(id, metric string) bool {
	return len(id) >= len(metric) && id[len(id)-len(metric):] == metric
}
