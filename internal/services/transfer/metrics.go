package transfer

import "time"

// NoopMetricsCollector is a no-op implementation of MetricsCollector
type NoopMetricsCollector struct{}

func (n *NoopMetricsCollector) RecordTransfer(string, time.Duration) {}
func (n *NoopMetricsCollector) RecordTransferVolume(float64)         {}
