package metrics

import (
	"testing"
	"time"

	"bankcards/internal/services/card"
	"bankcards/internal/services/notification"
	"bankcards/internal/services/transfer"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

var (
	_ transfer.MetricsCollector     = (*PrometheusCollector)(nil)
	_ card.MetricsCollector         = (*PrometheusCollector)(nil)
	_ notification.MetricsCollector = (*PrometheusCollector)(nil)
)

func TestPrometheusCollector(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewPrometheusCollector(reg)

	c.RecordTransfer("success", 20*time.Millisecond)
	c.RecordTransfer("success", 10*time.Millisecond)
	c.RecordTransfer("insufficient_funds", time.Millisecond)
	c.RecordTransferVolume(100.5)
	c.RecordCardOperation("block", "success")
	c.RecordEvent(notification.ResultPublished)

	assert.Equal(t, 2.0, testutil.ToFloat64(c.transfers.WithLabelValues("success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.transfers.WithLabelValues("insufficient_funds")))
	assert.Equal(t, 100.5, testutil.ToFloat64(c.transferVolume))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.cardOperations.WithLabelValues("block", "success")))
	assert.Equal(t, 1.0, testutil.ToFloat64(c.events.WithLabelValues("published")))

	count, err := testutil.GatherAndCount(reg, "bankcards_transfer_duration_seconds")
	assert.NoError(t, err)
	assert.Equal(t, 2, count)
}
