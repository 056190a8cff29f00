package metrics

import (
	"errors"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestObserveJob(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.ObserveJob("queue", OutcomeOK, time.Second)
	m.ObserveJob("queue", OutcomeOK, time.Second)
	m.ObserveJob("queue", OutcomeSkipped, 0)

	assert.Equal(t, 2.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("queue", OutcomeOK)))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.JobRuns.WithLabelValues("queue", OutcomeSkipped)))
}

func TestObserveQueryCountsErrors(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.ObserveQuery("select", time.Millisecond, nil)
	m.ObserveQuery("select", time.Millisecond, errors.New("boom"))

	assert.Equal(t, 1.0, testutil.ToFloat64(m.DBQueryErrors.WithLabelValues("select")))
}

func TestAddJobEntitiesIgnoresZero(t *testing.T) {
	m := NewWithRegistry("test", prometheus.NewRegistry())

	m.AddJobEntities("alerts", "error", 0)
	m.AddJobEntities("alerts", "ok", 3)

	assert.Equal(t, 3.0, testutil.ToFloat64(m.JobEntities.WithLabelValues("alerts", "ok")))
	assert.Equal(t, 1, testutil.CollectAndCount(m.JobEntities))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	assert.NotPanics(t, func() {
		m.ObserveHTTP("GET", "/", "200", time.Millisecond)
		m.ObserveQuery("select", time.Millisecond, nil)
		m.ObserveJob("queue", OutcomeOK, time.Second)
		m.AddJobEntities("queue", "ok", 1)
		m.ObserveNotification("push", "sent")
	})
}
