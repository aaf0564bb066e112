package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	dto "github.com/prometheus/client_model/go"
)

func TestMustRegisterDoesNotPanic(t *testing.T) {
	reg := prometheus.NewRegistry()
	c := NewCollector()
	assert.NotPanics(t, func() { c.MustRegister(reg) })
}

func TestDispatchTotalIncrementsByMethodAndOutcome(t *testing.T) {
	c := NewCollector()
	c.DispatchTotal.WithLabelValues("sessions.switch", "ok").Inc()
	c.DispatchTotal.WithLabelValues("sessions.switch", "ok").Inc()
	c.DispatchTotal.WithLabelValues("sessions.switch", "error").Inc()

	m := &dto.Metric{}
	_ = c.DispatchTotal.WithLabelValues("sessions.switch", "ok").(prometheus.Metric).Write(m)
	assert.Equal(t, float64(2), m.GetCounter().GetValue())
}

func TestPendingInvokesGaugeTracksSetValue(t *testing.T) {
	c := NewCollector()
	c.PendingInvokes.Set(3)
	m := &dto.Metric{}
	_ = c.PendingInvokes.Write(m)
	assert.Equal(t, float64(3), m.GetGauge().GetValue())
}
