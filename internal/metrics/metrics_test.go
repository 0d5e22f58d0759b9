package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
)

func TestMetrics_Record(t *testing.T) {
	m := New()

	m.RecordStoreCreated(true)
	m.RecordStoreCreated(false)
	m.RecordStoreCreated(false)
	m.RecordVerification("verified")

	assert.Equal(t, 1.0, testutil.ToFloat64(m.StoresCreated.WithLabelValues("custom")))
	assert.Equal(t, 2.0, testutil.ToFloat64(m.StoresCreated.WithLabelValues("subdomain")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Verifications.WithLabelValues("verified")))
}

func TestMetrics_IndependentRegistries(t *testing.T) {
	a, b := New(), New()
	a.RecordStoreUpdate("updated")

	assert.Equal(t, 1.0, testutil.ToFloat64(a.StoreUpdates.WithLabelValues("updated")))
	assert.Equal(t, 0.0, testutil.ToFloat64(b.StoreUpdates.WithLabelValues("updated")))
}
