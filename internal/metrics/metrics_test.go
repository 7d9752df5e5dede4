package metrics

import (
	"errors"
	"math/big"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/require"
)

func value(t *testing.T, metric prometheus.Metric) float64 {
	t.Helper()
	var out dto.Metric
	require.NoError(t, metric.Write(&out))
	if out.Counter != nil {
		return out.GetCounter().GetValue()
	}
	return out.GetGauge().GetValue()
}

func TestRecordSettlement(t *testing.T) {
	m := New("test")
	m.RecordSettlement("1", big.NewInt(1000), big.NewInt(125), big.NewInt(25), true)
	m.RecordSettlement("1", big.NewInt(1000), big.NewInt(125), big.NewInt(25), false)

	require.Equal(t, 2.0, value(t, m.Settlements.WithLabelValues("1")))
	require.Equal(t, 2000.0, value(t, m.Minted.WithLabelValues("pool")))
	require.Equal(t, 250.0, value(t, m.Minted.WithLabelValues("dev")))
	require.Equal(t, 1.0, value(t, m.CapLimitedMints))
}

func TestRecordOperation(t *testing.T) {
	m := New("test")
	m.RecordOperation("deposit", nil)
	m.RecordOperation("deposit", errors.New("boom"))
	m.RecordOperation("deposit", nil)

	require.Equal(t, 2.0, value(t, m.Operations.WithLabelValues("deposit", "ok")))
	require.Equal(t, 1.0, value(t, m.Operations.WithLabelValues("deposit", "error")))
}

func TestNilMetricsIsNoop(t *testing.T) {
	var m *Metrics
	m.RecordSettlement("0", big.NewInt(1), nil, nil, false)
	m.RecordOperation("deposit", nil)
	m.RecordHarvest(big.NewInt(1), big.NewInt(1))
	require.Nil(t, m.Registry())
}

func TestSeparateRegistries(t *testing.T) {
	a := New("test")
	b := New("test")
	a.RecordRewardPaid(big.NewInt(7))
	require.Equal(t, 7.0, value(t, a.RewardsPaid))
	require.Equal(t, 0.0, value(t, b.RewardsPaid))
}
