package jobmetrics

import (
	"errors"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/require"
)

func TestTrackerRecordsOutcome(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())

	require.NoError(t, m.Track("gl_integrity").End(nil))
	boom := errors.New("boom")
	require.ErrorIs(t, m.Track("gl_integrity").End(boom), boom)

	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gl_integrity", "success")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.runs.WithLabelValues("gl_integrity", "failure")))
	require.Equal(t, 1.0, testutil.ToFloat64(m.failures.WithLabelValues("gl_integrity")))
	require.Positive(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("gl_integrity")))
}

func TestLastSuccessOnlyMovesOnSuccess(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	_ = m.Track("gl_integrity").End(errors.New("boom"))
	require.Zero(t, testutil.ToFloat64(m.lastSuccess.WithLabelValues("gl_integrity")))
}

func TestAddFindingsIgnoresEmpty(t *testing.T) {
	m := NewMetrics(prometheus.NewRegistry())
	m.AddFindings("unbalanced_journal", "1", 0)
	m.AddFindings("unbalanced_journal", "1", 2)
	require.Equal(t, 2.0, testutil.ToFloat64(m.findings.WithLabelValues("unbalanced_journal", "1")))

	var nilMetrics *Metrics
	nilMetrics.AddFindings("x", "1", 1)
	require.NoError(t, nilMetrics.Track("x").End(nil))
}
