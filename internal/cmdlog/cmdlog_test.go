package cmdlog

import (
	"bytes"
	"errors"
	"os"
	"testing"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"threadgenius/internal/logging"
	"threadgenius/internal/metrics"
)

func TestRunCountsAndLogs(t *testing.T) {
	var buf bytes.Buffer
	logging.SetOutput(&buf)
	t.Cleanup(func() { logging.SetOutput(os.Stdout) })

	runs := testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("cmdlog_test"))
	errs := testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("cmdlog_test"))

	assert.NoError(t, Run("cmdlog_test", func() error { return nil }))
	boom := errors.New("boom")
	assert.ErrorIs(t, Run("cmdlog_test", func() error { return boom }), boom)

	assert.Equal(t, runs+2, testutil.ToFloat64(metrics.CommandRuns.WithLabelValues("cmdlog_test")))
	assert.Equal(t, errs+1, testutil.ToFloat64(metrics.CommandErrors.WithLabelValues("cmdlog_test")))
	assert.Contains(t, buf.String(), `"msg":"cmdlog_test_ok"`)
	assert.Contains(t, buf.String(), `"error":"boom"`)
}
