package stdout

import (
	"bytes"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger_Text(t *testing.T) {
	UseJSON(false)
	var buf bytes.Buffer
	logger := NewLoggerTo(&buf).WithFields(map[string]interface{}{"component": "ledger"})

	logger.Info("progress added", "report_id", "r1", "seq", 2)

	line := buf.String()
	assert.Contains(t, line, "[INFO] progress added")
	assert.Contains(t, line, "| component=ledger report_id=r1 seq=2")
}

func TestLogger_JSON(t *testing.T) {
	UseJSON(true)
	defer UseJSON(false)

	var buf bytes.Buffer
	logger := NewLoggerTo(&buf)

	logger.Error("upload failed", "error", errors.New("boom"), "dangling")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &entry))
	assert.Equal(t, "ERROR", entry["level"])
	assert.Equal(t, "upload failed", entry["message"])
	assert.Equal(t, "boom", entry["error"])
	assert.NotContains(t, entry, "dangling")
}

func TestLogger_WithFieldsDoesNotMutateParent(t *testing.T) {
	UseJSON(false)
	var buf bytes.Buffer
	parent := NewLoggerTo(&buf)
	_ = parent.WithFields(map[string]interface{}{"child": true})

	parent.Info("hello")
	assert.NotContains(t, buf.String(), "child")
}

func TestMetrics_SharedStore(t *testing.T) {
	var buf bytes.Buffer
	m := NewMetricsTo(&buf)
	scoped := m.WithTags(map[string]string{"component": "ledger"})

	scoped.IncrementCounter("ledger.add_progress.success", nil)
	scoped.IncrementCounter("ledger.add_progress.success", nil)
	m.IncrementCounter("ledger.add_progress.success", map[string]string{"component": "other"})
	scoped.RecordHistogram("ledger.add_progress.duration_ms", 12, nil)
	scoped.RecordGauge("ledger.media.count", 3, nil)

	tags := map[string]string{"component": "ledger"}
	assert.Equal(t, int64(2), m.GetCounter("ledger.add_progress.success", tags))
	assert.Equal(t, int64(3), m.CounterTotal("ledger.add_progress.success"))
	assert.Equal(t, []float64{12}, m.GetHistogram("ledger.add_progress.duration_ms", tags))
	assert.Equal(t, 3.0, m.GetGauge("ledger.media.count", tags))
	assert.Contains(t, buf.String(), "[METRIC] COUNTER ledger.add_progress.success=2.00 component=ledger")

	m.Reset()
	assert.Zero(t, m.CounterTotal("ledger.add_progress.success"))
}
