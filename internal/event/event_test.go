package event

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

func TestConsole(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	out := new(bytes.Buffer)

	c := NewConsole(out, zap.New(core))
	c.RecordEvent(Imported, "a.jpg imported as 2020-01-01-000001.jpg")
	c.RecordEvent(Duplicate, "b.jpg duplicate")
	c.RecordEvent(Filtered, "notes.txt")
	c.RecordEvent(Failed, "c.jpg unreadable")
	c.RecordEvent(Imported, "d.jpg imported")

	assert.Equal(t, ".-x.", out.String(), "filtered files print no marker")
	assert.Equal(t, 2, c.Count(Imported))
	assert.Equal(t, 1, c.Count(Filtered))
	assert.Equal(t, "2 imported, 1 duplicate, 1 filtered, 1 failed",
		c.Summary(Imported, Duplicate, Filtered, Failed))

	assert.Equal(t, 5, logs.Len())
	warn := logs.FilterLevelExact(zapcore.WarnLevel).All()
	if assert.Len(t, warn, 1) {
		assert.Equal(t, "c.jpg unreadable", warn[0].Message)
		assert.Equal(t, "failed", warn[0].ContextMap()["event"])
	}
}

func TestConsoleWithoutOutput(t *testing.T) {
	c := NewConsole(nil, nil)
	c.RecordEvent(Linked, "x")
	c.RecordEvent(LinkExists, "y")

	assert.Equal(t, 1, c.Count(Linked))
	assert.Equal(t, "1 linked, 1 exists", c.Summary(Linked, LinkExists))
	assert.Equal(t, "Kind(42)", Kind(42).String())
}

func TestMetrics(t *testing.T) {
	m := NewMetrics("import")
	c := NewConsole(nil, nil)

	var r Recorder = Multi{c, m}
	r.RecordEvent(Imported, "a.jpg")
	r.RecordEvent(Imported, "b.jpg")
	r.RecordEvent(Duplicate, "c.jpg")

	assert.Equal(t, 2, c.Count(Imported))

	families, err := m.Gatherer().Gather()
	require.NoError(t, err)
	require.Len(t, families, 1)
	assert.Equal(t, "photodb_events_total", families[0].GetName())

	got := map[string]float64{}
	for _, metric := range families[0].GetMetric() {
		labels := map[string]string{}
		for _, l := range metric.GetLabel() {
			labels[l.GetName()] = l.GetValue()
		}
		assert.Equal(t, "import", labels["command"])
		got[labels["kind"]] = metric.GetCounter().GetValue()
	}
	assert.Equal(t, map[string]float64{"imported": 2, "duplicate": 1}, got)

	path := filepath.Join(t.TempDir(), "photodb_import.prom")
	require.NoError(t, m.WriteFile(path))
	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), `photodb_events_total{command="import",kind="imported"} 2`)
}
