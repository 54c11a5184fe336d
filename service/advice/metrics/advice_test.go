package metrics

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/viant/advice/model"
	"github.com/viant/advice/runtime/execution"
	"github.com/viant/advice/service/registry"
)

func newConfiguration(t *testing.T, advice *Advice) *execution.Configuration {
	r := registry.New()
	r.Register("f", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		return 42, nil
	})
	r.Register("fail", func(ctx context.Context, args []interface{}, kwargs map[string]interface{}) (interface{}, error) {
		time.Sleep(time.Millisecond)
		return nil, errors.New("boom")
	})
	return execution.NewConfiguration(
		execution.WithRegistry(r),
		execution.WithArtifactDir(t.TempDir()),
		execution.WithAdvices(advice),
	)
}

func readRecord(t *testing.T, format Format, location string) *Record {
	data, err := os.ReadFile(location)
	require.NoError(t, err)
	record := &Record{}
	require.NoError(t, format.Decode(bytes.NewReader(data), record))
	return record
}

func TestAdvice_Scenario(t *testing.T) {
	advice, err := New()
	require.NoError(t, err)
	session := execution.NewSession(model.NewTask("f"), nil, newConfiguration(t, advice))
	require.NoError(t, session.Initiate(context.Background()))

	value, err := session.Result.Output()
	require.NoError(t, err)
	assert.Equal(t, 42, value)
	require.Len(t, session.Attachments, 1)
	location, ok := session.Attachments["metrics.json"]
	require.True(t, ok)
	record := readRecord(t, JSON(), location)
	assert.Equal(t, session.ID, record.Identifier)
	assert.Equal(t, session.ID+".json", filepath.Base(location))
	assert.NotContains(t, session.Context, ContextKey)
}

func TestAdvice_Tags(t *testing.T) {
	advice, err := New()
	require.NoError(t, err)
	task := model.NewTask("f", model.WithParameters(model.Parameters{
		Name: {TagsParameter: map[string]interface{}{"team": "core", "shard": 3, "session_id": "spoofed"}},
	}))
	session := execution.NewSession(task, nil, newConfiguration(t, advice), execution.WithRunID("run-1"))
	require.NoError(t, session.Initiate(context.Background()))

	record := readRecord(t, JSON(), session.Attachments["metrics.json"])
	assert.Equal(t, map[string]string{
		"team":         "core",
		"shard":        "3",
		"run_id":       "run-1",
		"task_id":      task.ID,
		"execution_id": session.Execution.ID,
		"session_id":   session.ID,
	}, record.Tags)
}

func TestAdvice_Failure(t *testing.T) {
	advice, err := New(WithFormat(YAML()))
	require.NoError(t, err)
	session := execution.NewSession(model.NewTask("fail"), nil, newConfiguration(t, advice))
	require.NoError(t, session.Initiate(context.Background()))

	assert.True(t, session.Result.Failed())
	require.Len(t, session.Attachments, 1)
	record := readRecord(t, YAML(), session.Attachments["metrics.yaml"])
	assert.Equal(t, session.ID, record.Identifier)
	assert.GreaterOrEqual(t, record.Duration, int64(time.Millisecond))
	assert.False(t, record.End.Before(record.Start))
}

func TestAdvice_Dir(t *testing.T) {
	dir := t.TempDir()
	advice, err := New(WithFormat(Line()), WithDir(dir))
	require.NoError(t, err)
	session := execution.NewSession(model.NewTask("f"), nil, newConfiguration(t, advice))
	require.NoError(t, session.Initiate(context.Background()))

	location := session.Attachments["metrics.txt"]
	assert.Equal(t, filepath.Join(dir, session.ID+".txt"), location)
	record := readRecord(t, Line(), location)
	assert.Equal(t, session.ID, record.Tags["session_id"])
	assert.Empty(t, advice.collector.Active())
}

func TestFormats(t *testing.T) {
	start := time.Date(2024, 5, 1, 10, 0, 0, 123456789, time.UTC)
	expect := &Record{
		Identifier: "s-1",
		Tags:       map[string]string{"run_id": "r", "note": `say "hi" = ok`},
		Start:      start,
		End:        start.Add(1500 * time.Millisecond),
		Duration:   int64(1500 * time.Millisecond),
	}
	var testCases = []struct {
		format Format
		ext    string
	}{
		{format: JSON(), ext: "json"},
		{format: YAML(), ext: "yaml"},
		{format: Line(), ext: "txt"},
	}
	for _, testCase := range testCases {
		t.Run(testCase.format.Name(), func(t *testing.T) {
			assert.Equal(t, testCase.ext, testCase.format.Ext())
			buffer := new(bytes.Buffer)
			require.NoError(t, testCase.format.Encode(buffer, expect))
			actual := &Record{}
			require.NoError(t, testCase.format.Decode(buffer, actual))
			assert.Equal(t, expect.Identifier, actual.Identifier)
			assert.Equal(t, expect.Tags, actual.Tags)
			assert.True(t, expect.Start.Equal(actual.Start))
			assert.True(t, expect.End.Equal(actual.End))
			assert.Equal(t, expect.Duration, actual.Duration)
		})
	}
}

func TestLookupFormat(t *testing.T) {
	for name, expect := range map[string]string{"": FormatJSON, "yml": FormatYAML, "line": FormatLine} {
		format, err := LookupFormat(name)
		require.NoError(t, err)
		assert.Equal(t, expect, format.Name())
	}
	_, err := LookupFormat("xml")
	assert.Error(t, err)
}

func TestMeasurement_Stop(t *testing.T) {
	collector, err := NewCollector(nil)
	require.NoError(t, err)
	m := collector.Start("id", map[string]string{"a": "b"})
	assert.Equal(t, []string{"id"}, collector.Active())
	first := m.Stop(context.Background())
	assert.Same(t, first, m.Stop(context.Background()))
	assert.Empty(t, collector.Active())
	assert.Equal(t, "b", first.Tags["a"])
}
