package logger

import (
	"bytes"
	"encoding/json"
	"os"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLevelFiltersOutput(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	defer SetOutput(os.Stdout)
	defer SetLevel("info")

	SetLevel("warn")
	Infof("hidden %d", 1)
	Warnf("shown %d", 2)

	out := buf.String()
	assert.NotContains(t, out, "hidden")
	assert.Contains(t, out, "shown 2")
}

func TestJSONFormat(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetFormat("json")
	defer func() {
		SetFormat("text")
		SetOutput(os.Stdout)
	}()

	Errorf("decision failed: %s", "boom")
	var rec map[string]any
	require.NoError(t, json.Unmarshal([]byte(strings.TrimSpace(buf.String())), &rec))
	assert.Equal(t, "decision failed: boom", rec["msg"])
	assert.Equal(t, "ERROR", rec["level"])
}

func TestTraceAndDebugLines(t *testing.T) {
	var buf bytes.Buffer
	SetOutput(&buf)
	SetLevel("debug")
	defer func() {
		SetLevel("info")
		SetOutput(os.Stdout)
	}()

	DebugLines(Trace("t-1"), []string{"first", " ", "second"})
	out := buf.String()
	assert.Equal(t, 2, strings.Count(out, "trace=t-1"))
	assert.Contains(t, out, "step=3")
}
