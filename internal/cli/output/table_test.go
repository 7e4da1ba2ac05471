package output

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRenderer struct {
	headers []string
	rows    [][]string
}

func (f fakeRenderer) Headers() []string { return f.headers }
func (f fakeRenderer) Rows() [][]string  { return f.rows }

func TestPrintTableRendersHeadersAndRows(t *testing.T) {
	buf := new(bytes.Buffer)
	data := fakeRenderer{
		headers: []string{"table_id", "entries"},
		rows: [][]string{
			{"1", "42"},
			{"2", "7"},
		},
	}

	require.NoError(t, PrintTable(buf, data))

	out := buf.String()
	assert.Contains(t, out, "TABLE ID")
	assert.Contains(t, out, "ENTRIES")
	assert.Contains(t, out, "42")
	assert.Contains(t, out, "7")
}

func TestPrintTableWithNoRows(t *testing.T) {
	buf := new(bytes.Buffer)
	data := fakeRenderer{headers: []string{"table_id"}}

	require.NoError(t, PrintTable(buf, data))
	assert.Contains(t, buf.String(), "TABLE ID")
}

func TestPrintJSONEncodesIndented(t *testing.T) {
	buf := new(bytes.Buffer)
	payload := map[string]any{"device_id": 1, "table_id": 7}

	require.NoError(t, PrintJSON(buf, payload))

	var decoded map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, float64(1), decoded["device_id"])
	assert.Equal(t, float64(7), decoded["table_id"])
	assert.Contains(t, buf.String(), "\n")
}
