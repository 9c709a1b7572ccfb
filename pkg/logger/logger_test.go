package logger

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func captureOutput(log *Logger) *bytes.Buffer {
	var buf bytes.Buffer
	log.SetOutput(&buf)
	return &buf
}

func TestAuditEmitsStructuredEntry(t *testing.T) {
	log := New("info")
	buf := captureOutput(log)

	log.Audit("P1", "grant_consent", "mentalHealth", true, map[string]interface{}{
		"grantee_id": "D1",
	})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["audit"])
	assert.Equal(t, "P1", entry["user_id"])
	assert.Equal(t, "grant_consent", entry["action"])
	assert.Equal(t, "mentalHealth", entry["resource"])
	assert.Equal(t, true, entry["success"])
	assert.Equal(t, "info", entry["level"])
}

func TestAuditFailureLogsWarning(t *testing.T) {
	log := New("info")
	buf := captureOutput(log)

	log.Audit("P1", "revoke_consent", "mentalHealth", false, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "warning", entry["level"])
}

func TestPHIAccessMarksSensitive(t *testing.T) {
	log := New("info")
	buf := captureOutput(log)

	log.PHIAccess("D1", "P1", "query", "patient_records", true, nil)

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, true, entry["phi_access"])
	assert.Equal(t, true, entry["sensitive"])
	assert.Equal(t, "P1", entry["patient_id"])
}
