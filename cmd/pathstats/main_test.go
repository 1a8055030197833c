package main

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/udisondev/voxpath/internal/db"
)

func TestPrintSummary(t *testing.T) {
	var buf bytes.Buffer
	err := printSummary(&buf, []db.ReasonSummary{
		{FailReason: "None", Count: 10, MeanDuration: 2 * time.Millisecond, MeanLength: 14.25},
		{FailReason: "Timeout", Count: 2, MeanDuration: 200 * time.Millisecond},
	})
	require.NoError(t, err)

	out := buf.String()
	assert.Contains(t, out, "REASON")
	assert.Regexp(t, `None\s+10\s+2ms\s+14.25`, out)
	assert.Regexp(t, `Timeout\s+2\s+200ms\s+0.00`, out)
	assert.Regexp(t, `total\s+12`, out)
}
