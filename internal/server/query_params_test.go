package server

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseOptionalBool(t *testing.T) {
	got, err := parseOptionalBool("")
	require.NoError(t, err)
	assert.Nil(t, got)

	got, err = parseOptionalBool(" true ")
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.True(t, *got)

	_, err = parseOptionalBool("maybe")
	assert.Error(t, err)
}

func TestParseOptionalTimeRFC3339(t *testing.T) {
	got, err := parseOptionalTime("2025-03-01T10:30:00+07:00", false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, time.Date(2025, 3, 1, 3, 30, 0, 0, time.UTC), *got)
}

func TestParseOptionalTimeBareDate(t *testing.T) {
	from, err := parseOptionalTime("2025-03-01", false)
	require.NoError(t, err)
	require.NotNil(t, from)
	assert.Equal(t, time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC), *from)

	to, err := parseOptionalTime("2025-03-01", true)
	require.NoError(t, err)
	require.NotNil(t, to)
	assert.Equal(t, 23, to.Hour())
	assert.True(t, to.After(*from))
	assert.Equal(t, from.Day(), to.Day())
}

func TestParseOptionalTimeRejectsGarbage(t *testing.T) {
	_, err := parseOptionalTime("yesterday", false)
	assert.ErrorIs(t, err, ErrInvalidRequest)

	got, err := parseOptionalTime("   ", true)
	require.NoError(t, err)
	assert.Nil(t, got)
}
