package etl

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		input string
		want  time.Time
	}{
		{"2025-10-01", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{" 2025-10-01 ", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"2025-10-01T12:30:00.000+0000", time.Date(2025, 10, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-10-01T12:30:00Z", time.Date(2025, 10, 1, 12, 30, 0, 0, time.UTC)},
		{"2025-10-01T12:30:00-05:00", time.Date(2025, 10, 1, 17, 30, 0, 0, time.UTC)},
		{"2025-10-01 08:15:00", time.Date(2025, 10, 1, 8, 15, 0, 0, time.UTC)},
		{"10/01/2025", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
		{"3/7/2025", time.Date(2025, 3, 7, 0, 0, 0, 0, time.UTC)},
		{"Oct 1, 2025", time.Date(2025, 10, 1, 0, 0, 0, 0, time.UTC)},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := ParseDate(tt.input)
			require.NotNil(t, got)
			assert.True(t, tt.want.Equal(*got), "got %s", got)
		})
	}
}

func TestParseDate_Unparseable(t *testing.T) {
	for _, in := range []string{"", "   ", "not a date", "2025-13-45", "NaT"} {
		assert.Nil(t, ParseDate(in), "input %q", in)
	}
}

func TestParseDecimal(t *testing.T) {
	d := ParseDecimal(" 85000.50 ")
	require.True(t, d.Valid)
	assert.Equal(t, "85000.5", d.Decimal.String())

	assert.True(t, ParseDecimal("-500").Valid)
	assert.True(t, ParseDecimal("1e3").Valid)
	assert.False(t, ParseDecimal("").Valid)
	assert.False(t, ParseDecimal("85,000").Valid)
	assert.False(t, ParseDecimal("n/a").Valid)
}

func TestIsTruthy(t *testing.T) {
	for _, s := range []string{"true", "TRUE", "True", "1", "t", "T", "y", "Y", " true "} {
		assert.True(t, IsTruthy(s), "input %q", s)
	}
	for _, s := range []string{"", "false", "0", "f", "n", "yes", "no", "2"} {
		assert.False(t, IsTruthy(s), "input %q", s)
	}
}
