package etl

import (
	"crypto/sha256"
	"encoding/hex"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/sells-group/opportunity-etl/internal/model"
)

func TestHashEmail(t *testing.T) {
	sum := sha256.Sum256([]byte("rep.one@example.com"))
	want := hex.EncodeToString(sum[:])

	got := HashEmail("  Rep.One@Example.COM ")
	require.NotNil(t, got)
	assert.Equal(t, want, *got)
	assert.Len(t, *got, 64)

	assert.Nil(t, HashEmail(""))
	assert.Nil(t, HashEmail("   "))
}

func TestNormalizePhone(t *testing.T) {
	tests := []struct {
		input string
		want  string // "" means nil
	}{
		{"(555) 123-4567", "+15551234567"},
		{"555.123.4567", "+15551234567"},
		{"1-555-123-4567", "+15551234567"},
		{"+1 555 123 4567", "+15551234567"},
		{"0044 20 7946 0958", "+442079460958"},
		{"011 44 20 7946 0958", "+442079460958"},
		{"+44 20 7946 0958", "+442079460958"},
		{"+81 3-1234-5678", "+81312345678"},
		{"1 555 123 45678", "+155512345678"},
		{"12345", ""},
		{"555-1234", ""},
		{"", ""},
		{"ext", ""},
	}
	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got := NormalizePhone(tt.input)
			if tt.want == "" {
				assert.Nil(t, got)
				return
			}
			require.NotNil(t, got)
			assert.Equal(t, tt.want, *got)
		})
	}
}

func TestNormalizePhone_RoundTrip(t *testing.T) {
	for _, p := range []string{"+15551234567", "+12125550000", "+19998887777"} {
		got := NormalizePhone(p)
		require.NotNil(t, got)
		assert.Equal(t, p, *got)

		again := NormalizePhone(*got)
		require.NotNil(t, again)
		assert.Equal(t, p, *again)
	}
}

func TestSanitizePII(t *testing.T) {
	in := enriched(model.Opportunity{ID: "1", OwnerEmail: "a@b.com", Phone: "5551234567"})
	got := SanitizePII(in)
	require.NotNil(t, got[0].OwnerEmailHash)
	require.NotNil(t, got[0].PhoneNormalized)
	assert.Equal(t, "+15551234567", *got[0].PhoneNormalized)
	assert.Nil(t, in[0].OwnerEmailHash, "input untouched")
}
