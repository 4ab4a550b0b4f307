package phone

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

// ==========================
// Normalization
// ==========================

func TestNormalize(t *testing.T) {
	tests := []struct {
		raw    string
		want   string
		wantOK bool
	}{
		{"2065551234", "2065551234", true},
		{"(206) 555-1234", "2065551234", true},
		{"206.555.1234", "2065551234", true},
		{"+1 206 555 1234", "2065551234", true},
		{"1-206-555-1234", "2065551234", true},
		{"555-1234", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.raw, func(t *testing.T) {
			got, ok := Normalize(tt.raw)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestNormalize_Idempotent(t *testing.T) {
	for _, raw := range []string{"(425) 555-0100", "+1.509.555.0199", "2535550123"} {
		once, ok := Normalize(raw)
		assert.True(t, ok)
		twice, ok := Normalize(once)
		assert.True(t, ok)
		assert.Equal(t, once, twice)

		display := Format(raw)
		assert.Equal(t, display, Format(display), "display form is stable")
		back, _ := Normalize(display)
		assert.Equal(t, once, back)
	}
}

func TestFormat(t *testing.T) {
	assert.Equal(t, "(206) 555-1234", Format("2065551234"))
	assert.Equal(t, "(206) 555-1234", Format("+1 (206) 555-1234"))
	assert.Equal(t, "12345", Format("12345"))
	assert.Equal(t, "(503) 555-0101", Format("503.555.0101"))
	assert.Equal(t, "(100) 555-0100", Format("1005550100"))
}

// ==========================
// Extraction
// ==========================

func TestExtract(t *testing.T) {
	text := "Jane Smith, 54, Seattle WA. Call (206) 555-1234 or 425.555.9876. Alt: (206) 555-1234"
	assert.Equal(t, []string{"2065551234", "4255559876"}, Extract(text))
	assert.Empty(t, Extract("no digits here"))
}

// ==========================
// Sets and blacklist
// ==========================

func TestSet_DedupesAndBlocks(t *testing.T) {
	s := NewSet(NewBlacklist("(855) 723-2747"))

	assert.True(t, s.Add("(206) 555-1234"))
	assert.False(t, s.Add("206-555-1234"), "duplicate after normalization")
	assert.False(t, s.Add("8557232747"), "blacklisted")
	assert.False(t, s.Add("123"), "too short")
	s.AddAll([]string{"4255550000", "2065551234"})

	assert.Equal(t, 2, s.Len())
	assert.Equal(t, []string{"2065551234", "4255550000"}, s.Canonical())
}

func TestBlacklist_Contains(t *testing.T) {
	b := NewBlacklist("8557232747")
	assert.True(t, b.Contains("+1 (855) 723-2747"))
	assert.False(t, b.Contains("2065551234"))
	assert.False(t, b.Contains("bad"))
}

// ==========================
// Ranking
// ==========================

func TestRank_LocalAreaCodesFirst(t *testing.T) {
	in := []string{"3105550001", "2065550002", "7025550003", "5095550004", "4255550005"}

	got := Rank(in, "WA")

	assert.Equal(t, []string{"2065550002", "5095550004", "4255550005", "3105550001", "7025550003"}, got)
	assert.Equal(t, "3105550001", in[0], "input untouched")
}

func TestRank_Deterministic(t *testing.T) {
	in := []string{"3105550001", "2065550002", "7025550003", "3605550004"}
	assert.Equal(t, Rank(in, "WA"), Rank(in, "WA"))
}

func TestRank_UnknownStateKeepsOrder(t *testing.T) {
	in := []string{"3105550001", "2065550002"}
	assert.Equal(t, in, Rank(in, "ZZ"))
	assert.Equal(t, in, Rank(in, ""))
}

func TestIsLocal(t *testing.T) {
	assert.True(t, IsLocal("(206) 555-1234", "wa"))
	assert.False(t, IsLocal("(503) 555-1234", "WA"))
	assert.True(t, IsLocal("(503) 555-1234", "OR"))
}
