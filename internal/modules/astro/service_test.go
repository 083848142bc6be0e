package astro

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExtractStringNested(t *testing.T) {
	chart := map[string]interface{}{
		"moon": map[string]interface{}{"sign": "Leo", "house": float64(4)},
	}
	assert.Equal(t, "Leo", extractString(chart, "moon", "sign"))
}

func TestExtractStringFlattened(t *testing.T) {
	chart := map[string]interface{}{"moon_sign": "Virgo"}
	assert.Equal(t, "Virgo", extractString(chart, "moon", "sign"))
}

func TestExtractStringLunarAscendantAlias(t *testing.T) {
	chart := map[string]interface{}{"lunar_ascendant": "Scorpio"}
	assert.Equal(t, "Scorpio", extractString(chart, "ascendant", "sign"))
}

func TestExtractStringMissing(t *testing.T) {
	assert.Equal(t, "", extractString(map[string]interface{}{}, "moon", "sign"))
}

func TestExtractInt(t *testing.T) {
	tests := []struct {
		name  string
		chart map[string]interface{}
		want  int
	}{
		{
			name:  "nested float",
			chart: map[string]interface{}{"moon": map[string]interface{}{"house": float64(7)}},
			want:  7,
		},
		{
			name:  "flattened string number",
			chart: map[string]interface{}{"moon_house": "12"},
			want:  12,
		},
		{
			name:  "missing",
			chart: map[string]interface{}{},
			want:  0,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, extractInt(tt.chart, "moon", "house"))
		})
	}
}

func TestParseReturnDate(t *testing.T) {
	chart := map[string]interface{}{"return_datetime": "2026-03-15T08:30:00"}
	got := parseReturnDate(chart, "")
	assert.Equal(t, time.Date(2026, 3, 15, 8, 30, 0, 0, time.UTC), got)
}

func TestParseReturnDateFallsBackToTarget(t *testing.T) {
	got := parseReturnDate(map[string]interface{}{"return_datetime": "garbage"}, "2026-04-01")
	assert.Equal(t, time.Date(2026, 4, 1, 0, 0, 0, 0, time.UTC), got)
}
