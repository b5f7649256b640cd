package extractor

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNormalizeDate_RoundTrip(t *testing.T) {
	tests := []struct {
		layout DateLayout
		raw    string
		want   string
	}{
		{LayoutISO, "2024-03-15", "2024-03-15"},
		{LayoutISO, "2024-02-29", "2024-02-29"},
		{LayoutISOUnderscore, "2023_12_31", "2023-12-31"},
		{LayoutUS, "03-15-2024", "2024-03-15"},
		{LayoutUSUnderscore, "01_02_2025", "2025-01-02"},
		{LayoutCompact, "20240101", "2024-01-01"},
	}

	for _, tt := range tests {
		t.Run(string(tt.layout)+"/"+tt.raw, func(t *testing.T) {
			got, ok := NormalizeDate(tt.raw, tt.layout)
			require.True(t, ok)
			assert.Equal(t, tt.want, got)

			rendered, err := tt.layout.Render(got)
			require.NoError(t, err)
			assert.Equal(t, tt.raw, rendered)
		})
	}
}

func TestNormalizeDate_Invalid(t *testing.T) {
	tests := []struct {
		layout DateLayout
		raw    string
	}{
		{LayoutISO, "2024-13-01"},
		{LayoutISO, "2023-02-29"},
		{LayoutISO, "2024-04-31"},
		{LayoutISO, "2024-00-10"},
		{LayoutISOUnderscore, "2024_01_32"},
		{LayoutUS, "13-01-2024"},
		{LayoutUSUnderscore, "02_30_2024"},
		{LayoutCompact, "20241301"},
		{LayoutCompact, "2024011"},
		{LayoutISO, "abcd-ef-gh"},
		{LayoutISO, ""},
		{DateLayout("DD.MM.YYYY"), "15.03.2024"},
	}

	for _, tt := range tests {
		t.Run(string(tt.layout)+"/"+tt.raw, func(t *testing.T) {
			assert.NotPanics(t, func() {
				got, ok := NormalizeDate(tt.raw, tt.layout)
				assert.False(t, ok)
				assert.Empty(t, got)
			})
		})
	}
}

func TestParseDateLayout(t *testing.T) {
	for _, l := range Layouts() {
		got, err := ParseDateLayout(string(l))
		require.NoError(t, err)
		assert.Equal(t, l, got)
	}

	_, err := ParseDateLayout("YY-MM-DD")
	assert.Error(t, err)
}

func TestDateLayout_RenderErrors(t *testing.T) {
	_, err := DateLayout("nope").Render("2024-01-01")
	assert.Error(t, err)

	_, err = LayoutISO.Render("01/01/2024")
	assert.Error(t, err)
}
