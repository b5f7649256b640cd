package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func sampleRow() OutputRow {
	file := FileDescriptor{
		ID:          "file-1",
		Name:        "Honda_campaign_SPRING2024_proof_v1.pdf",
		CreatedAt:   time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC),
		ModifiedAt:  time.Date(2024, 3, 2, 10, 30, 0, 0, time.UTC),
		WebViewLink: "https://drive.google.com/file/d/file-1/view",
	}
	meta := NewMetadataRecord(map[Field]string{
		FieldDealership: "Honda",
		FieldCampaign:   "SPRING2024",
		FieldVersion:    "1",
	})
	return NewOutputRow(file, meta, AbsentCoupon(), time.Date(2024, 4, 1, 12, 0, 0, 0, time.UTC))
}

func TestOutputRow_Values(t *testing.T) {
	values := sampleRow().Values()

	require.Len(t, values, len(OutputHeader))
	assert.Equal(t, []string{
		"file-1",
		"Honda_campaign_SPRING2024_proof_v1.pdf",
		"2024-03-01T09:00:00Z",
		"2024-03-02T10:30:00Z",
		"https://drive.google.com/file/d/file-1/view",
		"",
		"Honda",
		"1",
		"SPRING2024",
		"",
		"",
		"",
		"2024-04-01T12:00:00Z",
	}, values)
}

func TestOutputRow_ZeroTimestampsRenderEmpty(t *testing.T) {
	row := OutputRow{FileID: "x"}
	values := row.Values()

	assert.Equal(t, "", values[2])
	assert.Equal(t, "", values[12])
}

func TestParseOutputRow_RoundTrip(t *testing.T) {
	row := sampleRow()
	row.Coupon = ExtractedCoupon(map[string]any{"terms": "see dealer"}, "")

	parsed, err := ParseOutputRow(row.Values())
	require.NoError(t, err)

	assert.Equal(t, row.Values(), parsed.Values())
	assert.Equal(t, CouponExtracted, parsed.Coupon.Status)
}

func TestParseOutputRow_Errors(t *testing.T) {
	_, err := ParseOutputRow([]string{"too", "short"})
	assert.True(t, errors.Is(err, ErrInvalidInput))

	values := sampleRow().Values()
	values[2] = "yesterday"
	_, err = ParseOutputRow(values)
	assert.True(t, errors.Is(err, ErrInvalidInput))
}
