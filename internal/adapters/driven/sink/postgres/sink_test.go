package postgres

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/custodia-labs/proofscan/internal/core/domain"
)

func TestValidateTable(t *testing.T) {
	for _, ok := range []string{"proof_rows", "_x", "Rows2024"} {
		assert.NoError(t, ValidateTable(ok), ok)
	}
	for _, bad := range []string{"", "2rows", "rows; drop table x", "a-b", "public.rows"} {
		assert.ErrorIs(t, ValidateTable(bad), domain.ErrInvalidInput, bad)
	}
}

func TestRowValues(t *testing.T) {
	processed := time.Date(2024, 3, 3, 12, 0, 0, 0, time.FixedZone("EST", -5*3600))
	row := domain.OutputRow{
		FileID:      "f1",
		FileName:    "Kia_2024-04-01.pdf",
		ModifiedAt:  time.Date(2024, 3, 2, 0, 0, 0, 0, time.UTC),
		Metadata:    domain.NewMetadataRecord(map[domain.Field]string{domain.FieldDealership: "Kia", domain.FieldDate: "2024-04-01"}),
		Coupon:      domain.FailedCoupon(),
		ProcessedAt: processed,
	}

	values := RowValues(row)
	require.Len(t, values, len(Columns))
	assert.Equal(t, "f1", values[0])
	assert.Nil(t, values[2], "unknown created time is NULL")
	assert.Equal(t, row.ModifiedAt, values[3])
	assert.Equal(t, "2024-04-01", values[5])
	assert.Equal(t, "Kia", values[6])
	assert.Equal(t, "", values[7])
	assert.Equal(t, "error: extraction failed", values[11])
	assert.Equal(t, processed.UTC(), values[12])
}

func TestColumnsMatchHeader(t *testing.T) {
	assert.Len(t, Columns, len(domain.OutputHeader))
}

// TestSink_Postgres runs against a real server when
// PROOFSCAN_TEST_POSTGRES_DSN is set.
func TestSink_Postgres(t *testing.T) {
	dsn := os.Getenv("PROOFSCAN_TEST_POSTGRES_DSN")
	if dsn == "" {
		t.Skip("PROOFSCAN_TEST_POSTGRES_DSN not set")
	}
	ctx := context.Background()
	table := "proofscan_test_" + time.Now().Format("150405")

	sink, err := Open(ctx, dsn, table)
	require.NoError(t, err)
	defer func() {
		_, _ = sink.conn.Exec(ctx, "DROP TABLE "+table)
		_ = sink.Close()
	}()

	rows := []domain.OutputRow{
		{FileID: "a", FileName: "a.pdf", Coupon: domain.AbsentCoupon(), ProcessedAt: time.Now()},
		{FileID: "b", FileName: "b.pdf", Coupon: domain.AbsentCoupon(), ProcessedAt: time.Now()},
	}
	require.NoError(t, sink.Append(ctx, rows))

	var n int
	require.NoError(t, sink.conn.QueryRow(ctx, "SELECT count(*) FROM "+table).Scan(&n))
	assert.Equal(t, 2, n)
	assert.Equal(t, "postgres:"+table, sink.Destination())
}
