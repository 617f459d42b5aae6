package postgres

import (
	"strings"
	"testing"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/llevateloexpress/financing-backend/internal/domain"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNumericRoundTrip(t *testing.T) {
	for _, s := range []string{"0", "10000.00", "621.94", "0.0000", "123456789012.34", "-5.5"} {
		d := decimal.RequireFromString(s)
		n, err := decimalToPgNumeric(d)
		require.NoError(t, err)
		assert.True(t, n.Valid)
		got := pgNumericToDecimal(n)
		assert.Truef(t, d.Equal(got), "%s round-tripped to %s", s, got)
	}
}

func TestNumericNull(t *testing.T) {
	n, err := decimalPtrToPgNumeric(nil)
	require.NoError(t, err)
	assert.False(t, n.Valid)
	assert.Nil(t, pgNumericToDecimalPtr(n))
	assert.True(t, pgNumericToDecimal(n).IsZero())

	d := decimal.RequireFromString("6600.00")
	n, err = decimalPtrToPgNumeric(&d)
	require.NoError(t, err)
	got := pgNumericToDecimalPtr(n)
	require.NotNil(t, got)
	assert.True(t, d.Equal(*got))
}

func TestUUIDConversions(t *testing.T) {
	id := uuid.New()
	pg := uuidToPg(id)
	assert.True(t, pg.Valid)
	assert.Equal(t, id, *pgToUUIDPtr(pg))

	assert.False(t, uuidPtrToPg(nil).Valid)
	assert.Nil(t, pgToUUIDPtr(uuidPtrToPg(nil)))
}

func TestIntConversions(t *testing.T) {
	assert.False(t, intPtrToPg(nil).Valid)
	assert.Nil(t, pgInt4ToIntPtr(intPtrToPg(nil)))

	month := 24
	got := pgInt4ToIntPtr(intPtrToPg(&month))
	require.NotNil(t, got)
	assert.Equal(t, 24, *got)
}

func TestNotFound(t *testing.T) {
	assert.ErrorIs(t, notFound(pgx.ErrNoRows, domain.ErrPlanNotFound), domain.ErrPlanNotFound)

	other := assert.AnError
	assert.Equal(t, other, notFound(other, domain.ErrPlanNotFound))
}

func TestMigrateURL(t *testing.T) {
	tests := []struct {
		name string
		dsn  string
		want string
	}{
		{"postgres scheme", "postgres://u:p@localhost:5432/db?sslmode=disable", "pgx5://u:p@localhost:5432/db?sslmode=disable"},
		{"postgresql scheme", "postgresql://localhost/db", "pgx5://localhost/db"},
		{"already pgx5", "pgx5://localhost/db", "pgx5://localhost/db"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, migrateURL(tt.dsn))
		})
	}
}

func TestMigrationsEmbedded(t *testing.T) {
	entries, err := migrationsFS.ReadDir("migrations")
	require.NoError(t, err)

	ups, downs := 0, 0
	for _, e := range entries {
		switch {
		case strings.HasSuffix(e.Name(), ".up.sql"):
			ups++
		case strings.HasSuffix(e.Name(), ".down.sql"):
			downs++
		}
	}
	assert.Equal(t, 5, ups)
	assert.Equal(t, ups, downs)
}
