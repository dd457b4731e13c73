package generator

import (
	"context"
	"encoding/csv"
	"os"
	"path/filepath"
	"testing"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/pkg/errors"
)

func seeded(seed int64, count int) *Config {
	config := DefaultConfig()
	config.Seed = seed
	config.Count = count
	return config
}

func generate(t *testing.T, config *Config) *Dataset {
	t.Helper()
	g, err := New(config)
	require.NoError(t, err)
	return g.Generate()
}

func TestGenerate_Deterministic(t *testing.T) {
	a := generate(t, seeded(42, 200))
	b := generate(t, seeded(42, 200))
	c := generate(t, seeded(43, 200))

	assert.Equal(t, a, b)
	assert.NotEqual(t, a.Bank, c.Bank)
}

func TestGenerate_Shape(t *testing.T) {
	ds := generate(t, seeded(7, 500))

	assert.Len(t, ds.Bank, 500)
	assert.Equal(t, 50, ds.ExtraLedger)
	assert.Len(t, ds.Ledger, ds.Mirrored+ds.ExtraLedger)
	assert.Greater(t, ds.Mirrored, 300)
	assert.LessOrEqual(t, ds.Mirrored, 500-ds.InvalidDates)

	invalid := 0
	for _, row := range ds.Bank {
		if _, ok := models.ParseDate(row.Date); !ok {
			invalid++
		}
		_, err := models.ParseAmount(row.Amount)
		require.NoError(t, err, "bank amount %q", row.Amount)
	}
	assert.Equal(t, ds.InvalidDates, invalid)

	for _, row := range ds.Ledger {
		_, ok := models.ParseDate(row.Date)
		assert.True(t, ok, "ledger date %q", row.Date)
		_, err := models.ParseAmount(row.Amount)
		require.NoError(t, err, "ledger amount %q", row.Amount)
	}
}

func TestGenerate_NoNoise(t *testing.T) {
	config := seeded(3, 50)
	config.MatchRate = 1
	config.ExtraLedgerRate = 0
	config.InvalidDateRate = 0
	config.MaxAmountNoise = decimal.Zero
	config.MaxDateSkewDays = 0

	ds := generate(t, config)
	require.Equal(t, 50, ds.Mirrored)

	bankAmounts := map[string]int{}
	for _, row := range ds.Bank {
		amount, err := models.ParseAmount(row.Amount)
		require.NoError(t, err)
		bankAmounts[amount.StringFixed(2)]++
	}
	for _, row := range ds.Ledger {
		bankAmounts[row.Amount]--
	}
	for amount, n := range bankAmounts {
		assert.Zero(t, n, "amount %s is not mirrored exactly", amount)
	}
}

func TestConfig_Validate(t *testing.T) {
	tests := []struct {
		name   string
		modify func(*Config)
	}{
		{"negative count", func(c *Config) { c.Count = -1 }},
		{"zero days", func(c *Config) { c.Days = 0 }},
		{"invalid start", func(c *Config) { c.StartDate = civil.Date{} }},
		{"match rate", func(c *Config) { c.MatchRate = 1.5 }},
		{"extra rate", func(c *Config) { c.ExtraLedgerRate = -0.1 }},
		{"negative noise", func(c *Config) { c.MaxAmountNoise = decimal.NewFromInt(-1) }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			config := DefaultConfig()
			tt.modify(config)
			_, err := New(config)
			assert.True(t, errors.HasCode(err, errors.CodeInvalidConfig), "got %v", err)
		})
	}
}

func TestWithThousands(t *testing.T) {
	tests := map[string]string{
		"1.00":       "1.00",
		"999.99":     "999.99",
		"1000.00":    "1,000.00",
		"1234567.89": "1,234,567.89",
		"-25000.10":  "-25,000.10",
		"100000":     "100,000",
	}
	for in, want := range tests {
		assert.Equal(t, want, withThousands(in), in)
	}
}

func TestWriteDir(t *testing.T) {
	g, err := New(seeded(11, 20))
	require.NoError(t, err)
	ds := g.Generate()

	dir := filepath.Join(t.TempDir(), "input_data")
	bankPath, ledgerPath, err := g.WriteDir(dir, ds)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, BankFile), bankPath)
	assert.Equal(t, filepath.Join(dir, LedgerFile), ledgerPath)

	file, err := os.Open(bankPath)
	require.NoError(t, err)
	defer file.Close()

	rows, err := csv.NewReader(file).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 21)
	assert.Equal(t, []string{"Date", "Amount", "Description"}, rows[0])
	assert.Equal(t, ds.Bank[0].strings(), rows[1])
}

func TestGeneratedDataReconciles(t *testing.T) {
	g, err := New(seeded(2024, 150))
	require.NoError(t, err)
	ds := g.Generate()

	bankPath, ledgerPath, err := g.WriteDir(t.TempDir(), ds)
	require.NoError(t, err)

	service, err := reconciler.NewService(nil)
	require.NoError(t, err)

	run, err := service.ReconcileFiles(context.Background(), bankPath, ledgerPath)
	require.NoError(t, err)

	assert.Equal(t, 150, run.Summary.TotalBank)
	assert.Equal(t, len(ds.Ledger), run.Result.TotalLedger())
	assert.Greater(t, run.Summary.Matched, 0)
	assert.LessOrEqual(t, run.Summary.Matched, len(ds.Ledger))
	assert.Equal(t, ds.InvalidDates, run.BankStats.InvalidDates)
}
