// Package generator produces seeded bank and ledger CSV files for demos,
// benchmarks and end-to-end tests.
package generator

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"path/filepath"
	"strings"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"

	"bank-ledger-reconciler/internal/models"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Output file names written by WriteDir.
const (
	BankFile   = "bank_transactions.csv"
	LedgerFile = "ledger_transactions.csv"
)

var header = []string{models.FieldDate, models.FieldAmount, models.FieldDescription}

// merchant pairs a terse bank narration with the way a bookkeeper would
// record it. The ledger text always contains the bank text.
type merchant struct {
	bank   string
	ledger string
}

var merchants = []merchant{
	{"AMAZON PURCHASE", "Amazon purchase - office supplies"},
	{"UBER TRIP", "Uber trip to client site"},
	{"STARBUCKS", "Starbucks team coffee"},
	{"OFFICE RENT", "Office rent for the month"},
	{"AWS SERVICES", "AWS services invoice"},
	{"SALARY CREDIT", "Salary credit payroll"},
	{"ELECTRICITY BILL", "Electricity bill payment"},
	{"GOOGLE ADS", "Google Ads campaign"},
	{"ZOMATO ORDER", "Zomato order team lunch"},
	{"BANK FEE", "Bank fee monthly charge"},
	{"INSURANCE PREMIUM", "Insurance premium quarterly"},
	{"SWIGGY ORDER", "Swiggy order working late"},
}

// Config controls the shape of a generated dataset.
type Config struct {
	Count     int
	Seed      int64
	StartDate civil.Date
	Days      int

	// MatchRate is the share of bank rows mirrored into the ledger.
	MatchRate float64
	// ExtraLedgerRate adds Count*ExtraLedgerRate ledger-only rows.
	ExtraLedgerRate float64
	// InvalidDateRate is the share of bank rows whose date is unparsable.
	InvalidDateRate float64
	// MaxAmountNoise bounds the difference between a bank amount and its
	// ledger mirror.
	MaxAmountNoise decimal.Decimal
	// MaxDateSkewDays bounds the date difference of a mirrored pair.
	MaxDateSkewDays int
}

// DefaultConfig returns a config whose mirrored pairs fall inside the
// default matching thresholds.
func DefaultConfig() *Config {
	return &Config{
		Count:           100,
		Seed:            time.Now().UnixNano(),
		StartDate:       civil.Date{Year: 2024, Month: time.January, Day: 1},
		Days:            90,
		MatchRate:       0.8,
		ExtraLedgerRate: 0.1,
		InvalidDateRate: 0.02,
		MaxAmountNoise:  decimal.RequireFromString("0.50"),
		MaxDateSkewDays: 2,
	}
}

// Validate checks the configuration
func (c *Config) Validate() error {
	if c.Count < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "count", c.Count, fmt.Errorf("count cannot be negative"))
	}
	if c.Days < 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "days", c.Days, fmt.Errorf("days must be at least 1"))
	}
	if !c.StartDate.IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "start-date", c.StartDate.String(), nil)
	}
	for name, rate := range map[string]float64{
		"match-rate":        c.MatchRate,
		"extra-ledger-rate": c.ExtraLedgerRate,
		"invalid-date-rate": c.InvalidDateRate,
	} {
		if rate < 0 || rate > 1 {
			return errors.ConfigurationError(errors.CodeInvalidConfig, name, rate, fmt.Errorf("rate must be between 0 and 1"))
		}
	}
	if c.MaxAmountNoise.IsNegative() || c.MaxDateSkewDays < 0 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, "noise", c.MaxAmountNoise.String(), nil)
	}
	return nil
}

// Row is one CSV data row.
type Row struct {
	Date        string
	Amount      string
	Description string
}

func (r Row) strings() []string {
	return []string{r.Date, r.Amount, r.Description}
}

// Dataset is a generated bank/ledger pair.
type Dataset struct {
	Bank   []Row
	Ledger []Row

	Mirrored     int
	ExtraLedger  int
	InvalidDates int
}

// Generator builds datasets from a Config.
type Generator struct {
	config *Config
	logger logger.Logger
}

// New creates a Generator. A nil config uses DefaultConfig.
func New(config *Config) (*Generator, error) {
	if config == nil {
		config = DefaultConfig()
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &Generator{
		config: config,
		logger: logger.GetGlobalLogger().WithComponent("generator"),
	}, nil
}

// Generate produces a dataset. The same Config always yields the same rows.
func (g *Generator) Generate() *Dataset {
	cfg := g.config
	rng := rand.New(rand.NewSource(cfg.Seed))
	noiseCents := cfg.MaxAmountNoise.Shift(2).IntPart()

	ds := &Dataset{
		Bank:   make([]Row, 0, cfg.Count),
		Ledger: make([]Row, 0, cfg.Count),
	}

	for i := 0; i < cfg.Count; i++ {
		m := merchants[rng.Intn(len(merchants))]
		date := cfg.StartDate.AddDays(rng.Intn(cfg.Days))
		amount := decimal.New(rng.Int63n(500000)+100, -2)

		bank := Row{Date: date.String(), Amount: amount.StringFixed(2), Description: m.bank}
		if rng.Float64() < 0.1 {
			bank.Amount = withThousands(bank.Amount)
		}

		invalid := rng.Float64() < cfg.InvalidDateRate
		if invalid {
			bank.Date = "N/A"
			ds.InvalidDates++
		}
		ds.Bank = append(ds.Bank, bank)

		if invalid || rng.Float64() >= cfg.MatchRate {
			continue
		}

		skew := 0
		if cfg.MaxDateSkewDays > 0 {
			skew = rng.Intn(cfg.MaxDateSkewDays + 1)
		}
		noise := decimal.Zero
		if noiseCents > 0 && rng.Float64() < 0.3 {
			noise = decimal.New(rng.Int63n(2*noiseCents+1)-noiseCents, -2)
		}
		ds.Ledger = append(ds.Ledger, Row{
			Date:        formatLedgerDate(date.AddDays(skew), rng),
			Amount:      amount.Add(noise).StringFixed(2),
			Description: m.ledger,
		})
		ds.Mirrored++
	}

	extras := int(float64(cfg.Count) * cfg.ExtraLedgerRate)
	for i := 0; i < extras; i++ {
		m := merchants[rng.Intn(len(merchants))]
		date := cfg.StartDate.AddDays(rng.Intn(cfg.Days))
		ds.Ledger = append(ds.Ledger, Row{
			Date:        formatLedgerDate(date, rng),
			Amount:      decimal.New(rng.Int63n(500000)+100, -2).StringFixed(2),
			Description: m.ledger + " (accrual)",
		})
	}
	ds.ExtraLedger = extras

	rng.Shuffle(len(ds.Ledger), func(i, j int) {
		ds.Ledger[i], ds.Ledger[j] = ds.Ledger[j], ds.Ledger[i]
	})

	g.logger.WithFields(logger.Fields{
		"seed":          cfg.Seed,
		"bank_rows":     len(ds.Bank),
		"ledger_rows":   len(ds.Ledger),
		"mirrored":      ds.Mirrored,
		"invalid_dates": ds.InvalidDates,
	}).Debug("Generated dataset")
	return ds
}

// WriteDir writes bank_transactions.csv and ledger_transactions.csv into
// dir and returns their paths.
func (g *Generator) WriteDir(dir string, ds *Dataset) (bankPath, ledgerPath string, err error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", "", errors.FileError(errors.CodeDirectoryError, dir, err)
	}

	bankPath = filepath.Join(dir, BankFile)
	if err := writeRows(bankPath, ds.Bank); err != nil {
		return "", "", err
	}
	ledgerPath = filepath.Join(dir, LedgerFile)
	if err := writeRows(ledgerPath, ds.Ledger); err != nil {
		return "", "", err
	}

	g.logger.WithFields(logger.Fields{
		"bank_file":   bankPath,
		"ledger_file": ledgerPath,
	}).Info("Wrote generated dataset")
	return bankPath, ledgerPath, nil
}

func writeRows(path string, rows []Row) error {
	file, err := os.Create(path)
	if err != nil {
		code := errors.CodeDirectoryError
		if os.IsPermission(err) {
			code = errors.CodeFilePermission
		}
		return errors.FileError(code, path, err)
	}
	defer file.Close()

	w := csv.NewWriter(file)
	if err := w.Write(header); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	for _, row := range rows {
		if err := w.Write(row.strings()); err != nil {
			return errors.FileError(errors.CodeFileCorrupted, path, err)
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return errors.FileError(errors.CodeFileCorrupted, path, err)
	}
	return file.Close()
}

// formatLedgerDate writes one ledger date in five as MM/DD/YYYY.
func formatLedgerDate(d civil.Date, rng *rand.Rand) string {
	if rng.Float64() < 0.2 {
		return fmt.Sprintf("%02d/%02d/%04d", int(d.Month), d.Day, d.Year)
	}
	return d.String()
}

// withThousands inserts comma separators into a plain decimal string.
func withThousands(s string) string {
	neg := strings.HasPrefix(s, "-")
	s = strings.TrimPrefix(s, "-")

	whole, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	for i, r := range whole {
		if i > 0 && (len(whole)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	out := b.String()
	if frac != "" {
		out += "." + frac
	}
	if neg {
		out = "-" + out
	}
	return out
}
