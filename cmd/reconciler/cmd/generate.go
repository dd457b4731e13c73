package cmd

import (
	"fmt"
	"time"

	"cloud.google.com/go/civil"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"bank-ledger-reconciler/internal/generator"
	"bank-ledger-reconciler/pkg/errors"
)

// Flags for the generate command
var (
	genCount     int
	genSeed      int64
	genOutputDir string
	genStartDate string
	genDays      int
	genMatchRate float64
	genNoise     string
	genSkew      int
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate sample bank and ledger CSV files",
	Long: `Generate writes bank_transactions.csv and ledger_transactions.csv with
realistic noise: ledger dates a few days off, small amount differences, longer
ledger descriptions, thousands separators, a few unparsable bank dates and
ledger-only accruals.

The same --seed always produces the same files.

Examples:
  reconciler generate
  reconciler generate --count 10000 --seed 42 --output-dir input_data
  reconciler generate --match-rate 1 --max-amount-noise 0 --max-date-skew 0`,
	RunE: runGenerate,
}

func init() {
	rootCmd.AddCommand(generateCmd)

	defaults := generator.DefaultConfig()
	generateCmd.Flags().IntVarP(&genCount, "count", "n", defaults.Count, "number of bank records")
	generateCmd.Flags().Int64Var(&genSeed, "seed", 0, "random seed (0 picks one from the clock)")
	generateCmd.Flags().StringVar(&genOutputDir, "output-dir", "input_data", "directory to write the CSV files to")
	generateCmd.Flags().StringVar(&genStartDate, "start-date", defaults.StartDate.String(), "first transaction date (YYYY-MM-DD)")
	generateCmd.Flags().IntVar(&genDays, "days", defaults.Days, "number of days the transactions span")
	generateCmd.Flags().Float64Var(&genMatchRate, "match-rate", defaults.MatchRate, "share of bank records mirrored in the ledger (0-1)")
	generateCmd.Flags().StringVar(&genNoise, "max-amount-noise", defaults.MaxAmountNoise.String(), "largest amount difference between mirrored records")
	generateCmd.Flags().IntVar(&genSkew, "max-date-skew", defaults.MaxDateSkewDays, "largest date difference in days between mirrored records")
}

func runGenerate(cmd *cobra.Command, args []string) error {
	genConfig, err := generateConfig()
	if err != nil {
		return err
	}

	g, err := generator.New(genConfig)
	if err != nil {
		return err
	}

	ds := g.Generate()
	bankPath, ledgerPath, err := g.WriteDir(genOutputDir, ds)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Wrote %s (%d records)\n", bankPath, len(ds.Bank))
	fmt.Fprintf(out, "Wrote %s (%d records)\n", ledgerPath, len(ds.Ledger))
	fmt.Fprintf(out, "Seed %d: %d mirrored, %d ledger-only, %d invalid bank dates\n",
		genConfig.Seed, ds.Mirrored, ds.ExtraLedger, ds.InvalidDates)
	return nil
}

func generateConfig() (*generator.Config, error) {
	genConfig := generator.DefaultConfig()
	genConfig.Count = genCount
	genConfig.Days = genDays
	genConfig.MatchRate = genMatchRate

	if genSeed != 0 {
		genConfig.Seed = genSeed
	} else {
		genConfig.Seed = time.Now().UnixNano()
	}

	start, err := civil.ParseDate(genStartDate)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "start-date", genStartDate, err).
			WithSuggestion("Use YYYY-MM-DD")
	}
	genConfig.StartDate = start

	noise, err := decimal.NewFromString(genNoise)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "max-amount-noise", genNoise, err)
	}
	genConfig.MaxAmountNoise = noise
	genConfig.MaxDateSkewDays = genSkew

	return genConfig, nil
}
