package config

import (
	"fmt"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/shopspring/decimal"
	"github.com/spf13/viper"

	"bank-ledger-reconciler/internal/api"
	"bank-ledger-reconciler/internal/matcher"
	"bank-ledger-reconciler/internal/reconciler"
	"bank-ledger-reconciler/internal/reporter"
	"bank-ledger-reconciler/internal/similarity"
	"bank-ledger-reconciler/pkg/errors"
	"bank-ledger-reconciler/pkg/logger"
)

// Viper keys. Flags, RECONCILER_* variables and config files all resolve
// through these.
const (
	KeyPreset          = "preset"
	KeyAmountTolerance = "amount-tolerance"
	KeyDateTolerance   = "date-tolerance"
	KeyDescThreshold   = "desc-threshold"
	KeySimilarity      = "similarity"
	KeyFullScan        = "full-scan"
	KeyCollectErrors   = "collect-errors"
	KeyProgress        = "progress"
	KeyDelimiter       = "delimiter"

	KeyOutputFormat = "output-format"
	KeyOutputFile   = "output-file"
	KeyOutputDir    = "output-dir"

	KeyServerPort           = "server.port"
	KeyServerAllowedOrigins = "server.allowed-origins"

	KeyLogLevel  = "log.level"
	KeyLogFormat = "log.format"
	KeyVerbose   = "verbose"
)

// OutputSettings says where and how the report is written.
type OutputSettings struct {
	Format string `yaml:"format"`
	File   string `yaml:"file,omitempty"`
	Dir    string `yaml:"dir,omitempty"`
}

// LogSettings configures pkg/logger.
type LogSettings struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
}

// Settings is the effective configuration of one CLI invocation, after
// presets and overrides have been applied.
type Settings struct {
	Preset        string             `yaml:"preset"`
	Thresholds    matcher.Thresholds `yaml:"thresholds"`
	Similarity    string             `yaml:"similarity"`
	FullScan      bool               `yaml:"full_scan"`
	CollectErrors bool               `yaml:"collect_errors"`
	Progress      bool               `yaml:"progress"`
	Delimiter     string             `yaml:"delimiter"`

	Output OutputSettings `yaml:"output"`
	Server api.Config     `yaml:"server"`
	Log    LogSettings    `yaml:"log"`
}

// Load resolves the settings held by v. The preset supplies the thresholds
// and any explicitly set tolerance replaces the preset's value.
func Load(v *viper.Viper) (*Settings, error) {
	s := &Settings{
		Preset:        strings.ToLower(strings.TrimSpace(v.GetString(KeyPreset))),
		Similarity:    strings.TrimSpace(v.GetString(KeySimilarity)),
		FullScan:      v.GetBool(KeyFullScan),
		CollectErrors: v.GetBool(KeyCollectErrors),
		Progress:      v.GetBool(KeyProgress),
		Delimiter:     v.GetString(KeyDelimiter),
		Output: OutputSettings{
			Format: strings.ToLower(strings.TrimSpace(v.GetString(KeyOutputFormat))),
			File:   v.GetString(KeyOutputFile),
			Dir:    v.GetString(KeyOutputDir),
		},
		Log: LogSettings{
			Level:  v.GetString(KeyLogLevel),
			Format: v.GetString(KeyLogFormat),
		},
	}
	if s.Preset == "" {
		s.Preset = "default"
	}
	if s.Similarity == "" {
		s.Similarity = string(similarity.DefaultAlgorithm)
	}
	if s.Delimiter == "" {
		s.Delimiter = ","
	}
	if s.Output.Format == "" {
		s.Output.Format = string(reporter.FormatConsole)
	}
	if v.GetBool(KeyVerbose) {
		s.Log.Level = string(logger.DebugLevel)
	}
	if s.Log.Level == "" {
		s.Log.Level = string(logger.InfoLevel)
	}
	if s.Log.Format == "" {
		s.Log.Format = string(logger.TextFormat)
	}

	thresholds, err := matcher.ThresholdsForPreset(s.Preset)
	if err != nil {
		return nil, err
	}
	if err := applyThresholdOverrides(v, &thresholds); err != nil {
		return nil, err
	}
	if err := thresholds.Validate(); err != nil {
		return nil, err
	}
	s.Thresholds = thresholds

	s.Server = api.DefaultConfig()
	if port := v.GetInt(KeyServerPort); port != 0 {
		s.Server.Port = port
	}
	if origins := v.GetStringSlice(KeyServerAllowedOrigins); len(origins) > 0 {
		s.Server.AllowedOrigins = origins
	}

	if err := s.Validate(); err != nil {
		return nil, err
	}
	return s, nil
}

func applyThresholdOverrides(v *viper.Viper, t *matcher.Thresholds) error {
	if v.IsSet(KeyAmountTolerance) {
		raw := strings.TrimSpace(v.GetString(KeyAmountTolerance))
		d, err := decimal.NewFromString(raw)
		if err != nil {
			return errors.ConfigurationError(errors.CodeInvalidConfig, KeyAmountTolerance, raw, err).
				WithSuggestion("Use a plain decimal such as 1.0")
		}
		t.AmountTolerance = d
	}
	if v.IsSet(KeyDateTolerance) {
		n, err := intSetting(v, KeyDateTolerance)
		if err != nil {
			return err
		}
		t.DateToleranceDays = n
	}
	if v.IsSet(KeyDescThreshold) {
		n, err := intSetting(v, KeyDescThreshold)
		if err != nil {
			return err
		}
		t.DescSimThreshold = n
	}
	return nil
}

func intSetting(v *viper.Viper, key string) (int, error) {
	raw := strings.TrimSpace(v.GetString(key))
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.ConfigurationError(errors.CodeInvalidConfig, key, raw, err)
	}
	return n, nil
}

// Validate checks the values Load does not already validate.
func (s *Settings) Validate() error {
	if _, err := similarity.ForAlgorithm(s.Similarity); err != nil {
		return err
	}
	if utf8.RuneCountInString(s.Delimiter) != 1 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyDelimiter, s.Delimiter,
			fmt.Errorf("delimiter must be a single character"))
	}
	if !reporter.OutputFormat(s.Output.Format).IsValid() {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyOutputFormat, s.Output.Format, nil).
			WithSuggestion(fmt.Sprintf("Valid formats: %s", formatList()))
	}
	if s.Server.Port < 1 || s.Server.Port > 65535 {
		return errors.ConfigurationError(errors.CodeInvalidConfig, KeyServerPort, s.Server.Port, nil)
	}
	return nil
}

// ReconcilerConfig builds the reconciliation service configuration.
func (s *Settings) ReconcilerConfig() *reconciler.Config {
	config := reconciler.DefaultConfig()
	config.Thresholds = s.Thresholds
	config.Similarity = s.Similarity
	config.FullScan = s.FullScan
	config.CollectErrors = s.CollectErrors
	config.ReportProgress = s.Progress

	delimiter, _ := utf8.DecodeRuneInString(s.Delimiter)
	config.Parse.Delimiter = delimiter
	return config
}

// ReportConfig builds the report configuration for the selected format.
func (s *Settings) ReportConfig() *reporter.ReportConfig {
	config := reporter.DefaultReportConfig()
	config.Format = reporter.OutputFormat(s.Output.Format)
	return config
}

// LoggerConfig builds the logger configuration from v. It is read before
// any command runs, so it does not depend on the rest of the settings.
func LoggerConfig(v *viper.Viper) (*logger.Config, error) {
	level, format := v.GetString(KeyLogLevel), v.GetString(KeyLogFormat)

	config, err := logger.ParseConfig(level, format)
	if err != nil {
		return nil, errors.ConfigurationError(errors.CodeInvalidConfig, "log", level+"/"+format, err)
	}
	if v.GetBool(KeyVerbose) {
		debug := logger.DebugConfig()
		debug.Format = config.Format
		return debug, nil
	}
	return config, nil
}

func formatList() string {
	var names []string
	for _, f := range reporter.Formats() {
		names = append(names, string(f))
	}
	return strings.Join(names, ", ")
}
