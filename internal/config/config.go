// Package config loads and validates the application configuration.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/viper"

	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/clv"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/common"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/ingest"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/pipeline"
	"github.com/Joshua-Yumba/Uplift-Modeling-for-Causal-Customer-Targeting-in-Retail-Analytics/internal/report"
)

// EnvPrefix prefixes every environment override, e.g. CLVFLOW_LTV_MONTHLY_DISCOUNT_RATE.
const EnvPrefix = "CLVFLOW"

// Config is the full application configuration.
type Config struct {
	Seed       uint64           `mapstructure:"seed"`
	Clustering ClusteringConfig `mapstructure:"clustering"`
	AI         AIConfig         `mapstructure:"ai"`
	LTV        LTVConfig        `mapstructure:"ltv"`
	Churn      ChurnConfig      `mapstructure:"churn"`
	Forecast   ForecastConfig   `mapstructure:"forecast"`
	NBO        NBOConfig        `mapstructure:"nbo"`
	Report     ReportConfig     `mapstructure:"report"`
	Input      ingest.Options   `mapstructure:"input"`
	Output     OutputConfig     `mapstructure:"output"`
	History    HistoryConfig    `mapstructure:"history"`
	Metrics    MetricsConfig    `mapstructure:"metrics"`
	Sheets     SheetsConfig     `mapstructure:"sheets"`
	Logging    LoggingConfig    `mapstructure:"logging"`
}

// ClusteringConfig configures fixed-k segmentation.
type ClusteringConfig struct {
	NClusters int `mapstructure:"n_clusters"`
}

// AIConfig holds the segmentation switch and the scorer toggles.
type AIConfig struct {
	UseAutoGMM       bool `mapstructure:"use_auto_gmm_segmentation"`
	MaxGMMComponents int  `mapstructure:"max_gmm_components"`
	UseMLCLV         bool `mapstructure:"use_ml_clv"`
	UseChurn         bool `mapstructure:"use_churn"`
	UseNBO           bool `mapstructure:"use_nbo"`
	UseUplift        bool `mapstructure:"use_uplift"`
	UseForecasting   bool `mapstructure:"use_forecasting"`
}

// LTVConfig configures the probabilistic models and the CLV sum.
type LTVConfig struct {
	PenalizerBG           float64 `mapstructure:"penalizer_coef_bgf"`
	PenalizerGG           float64 `mapstructure:"penalizer_coef_ggf"`
	PredictionMonths      int     `mapstructure:"prediction_period_months"`
	MonthlyDiscountRate   float64 `mapstructure:"monthly_discount_rate"`
	PredictionHorizonDays float64 `mapstructure:"prediction_horizon_days"`
	ValueBasis            string  `mapstructure:"value_basis"`
}

// ChurnConfig configures churn labelling.
type ChurnConfig struct {
	HorizonDays int `mapstructure:"horizon_days"`
}

// ForecastConfig configures the deterministic forecast.
type ForecastConfig struct {
	Days         int     `mapstructure:"days"`
	DailyGrowth  float64 `mapstructure:"daily_growth"`
	UpliftFactor float64 `mapstructure:"uplift_factor"`
}

// NBOConfig configures the next-best-offer split.
type NBOConfig struct {
	PremiumQuantile float64 `mapstructure:"premium_quantile"`
}

// ReportConfig sizes the ranked tables.
type ReportConfig struct {
	TopCustomers int `mapstructure:"top_customers"`
	TopChurn     int `mapstructure:"top_churn"`
}

// OutputConfig configures where tables and run reports go.
type OutputConfig struct {
	Dir string `mapstructure:"dir"`
}

// HistoryConfig configures the run history database.
type HistoryConfig struct {
	DBPath  string `mapstructure:"db_path"`
	Enabled bool   `mapstructure:"enabled"`
}

// MetricsConfig configures the Prometheus textfile. Empty disables it.
type MetricsConfig struct {
	Textfile string `mapstructure:"textfile"`
}

// SheetsConfig configures the optional Google Sheets export.
type SheetsConfig struct {
	Enabled            bool   `mapstructure:"enabled"`
	ClientID           string `mapstructure:"client_id"`
	ClientSecret       string `mapstructure:"client_secret"`
	RefreshToken       string `mapstructure:"refresh_token"`
	TokenFile          string `mapstructure:"token_file"`
	ServiceAccountPath string `mapstructure:"service_account_path"`
	SpreadsheetID      string `mapstructure:"spreadsheet_id"`
	SpreadsheetName    string `mapstructure:"spreadsheet_name"`
	BatchSize          int    `mapstructure:"batch_size"`
}

// LoggingConfig selects the log level and handler.
type LoggingConfig struct {
	Level  string `mapstructure:"level"`
	Format string `mapstructure:"format"`
}

// SetDefaults registers every key with its default value. Keys must be
// registered for environment overrides to reach Unmarshal.
func SetDefaults(v *viper.Viper) {
	cols := ingest.DefaultColumns()
	defaults := map[string]any{
		"seed": 42,

		"clustering.n_clusters": 4,

		"ai.use_auto_gmm_segmentation": false,
		"ai.max_gmm_components":        7,
		"ai.use_ml_clv":                true,
		"ai.use_churn":                 true,
		"ai.use_nbo":                   true,
		"ai.use_uplift":                true,
		"ai.use_forecasting":           true,

		"ltv.penalizer_coef_bgf":       0.001,
		"ltv.penalizer_coef_ggf":       0.0,
		"ltv.prediction_period_months": 12,
		"ltv.monthly_discount_rate":    0.01,
		"ltv.prediction_horizon_days":  30.0,
		"ltv.value_basis":              string(clv.BasisProfit),

		"churn.horizon_days": 90,

		"forecast.days":          30,
		"forecast.daily_growth":  0.001,
		"forecast.uplift_factor": 1.05,

		"nbo.premium_quantile": 0.8,

		"report.top_customers": 10,
		"report.top_churn":     20,

		"input.kind":               "",
		"input.path":               "data/raw/INDIA_RETAIL_DATA.xlsx",
		"input.sheet":              ingest.DefaultSheet,
		"input.encoding":           "",
		"input.driver":             "",
		"input.dsn":                "",
		"input.query":              "",
		"input.columns.entity":     cols.Entity,
		"input.columns.order_date": cols.OrderDate,
		"input.columns.ship_date":  cols.ShipDate,
		"input.columns.quantity":   cols.Quantity,
		"input.columns.unit_price": cols.UnitPrice,
		"input.columns.amount":     cols.Amount,
		"input.columns.profit":     cols.Profit,

		"output.dir": "output/results",

		"history.enabled": true,
		"history.db_path": "~/.local/share/clvflow/history.db",

		"metrics.textfile": "",

		"sheets.enabled":              false,
		"sheets.client_id":            "",
		"sheets.client_secret":        "",
		"sheets.refresh_token":        "",
		"sheets.token_file":           "",
		"sheets.service_account_path": "",
		"sheets.spreadsheet_id":       "",
		"sheets.spreadsheet_name":     "",
		"sheets.batch_size":           1000,

		"logging.level":  "info",
		"logging.format": "console",
	}
	for k, val := range defaults {
		v.SetDefault(k, val)
	}
}

// BindEnv makes CLVFLOW_SECTION_KEY override section.key.
func BindEnv(v *viper.Viper) {
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
}

// Load unmarshals and validates the configuration held by v.
func Load(v *viper.Viper) (*Config, error) {
	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("%w: %w", common.ErrInvalidConfig, err)
	}

	cfg.Input.Path = ExpandPath(cfg.Input.Path)
	cfg.Output.Dir = ExpandPath(cfg.Output.Dir)
	cfg.History.DBPath = ExpandPath(cfg.History.DBPath)
	cfg.Metrics.Textfile = ExpandPath(cfg.Metrics.Textfile)

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var problems []string
	check := func(ok bool, msg string) {
		if !ok {
			problems = append(problems, msg)
		}
	}

	check(c.Clustering.NClusters >= 1, "clustering.n_clusters must be at least 1")
	check(c.AI.MaxGMMComponents >= 1, "ai.max_gmm_components must be at least 1")
	check(c.LTV.PenalizerBG >= 0, "ltv.penalizer_coef_bgf cannot be negative")
	check(c.LTV.PenalizerGG >= 0, "ltv.penalizer_coef_ggf cannot be negative")
	check(c.LTV.PredictionMonths > 0, "ltv.prediction_period_months must be positive")
	check(c.LTV.MonthlyDiscountRate >= 0, "ltv.monthly_discount_rate cannot be negative")
	check(c.LTV.PredictionHorizonDays > 0, "ltv.prediction_horizon_days must be positive")
	check(c.LTV.ValueBasis == string(clv.BasisProfit) || c.LTV.ValueBasis == string(clv.BasisMonetary),
		"ltv.value_basis must be profit or monetary")
	check(c.Churn.HorizonDays > 0, "churn.horizon_days must be positive")
	check(c.Forecast.Days >= 0, "forecast.days cannot be negative")
	check(c.NBO.PremiumQuantile >= 0 && c.NBO.PremiumQuantile <= 1, "nbo.premium_quantile must be within [0, 1]")
	check(c.Report.TopCustomers >= 0, "report.top_customers cannot be negative")
	check(c.Report.TopChurn >= 0, "report.top_churn cannot be negative")
	check(c.Output.Dir != "", "output.dir is required")

	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", common.ErrInvalidConfig, strings.Join(problems, "; "))
	}
	return nil
}

// PipelineOptions maps the configuration onto pipeline options.
func (c *Config) PipelineOptions() pipeline.Options {
	opts := pipeline.DefaultOptions(c.Seed)

	opts.Segment.AutoGMM = c.AI.UseAutoGMM
	opts.Segment.NClusters = c.Clustering.NClusters
	opts.Segment.MaxComponents = c.AI.MaxGMMComponents

	opts.LTV.PenalizerBG = c.LTV.PenalizerBG
	opts.LTV.PenalizerGG = c.LTV.PenalizerGG
	opts.LTV.HorizonMonths = c.LTV.PredictionMonths
	opts.LTV.MonthlyDiscount = c.LTV.MonthlyDiscountRate
	opts.LTV.PredictionDays = c.LTV.PredictionHorizonDays
	opts.LTV.ValueBasis = clv.ValueBasis(c.LTV.ValueBasis)

	opts.Scorers = pipeline.Toggles{
		MLCLV:    c.AI.UseMLCLV,
		Churn:    c.AI.UseChurn,
		NBO:      c.AI.UseNBO,
		Uplift:   c.AI.UseUplift,
		Forecast: c.AI.UseForecasting,
	}
	opts.Churn.HorizonDays = c.Churn.HorizonDays
	opts.Forecast.Days = c.Forecast.Days
	opts.Forecast.DailyGrowth = c.Forecast.DailyGrowth
	opts.Forecast.UpliftFactor = c.Forecast.UpliftFactor
	opts.PremiumQuantile = c.NBO.PremiumQuantile
	return opts
}

// ReportOptions maps the configuration onto report options.
func (c *Config) ReportOptions() report.Options {
	return report.Options{TopCustomers: c.Report.TopCustomers, TopChurn: c.Report.TopChurn}
}

// ExpandPath expands a leading ~ and $VAR references in path.
func ExpandPath(path string) string {
	if path == "~" || strings.HasPrefix(path, "~/") {
		if home, err := os.UserHomeDir(); err == nil {
			path = filepath.Join(home, path[1:])
		}
	}
	return os.ExpandEnv(path)
}
