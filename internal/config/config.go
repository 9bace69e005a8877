package config

import (
	"strings"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Config holds the full application configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store" mapstructure:"store"`
	Gate      GateConfig      `yaml:"gate" mapstructure:"gate"`
	Coverage  CoverageConfig  `yaml:"coverage" mapstructure:"coverage"`
	Screening ScreeningConfig `yaml:"screening" mapstructure:"screening"`
	Judgment  JudgmentConfig  `yaml:"judgment" mapstructure:"judgment"`
	Batch     BatchConfig     `yaml:"batch" mapstructure:"batch"`
	Server    ServerConfig    `yaml:"server" mapstructure:"server"`
	Log       LogConfig       `yaml:"log" mapstructure:"log"`

	// PolicyPath and TablesPath point at the versioned policy and match
	// table YAML files. SchemaPath declares the extraction fact schema.
	PolicyPath string `yaml:"policy_path" mapstructure:"policy_path"`
	TablesPath string `yaml:"tables_path" mapstructure:"tables_path"`
	SchemaPath string `yaml:"schema_path" mapstructure:"schema_path"`
}

// StoreConfig configures the database backend.
type StoreConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"` // sqlite or postgres
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
}

// GateConfig holds reconciliation gate thresholds. The gate is advisory:
// it annotates downstream consumers, it never halts the pipeline.
type GateConfig struct {
	MaxMissingCritical int `yaml:"max_missing_critical" mapstructure:"max_missing_critical"`
	MaxConflicts       int `yaml:"max_conflicts" mapstructure:"max_conflicts"`
	MaxArtifactBytes   int `yaml:"max_artifact_bytes" mapstructure:"max_artifact_bytes"`
}

// CoverageConfig holds cascade acceptance thresholds.
type CoverageConfig struct {
	// MinConfidenceForCoverage is the floor for accepting a judgment or
	// keyword result as covered.
	MinConfidenceForCoverage float64 `yaml:"min_confidence_for_coverage" mapstructure:"min_confidence_for_coverage"`
	// ReviewThresholdNotCovered is the (lower) floor for accepting a
	// judgment result as not covered.
	ReviewThresholdNotCovered float64 `yaml:"review_threshold_not_covered" mapstructure:"review_threshold_not_covered"`
	// JudgmentConcurrency bounds parallel judgment calls per claim.
	JudgmentConcurrency int `yaml:"judgment_concurrency" mapstructure:"judgment_concurrency"`
	// JudgmentTimeoutSecs is the per-item judgment call timeout.
	JudgmentTimeoutSecs int `yaml:"judgment_timeout_secs" mapstructure:"judgment_timeout_secs"`
}

// ScreeningConfig holds orchestrator parameters.
type ScreeningConfig struct {
	// MaterialityThreshold is the minimum covered share of the claim total
	// below which the result is flagged for mandatory escalation.
	MaterialityThreshold float64 `yaml:"materiality_threshold" mapstructure:"materiality_threshold"`
}

// JudgmentConfig holds settings for the external judgment collaborator.
type JudgmentConfig struct {
	Key            string  `yaml:"key" mapstructure:"key"`
	Model          string  `yaml:"model" mapstructure:"model"`
	MaxTokens      int     `yaml:"max_tokens" mapstructure:"max_tokens"`
	RequestsPerSec float64 `yaml:"requests_per_sec" mapstructure:"requests_per_sec"`
}

// BatchConfig configures batch screening.
type BatchConfig struct {
	MaxConcurrentClaims int `yaml:"max_concurrent_claims" mapstructure:"max_concurrent_claims"`
}

// ServerConfig configures the read-only artifact server.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("CLAIMS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// Defaults
	v.SetDefault("store.driver", "sqlite")
	v.SetDefault("store.database_url", "claims.db")
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
	v.SetDefault("server.port", 8080)
	v.SetDefault("batch.max_concurrent_claims", 4)
	v.SetDefault("gate.max_missing_critical", 2)
	v.SetDefault("gate.max_conflicts", 2)
	v.SetDefault("gate.max_artifact_bytes", 256*1024)
	v.SetDefault("coverage.min_confidence_for_coverage", 0.60)
	v.SetDefault("coverage.review_threshold_not_covered", 0.40)
	v.SetDefault("coverage.judgment_concurrency", 4)
	v.SetDefault("coverage.judgment_timeout_secs", 30)
	v.SetDefault("screening.materiality_threshold", 0.05)
	v.SetDefault("judgment.model", "claude-haiku-4-5-20251001")
	v.SetDefault("judgment.max_tokens", 1024)
	v.SetDefault("judgment.requests_per_sec", 2.0)
	v.SetDefault("policy_path", "policy.yaml")
	v.SetDefault("tables_path", "tables.yaml")
	v.SetDefault("schema_path", "schema.yaml")

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}

	return &cfg, nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
