package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"

	"github.com/alejandrodnm/oraclebot/internal/domain"
	"github.com/alejandrodnm/oraclebot/internal/engine"
)

// Config es la configuración completa del optimizador.
type Config struct {
	Engine  EngineConfig  `yaml:"engine"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
	Metrics MetricsConfig `yaml:"metrics"`
}

// EngineConfig controla el backtest, el fitness y la búsqueda por tiers.
type EngineConfig struct {
	// Pesos del fitness
	WAccuracy      float64 `yaml:"w_accuracy" validate:"gte=0"`
	WEdge          float64 `yaml:"w_edge" validate:"gte=0"`
	WFalsePositive float64 `yaml:"w_false_positive" validate:"gte=0"`
	WComplexity    float64 `yaml:"w_complexity" validate:"gt=0"`
	TotalMethods   int     `yaml:"total_methods" validate:"gte=0"` // 0 = tamaño del registry

	// Ventana de visibilidad y holdout
	CutoffFraction    float64 `yaml:"cutoff_fraction" validate:"gt=0,lte=1"`
	HoldoutFraction   float64 `yaml:"holdout_fraction" validate:"gte=0,lt=1"`
	MinHoldoutMarkets int     `yaml:"min_holdout_markets" validate:"gte=0"`
	MinTotalBets      int     `yaml:"min_total_bets" validate:"gte=0"`
	MinVisibleBets    int     `yaml:"min_visible_bets" validate:"gte=0"`
	MaxVisibleBets    int     `yaml:"max_visible_bets" validate:"gte=0"` // 0 = sin tope
	HighConfidence    float64 `yaml:"high_confidence" validate:"gte=0,lte=1"`
	MinMarkets        int     `yaml:"min_markets" validate:"gte=1"`
	ValidateTop       int     `yaml:"validate_top" validate:"gte=0"`

	// Tiers
	Tier1MaxSize int `yaml:"tier1_max_size" validate:"gte=1"`
	Tier1TopK    int `yaml:"tier1_top_k" validate:"gte=1"`
	Tier2MinSize int `yaml:"tier2_min_size" validate:"gte=1"`
	Tier2MaxSize int `yaml:"tier2_max_size" validate:"gte=1"`
	Tier2TopN    int `yaml:"tier2_top_n" validate:"gte=1"`
	Tier3Seeds   int `yaml:"tier3_seeds" validate:"gte=1"`
	PruneKeep    int `yaml:"prune_keep" validate:"gte=0"` // 0 = no podar
	Workers      int `yaml:"workers" validate:"gte=1"`

	ProgressIntervalSeconds int `yaml:"progress_interval_seconds" validate:"gte=1"`
}

// StorageConfig controla dónde se persisten los datos.
type StorageConfig struct {
	DSN string `yaml:"dsn" validate:"required"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level" validate:"loglevel"`         // debug | info | warn | error
	Format string `yaml:"format" validate:"oneof=text json"` // text | json
}

// MetricsConfig controla el endpoint Prometheus. Vacío = desactivado.
type MetricsConfig struct {
	Addr string `yaml:"addr" validate:"omitempty,hostname_port"`
}

// Default devuelve la configuración por defecto.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			WAccuracy:               0.35,
			WEdge:                   0.35,
			WFalsePositive:          0.20,
			WComplexity:             0.10,
			CutoffFraction:          0.70,
			HoldoutFraction:         0.20,
			MinHoldoutMarkets:       5,
			MinTotalBets:            5,
			MinVisibleBets:          3,
			MaxVisibleBets:          500,
			HighConfidence:          0.5,
			MinMarkets:              10,
			ValidateTop:             3,
			Tier1MaxSize:            3,
			Tier1TopK:               5,
			Tier2MinSize:            2,
			Tier2MaxSize:            3,
			Tier2TopN:               10,
			Tier3Seeds:              3,
			PruneKeep:               50,
			Workers:                 1,
			ProgressIntervalSeconds: 10,
		},
	}
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Los campos ausentes del YAML conservan su valor por defecto; un 0 explícito se
// respeta. Con path vacío se usan solo los defaults y el entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	cfg := Default()
	if path != "" {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
		}
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
		}
	}

	applyEnvOverrides(cfg)
	setDefaults(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return cfg, nil
}

// ProgressInterval devuelve el intervalo de log de progreso como time.Duration.
func (c *Config) ProgressInterval() time.Duration {
	return time.Duration(c.Engine.ProgressIntervalSeconds) * time.Second
}

// FitnessWeights devuelve los pesos del fitness. Con total_methods = 0 se
// normaliza por el tamaño del registry; se resuelve una vez al arrancar.
func (c *Config) FitnessWeights(registrySize int) domain.FitnessWeights {
	total := c.Engine.TotalMethods
	if total == 0 {
		total = registrySize
	}
	return domain.FitnessWeights{
		Accuracy:      c.Engine.WAccuracy,
		Edge:          c.Engine.WEdge,
		FalsePositive: c.Engine.WFalsePositive,
		Complexity:    c.Engine.WComplexity,
		TotalMethods:  total,
	}
}

// BacktestConfig devuelve la ventana de visibilidad y el umbral de confianza.
func (c *Config) BacktestConfig() engine.BacktestConfig {
	return engine.BacktestConfig{
		Visibility: domain.VisibilityConfig{
			CutoffFraction: c.Engine.CutoffFraction,
			MinTotalBets:   c.Engine.MinTotalBets,
			MinVisibleBets: c.Engine.MinVisibleBets,
			MaxVisibleBets: c.Engine.MaxVisibleBets,
		},
		HighConfidence: c.Engine.HighConfidence,
	}
}

// OptimizerConfig devuelve los límites de los tiers.
func (c *Config) OptimizerConfig() engine.OptimizerConfig {
	return engine.OptimizerConfig{
		Tier1MaxSize:     c.Engine.Tier1MaxSize,
		Tier1TopK:        c.Engine.Tier1TopK,
		Tier2MinSize:     c.Engine.Tier2MinSize,
		Tier2MaxSize:     c.Engine.Tier2MaxSize,
		Tier2TopN:        c.Engine.Tier2TopN,
		Tier3Seeds:       c.Engine.Tier3Seeds,
		PruneKeep:        c.Engine.PruneKeep,
		Workers:          c.Engine.Workers,
		ProgressInterval: c.ProgressInterval(),
	}
}

// PipelineConfig devuelve la configuración de carga y validación holdout.
func (c *Config) PipelineConfig() engine.PipelineConfig {
	return engine.PipelineConfig{
		MinBets:         c.Engine.MinTotalBets,
		MinMarkets:      c.Engine.MinMarkets,
		HoldoutFraction: c.Engine.HoldoutFraction,
		MinHoldout:      c.Engine.MinHoldoutMarkets,
		ValidateTop:     c.Engine.ValidateTop,
	}
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("ORACLE_DB"); v != "" {
		cfg.Storage.DSN = v
	}
	if v := os.Getenv("METRICS_ADDR"); v != "" {
		cfg.Metrics.Addr = v
	}
}

// setDefaults rellena los campos de texto que el YAML dejó vacíos.
func setDefaults(cfg *Config) {
	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "oraclebot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}
