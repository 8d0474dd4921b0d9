package config

import (
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config es la configuración completa del bot.
type Config struct {
	Trading TradingConfig `yaml:"trading"`
	Scanner ScannerConfig `yaml:"scanner"`
	Exits   ExitsConfig   `yaml:"exits"`
	API     APIConfig     `yaml:"api"`
	Storage StorageConfig `yaml:"storage"`
	Log     LogConfig     `yaml:"log"`
}

// TradingConfig controla sizing, límites de capital y timeouts de órdenes.
type TradingConfig struct {
	InitialBalanceCents int64   `yaml:"initial_balance_cents"` // solo dry-run; en live se lee del exchange
	MinPositionPct      float64 `yaml:"min_position_pct"`
	MaxPositionPct      float64 `yaml:"max_position_pct"`
	MinContracts        int64   `yaml:"min_contracts"`
	MaxContracts        int64   `yaml:"max_contracts"`
	MaxPriceCents       int64   `yaml:"max_price_cents"`
	MaxPositions        int     `yaml:"max_positions"`
	Compounding         bool    `yaml:"compounding"`
	OrderTimeoutSeconds int     `yaml:"order_timeout_seconds"`
	PollSeconds         int     `yaml:"poll_seconds"`
	DryRun              bool    `yaml:"dry_run"`
}

// ScannerConfig controla el escaneo de mercados.
type ScannerConfig struct {
	IntervalSeconds   int     `yaml:"interval_seconds"`
	MinVolume         int64   `yaml:"min_volume"`
	MinVolume24h      int64   `yaml:"min_volume_24h"`
	MinProbability    float64 `yaml:"min_probability"`
	MaxProbability    float64 `yaml:"max_probability"`
	MaxHoursToClose   float64 `yaml:"max_hours_to_close"`
	MinHoursToClose   float64 `yaml:"min_hours_to_close"`
	MinLiquidityCents int64   `yaml:"min_liquidity_cents"`
	DepthCents        int64   `yaml:"depth_cents"`
	MaxResults        int     `yaml:"max_results"`
}

// ExitsConfig controla el monitor de posiciones y las condiciones de salida.
type ExitsConfig struct {
	CadenceSeconds    int     `yaml:"cadence_seconds"`
	ProfitTargetPct   float64 `yaml:"profit_target_pct"`
	StopLossPct       float64 `yaml:"stop_loss_pct"` // 0 = sin stop
	StopLossMinVolume int64   `yaml:"stop_loss_min_volume"`
	Precedence        string  `yaml:"precedence"` // profit_target | stop_loss
}

// APIConfig contiene el endpoint, credenciales y presupuesto de requests.
// El API key y la ruta de la clave privada vienen del .env, nunca del YAML.
type APIConfig struct {
	BaseURL           string  `yaml:"base_url"`
	KeyID             string  `yaml:"-"`
	PrivateKeyPath    string  `yaml:"-"`
	RequestsPerSecond float64 `yaml:"requests_per_second"`
	Burst             int     `yaml:"burst"`
	MaxWaitSeconds    float64 `yaml:"max_wait_seconds"`
}

// StorageConfig controla dónde se persiste el journal.
type StorageConfig struct {
	DSN string `yaml:"dsn"` // ruta al archivo SQLite, o ":memory:"
}

// LogConfig controla el formato y nivel de logging.
type LogConfig struct {
	Level  string `yaml:"level"`  // debug | info | warn | error
	Format string `yaml:"format"` // text | json
}

// Load carga la configuración desde el archivo YAML y el archivo .env si existe.
// Las credenciales solo se leen del entorno.
func Load(path string) (*Config, error) {
	// Cargar .env si existe (silencia error si no hay archivo)
	_ = godotenv.Load()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config.Load: read %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config.Load: parse YAML: %w", err)
	}

	applyEnvOverrides(&cfg)
	setDefaults(&cfg)

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("config.Load: %w", err)
	}
	return &cfg, nil
}

// ScanInterval devuelve el intervalo de escaneo como time.Duration.
func (c *Config) ScanInterval() time.Duration {
	return time.Duration(c.Scanner.IntervalSeconds) * time.Second
}

// OrderTimeout devuelve el timeout de órdenes como time.Duration.
func (c *Config) OrderTimeout() time.Duration {
	return time.Duration(c.Trading.OrderTimeoutSeconds) * time.Second
}

// PollInterval devuelve la cadencia de polling de fills.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Trading.PollSeconds) * time.Second
}

// ExitCadence devuelve la cadencia del monitor de salidas.
func (c *Config) ExitCadence() time.Duration {
	return time.Duration(c.Exits.CadenceSeconds) * time.Second
}

// RateGateMaxWait devuelve el techo de espera del rate gate.
func (c *Config) RateGateMaxWait() time.Duration {
	return time.Duration(c.API.MaxWaitSeconds * float64(time.Second))
}

// applyEnvOverrides sobreescribe valores con variables de entorno si están presentes.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("KALSHI_API_KEY_ID"); v != "" {
		cfg.API.KeyID = v
	}
	if v := os.Getenv("KALSHI_PRIVATE_KEY_PATH"); v != "" {
		cfg.API.PrivateKeyPath = v
	}
	if v := os.Getenv("LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
}

// setDefaults asegura que los valores requeridos tengan valores sensatos.
func setDefaults(cfg *Config) {
	if cfg.Trading.InitialBalanceCents <= 0 {
		cfg.Trading.InitialBalanceCents = 100_000 // $1000 en dry-run
	}
	if cfg.Trading.MaxPositionPct <= 0 {
		cfg.Trading.MaxPositionPct = 0.10
	}
	if cfg.Trading.MinContracts <= 0 {
		cfg.Trading.MinContracts = 1
	}
	if cfg.Trading.MaxPriceCents <= 0 {
		cfg.Trading.MaxPriceCents = 95
	}
	if cfg.Trading.MaxPositions <= 0 {
		cfg.Trading.MaxPositions = 10
	}
	if cfg.Trading.OrderTimeoutSeconds <= 0 {
		cfg.Trading.OrderTimeoutSeconds = 300
	}
	if cfg.Trading.PollSeconds <= 0 {
		cfg.Trading.PollSeconds = 2
	}

	if cfg.Scanner.IntervalSeconds <= 0 {
		cfg.Scanner.IntervalSeconds = 60
	}
	if cfg.Scanner.MinProbability <= 0 {
		cfg.Scanner.MinProbability = 0.70
	}
	if cfg.Scanner.MaxProbability <= 0 {
		cfg.Scanner.MaxProbability = 0.95
	}
	if cfg.Scanner.MaxHoursToClose <= 0 {
		cfg.Scanner.MaxHoursToClose = 72
	}
	if cfg.Scanner.DepthCents <= 0 {
		cfg.Scanner.DepthCents = 5
	}

	if cfg.Exits.CadenceSeconds <= 0 {
		cfg.Exits.CadenceSeconds = 15
	}
	if cfg.Exits.ProfitTargetPct <= 0 {
		cfg.Exits.ProfitTargetPct = 0.10
	}
	if cfg.Exits.Precedence == "" {
		cfg.Exits.Precedence = "profit_target"
	}

	if cfg.API.RequestsPerSecond <= 0 {
		cfg.API.RequestsPerSecond = 8
	}
	if cfg.API.Burst <= 0 {
		cfg.API.Burst = 16
	}
	if cfg.API.MaxWaitSeconds <= 0 {
		cfg.API.MaxWaitSeconds = 5
	}

	if cfg.Storage.DSN == "" {
		cfg.Storage.DSN = "kalshibot.db"
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}
}

// validate rechaza configuraciones incoherentes antes de arrancar.
func (c *Config) validate() error {
	t := c.Trading
	if t.MinPositionPct < 0 || t.MaxPositionPct > 1 || t.MinPositionPct > t.MaxPositionPct {
		return fmt.Errorf("trading: position pct fuera de rango (min=%.2f max=%.2f)",
			t.MinPositionPct, t.MaxPositionPct)
	}
	if t.MaxContracts > 0 && t.MaxContracts < t.MinContracts {
		return fmt.Errorf("trading: max_contracts %d < min_contracts %d", t.MaxContracts, t.MinContracts)
	}
	if c.Scanner.MinProbability >= c.Scanner.MaxProbability {
		return fmt.Errorf("scanner: banda de probabilidad vacía (%.2f ≥ %.2f)",
			c.Scanner.MinProbability, c.Scanner.MaxProbability)
	}
	if p := c.Exits.Precedence; p != "profit_target" && p != "stop_loss" {
		return fmt.Errorf("exits: precedence inválida %q", p)
	}
	if !t.DryRun && (c.API.KeyID == "" || c.API.PrivateKeyPath == "") {
		return fmt.Errorf("api: faltan credenciales (KALSHI_API_KEY_ID / KALSHI_PRIVATE_KEY_PATH)")
	}
	return nil
}
