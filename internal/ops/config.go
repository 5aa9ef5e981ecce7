package ops

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"orderdag/internal/bus"
	"orderdag/internal/chaos"
	"orderdag/pkg/conn"
)

const (
	EnvWebhookURL  = "SLACK_WEBHOOK_URL"
	EnvPostgresDSN = "ORDERDAG_PG_DSN"
)

const (
	SinkLog     = "log"
	SinkWebhook = "webhook"
)

// FileConfig mirrors the JSON config layout.
type FileConfig struct {
	Notification NotificationConfig `json:"notification"`
	Executor     ExecutorConfig     `json:"executor"`
	Paper        PaperConfig        `json:"paper"`
	Chaos        ChaosConfig        `json:"chaos"`
	Audit        AuditConfig        `json:"audit"`
	Profiling    ProfilingConfig    `json:"profiling"`
}

// NotificationConfig describes the notification channel and its sink.
type NotificationConfig struct {
	Capacity   int    `json:"capacity"`
	Policy     string `json:"policy"`
	Category   string `json:"category"`
	Sink       string `json:"sink"`
	WebhookURL string `json:"webhookUrl"`
}

// ExecutorConfig describes level execution limits.
type ExecutorConfig struct {
	MaxConcurrency int    `json:"maxConcurrency"`
	LevelTimeout   string `json:"levelTimeout"`
}

// PaperConfig describes the paper execution strategy.
type PaperConfig struct {
	Latency string `json:"latency"`
}

// ChaosConfig describes fault injection in front of the paper strategy.
type ChaosConfig struct {
	Seed      int64   `json:"seed"`
	FailRate  float64 `json:"failRate"`
	PanicRate float64 `json:"panicRate"`
	MaxDelay  string  `json:"maxDelay"`
}

// AuditConfig describes where run reports go.
type AuditConfig struct {
	ReportPath string          `json:"reportPath"`
	Postgres   *PostgresConfig `json:"postgres"`
}

// PostgresConfig describes the audit database.
type PostgresConfig struct {
	Host       string            `json:"host"`
	Port       int               `json:"port"`
	User       string            `json:"user"`
	Password   string            `json:"password"`
	Database   string            `json:"database"`
	SSLMode    string            `json:"sslMode"`
	Params     map[string]string `json:"params"`
	ConnString string            `json:"connString"`
}

// ProfilingConfig describes the optional continuous profiler.
type ProfilingConfig struct {
	Enabled         bool              `json:"enabled"`
	ApplicationName string            `json:"applicationName"`
	ServerAddress   string            `json:"serverAddress"`
	Tags            map[string]string `json:"tags"`
}

// Loaded is the resolved configuration ready for use.
type Loaded struct {
	Notification Notification
	Executor     Executor
	PaperLatency time.Duration
	Chaos        chaos.Config
	ReportPath   string
	Postgres     *conn.Option
	Profiling    ProfilingConfig
}

// Notification is the resolved notification setup.
type Notification struct {
	Capacity   int
	Policy     bus.Policy
	Category   string
	Sink       string
	WebhookURL string
}

// Executor is the resolved executor setup.
type Executor struct {
	MaxConcurrency int
	LevelTimeout   time.Duration
}

// Default returns the configuration used when no file is given.
func Default() Loaded {
	loaded, _ := Resolve(FileConfig{})
	return loaded
}

// Load reads a JSON config file and resolves it.
func Load(path string) (Loaded, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Loaded{}, err
	}
	var cfg FileConfig
	if err := json.Unmarshal(data, &cfg); err != nil {
		return Loaded{}, err
	}
	return Resolve(cfg)
}

// Resolve fills defaults, applies environment overrides and validates cfg.
func Resolve(cfg FileConfig) (Loaded, error) {
	notification, err := resolveNotification(cfg.Notification)
	if err != nil {
		return Loaded{}, err
	}
	exec, err := resolveExecutor(cfg.Executor)
	if err != nil {
		return Loaded{}, err
	}
	latency, err := parseDuration("paper.latency", cfg.Paper.Latency)
	if err != nil {
		return Loaded{}, err
	}
	chaosCfg, err := resolveChaos(cfg.Chaos)
	if err != nil {
		return Loaded{}, err
	}
	return Loaded{
		Notification: notification,
		Executor:     exec,
		PaperLatency: latency,
		Chaos:        chaosCfg,
		ReportPath:   cfg.Audit.ReportPath,
		Postgres:     resolvePostgres(cfg.Audit.Postgres),
		Profiling:    resolveProfiling(cfg.Profiling),
	}, nil
}

func resolveNotification(cfg NotificationConfig) (Notification, error) {
	policy, err := bus.ParsePolicy(cfg.Policy)
	if err != nil {
		return Notification{}, err
	}
	if cfg.Capacity < 0 {
		return Notification{}, fmt.Errorf("notification capacity must be >= 0")
	}
	if cfg.Capacity == 0 {
		cfg.Capacity = bus.DefaultCapacity
	}
	if cfg.Category == "" {
		cfg.Category = bus.CategoryOperations
	}
	if url := os.Getenv(EnvWebhookURL); url != "" {
		cfg.WebhookURL = url
	}
	if cfg.Sink == "" {
		cfg.Sink = SinkLog
		if cfg.WebhookURL != "" {
			cfg.Sink = SinkWebhook
		}
	}
	switch cfg.Sink {
	case SinkLog:
	case SinkWebhook:
		if cfg.WebhookURL == "" {
			return Notification{}, fmt.Errorf("webhook sink needs webhookUrl or %s", EnvWebhookURL)
		}
	default:
		return Notification{}, fmt.Errorf("unknown notification sink: %s", cfg.Sink)
	}
	return Notification{
		Capacity:   cfg.Capacity,
		Policy:     policy,
		Category:   cfg.Category,
		Sink:       cfg.Sink,
		WebhookURL: cfg.WebhookURL,
	}, nil
}

func resolveExecutor(cfg ExecutorConfig) (Executor, error) {
	if cfg.MaxConcurrency < 0 {
		return Executor{}, fmt.Errorf("executor maxConcurrency must be >= 0")
	}
	timeout, err := parseDuration("executor.levelTimeout", cfg.LevelTimeout)
	if err != nil {
		return Executor{}, err
	}
	return Executor{MaxConcurrency: cfg.MaxConcurrency, LevelTimeout: timeout}, nil
}

func resolveChaos(cfg ChaosConfig) (chaos.Config, error) {
	maxDelay, err := parseDuration("chaos.maxDelay", cfg.MaxDelay)
	if err != nil {
		return chaos.Config{}, err
	}
	out := chaos.Config{
		Seed:      cfg.Seed,
		FailRate:  cfg.FailRate,
		PanicRate: cfg.PanicRate,
		MaxDelay:  maxDelay,
	}
	if err := out.Validate(); err != nil {
		return chaos.Config{}, fmt.Errorf("invalid chaos config: %w", err)
	}
	return out, nil
}

func resolvePostgres(cfg *PostgresConfig) *conn.Option {
	dsn := os.Getenv(EnvPostgresDSN)
	if cfg == nil && dsn == "" {
		return nil
	}
	opt := &conn.Option{}
	if cfg != nil {
		opt.Host = cfg.Host
		opt.Port = cfg.Port
		opt.User = cfg.User
		opt.Password = cfg.Password
		opt.Database = cfg.Database
		opt.SSLMode = cfg.SSLMode
		opt.Params = cfg.Params
		opt.ConnString = cfg.ConnString
	}
	if dsn != "" {
		opt.ConnString = dsn
	}
	return opt
}

func resolveProfiling(cfg ProfilingConfig) ProfilingConfig {
	if !cfg.Enabled {
		return cfg
	}
	if cfg.ApplicationName == "" {
		cfg.ApplicationName = "orderdag.scheduler"
	}
	if cfg.ServerAddress == "" {
		cfg.ServerAddress = "http://localhost:4040"
	}
	return cfg
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", field, err)
	}
	if d < 0 {
		return 0, fmt.Errorf("%s must be >= 0", field)
	}
	return d, nil
}
