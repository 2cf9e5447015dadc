package config

import "fmt"

type ServerConfig struct {
	Host    string `mapstructure:"host"`
	Port    int    `mapstructure:"port"`
	Mode    string `mapstructure:"mode"`
	BaseURL string `mapstructure:"base_url"`
}

func (s *ServerConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

type DatabaseConfig struct {
	Host            string `mapstructure:"host"`
	Port            int    `mapstructure:"port"`
	Username        string `mapstructure:"username"`
	Password        string `mapstructure:"password"`
	Database        string `mapstructure:"database"`
	MaxIdleConns    int    `mapstructure:"max_idle_conns"`
	MaxOpenConns    int    `mapstructure:"max_open_conns"`
	ConnMaxLifetime int    `mapstructure:"conn_max_lifetime"`
}

func (d *DatabaseConfig) GetDSN() string {
	return fmt.Sprintf("%s:%s@tcp(%s:%d)/%s?charset=utf8mb4&parseTime=True&loc=Local",
		d.Username, d.Password, d.Host, d.Port, d.Database)
}

type LoggerConfig struct {
	Level      string `mapstructure:"level"`
	Format     string `mapstructure:"format"`
	OutputPath string `mapstructure:"output_path"`
}

type RedisConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

func (r *RedisConfig) GetAddr() string {
	return fmt.Sprintf("%s:%d", r.Host, r.Port)
}

type EmailConfig struct {
	SMTPHost     string `mapstructure:"smtp_host"`
	SMTPPort     int    `mapstructure:"smtp_port"`
	SMTPUser     string `mapstructure:"smtp_user"`
	SMTPPassword string `mapstructure:"smtp_password"`
	FromAddress  string `mapstructure:"from_address"`
	FromName     string `mapstructure:"from_name"`
	AlertTo      string `mapstructure:"alert_to"`
}

// MonitorConfig holds the health monitoring engine tunables.
// All thresholds are configuration inputs rather than constants so a later
// product decision can make them per-tenant without touching the engine.
type MonitorConfig struct {
	CheckIntervalSeconds int     `mapstructure:"check_interval_seconds"`
	SuccessRateThreshold float64 `mapstructure:"success_rate_threshold"`
	LatencyThresholdMs   uint32  `mapstructure:"latency_threshold_ms"`
	TimeoutFloorMs       uint32  `mapstructure:"timeout_floor_ms"`
	TimeoutCeilingMs     uint32  `mapstructure:"timeout_ceiling_ms"`
	MaxConcurrentProbes  int64   `mapstructure:"max_concurrent_probes"`
	StatusWindow         int     `mapstructure:"status_window"`
	ProbeHistoryLimit    int     `mapstructure:"probe_history_limit"`
}

type CredentialConfig struct {
	// EncryptionKey is the hex-encoded 32-byte AES key used to decrypt
	// stored endpoint credentials.
	EncryptionKey string `mapstructure:"encryption_key"`
}
