package config

import (
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Database   DatabaseConfig   `mapstructure:"database"`
	JWT        JWTConfig        `mapstructure:"jwt"`
	CORS       CORSConfig       `mapstructure:"cors"`
	RateLimit  RateLimitConfig  `mapstructure:"rate_limit"`
	Logging    LoggingConfig    `mapstructure:"logging"`
	Email      EmailConfig      `mapstructure:"email"`
	Assets     AssetsConfig     `mapstructure:"assets"`
	Attendance AttendanceConfig `mapstructure:"attendance"`
	Card       CardConfig       `mapstructure:"card"`
	Worker     WorkerConfig     `mapstructure:"worker"`
	Webhooks   WebhooksConfig   `mapstructure:"webhooks"`
}

type ServerConfig struct {
	Host         string        `mapstructure:"host"`
	Port         int           `mapstructure:"port"`
	ReadTimeout  time.Duration `mapstructure:"read_timeout"`
	WriteTimeout time.Duration `mapstructure:"write_timeout"`
	IdleTimeout  time.Duration `mapstructure:"idle_timeout"`
}

type DatabaseConfig struct {
	URL            string `mapstructure:"url"`
	MaxConnections int    `mapstructure:"max_connections"`
	MigrationsDir  string `mapstructure:"migrations_dir"`
}

type JWTConfig struct {
	Secret          string        `mapstructure:"secret"`
	AccessTokenTTL  time.Duration `mapstructure:"access_token_ttl"`
	RefreshTokenTTL time.Duration `mapstructure:"refresh_token_ttl"`
}

type CORSConfig struct {
	AllowedOrigins []string `mapstructure:"allowed_origins"`
	AllowedMethods []string `mapstructure:"allowed_methods"`
	AllowedHeaders []string `mapstructure:"allowed_headers"`
	MaxAge         int      `mapstructure:"max_age"`
}

type RateLimitConfig struct {
	LoginPerMinute    int `mapstructure:"login_per_minute"`
	ScanPerMinute     int `mapstructure:"scan_per_minute"`
	CardPerMinute     int `mapstructure:"card_per_minute"`
	APIWritePerMinute int `mapstructure:"api_write_per_minute"`
}

type LoggingConfig struct {
	Level    string `mapstructure:"level"`
	Format   string `mapstructure:"format"`
	Output   string `mapstructure:"output"`
	FilePath string `mapstructure:"file_path"`
}

type EmailConfig struct {
	Provider    string         `mapstructure:"provider"`
	FromAddress string         `mapstructure:"from_address"`
	FromName    string         `mapstructure:"from_name"`
	Timeout     time.Duration  `mapstructure:"timeout"`
	SMTP        SMTPConfig     `mapstructure:"smtp"`
	SendGrid    SendGridConfig `mapstructure:"sendgrid"`
}

type SMTPConfig struct {
	Host     string `mapstructure:"host"`
	Port     int    `mapstructure:"port"`
	Username string `mapstructure:"username"`
	Password string `mapstructure:"password"`
}

type SendGridConfig struct {
	APIKey string `mapstructure:"api_key"`
}

type AssetsConfig struct {
	// Root holds the static/ tree: static/uploads and static/logos.
	Root          string `mapstructure:"root"`
	MaxUploadSize int64  `mapstructure:"max_upload_size"`
}

type AttendanceConfig struct {
	Timezone  string `mapstructure:"timezone"`
	LateAfter string `mapstructure:"late_after"`
}

type CardConfig struct {
	InstitutionTag   string   `mapstructure:"institution_tag"`
	HeaderLines      []string `mapstructure:"header_lines"`
	Year             string   `mapstructure:"year"`
	IDLabel          string   `mapstructure:"id_label"`
	Contact          string   `mapstructure:"contact"`
	ValidUntil       string   `mapstructure:"valid_until"`
	Footer           []string `mapstructure:"footer"`
	LogoPath         string   `mapstructure:"logo_path"`
	BarcodeSymbology string   `mapstructure:"barcode_symbology"`
	HeaderColor      string   `mapstructure:"header_color"`
	AccentColor      string   `mapstructure:"accent_color"`
	// CacheTTL keeps rendered PDFs in memory; zero disables the cache.
	CacheTTL time.Duration `mapstructure:"cache_ttl"`
}

type WorkerConfig struct {
	AbsenceSweepAt string `mapstructure:"absence_sweep_at"`
}

type WebhooksConfig struct {
	URLs    []string      `mapstructure:"urls"`
	Secret  string        `mapstructure:"secret"`
	Timeout time.Duration `mapstructure:"timeout"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.host", "0.0.0.0")
	v.SetDefault("server.port", 8001)
	v.SetDefault("server.read_timeout", 15*time.Second)
	v.SetDefault("server.write_timeout", 30*time.Second)
	v.SetDefault("server.idle_timeout", 60*time.Second)

	v.SetDefault("database.url", "file:data/attendr.db")
	v.SetDefault("database.max_connections", 10)
	v.SetDefault("database.migrations_dir", "migrations")

	v.SetDefault("jwt.secret", "")
	v.SetDefault("jwt.access_token_ttl", 30*time.Minute)
	v.SetDefault("jwt.refresh_token_ttl", 7*24*time.Hour)

	v.SetDefault("cors.allowed_origins", []string{"*"})
	v.SetDefault("cors.allowed_methods", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"})
	v.SetDefault("cors.allowed_headers", []string{"Authorization", "Content-Type"})
	v.SetDefault("cors.max_age", 600)

	v.SetDefault("rate_limit.login_per_minute", 20)
	v.SetDefault("rate_limit.scan_per_minute", 600)
	v.SetDefault("rate_limit.card_per_minute", 120)
	v.SetDefault("rate_limit.api_write_per_minute", 300)

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "json")
	v.SetDefault("logging.output", "stdout")
	v.SetDefault("logging.file_path", "")

	v.SetDefault("email.provider", "log")
	v.SetDefault("email.from_address", "noreply@lisfa.edu")
	v.SetDefault("email.from_name", "Liceo San Francisco de Asís")
	v.SetDefault("email.timeout", 10*time.Second)
	v.SetDefault("email.smtp.host", "smtp.gmail.com")
	v.SetDefault("email.smtp.port", 587)
	v.SetDefault("email.smtp.username", "")
	v.SetDefault("email.smtp.password", "")
	v.SetDefault("email.sendgrid.api_key", "")

	v.SetDefault("assets.root", ".")
	v.SetDefault("assets.max_upload_size", 5<<20)

	v.SetDefault("attendance.timezone", "UTC")
	v.SetDefault("attendance.late_after", "08:00")

	v.SetDefault("card.institution_tag", "LISFA")
	v.SetDefault("card.header_lines", []string{"LICEO SAN FRANCISCO", "DE ASÍS - LISFA"})
	v.SetDefault("card.year", "2026")
	v.SetDefault("card.id_label", "ID")
	v.SetDefault("card.contact", "+502 30624815")
	v.SetDefault("card.valid_until", "Dic 2026")
	v.SetDefault("card.footer", []string{
		"Este carnet es propiedad del",
		"Liceo San Francisco de Asís",
		"LISFA - Educación de Calidad",
	})
	v.SetDefault("card.logo_path", "/static/logos/logo.jpeg")
	v.SetDefault("card.barcode_symbology", "pseudo")
	v.SetDefault("card.cache_ttl", 10*time.Minute)

	v.SetDefault("worker.absence_sweep_at", "18:00")

	v.SetDefault("webhooks.urls", []string{})
	v.SetDefault("webhooks.secret", "")
	v.SetDefault("webhooks.timeout", 10*time.Second)
}

// Load reads the config file at path. Every key can be overridden from the
// environment with dots replaced by underscores (JWT_SECRET, SERVER_PORT...).
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	var config Config
	if err := v.Unmarshal(&config); err != nil {
		return nil, err
	}

	return &config, nil
}

// ParseClock parses "HH:MM" into an offset from midnight.
func ParseClock(s string) (time.Duration, error) {
	t, err := time.Parse("15:04", s)
	if err != nil {
		return 0, err
	}
	return time.Duration(t.Hour())*time.Hour + time.Duration(t.Minute())*time.Minute, nil
}
