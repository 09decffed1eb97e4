package config

import (
	"fmt"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Config agrupa la configuración de la aplicación (lectura vía Viper desde env y opcionalmente archivo).
type Config struct {
	App    AppConfig
	DB     DBConfig
	JWT    JWTConfig
	HTTP   HTTPConfig
	IMAP   IMAPConfig
	ERP    ERPConfig
	Secret SecretConfig
}

// AppConfig configuración general de la aplicación.
type AppConfig struct {
	Env      string // development, staging, production
	Name     string
	LogLevel string
}

// DBConfig configuración de PostgreSQL.
// Si DatabaseURL no está vacío, se usa como connection string completo.
type DBConfig struct {
	DatabaseURL string
	Host        string
	Port        int
	User        string
	Password    string
	DBName      string
	SSLMode     string
	MaxConns    int32
	MinConns    int32
	ConnTimeout time.Duration
}

// ConnectionString devuelve el DSN a usar: DATABASE_URL si está definido, si no el construido con DSN().
func (c DBConfig) ConnectionString() string {
	if c.DatabaseURL != "" {
		return c.DatabaseURL
	}
	return c.DSN()
}

// DSN devuelve el connection string para PostgreSQL con URL encoding para caracteres especiales.
func (c DBConfig) DSN() string {
	u := &url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(c.User, c.Password),
		Host:     fmt.Sprintf("%s:%d", c.Host, c.Port),
		Path:     "/" + c.DBName,
		RawQuery: fmt.Sprintf("sslmode=%s", c.SSLMode),
	}
	return u.String()
}

// JWTConfig configuración de JWT.
type JWTConfig struct {
	Secret     string
	Expiration int // minutos
	Issuer     string
}

// HTTPConfig configuración del servidor HTTP.
type HTTPConfig struct {
	Host string
	Port int
}

// Addr devuelve la dirección de escucha (host:port).
func (c HTTPConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// IMAPConfig valores globales del cliente IMAP; los datos de cada buzón viven en la tabla imap_configs.
type IMAPConfig struct {
	DialTimeout         time.Duration
	DefaultParseTimeout time.Duration // se usa si la config del buzón no define uno; 0 = sin límite
}

// ERPConfig credenciales y parámetros del ERP externo.
type ERPConfig struct {
	BaseURL      string
	TokenURL     string
	ClientID     string
	ClientSecret string
	RefreshToken string
	Timeout      time.Duration
	Concurrency  int
	AutoSync     bool // sincronizar productos tras cada lote importado
}

// Enabled indica si hay credenciales suficientes para hablar con el ERP.
func (c ERPConfig) Enabled() bool {
	return c.BaseURL != "" && c.TokenURL != "" && c.ClientID != ""
}

// SecretConfig clave para cifrar credenciales en reposo.
type SecretConfig struct {
	CredentialKey string // 32 bytes
}

// Load lee la configuración desde variables de entorno (y opcionalmente desde archivo).
// Las env vars tienen prioridad. Nombres esperados: APP_ENV, DB_HOST, ERP_BASE_URL, etc.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigName(".env")
	v.SetConfigType("env")
	v.AddConfigPath(".")
	_ = v.ReadInConfig() // ignoramos error si no existe

	v.SetConfigName("config")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	_ = v.ReadInConfig()

	v.AutomaticEnv()
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	cfg := &Config{
		App: AppConfig{
			Env:      getString(v, "APP_ENV", "development"),
			Name:     getString(v, "APP_NAME", "producao-api"),
			LogLevel: getString(v, "LOG_LEVEL", "info"),
		},
		DB: DBConfig{
			DatabaseURL: getString(v, "DATABASE_URL", ""),
			Host:        getString(v, "DB_HOST", "localhost"),
			Port:        getInt(v, "DB_PORT", 5432),
			User:        getString(v, "DB_USER", "postgres"),
			Password:    getString(v, "DB_PASSWORD", ""),
			DBName:      getString(v, "DB_NAME", "producao"),
			SSLMode:     getString(v, "DB_SSLMODE", "disable"),
			MaxConns:    int32(getInt(v, "DB_MAX_CONNS", 10)),
			MinConns:    int32(getInt(v, "DB_MIN_CONNS", 1)),
			ConnTimeout: time.Duration(getInt(v, "DB_CONNECT_TIMEOUT_SECONDS", 10)) * time.Second,
		},
		JWT: JWTConfig{
			Secret:     getString(v, "JWT_SECRET", ""),
			Expiration: getInt(v, "JWT_EXPIRATION_MINUTES", 60),
			Issuer:     getString(v, "JWT_ISSUER", "producao-api"),
		},
		HTTP: HTTPConfig{
			Host: getString(v, "HTTP_HOST", "0.0.0.0"),
			Port: getInt(v, "HTTP_PORT", 8080),
		},
		IMAP: IMAPConfig{
			DialTimeout:         time.Duration(getInt(v, "IMAP_DIAL_TIMEOUT_SECONDS", 30)) * time.Second,
			DefaultParseTimeout: time.Duration(getInt(v, "IMAP_DEFAULT_PARSE_TIMEOUT_MS", 0)) * time.Millisecond,
		},
		ERP: ERPConfig{
			BaseURL:      strings.TrimRight(getString(v, "ERP_BASE_URL", ""), "/"),
			TokenURL:     getString(v, "ERP_TOKEN_URL", ""),
			ClientID:     getString(v, "ERP_CLIENT_ID", ""),
			ClientSecret: getString(v, "ERP_CLIENT_SECRET", ""),
			RefreshToken: getString(v, "ERP_REFRESH_TOKEN", ""),
			Timeout:      time.Duration(getInt(v, "ERP_TIMEOUT_SECONDS", 30)) * time.Second,
			Concurrency:  getInt(v, "ERP_SYNC_CONCURRENCY", 4),
			AutoSync:     getBool(v, "ERP_AUTO_SYNC", false),
		},
		Secret: SecretConfig{
			CredentialKey: getString(v, "CREDENTIAL_KEY", ""),
		},
	}

	if cfg.Secret.CredentialKey != "" && len(cfg.Secret.CredentialKey) != 32 {
		return nil, fmt.Errorf("CREDENTIAL_KEY debe tener exactamente 32 bytes, tiene %d", len(cfg.Secret.CredentialKey))
	}
	return cfg, nil
}

func getString(v *viper.Viper, key, def string) string {
	if v.IsSet(key) {
		return v.GetString(key)
	}
	return def
}

func getInt(v *viper.Viper, key string, def int) int {
	if v.IsSet(key) {
		switch v.Get(key).(type) {
		case int:
			return v.GetInt(key)
		case string:
			n, err := strconv.Atoi(v.GetString(key))
			if err != nil {
				return def
			}
			return n
		default:
			return v.GetInt(key)
		}
	}
	return def
}

func getBool(v *viper.Viper, key string, def bool) bool {
	if v.IsSet(key) {
		return v.GetBool(key)
	}
	return def
}
