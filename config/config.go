package config

import (
	"log/slog"
	"net"
	"strings"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-ozzo/ozzo-validation/v4/is"
	"github.com/spf13/viper"
)

const (
	EnvDev     = "dev"
	EnvStaging = "staging"
	EnvProd    = "prod"
)

const (
	LogLevelDebug = "debug"
	LogLevelInfo  = "info"
	LogLevelWarn  = "warn"
	LogLevelError = "error"
)

const (
	ModeTCP  = "tcp"
	ModeHTTP = "http"
)

const BalanceRoundRobin = "roundrobin"

const (
	ProbeTCP   = "tcp"
	ProbeMySQL = "mysql"
)

type GlobalConfig struct {
	Environment  string `mapstructure:"environment"`
	MaxConn      int    `mapstructure:"maxconn"`
	SpreadChecks int    `mapstructure:"spread_checks"`
	TCPKeepAlive bool   `mapstructure:"tcp_keepalive"`
}

type TimeoutConfig struct {
	Connect string `mapstructure:"connect"`
	Client  string `mapstructure:"client"`
	Server  string `mapstructure:"server"`
}

type HealthCheckConfig struct {
	Interval  string `mapstructure:"interval"`
	Timeout   string `mapstructure:"timeout"`
	Rise      int    `mapstructure:"rise"`
	Fall      int    `mapstructure:"fall"`
	Probe     string `mapstructure:"probe"`
	MySQLUser string `mapstructure:"mysql_user"`
}

type ServerConfig struct {
	Name          string `mapstructure:"name"`
	Address       string `mapstructure:"address"`
	CheckInterval string `mapstructure:"check_interval"`
	Backup        bool   `mapstructure:"backup"`
}

type ListenerConfig struct {
	Name    string         `mapstructure:"name"`
	Bind    string         `mapstructure:"bind"`
	Mode    string         `mapstructure:"mode"`
	Balance string         `mapstructure:"balance"`
	Servers []ServerConfig `mapstructure:"servers"`
}

type LoggingConfig struct {
	Level string `mapstructure:"level"`
}

type Config struct {
	Global      GlobalConfig      `mapstructure:"global"`
	Timeouts    TimeoutConfig     `mapstructure:"timeouts"`
	HealthCheck HealthCheckConfig `mapstructure:"health_check"`
	Listeners   []ListenerConfig  `mapstructure:"listeners"`
	Logging     LoggingConfig     `mapstructure:"logging"`
}

func Load() (*Config, error) {
	viper.SetDefault("global.environment", EnvDev)
	viper.SetDefault("global.maxconn", 2000)
	viper.SetDefault("global.spread_checks", 5)
	viper.SetDefault("global.tcp_keepalive", true)
	viper.SetDefault("timeouts.connect", "5s")
	viper.SetDefault("timeouts.client", "50s")
	viper.SetDefault("timeouts.server", "50s")
	viper.SetDefault("health_check.interval", "2s")
	viper.SetDefault("health_check.timeout", "3s")
	viper.SetDefault("health_check.rise", 2)
	viper.SetDefault("health_check.fall", 3)
	viper.SetDefault("health_check.probe", ProbeTCP)
	viper.SetDefault("logging.level", LogLevelInfo)

	viper.SetConfigName("config")
	viper.SetConfigType("yaml")
	viper.AddConfigPath("./config")
	viper.AddConfigPath(".")

	viper.AutomaticEnv()
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))

	if err := viper.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			slog.Error("failed to read config file", slog.String("error", err.Error()))
			return nil, err
		}
		slog.Warn("config file not found, using defaults and environment variables")
	} else {
		slog.Info("loaded config file", slog.String("file", viper.ConfigFileUsed()))
	}

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		slog.Error("failed to unmarshal config", slog.String("error", err.Error()))
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		slog.Error("invalid configuration", slog.String("error", err.Error()))
		return nil, err
	}

	return &cfg, nil
}

func (c *Config) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Global,
			validation.Required,
			validation.By(func(value interface{}) error {
				gc, ok := value.(GlobalConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a GlobalConfig")
				}
				return validation.ValidateStruct(&gc,
					validation.Field(&gc.Environment,
						validation.Required,
						validation.In(EnvDev, EnvStaging, EnvProd),
					),
					validation.Field(&gc.MaxConn,
						validation.Min(1),
					),
					validation.Field(&gc.SpreadChecks,
						validation.Min(0),
						validation.Max(50),
					),
				)
			}),
		),
		validation.Field(&c.Timeouts,
			validation.Required,
			validation.By(func(value interface{}) error {
				tc, ok := value.(TimeoutConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a TimeoutConfig")
				}
				return validation.ValidateStruct(&tc,
					validation.Field(&tc.Connect, validation.Required, validation.By(validateDuration)),
					validation.Field(&tc.Client, validation.Required, validation.By(validateDuration)),
					validation.Field(&tc.Server, validation.Required, validation.By(validateDuration)),
				)
			}),
		),
		validation.Field(&c.HealthCheck,
			validation.Required,
			validation.By(validateHealthCheck),
		),
		validation.Field(&c.Listeners,
			validation.Required,
			validation.Length(1, 0),
			validation.Each(validation.By(validateListenerConfig)),
		),
		validation.Field(&c.Logging,
			validation.Required,
			validation.By(func(value interface{}) error {
				lc, ok := value.(LoggingConfig)
				if !ok {
					return validation.NewError("validation_invalid_type", "must be a LoggingConfig")
				}
				return validation.ValidateStruct(&lc,
					validation.Field(&lc.Level,
						validation.Required,
						validation.In(LogLevelDebug, LogLevelInfo, LogLevelWarn, LogLevelError),
					),
				)
			}),
		),
	)
}

func validateHealthCheck(value interface{}) error {
	hc, ok := value.(HealthCheckConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a HealthCheckConfig")
	}

	if err := validation.ValidateStruct(&hc,
		validation.Field(&hc.Interval, validation.Required, validation.By(validateDuration)),
		validation.Field(&hc.Timeout, validation.Required, validation.By(validateDuration)),
		validation.Field(&hc.Rise, validation.Required, validation.Min(1)),
		validation.Field(&hc.Fall, validation.Required, validation.Min(1)),
		validation.Field(&hc.Probe, validation.Required, validation.In(ProbeTCP, ProbeMySQL)),
	); err != nil {
		return err
	}

	if hc.Probe == ProbeMySQL && hc.MySQLUser == "" {
		return validation.NewError("validation_missing_probe_user", "mysql probe requires mysql_user")
	}

	return nil
}

func validateListenerConfig(value interface{}) error {
	lc, ok := value.(ListenerConfig)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a ListenerConfig")
	}

	if err := validation.ValidateStruct(&lc,
		validation.Field(&lc.Name, validation.Required),
		validation.Field(&lc.Bind, validation.Required, validation.By(validateHostPort)),
		validation.Field(&lc.Mode, validation.Required, validation.In(ModeTCP, ModeHTTP)),
	); err != nil {
		return err
	}

	if lc.Mode == ModeHTTP {
		if len(lc.Servers) > 0 {
			return validation.NewError("validation_unexpected_servers", "http listeners do not take servers")
		}
		return nil
	}

	if lc.Balance != BalanceRoundRobin {
		return validation.NewError("validation_invalid_balance", "balance must be roundrobin")
	}

	if len(lc.Servers) == 0 {
		return validation.NewError("validation_empty_pool", "tcp listener needs at least one server")
	}

	seen := make(map[string]bool, len(lc.Servers))
	for _, sc := range lc.Servers {
		if err := validateServerConfig(sc); err != nil {
			return err
		}
		if seen[sc.Name] {
			return validation.NewError("validation_duplicate_server", "duplicate server name "+sc.Name)
		}
		seen[sc.Name] = true
	}

	return nil
}

func validateServerConfig(sc ServerConfig) error {
	return validation.ValidateStruct(&sc,
		validation.Field(&sc.Name, validation.Required),
		validation.Field(&sc.Address, validation.Required, validation.By(validateHostPort)),
		validation.Field(&sc.CheckInterval, validation.By(validateDuration)),
	)
}

func validateHostPort(value interface{}) error {
	addr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	host, port, err := net.SplitHostPort(addr)
	if err != nil {
		return validation.NewError("validation_invalid_hostport", "must be in host:port format")
	}

	if port == "" {
		return validation.NewError("validation_invalid_port", "port cannot be empty")
	}

	if host != "" {
		if err := is.Host.Validate(host); err != nil {
			return validation.NewError("validation_invalid_host", "invalid host")
		}
	}

	return nil
}

func validateDuration(value interface{}) error {
	durationStr, ok := value.(string)
	if !ok {
		return validation.NewError("validation_invalid_type", "must be a string")
	}

	if durationStr == "" {
		return nil
	}

	if _, err := time.ParseDuration(durationStr); err != nil {
		return validation.NewError("validation_invalid_duration", "must be a valid duration (e.g., 2s, 5m, 1h)")
	}

	return nil
}
