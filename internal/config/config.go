package config

import (
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Services  ServicesConfig
	Remote    RemoteConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Keycloak  KeycloakConfig
	Mimir     MimirConfig
	Scheduler SchedulerConfig
	Rollout   RolloutConfig
	Logger    LoggerConfig
}

type ServerConfig struct {
	Port string
	Mode string
}

// ServicesConfig holds host and endpoint of every downstream service.
type ServicesConfig struct {
	MdmsHost                string
	MdmsEndpoint            string
	WaterConnectionHost     string
	WaterConnectionEndpoint string
	PropertyHost            string
	PropertySearchEndpoint  string
	WorkflowHost            string
	WorkflowProcessEndpoint string
	BillingServiceHost      string
	FetchBillEndpoint       string
}

type RemoteConfig struct {
	Timeout       time.Duration
	RatePerSecond float64
	Burst         int
}

type DatabaseConfig struct {
	URL            string
	MaxConnections int
	MaxIdleConns   int
}

type RedisConfig struct {
	URL   string
	Queue string
}

type KeycloakConfig struct {
	Enabled bool
	URL     string
	Realm   string
}

type MimirConfig struct {
	URL           string
	TenantHeader  string
	BatchSize     int
	FlushInterval time.Duration
	AuthToken     string
}

type SchedulerConfig struct {
	Interval time.Duration
	Tenants  []string
}

type RolloutConfig struct {
	RootTenant  string
	StatePrefix string
	Workers     int
}

type LoggerConfig struct {
	Level string
}

func Load() (*Config, error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	v.SetEnvPrefix("WSCALC")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	// Override with environment variables
	if url := os.Getenv("DATABASE_URL"); url != "" {
		cfg.Database.URL = url
	}
	if url := os.Getenv("REDIS_URL"); url != "" {
		cfg.Redis.URL = url
	}
	if url := os.Getenv("KEYCLOAK_URL"); url != "" {
		cfg.Keycloak.URL = url
	}
	if url := os.Getenv("MIMIR_URL"); url != "" {
		cfg.Mimir.URL = url
	}
	if token := os.Getenv("MIMIR_AUTH_TOKEN"); token != "" {
		cfg.Mimir.AuthToken = token
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.port", "8080")
	v.SetDefault("server.mode", "release")

	v.SetDefault("services.mdmshost", "http://egov-mdms-service:8080")
	v.SetDefault("services.mdmsendpoint", "/egov-mdms-service/v1/_search")
	v.SetDefault("services.waterconnectionhost", "http://ws-services:8080")
	v.SetDefault("services.waterconnectionendpoint", "/ws-services/wc/_search")
	v.SetDefault("services.propertyhost", "http://property-services:8080")
	v.SetDefault("services.propertysearchendpoint", "/property-services/property/_search")
	v.SetDefault("services.workflowhost", "http://egov-workflow-v2:8080")
	v.SetDefault("services.workflowprocessendpoint", "/egov-workflow-v2/egov-wf/process/_search")
	v.SetDefault("services.billingservicehost", "http://billing-service:8080")
	v.SetDefault("services.fetchbillendpoint", "/billing-service/bill/v2/_fetchbill")

	v.SetDefault("remote.timeout", "30s")
	v.SetDefault("remote.ratepersecond", 50)
	v.SetDefault("remote.burst", 10)

	v.SetDefault("database.maxconnections", 25)
	v.SetDefault("database.maxidleconns", 5)

	v.SetDefault("redis.url", "redis://localhost:6379/0")
	v.SetDefault("redis.queue", "ws_billing_jobs")

	v.SetDefault("keycloak.enabled", false)

	v.SetDefault("mimir.tenantheader", "X-Scope-OrgID")
	v.SetDefault("mimir.batchsize", 1000)
	v.SetDefault("mimir.flushinterval", "10s")

	v.SetDefault("scheduler.interval", "1h")

	v.SetDefault("rollout.roottenant", "pb")
	v.SetDefault("rollout.stateprefix", "pb")
	v.SetDefault("rollout.workers", 4)

	v.SetDefault("logger.level", "info")
}
