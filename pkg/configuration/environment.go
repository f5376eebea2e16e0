package configuration

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/dealdesk/dealdesk/pkg/logging"
)

const Production = "production"

var singleton = sync.OnceValue(func() *Configuration {
	c := &Configuration{}
	if err := c.load([]string{".env", ".env.local"}); err != nil {
		c.Unload()
		panic(err)
	}
	return c
})

func LoadEnv(envFiles []string) (int, error) {
	existing := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if _, err := os.Stat(file); err == nil {
			existing = append(existing, file)
		}
	}
	if len(existing) == 0 {
		return 0, nil
	}
	return len(existing), godotenv.Load(existing...)
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"dealdesk"`
	Host     string `env:"DB_HOST" envDefault:"localhost"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER" envDefault:"postgres"`
	Password string `env:"DB_PASSWORD" envDefault:"postgres"`
}

func (d *DatabaseOptions) ConnectionString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s dbname=%s password=%s sslmode=disable",
		d.Host, d.Port, d.User, d.Name, d.Password,
	)
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

// PipelineOptions configure the cosmetic/derived knobs of the deal pipeline.
// The stage and status vocabularies themselves are fixed.
type PipelineOptions struct {
	// Stage name that counts as the terminal success bucket for the
	// conversion rate metric.
	WonStageName string `env:"PIPELINE_WON_STAGE" envDefault:"Closed Won"`
	// Both flags must be true for a request to count as document-complete.
	DocumentFlags []string `env:"PIPELINE_DOCUMENT_FLAGS" envDefault:"nda_signed,fee_agreement_signed" envSeparator:","`
}

type EnrichmentOptions struct {
	Endpoint            string        `env:"ENRICHMENT_ENDPOINT"`
	BatchSize           int           `env:"ENRICHMENT_BATCH_SIZE" envDefault:"14"`
	MaxConsecutiveFails int           `env:"ENRICHMENT_MAX_CONSECUTIVE_FAILS" envDefault:"3"`
	SubmitTimeout       time.Duration `env:"ENRICHMENT_SUBMIT_TIMEOUT" envDefault:"30s"`
}

func (e *EnrichmentOptions) Validate() error {
	if e.BatchSize <= 0 {
		return fmt.Errorf("enrichment batch size must be positive, got %d", e.BatchSize)
	}
	if e.MaxConsecutiveFails <= 0 {
		return fmt.Errorf("enrichment max consecutive fails must be positive, got %d", e.MaxConsecutiveFails)
	}
	return nil
}

type Configuration struct {
	Database   DatabaseOptions
	Prometheus PrometheusOptions
	Pipeline   PipelineOptions
	Enrichment EnrichmentOptions

	// Redis is optional; when unset the cross-instance invalidation
	// broadcast is disabled and the view cache stays process-local.
	RedisURL string `env:"REDIS_URL"`

	// NotificationWebhook receives decision notices; empty disables
	// dispatch.
	NotificationWebhook string `env:"NOTIFICATION_WEBHOOK_URL"`

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	LogLevel         string `env:"LOG_LEVEL" envDefault:"error"`
	LogPath          string `env:"LOG_PATH" envDefault:"./logs/app.log"`
	RequestIDHeader  string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	RealIPHeader     string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	PageSize         int    `env:"PAGE_SIZE" envDefault:"25"`
	MaxPageSize      int    `env:"MAX_PAGE_SIZE" envDefault:"100"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.LogLevel {
	case "silent":
		return logrus.PanicLevel
	case "error":
		return logrus.ErrorLevel
	case "warn":
		return logrus.WarnLevel
	case "info":
		return logrus.InfoLevel
	case "debug":
		return logrus.DebugLevel
	default:
		return logrus.ErrorLevel
	}
}

func Use() *Configuration {
	return singleton()
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Enrichment.Validate(); err != nil {
		return fmt.Errorf("enrichment configuration error: %w", err)
	}
	if len(c.Pipeline.DocumentFlags) != 2 {
		return fmt.Errorf("expected exactly two document flags, got %d", len(c.Pipeline.DocumentFlags))
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.LogPath)
	if err != nil {
		return err
	}
	c.logFile = f
	c.logger = logger

	c.Database.Opts = c.Database.ConnectionString()
	if c.GoAppEnvironment == Production {
		c.SocketAddress = fmt.Sprintf(":%d", c.ServerPort)
	} else {
		c.SocketAddress = fmt.Sprintf("localhost:%d", c.ServerPort)
	}
	return nil
}

func (c *Configuration) Unload() {
	if c.logFile != nil {
		_ = c.logFile.Close()
	}
}
