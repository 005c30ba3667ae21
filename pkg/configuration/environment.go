package configuration

import (
	"errors"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
	"github.com/sirupsen/logrus"

	"github.com/Mas0n1x/Personalsystem-Dev-sub000/pkg/logging"
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

// LoadEnv loads the env files that exist, looking in the working directory first
// and then in the nearest parent that holds a go.mod.
func LoadEnv(envFiles []string) (int, error) {
	existingFiles := make([]string, 0, len(envFiles))
	for _, file := range envFiles {
		if fileExists(file) {
			existingFiles = append(existingFiles, file)
		}
	}

	if len(existingFiles) == 0 {
		if root, ok := findModuleRoot(); ok {
			for _, file := range envFiles {
				candidate := filepath.Join(root, file)
				if fileExists(candidate) {
					existingFiles = append(existingFiles, candidate)
				}
			}
		}
	}

	if len(existingFiles) == 0 {
		return 0, nil
	}

	return len(existingFiles), godotenv.Load(existingFiles...)
}

func fileExists(path string) bool {
	info, err := os.Stat(path)
	return err == nil && !info.IsDir()
}

func findModuleRoot() (string, bool) {
	dir, err := os.Getwd()
	if err != nil {
		return "", false
	}
	for {
		if fileExists(filepath.Join(dir, "go.mod")) {
			return dir, true
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return "", false
		}
		dir = parent
	}
}

type DatabaseOptions struct {
	Opts     string `env:"-"`
	Name     string `env:"DB_NAME" envDefault:"personnel"`
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

type LogOptions struct {
	Level string `env:"LOG_LEVEL" envDefault:"error"`
	Path  string `env:"LOG_PATH" envDefault:"./logs/app.log"`
}

type OpenTelemetryOptions struct {
	Enabled     bool   `env:"OTEL_ENABLED" envDefault:"false"`
	TempoURL    string `env:"OTEL_TEMPO_URL" envDefault:"localhost:4318"`
	ServiceName string `env:"OTEL_SERVICE_NAME" envDefault:"personnel"`
}

type PrometheusOptions struct {
	Enabled bool   `env:"PROMETHEUS_METRICS_ENABLED" envDefault:"false"`
	Path    string `env:"PROMETHEUS_METRICS_PATH" envDefault:"/debug/prometheus"`
}

type BroadcastOptions struct {
	Enabled  bool   `env:"BROADCAST_ENABLED" envDefault:"false"`
	RedisURL string `env:"REDIS_URL" envDefault:"localhost:6379"`
	Channel  string `env:"BROADCAST_CHANNEL" envDefault:"personnel:live"`
}

type DiscordOptions struct {
	BotToken        string `env:"DISCORD_BOT_TOKEN"`
	GuildID         string `env:"DISCORD_GUILD_ID"`
	InviteChannelID string `env:"DISCORD_INVITE_CHANNEL_ID"`
	HireRoleIDs     string `env:"DISCORD_HIRE_ROLE_IDS" envDefault:""`
}

func (d *DiscordOptions) Enabled() bool {
	return strings.TrimSpace(d.BotToken) != "" && strings.TrimSpace(d.GuildID) != ""
}

// RoleIDs splits DISCORD_HIRE_ROLE_IDS on commas and whitespace.
func (d *DiscordOptions) RoleIDs() []string {
	parts := strings.FieldsFunc(d.HireRoleIDs, func(r rune) bool {
		return r == ',' || r == ' ' || r == '\n' || r == '\t'
	})
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

type RecruitmentOptions struct {
	StartRankLevel     int           `env:"RECRUITMENT_START_RANK_LEVEL" envDefault:"1"`
	ConfigCacheTTL     time.Duration `env:"RECRUITMENT_CONFIG_CACHE_TTL" envDefault:"5m"`
	BadgeClaimAttempts int           `env:"RECRUITMENT_BADGE_CLAIM_ATTEMPTS" envDefault:"25"`
	InviteTTL          time.Duration `env:"RECRUITMENT_INVITE_TTL" envDefault:"24h"`
	InviteMaxUses      int           `env:"RECRUITMENT_INVITE_MAX_USES" envDefault:"1"`
}

// Validate checks the recruitment options for errors. The rank level itself is
// checked against the rank table by the recruitment module.
func (r *RecruitmentOptions) Validate() error {
	if r.StartRankLevel <= 0 {
		return fmt.Errorf("recruitment StartRankLevel must be positive, got %d", r.StartRankLevel)
	}
	if r.ConfigCacheTTL <= 0 {
		return fmt.Errorf("recruitment ConfigCacheTTL must be positive, got %s", r.ConfigCacheTTL)
	}
	if r.BadgeClaimAttempts <= 0 {
		return fmt.Errorf("recruitment BadgeClaimAttempts must be positive, got %d", r.BadgeClaimAttempts)
	}
	if r.InviteTTL < 0 {
		return fmt.Errorf("recruitment InviteTTL must be non-negative, got %s", r.InviteTTL)
	}
	if r.InviteMaxUses < 0 {
		return fmt.Errorf("recruitment InviteMaxUses must be non-negative, got %d", r.InviteMaxUses)
	}
	return nil
}

type OutboxOptions struct {
	RelayEnabled      bool          `env:"OUTBOX_RELAY_ENABLED" envDefault:"true"`
	RelayPollInterval time.Duration `env:"OUTBOX_RELAY_POLL_INTERVAL" envDefault:"1s"`
	RelayBatchSize    int           `env:"OUTBOX_RELAY_BATCH_SIZE" envDefault:"50"`
	RelayMaxAttempts  int           `env:"OUTBOX_RELAY_MAX_ATTEMPTS" envDefault:"25"`
	RelaySingleActive bool          `env:"OUTBOX_RELAY_SINGLE_ACTIVE" envDefault:"true"`
	CleanerEnabled    bool          `env:"OUTBOX_CLEANER_ENABLED" envDefault:"true"`
	CleanerInterval   time.Duration `env:"OUTBOX_CLEANER_INTERVAL" envDefault:"1m"`
	CleanerRetention  time.Duration `env:"OUTBOX_CLEANER_RETENTION" envDefault:"168h"`
}

type Configuration struct {
	Database      DatabaseOptions
	Log           LogOptions
	OpenTelemetry OpenTelemetryOptions
	Prometheus    PrometheusOptions
	Broadcast     BroadcastOptions
	Discord       DiscordOptions
	Recruitment   RecruitmentOptions
	Outbox        OutboxOptions

	ServerPort       int    `env:"PORT" envDefault:"3200"`
	GoAppEnvironment string `env:"GO_APP_ENV" envDefault:"development"`
	SocketAddress    string `env:"-"`
	// SDK will look for this header in the request, if it's not present, it will generate a random uuidv4
	RequestIDHeader string `env:"REQUEST_ID_HEADER" envDefault:"X-Request-ID"`
	// SDK will look for this header in the request, if it's not present, it will use request.RemoteAddr
	RealIPHeader string `env:"REAL_IP_HEADER" envDefault:"X-Real-IP"`
	// Header carrying the acting operator's employee id, set by the auth proxy.
	OperatorHeader string `env:"OPERATOR_HEADER" envDefault:"X-Operator-ID"`

	logFile *os.File
	logger  *logrus.Logger
}

func (c *Configuration) Logger() *logrus.Logger {
	return c.logger
}

func (c *Configuration) LogrusLogLevel() logrus.Level {
	switch c.Log.Level {
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

// Load parses a fresh configuration without touching the process-wide singleton.
func Load(envFiles ...string) (*Configuration, error) {
	c := &Configuration{}
	if err := c.load(envFiles); err != nil {
		c.Unload()
		return nil, err
	}
	return c, nil
}

func (c *Configuration) load(envFiles []string) error {
	n, err := LoadEnv(envFiles)
	if err != nil {
		return err
	}
	if n == 0 && len(envFiles) > 0 {
		wd, _ := os.Getwd()
		log.Println("No .env files found. Tried:")
		for _, file := range envFiles {
			log.Println(filepath.Join(wd, file))
		}
	}
	if err := env.Parse(c); err != nil {
		return err
	}

	if err := c.Recruitment.Validate(); err != nil {
		return fmt.Errorf("recruitment configuration error: %w", err)
	}
	if c.Broadcast.Enabled && strings.TrimSpace(c.Broadcast.RedisURL) == "" {
		return errors.New("broadcast configuration error: REDIS_URL is required when BROADCAST_ENABLED=true")
	}

	f, logger, err := logging.FileLogger(c.LogrusLogLevel(), c.Log.Path)
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

// Unload handles a graceful shutdown.
func (c *Configuration) Unload() {
	if c.logFile != nil {
		if err := c.logFile.Close(); err != nil {
			log.Printf("Failed to close log file: %v", err)
		}
	}
}
