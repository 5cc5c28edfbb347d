package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"time"

	"github.com/caarlos0/env/v6"
	"github.com/joho/godotenv"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/logger"
)

// Configuration is the static information the service needs to start
type Configuration struct {
	Address string `env:"ADDRESS" envDefault:":8080"`
	GinMode string `env:"GIN_MODE" envDefault:"release"`

	DB DBConfig

	// fail-closed | fail-open, for roles the resolver does not know
	AccessPolicy string `env:"ACCESS_POLICY" envDefault:"fail-closed"`

	IntegrationTimeout time.Duration `env:"INTEGRATION_TIMEOUT" envDefault:"15s"`
	// Empty means api.github.com; set for GitHub Enterprise
	GitHubAPIURL string `env:"GITHUB_API_URL"`

	SMTP SMTPConfig
	// Team:address pairs, e.g. "Backend:backend@corp.io,Frontend:fe@corp.io"
	TeamEmails map[string]string `env:"TEAM_EMAILS"`

	Log logger.LogConfig
}

type DBConfig struct {
	// postgres | mysql
	Driver   string `env:"DB_DRIVER" envDefault:"postgres"`
	DSN      string `env:"DB_DSN"`
	Host     string `env:"DB_HOST"`
	Port     string `env:"DB_PORT" envDefault:"5432"`
	User     string `env:"DB_USER"`
	Password string `env:"DB_PASSWORD"`
	Name     string `env:"DB_NAME"`
	// verify-full | require | disable. require keeps TLS but skips certificate checks.
	SSLMode string `env:"DB_SSLMODE" envDefault:"verify-full"`

	MaxOpenConns int `env:"DB_MAX_OPEN_CONNS" envDefault:"20"`
}

type SMTPConfig struct {
	Host     string `env:"SMTP_HOST"`
	Port     int    `env:"SMTP_PORT" envDefault:"587"`
	User     string `env:"SMTP_USER"`
	Password string `env:"SMTP_PASSWORD"`
	From     string `env:"SMTP_FROM"`
}

func (s SMTPConfig) Enabled() bool { return s.Host != "" && s.From != "" }

// Load reads config/env/<GO_ENV>.env when it exists, then parses the
// environment. Variables already set in the environment win over the file.
func Load() (*Configuration, error) {
	if path := envFilePath(); path != "" {
		if err := godotenv.Load(path); err != nil {
			return nil, fmt.Errorf("failed to load env file %s: %w", path, err)
		}
	}

	cfg := &Configuration{}
	if err := env.ParseWithFuncs(cfg, parsers); err != nil {
		return nil, fmt.Errorf("failed to parse config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

var parsers = map[reflect.Type]env.ParserFunc{
	reflect.TypeOf(map[string]string{}): parseTeamEmails,
}

// parseTeamEmails reads "Team:addr,Other:addr". Team names may contain spaces.
func parseTeamEmails(v string) (interface{}, error) {
	out := make(map[string]string)
	for _, pair := range strings.Split(v, ",") {
		pair = strings.TrimSpace(pair)
		if pair == "" {
			continue
		}
		team, addr, ok := strings.Cut(pair, ":")
		team, addr = strings.TrimSpace(team), strings.TrimSpace(addr)
		if !ok || team == "" || addr == "" {
			return nil, fmt.Errorf("invalid team email %q, want Team:address", pair)
		}
		out[team] = addr
	}
	return out, nil
}

func (c *Configuration) Validate() error {
	if c.DB.DSN == "" && c.DB.Host == "" {
		return errors.New("either DB_DSN or DB_HOST must be set")
	}
	switch c.DB.Driver {
	case "postgres", "mysql":
	default:
		return fmt.Errorf("unsupported DB_DRIVER %q", c.DB.Driver)
	}
	switch c.DB.SSLMode {
	case "verify-full", "require", "disable":
	default:
		return fmt.Errorf("unsupported DB_SSLMODE %q", c.DB.SSLMode)
	}
	return nil
}

// envFilePath walks up from the working directory looking for config/env.
func envFilePath() string {
	name := os.Getenv("GO_ENV")
	if name == "" {
		name = "development"
	}

	dir, err := os.Getwd()
	if err != nil {
		return ""
	}
	for {
		candidate := filepath.Join(dir, "config", "env", name+".env")
		if _, err := os.Stat(candidate); err == nil {
			return candidate
		}
		parent := filepath.Dir(dir)
		if parent == dir {
			return ""
		}
		dir = parent
	}
}
