package core

import (
	"os"
	"path/filepath"
	"strings"

	"github.com/joho/godotenv"
	"github.com/pkg/errors"
	"github.com/spf13/viper"
)

type Config struct {
	Env           string // DEV (local; default), TEST, QA, PROD
	Build         string
	Debug         bool
	TestMode      bool
	AppName       string
	Locale        string
	MaxAuthorized int // max persons (guardian included) authorized per student
	RollbarToken  string
	Server        struct {
		Host string
	}
}

// NewConfig loads the configuration from defaults, "<workDir>/config/.env.<env>"
// (when present) and environment variables prefixed with the current ENV.
func NewConfig(workDir string) (*Config, error) {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("testMode", false)
	v.SetDefault("appName", "SCODA")
	v.SetDefault("locale", "es")
	v.SetDefault("maxAuthorized", 3)
	v.SetDefault("rollbarToken", "")
	v.SetDefault("build", "dev")
	v.SetDefault("serverHost", hostname())

	env := strings.ToUpper(os.Getenv("ENV"))
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(workDir, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			return nil, errors.Wrapf(err, "loading %s", dotEnvPath)
		}
	} else if !os.IsNotExist(err) {
		return nil, errors.Wrapf(err, "stat %s", dotEnvPath)
	}
	v.AutomaticEnv()

	conf := &Config{
		Env:           env,
		Build:         v.GetString("build"),
		Debug:         v.GetBool("debug"),
		TestMode:      v.GetBool("testMode"),
		AppName:       v.GetString("appName"),
		Locale:        strings.ToLower(v.GetString("locale")),
		MaxAuthorized: v.GetInt("maxAuthorized"),
		RollbarToken:  v.GetString("rollbarToken"),
	}
	conf.Server.Host = v.GetString("serverHost")

	if conf.MaxAuthorized < 1 {
		return nil, errors.Errorf("maxAuthorized must be at least 1 (got %d)", conf.MaxAuthorized)
	}
	return conf, nil
}

func hostname() string {
	h, err := os.Hostname()
	if err != nil {
		return "localhost"
	}
	return h
}
