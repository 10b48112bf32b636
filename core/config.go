package core

import (
	"log"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type (
	APIConfig struct {
		BaseURL string
		Timeout time.Duration
	}

	SessionConfig struct {
		Lifetime    time.Duration // client-side maximum session lifetime
		StoreURL    string        // redis URL; empty keeps credentials in memory
		ScopeTTL    time.Duration // how long an idle tab scope survives
		ScopeCookie string
	}

	ServerConfig struct {
		Host            string
		Address         string
		DebugHost       string
		ShutdownTimeout time.Duration
		LoginRateLimit  int
		LoginRateWindow time.Duration
	}

	Config struct {
		Env          string
		Build        string
		AppName      string
		Debug        bool
		TestMode     bool
		LogLevel     string // debug, info, warn or error
		RollbarToken string
		WorkDir      string

		API     APIConfig
		Session SessionConfig
		Server  ServerConfig
	}
)

// NewConfig loads the configuration from defaults, the optional `config/.env.<env>` file and the environment.
// Environment variables are prefixed with the upper-cased ENV, eg. `DEV_APIBASEURL`.
func NewConfig() *Config {
	v := viper.New()

	// defaults
	v.SetTypeByDefaultValue(true)
	v.SetDefault("debug", true)
	v.SetDefault("build", "develop")
	v.SetDefault("appName", "STEMLearn")
	v.SetDefault("logLevel", "debug")
	v.SetDefault("rollbarToken", "")
	v.SetDefault("apiBaseURL", "https://stemlearn-app-db.onrender.com")
	v.SetDefault("apiTimeout", 15*time.Second)
	v.SetDefault("sessionLifetime", 55*time.Minute)
	v.SetDefault("storeURL", "")
	v.SetDefault("scopeTTL", 12*time.Hour)
	v.SetDefault("scopeCookie", "stemlearn_tab")
	v.SetDefault("serverHost", "localhost")
	v.SetDefault("serverAddress", ":8080")
	v.SetDefault("debugHost", "localhost:4000")
	v.SetDefault("shutdownTimeout", 5*time.Second)
	v.SetDefault("loginRateLimit", 10)
	v.SetDefault("loginRateWindow", time.Minute)

	env := strings.ToUpper(os.Getenv("ENV")) // DEV (local; default), TEST, QA, PROD
	switch env {
	case "":
		env = "DEV"
	case "TEST":
		v.SetDefault("testMode", true)
	}
	v.SetEnvPrefix(env)

	wd := workDir()

	// load .env if it exists (ignore if it does not)
	dotEnvPath := filepath.Join(wd, "config", ".env."+strings.ToLower(env))
	if _, err := os.Stat(dotEnvPath); err == nil {
		if err := godotenv.Load(dotEnvPath); err != nil {
			log.Fatalf("config.godotenv(%s): %v", dotEnvPath, err)
		}
	} else if !os.IsNotExist(err) {
		log.Fatalf("config.os.Stat(%s): %v", dotEnvPath, err)
	}
	v.AutomaticEnv()

	return &Config{
		Env:          env,
		Build:        v.GetString("build"),
		AppName:      v.GetString("appName"),
		Debug:        v.GetBool("debug"),
		TestMode:     v.GetBool("testMode"),
		LogLevel:     v.GetString("logLevel"),
		RollbarToken: v.GetString("rollbarToken"),
		WorkDir:      wd,
		API: APIConfig{
			BaseURL: strings.TrimRight(v.GetString("apiBaseURL"), "/"),
			Timeout: v.GetDuration("apiTimeout"),
		},
		Session: SessionConfig{
			Lifetime:    v.GetDuration("sessionLifetime"),
			StoreURL:    v.GetString("storeURL"),
			ScopeTTL:    v.GetDuration("scopeTTL"),
			ScopeCookie: v.GetString("scopeCookie"),
		},
		Server: ServerConfig{
			Host:            v.GetString("serverHost"),
			Address:         v.GetString("serverAddress"),
			DebugHost:       v.GetString("debugHost"),
			ShutdownTimeout: v.GetDuration("shutdownTimeout"),
			LoginRateLimit:  v.GetInt("loginRateLimit"),
			LoginRateWindow: v.GetDuration("loginRateWindow"),
		},
	}
}

// workDir is STEMLEARN_WORKDIR when set, the current working directory otherwise.
func workDir() string {
	if wd := os.Getenv("STEMLEARN_WORKDIR"); wd != "" {
		return wd
	}
	wd, err := os.Getwd()
	if err != nil {
		log.Fatal(err)
	}
	return wd
}
