package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/matbactivity/songconstitution/internal/app"
	"github.com/matbactivity/songconstitution/internal/auth"
	"github.com/matbactivity/songconstitution/internal/config"
	"github.com/matbactivity/songconstitution/internal/logger"
)

var (
	version = "dev"
)

func main() {
	port := flag.Int("port", 0, "HTTP server port (default 8080)")
	dbPath := flag.String("db", "", "SQLite database path (default \"songconstitution.db\")")
	password := flag.String("password", "", "Shared login password (auto-generated if not set)")
	logLevel := flag.String("loglevel", "", "Log level (debug, info, warn, error)")
	configFile := flag.String("config", "", "YAML config file")
	seedFile := flag.String("seed", "", "YAML fixtures to load at startup")
	httpLog := flag.Bool("httplog", false, "Log every HTTP request")
	showVersion := flag.Bool("version", false, "Show version and exit")

	flag.Usage = func() {
		fmt.Fprintf(os.Stderr, `songconstitution - song contest server

Usage:
  songconstitution [options]

Options:
  -port int        HTTP server port (default 8080)
  -db string       SQLite database path (default "songconstitution.db")
  -password str    Shared login password (auto-generated if not set)
  -loglevel str    Log level: debug, info, warn, error (default "info")
  -config string   YAML config file
  -seed string     YAML fixtures to load at startup
  -httplog         Log every HTTP request
  -version         Show version and exit
  -help            Show this help message

Every option can also be set with a SONGCONST_* environment variable,
for example SONGCONST_SERVER_PORT or SONGCONST_STORAGE_BACKEND=dynamodb.
A .env file in the working directory is loaded first.

Examples:
  songconstitution                          # Run on port 8080 with songconstitution.db
  songconstitution -port 9000 -db /data/sc.db
  songconstitution -config prod.yaml -seed fixtures.yaml

`)
	}

	flag.Parse()

	if *showVersion {
		fmt.Printf("songconstitution %s\n", version)
		os.Exit(0)
	}

	// .env is optional
	_ = godotenv.Load()

	v := config.New()
	if err := config.ReadFile(v, *configFile); err != nil {
		log.Fatal(err)
	}
	overrideFromFlags(v, map[string]string{
		"storage.sqlite.path": *dbPath,
		"auth.password":       *password,
		"log.level":           *logLevel,
		"seed":                *seedFile,
	})
	if *port != 0 {
		v.Set("server.port", *port)
	}

	cfg, err := config.Load(v)
	if err != nil {
		log.Fatal("Invalid configuration: ", err)
	}

	appLog := logger.NewWithOptions(logger.Options{
		Level:  logger.ParseLevel(cfg.Log.Level),
		Format: logger.ParseFormat(cfg.Log.Format),
	})
	if *httpLog {
		appLog.EnableHTTPLogging()
	}

	pw := cfg.Auth.Password
	if pw == "" {
		pw = auth.GeneratePassword()
		appLog.Info("Login password", "password", pw)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := app.OpenStore(ctx, cfg, appLog)
	if err != nil {
		log.Fatal("Failed to open storage: ", err)
	}

	a := app.New(cfg, appLog, store, auth.New(pw))
	defer a.Close()

	if err := a.Prepare(ctx); err != nil {
		appLog.Error("Failed to prepare application", "error", err)
		os.Exit(1)
	}
	if err := a.Run(ctx); err != nil {
		appLog.Error("Server stopped", "error", err)
		os.Exit(1)
	}
}

// overrideFromFlags sets every non-empty flag value on v
func overrideFromFlags(v *viper.Viper, values map[string]string) {
	for key, value := range values {
		if value != "" {
			v.Set(key, value)
		}
	}
}
