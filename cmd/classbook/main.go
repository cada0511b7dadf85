package main

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	appI18n "github.com/pavelanni/classbook/internal/i18n"
	"github.com/pavelanni/classbook/internal/store"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		slog.Warn("error reading .env file", "error", err)
	}
	if err := rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          "classbook",
		Short:        "Rubrics, grading, XP and class schedule for teachers",
		SilenceUsage: true,
	}
	f := root.PersistentFlags()
	f.String("db", "classbook.db", "Database path or DSN")
	f.String("driver", string(store.DriverSQLite), "Storage driver (sqlite, postgres, bolt)")
	f.Int("max-write-bytes", 0, "Largest single write accepted by the store (0 = unlimited)")
	f.StringP("lang", "l", "en", "Output language (en, fr)")
	f.String("log-level", "info", "Log level (debug, info, warn, error)")
	f.String("log-format", "text", "Log format (text, json)")

	root.AddCommand(
		rubricCmd(),
		rosterCmd(),
		evaluationCmd(),
		gradeCmd(),
		scheduleCmd(),
		profileCmd(),
		exportCmd(),
		dumpCmd(),
		restoreCmd(),
	)
	return root
}

func setupLogging(v *viper.Viper) {
	var logLevel slog.Level
	switch strings.ToLower(v.GetString("log-level")) {
	case "debug":
		logLevel = slog.LevelDebug
	case "warn":
		logLevel = slog.LevelWarn
	case "error":
		logLevel = slog.LevelError
	default:
		logLevel = slog.LevelInfo
	}
	handlerOpts := &slog.HandlerOptions{Level: logLevel}
	var logHandler slog.Handler
	switch strings.ToLower(v.GetString("log-format")) {
	case "json":
		logHandler = slog.NewJSONHandler(os.Stderr, handlerOpts)
	default:
		logHandler = slog.NewTextHandler(os.Stderr, handlerOpts)
	}
	slog.SetDefault(slog.New(logHandler))
}

// viperForCmd binds a command's flags and environment to a fresh viper instance.
func viperForCmd(cmd *cobra.Command) *viper.Viper {
	v := viper.New()
	_ = v.BindPFlags(cmd.Flags())

	v.SetEnvPrefix("CLASSBOOK")
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetConfigName("classbook")
	v.AddConfigPath(".")
	v.AddConfigPath("$HOME/.config/classbook")
	v.AddConfigPath("/etc/classbook")
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			slog.Warn("error reading config file", "error", err)
		}
	} else {
		slog.Debug("loaded config file", "path", v.ConfigFileUsed())
	}
	return v
}

// env is what every command needs: its configuration and an open store.
type env struct {
	v     *viper.Viper
	store *store.Store
}

// setup configures logging and i18n and opens the store. The returned
// context carries the output language. Callers must close env.store.
func setup(cmd *cobra.Command) (context.Context, *env, error) {
	v := viperForCmd(cmd)
	setupLogging(v)

	lang := v.GetString("lang")
	if err := appI18n.Init(lang); err != nil {
		return nil, nil, fmt.Errorf("init i18n: %w", err)
	}
	ctx := appI18n.WithLanguage(cmd.Context(), lang)

	s, err := store.Open(ctx, store.Options{
		Driver:        store.Driver(v.GetString("driver")),
		DSN:           v.GetString("db"),
		MaxWriteBytes: v.GetInt("max-write-bytes"),
	})
	if err != nil {
		return nil, nil, fmt.Errorf("open database: %w", err)
	}
	return ctx, &env{v: v, store: s}, nil
}

// writeJSON writes data as indented JSON to path, or stdout for "" and "-".
func writeJSON(path string, data any) error {
	out, err := json.MarshalIndent(data, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal JSON: %w", err)
	}

	var w io.Writer
	if path == "" || path == "-" {
		w = os.Stdout
	} else {
		f, err := os.Create(path)
		if err != nil {
			return fmt.Errorf("create output file: %w", err)
		}
		defer f.Close()
		w = f
	}

	if _, err := w.Write(out); err != nil {
		return fmt.Errorf("write output: %w", err)
	}
	_, _ = fmt.Fprintln(w)
	return nil
}

func readJSON(path string, v any) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("parse %s: %w", path, err)
	}
	return nil
}
