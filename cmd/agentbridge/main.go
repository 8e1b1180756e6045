// Command agentbridge serves local AI coding CLIs as MCP tools over stdio.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"golang.org/x/term"

	cfmcp "github.com/Strob0t/agentbridge/internal/adapter/mcp"
	cfotel "github.com/Strob0t/agentbridge/internal/adapter/otel"
	"github.com/Strob0t/agentbridge/internal/config"
	"github.com/Strob0t/agentbridge/internal/domain"
	"github.com/Strob0t/agentbridge/internal/domain/backend"
	"github.com/Strob0t/agentbridge/internal/domain/preset"
	"github.com/Strob0t/agentbridge/internal/logger"
	"github.com/Strob0t/agentbridge/internal/service"
)

const shutdownTimeout = 10 * time.Second

// rootOptions holds the persistent flags. Flags override file and env config
// only when set explicitly.
type rootOptions struct {
	configPath  string
	preset      string
	backends    []string
	timeoutSecs int
	autoApprove bool
	logLevel    string
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (o *rootOptions) bind(flags *pflag.FlagSet) {
	flags.StringVar(&o.configPath, "config", config.DefaultConfigFile, "YAML config file")
	flags.StringVar(&o.preset, "preset", "", "tool preset: minimal, agent, research, full")
	flags.StringSliceVar(&o.backends, "backends", nil, "restrict to these backends (comma separated)")
	flags.IntVar(&o.timeoutSecs, "timeout", 0, "default task timeout in seconds")
	flags.BoolVar(&o.autoApprove, "auto-approve", true, "pass each backend's auto-approval flag")
	flags.StringVar(&o.logLevel, "log-level", "", "log level: debug, info, warn, error")
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}

	root := &cobra.Command{
		Use:          "agentbridge",
		Short:        "agentbridge - local AI coding CLIs as MCP tools",
		SilenceUsage: true,
	}
	opts.bind(root.PersistentFlags())

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve MCP over stdin/stdout",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, os.Stdin, cmd.OutOrStdout())
		},
	}

	backendsCmd := &cobra.Command{
		Use:   "backends",
		Short: "Print the discovered backends as JSON",
		RunE: func(cmd *cobra.Command, _ []string) error {
			cfg, err := loadConfig(cmd, opts)
			if err != nil {
				return err
			}
			return printBackends(cmd.OutOrStdout(), backend.Discover(cfg.Bridge.Backends), os.LookupEnv)
		},
	}

	versionCmd := &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		RunE: func(cmd *cobra.Command, _ []string) error {
			d := config.Defaults()
			_, err := fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", d.MCP.Name, d.MCP.Version)
			return err
		},
	}

	root.AddCommand(serveCmd, backendsCmd, versionCmd)
	return root
}

// loadConfig applies explicitly set flags over defaults < YAML < env.
func loadConfig(cmd *cobra.Command, opts *rootOptions) (*config.Config, error) {
	cfg, err := config.LoadFrom(opts.configPath)
	if err != nil {
		return nil, err
	}

	flags := cmd.Flags()
	if flags.Changed("preset") {
		cfg.Bridge.Preset = opts.preset
	}
	if flags.Changed("backends") {
		cfg.Bridge.Backends = opts.backends
	}
	if flags.Changed("timeout") {
		cfg.Bridge.TaskTimeout = time.Duration(opts.timeoutSecs) * time.Second
	}
	if flags.Changed("auto-approve") {
		cfg.Bridge.AutoApprove = opts.autoApprove
	}
	if flags.Changed("log-level") {
		cfg.Logging.Level = opts.logLevel
	}

	if err := config.Validate(cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// runServe discovers backends and serves MCP on in/out until EOF or a signal,
// then kills every running task and flushes telemetry.
func runServe(ctx context.Context, cfg *config.Config, in io.Reader, out io.Writer) error {
	log, closer := logger.New(cfg.Logging)
	defer closer.Close()
	slog.SetDefault(log)

	if f, ok := in.(*os.File); ok && term.IsTerminal(int(f.Fd())) {
		slog.Warn("stdin is a terminal; agentbridge expects an MCP client to drive it")
	}

	p, err := preset.Parse(cfg.Bridge.Preset)
	if err != nil {
		return err
	}

	backends := backend.Discover(cfg.Bridge.Backends)
	if len(backends) == 0 {
		slog.Error("no backend CLI found", "filter", cfg.Bridge.Backends)
		return fmt.Errorf("discovery: %w", domain.ErrNoBackends)
	}
	for _, b := range backends {
		slog.Info("backend discovered", "backend", b.Name, "binary", b.Binary, "format", b.Format)
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	shutdownTelemetry, err := cfotel.Setup(ctx, cfg.OTel, cfg.Logging.Service, cfg.MCP.Version)
	if err != nil {
		return err
	}
	metrics, err := cfotel.NewMetrics()
	if err != nil {
		return fmt.Errorf("metrics: %w", err)
	}

	registry := service.NewTaskRegistry(service.RegistryConfig{
		DefaultTimeout: cfg.Bridge.TaskTimeout,
		AutoApprove:    cfg.Bridge.AutoApprove,
		Retention:      cfg.Bridge.Retention,
		KillGrace:      cfg.Bridge.KillGrace,
		PreviewLen:     cfg.Bridge.PromptPreview,
	}, backends, service.WithMetrics(metrics))

	srv := cfmcp.NewServer(
		cfmcp.ServerConfig{Name: cfg.MCP.Name, Version: cfg.MCP.Version, Preset: p},
		cfmcp.ServerDeps{Runner: registry, Metrics: metrics},
	)

	serveErr := srv.Serve(ctx, in, out)
	slog.Info("shutting down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := registry.ShutdownAll(shutdownCtx); err != nil {
		slog.Error("task shutdown", "error", err)
	}
	if err := shutdownTelemetry(shutdownCtx); err != nil {
		slog.Error("telemetry shutdown", "error", err)
	}
	return serveErr
}

type backendReport struct {
	backend.Config
	CredentialSet bool `json:"credential_set"`
}

func printBackends(w io.Writer, backends []backend.Config, lookupEnv func(string) (string, bool)) error {
	report := make([]backendReport, 0, len(backends))
	for _, b := range backends {
		r := backendReport{Config: b}
		if b.CredentialEnv != "" {
			v, ok := lookupEnv(b.CredentialEnv)
			r.CredentialSet = ok && v != ""
		}
		report = append(report, r)
	}
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(report)
}
