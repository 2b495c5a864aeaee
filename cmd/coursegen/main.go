package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"coursegen/internal/app"
	"coursegen/internal/config"
	"coursegen/internal/logger"
	"coursegen/internal/orchestrator"
)

func main() {
	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()
	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

type globals struct {
	configPath string
	verbose    bool

	cfg config.Config
	log *logger.Logger
}

func newRootCmd() *cobra.Command {
	g := &globals{}
	root := &cobra.Command{
		Use:           "coursegen",
		Short:         "Course generation tooling",
		Long:          "coursegen drives the provider chain directly: check dependencies, generate a course from a text file, or rewrite a single fragment.",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(g.configPath)
			if err != nil {
				return fmt.Errorf("config: %w", err)
			}
			level := cfg.Log.Level
			if g.verbose {
				level = "debug"
			}
			lg, err := logger.New(cfg.Log.Mode, level)
			if err != nil {
				return fmt.Errorf("logger: %w", err)
			}
			g.cfg = cfg
			g.log = lg
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			if g.log != nil {
				g.log.Sync()
			}
		},
	}
	root.PersistentFlags().StringVarP(&g.configPath, "config", "c", os.Getenv("CG_CONFIG"), "path to config.yaml")
	root.PersistentFlags().BoolVarP(&g.verbose, "verbose", "v", false, "debug logging")

	root.AddCommand(
		newDoctorCmd(g),
		newProvidersCmd(g),
		newGenerateCmd(g),
		newLessonCmd(g),
		newModifyCmd(g),
	)
	return root
}

// chain builds the configured provider chain without touching storage.
func (g *globals) chain(ctx context.Context) (*orchestrator.Orchestrator, error) {
	providers, err := app.BuildProviders(ctx, g.cfg, g.log)
	if err != nil {
		return nil, err
	}
	return orchestrator.New(ctx, providers,
		orchestrator.WithLogger(g.log),
		orchestrator.WithProbeTimeout(g.cfg.Providers.ProbeTimeout),
	)
}
