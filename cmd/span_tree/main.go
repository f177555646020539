package main

import (
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/config"
	"github.com/Avi18971911/SpanTree/internal/session"
	"github.com/asaskevich/EventBus"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"os"
)

const configFlag = "config"

func newRootCommand() *cobra.Command {
	root := &cobra.Command{
		Use:           "span_tree",
		Short:         "Reconstructs span trees from instrumentation events",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().String(configFlag, "", "Path to a YAML config file")
	root.PersistentFlags().String("log-level", "info", "Log level (debug, info, warn, error)")
	root.PersistentFlags().Bool("strict", false, "Stop ingesting at the first anomaly")
	root.PersistentFlags().Int64("cache-num-counters", config.DefaultCacheNumCounters, "Keys tracked by the ancestry cache admission policy")
	root.PersistentFlags().Int64("cache-max-cost", 1<<24, "Maximum bytes of cached ancestry text")

	root.AddCommand(newServeCommand(), newReplayCommand())
	return root
}

func loadConfig(cmd *cobra.Command) (config.Config, error) {
	v := config.NewViper()
	if err := config.BindFlags(v, cmd.Flags()); err != nil {
		return config.Config{}, err
	}
	configFile, err := cmd.Flags().GetString(configFlag)
	if err != nil {
		return config.Config{}, fmt.Errorf("failed to read --%s: %w", configFlag, err)
	}
	return config.Load(v, configFile)
}

func newSession(
	cfg config.Config,
	registerer prometheus.Registerer,
	logger *zap.Logger,
) (*session.Session, error) {
	metrics, err := session.NewMetrics(registerer)
	if err != nil {
		return nil, err
	}
	cache, err := session.NewDefaultRistrettoCache(cfg.Cache.NumCounters, cfg.Cache.MaxCost)
	if err != nil {
		return nil, fmt.Errorf("failed to create ancestry cache: %w", err)
	}
	return session.NewSession(session.NewAncestryCacheImpl(cache), EventBus.New(), metrics, cfg.Strict, logger)
}

func main() {
	if err := newRootCommand().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
