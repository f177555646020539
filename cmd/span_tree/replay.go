package main

import (
	"fmt"
	"github.com/Avi18971911/SpanTree/internal/ingest/replay"
	"github.com/Avi18971911/SpanTree/internal/render"
	"github.com/Avi18971911/SpanTree/internal/span_tree/service"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func newReplayCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "replay <file>",
		Short: "Ingest a JSON-lines recording and print the resulting tree",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			logger, err := cfg.Logger()
			if err != nil {
				return err
			}
			defer logger.Sync()

			s, err := newSession(cfg, prometheus.NewRegistry(), logger)
			if err != nil {
				return err
			}
			stats, err := replay.ReadFile(args[0], s, logger)
			if err != nil {
				return err
			}
			logger.Info(
				"Replayed recording",
				zap.String("file", args[0]),
				zap.Int("ingested", stats.Ingested),
				zap.Int("skipped", stats.Skipped),
			)
			flushErr := s.Flush()

			out := cmd.OutOrStdout()
			s.View(func(tree *service.SpanTree) {
				fmt.Fprint(out, render.Tree(tree))
				if diagnostics := tree.Diagnostics(); len(diagnostics) > 0 {
					fmt.Fprintf(out, "\n%d diagnostics:\n", len(diagnostics))
					fmt.Fprint(out, render.Diagnostics(diagnostics))
				}
			})
			return flushErr
		},
	}
}
