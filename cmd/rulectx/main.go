package main

import (
	"fmt"
	"os"
	"strings"

	"github.com/matst80/slask-rulecontext/pkg/config"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

var (
	configPath string
	verbose    bool
	logger     = zap.NewNop()
)

func newRootCmd() *cobra.Command {
	rootCmd := &cobra.Command{
		Use:   "rulectx",
		Short: "Keep search rule contexts in sync with facet refinements",
		Long: `rulectx derives merchandising rule contexts from the refinements applied
to tracked facets and sends them along with searches, so query rules on the
search backend can react to the filters a shopper picked.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			zapConfig := zap.NewProductionConfig()
			level := os.Getenv("LOG_LEVEL")
			if verbose {
				level = "debug"
			}
			if level != "" {
				parsed, err := zapcore.ParseLevel(level)
				if err != nil {
					return fmt.Errorf("invalid log level %q: %w", level, err)
				}
				zapConfig.Level = zap.NewAtomicLevelAt(parsed)
			}
			var err error
			logger, err = zapConfig.Build()
			if err != nil {
				return fmt.Errorf("failed to initialize logger: %w", err)
			}
			return nil
		},
		PersistentPostRun: func(cmd *cobra.Command, args []string) {
			_ = logger.Sync()
		},
	}
	rootCmd.PersistentFlags().StringVarP(&configPath, "config", "c", "", "YAML configuration file")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable verbose logging")

	rootCmd.AddCommand(newDeriveCmd(), newRunCmd(), newServeCmd(), newListenCmd())
	return rootCmd
}

func loadConfig() (*config.Config, error) {
	return config.Load(configPath)
}

func splitRefinement(ref string) (facet, value string, err error) {
	facet, value, found := strings.Cut(ref, ":")
	if !found || facet == "" || value == "" {
		return "", "", fmt.Errorf("invalid refinement %q, expected facet:value", ref)
	}
	return facet, value, nil
}

// parseRefinements reads facet:value pairs into state.
func parseRefinements(state *types.SearchState, refine []string) error {
	for _, ref := range refine {
		facet, value, err := splitRefinement(ref)
		if err != nil {
			return err
		}
		state.Refinements.Add(facet, value)
	}
	return nil
}

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
