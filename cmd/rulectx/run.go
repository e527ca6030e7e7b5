package main

import (
	"context"
	"fmt"
	"time"

	"github.com/bytedance/sonic"
	"github.com/matst80/slask-rulecontext/pkg/cache"
	"github.com/matst80/slask-rulecontext/pkg/config"
	"github.com/matst80/slask-rulecontext/pkg/helper"
	"github.com/matst80/slask-rulecontext/pkg/rulecontext"
	"github.com/matst80/slask-rulecontext/pkg/searchclient"
	"github.com/matst80/slask-rulecontext/pkg/tracking"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type runSummary struct {
	SessionId    string   `json:"sessionId"`
	RuleContexts []string `json:"ruleContexts"`
	Items        any      `json:"items"`
	NbHits       int      `json:"nbHits"`
	Searches     int      `json:"searches"`
	Restored     []string `json:"restored"`
}

// searchStack wires the search client, cache and tracking configured in cfg.
func searchStack(cfg *config.Config) (*searchclient.Client, []helper.Option, func()) {
	client := searchclient.New(cfg.Endpoint)
	client.Logger = logger
	client.CacheTTL = cfg.Cache.TTL
	opts := []helper.Option{helper.WithLogger(logger)}
	if cfg.MaxRounds > 0 {
		opts = append(opts, helper.WithMaxRounds(cfg.MaxRounds))
	}
	var closers []func() error

	if cfg.Redis.Url != "" {
		client.Cache = cache.NewRedisCache(cfg.Redis.Url, cfg.Redis.Password, cfg.Redis.DB)
		closers = append(closers, client.Cache.Close)
		logger.Info("search cache enabled", zap.String("redis", cfg.Redis.Url))
	}
	if cfg.Rabbit.Url != "" {
		rabbit, err := tracking.NewRabbitTracking(cfg.Rabbit.Url, cfg.Rabbit.Country)
		if err != nil {
			logger.Warn("rule context tracking disabled", zap.Error(err))
		} else {
			batched := tracking.NewBatchedTracking(rabbit, cfg.Rabbit.Country, 50, time.Second, logger)
			opts = append(opts, helper.WithTracking(batched))
			closers = append(closers, batched.Close)
		}
	}
	return client, opts, func() {
		for _, c := range closers {
			if err := c(); err != nil {
				logger.Warn("error closing", zap.Error(err))
			}
		}
	}
}

func newRunCmd() *cobra.Command {
	var refine, unrefine []string
	var query string
	var timeout time.Duration
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run a search session against the configured endpoint",
		Long: `run initializes a rule context reconciler, applies the given refinements,
searches until the rule contexts settle, optionally removes refinements and
searches again, and prints the final rule contexts and
the query rule user data. The reconciler is disposed before exiting.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			ctx, cancel := context.WithTimeout(cmd.Context(), timeout)
			defer cancel()

			client, opts, closeStack := searchStack(cfg)
			defer closeStack()

			state := types.NewSearchState()
			state.Query = query
			h := helper.New(state, client, opts...)

			r, err := rulecontext.New(cfg.RuleContextConfig(func(opts rulecontext.RenderOptions, isFirstRender bool) {
				logger.Debug("render", zap.Bool("first", isFirstRender), zap.Any("items", opts.Items))
			}, logger))
			if err != nil {
				return err
			}
			h.AddWidgets(r)
			for _, ref := range refine {
				facet, value, err := splitRefinement(ref)
				if err != nil {
					return err
				}
				h.AddRefinement(facet, value)
			}
			h.Search()
			if err := h.Flush(ctx); err != nil {
				return err
			}
			if len(unrefine) > 0 {
				for _, ref := range unrefine {
					facet, value, err := splitRefinement(ref)
					if err != nil {
						return err
					}
					h.RemoveRefinement(facet, value)
				}
				h.Search()
				if err := h.Flush(ctx); err != nil {
					return err
				}
			}

			summary := runSummary{SessionId: h.SessionId()}
			summary.RuleContexts, _ = h.QueryParameter(types.RuleContextsParameter)
			if rs := r.RenderState(); rs != nil {
				summary.Items = rs.Items
			}
			if res := h.LastResults(); res != nil {
				summary.NbHits = res.NbHits
			}

			h.Dispose()
			summary.Restored, _ = h.QueryParameter(types.RuleContextsParameter)
			summary.Searches = h.Searches()

			out, err := sonic.ConfigStd.MarshalIndent(summary, "", "  ")
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&refine, "refine", "r", nil, "Refinement to apply as facet:value (repeatable)")
	cmd.Flags().StringArrayVar(&unrefine, "unrefine", nil, "Refinement to remove as facet:value once the first searches settled (repeatable)")
	cmd.Flags().StringVarP(&query, "query", "q", "", "Free text query")
	cmd.Flags().DurationVar(&timeout, "timeout", 30*time.Second, "Overall timeout")
	return cmd
}
