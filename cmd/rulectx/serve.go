package main

import (
	"context"
	"net/http"
	"slices"

	"github.com/matst80/slask-rulecontext/pkg/common"
	"github.com/matst80/slask-rulecontext/pkg/config"
	"github.com/matst80/slask-rulecontext/pkg/helper"
	"github.com/matst80/slask-rulecontext/pkg/rulecontext"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

type ruleContextResponse struct {
	RuleContexts []string `json:"ruleContexts"`
	Initial      []string `json:"initial"`
	Derived      []string `json:"derived"`
}

// ruleContextHandler reconciles the rule contexts for the state sent in the
// request, without searching. Rule contexts the tracked filters own are
// dropped from the request before reconciling, so a refinement that is no
// longer applied does not survive a round trip through the client.
func ruleContextHandler(cfg *config.Config, opts ...helper.Option) http.HandlerFunc {
	return common.JsonHandler(logger, func(w http.ResponseWriter, r *http.Request, sessionId string) (any, error) {
		state, err := types.GetStateFromRequest(r)
		if err != nil {
			return nil, common.BadRequest(err)
		}
		reconciler, err := rulecontext.New(cfg.RuleContextConfig(func(rulecontext.RenderOptions, bool) {}, logger))
		if err != nil {
			return nil, err
		}
		// clients send back the list from the previous response
		if sent, err := state.Parameter(types.RuleContextsParameter); err == nil {
			state.SetParameter(types.RuleContextsParameter, reconciler.Foreign(sent))
		}
		h := helper.New(state, nil, slices.Concat(opts, []helper.Option{helper.WithSessionId(sessionId)})...)
		h.AddWidgets(reconciler)

		ruleContexts, err := h.QueryParameter(types.RuleContextsParameter)
		if err != nil {
			ruleContexts = []string{}
		}
		return ruleContextResponse{
			RuleContexts: ruleContexts,
			Initial:      reconciler.Initial(),
			Derived:      reconciler.Derived(),
		}, nil
	})
}

func newServeCmd() *cobra.Command {
	var addr string
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve rule context reconciliation over HTTP",
		Long: `serve answers GET or POST /rule-contexts with the rule contexts the given
search state should carry, and exposes prometheus metrics on /metrics.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			_, opts, closeStack := searchStack(cfg)

			mux := http.NewServeMux()
			mux.Handle("/rule-contexts", ruleContextHandler(cfg, opts...))
			mux.Handle("/metrics", promhttp.Handler())
			mux.HandleFunc("/healthz", func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(http.StatusOK)
			})

			timeouts := common.LoadTimeoutConfig(common.DefaultTimeouts())
			server := common.NewServerWithTimeouts(&http.Server{Addr: addr, Handler: mux}, timeouts)
			logger.Info("serving rule contexts", zap.Int("trackedFilters", len(cfg.TrackedFilters)))
			return common.RunServerWithShutdown(cmd.Context(), server, logger, timeouts, func(_ context.Context) error {
				closeStack()
				return nil
			})
		},
	}
	cmd.Flags().StringVar(&addr, "addr", ":8080", "Listen address")
	return cmd
}
