package main

import (
	"fmt"

	"github.com/bytedance/sonic"
	"github.com/matst80/slask-rulecontext/pkg/helper"
	"github.com/matst80/slask-rulecontext/pkg/rulecontext"
	"github.com/matst80/slask-rulecontext/pkg/types"
	"github.com/spf13/cobra"
)

func newDeriveCmd() *cobra.Command {
	var refine []string
	var initial []string
	cmd := &cobra.Command{
		Use:   "derive",
		Short: "Print the rule contexts a set of refinements would produce",
		Example: `  rulectx derive -c rulectx.yaml --refine brand:Samsung --refine brand:Apple
  rulectx derive -c rulectx.yaml --initial campaign --refine color:Black`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			state := types.NewSearchState()
			if err := parseRefinements(state, refine); err != nil {
				return err
			}
			if len(initial) > 0 {
				state.SetParameter(types.RuleContextsParameter, initial)
			}

			h := helper.New(state, nil, helper.WithLogger(logger))
			r, err := rulecontext.New(cfg.RuleContextConfig(func(rulecontext.RenderOptions, bool) {}, logger))
			if err != nil {
				return err
			}
			h.AddWidgets(r)

			ruleContexts, err := h.QueryParameter(types.RuleContextsParameter)
			if err != nil {
				ruleContexts = []string{}
			}
			out, err := sonic.Marshal(ruleContexts)
			if err != nil {
				return err
			}
			_, err = fmt.Fprintln(cmd.OutOrStdout(), string(out))
			return err
		},
	}
	cmd.Flags().StringArrayVarP(&refine, "refine", "r", nil, "Applied refinement as facet:value (repeatable)")
	cmd.Flags().StringSliceVar(&initial, "initial", nil, "Rule contexts already present in the search state")
	return cmd
}
