package main

import (
	"fmt"
	"os/signal"
	"syscall"

	"github.com/matst80/slask-rulecontext/pkg/messaging"
	"github.com/matst80/slask-rulecontext/pkg/tracking"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func logRuleContextEvents(events []tracking.RuleContextEvent) error {
	for _, e := range events {
		if e.BaseEvent == nil {
			continue
		}
		logger.Info("rule contexts changed",
			zap.String("session", e.SessionId),
			zap.String("country", e.Country),
			zap.Strings("current", e.Current),
			zap.Strings("added", e.Added),
			zap.Strings("removed", e.Removed),
		)
	}
	return nil
}

func newListenCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "listen",
		Short: "Log rule context changes published by other sessions",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.Rabbit.Url == "" {
				return fmt.Errorf("listen requires rabbit.url or RABBIT_URL")
			}
			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			conn, err := amqp.Dial(cfg.Rabbit.Url)
			if err != nil {
				return fmt.Errorf("failed to connect to rabbit: %w", err)
			}
			defer conn.Close()
			ch, err := conn.Channel()
			if err != nil {
				return err
			}
			if err := messaging.DefineTopic(ch, messaging.Exchange, messaging.RuleContextsChanged); err != nil {
				return err
			}
			if err := messaging.ListenToTopic(ctx, ch, messaging.Exchange, messaging.RuleContextsChanged, logger, logRuleContextEvents); err != nil {
				return err
			}
			logger.Info("listening for rule context changes", zap.String("topic", string(messaging.RuleContextsChanged)))

			closed := conn.NotifyClose(make(chan *amqp.Error, 1))
			select {
			case <-ctx.Done():
				return nil
			case err := <-closed:
				if err != nil {
					return fmt.Errorf("rabbit connection closed: %w", err)
				}
				return nil
			}
		},
	}
}
