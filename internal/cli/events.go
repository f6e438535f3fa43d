package cli

import (
	"encoding/json"
	"fmt"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"cms_chat_console/internal/infrastructure/mq"
	"cms_chat_console/internal/model"
)

func newEventsCmd() *cobra.Command {
	var group string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Print session updates published to Kafka by a running console",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig()
			if err != nil {
				return err
			}
			if cfg.KafkaConfig.HostPort == "" {
				return fmt.Errorf("kafkaConfig.hostPort is required")
			}
			initLogger(cfg)

			ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			sub := mq.NewKafkaSubscriber(cfg.KafkaConfig, group)
			defer sub.Close()
			zap.L().Info("reading updates", zap.String("topic", cfg.KafkaConfig.EventTopic), zap.String("group", group))

			enc := json.NewEncoder(cmd.OutOrStdout())
			return sub.Run(ctx, func(u model.Update) {
				if err := enc.Encode(u); err != nil {
					zap.L().Warn("print update", zap.Error(err))
				}
			})
		},
	}
	cmd.Flags().StringVar(&group, "group", "", "consumer group id (empty: no offset commits, start from latest)")
	return cmd
}
