package main

import (
	"context"
	"errors"
	"fmt"
	"os/signal"
	"strings"
	"syscall"

	"github.com/spf13/cobra"

	"soul-chat-go/internal/config"
	"soul-chat-go/internal/service"
	"soul-chat-go/pkg/events"
	"soul-chat-go/pkg/kafka"
	"soul-chat-go/pkg/log"
	"soul-chat-go/pkg/search"
)

// classifyCMD 打印一条消息的分类结果，便于调试规则。
func classifyCMD() *cobra.Command {
	return &cobra.Command{
		Use:   "classify <message>",
		Short: "Show whether a message would trigger a web search",
		Args:  cobra.MinimumNArgs(1),
		Run: func(cmd *cobra.Command, args []string) {
			message := strings.Join(args, " ")
			result := service.NewClassifier().Classify(message)
			fmt.Fprintf(cmd.OutOrStdout(), "search=%t rule=%s\n", result.Search, result.Rule)
		},
	}
}

// askCMD 在本地生成一次回复，不写入任何会话。
func askCMD(cfgPath *string) *cobra.Command {
	return &cobra.Command{
		Use:   "ask <message>",
		Short: "Synthesize a reply for a message without starting the server",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			synthesizer := service.NewSynthesizer(service.NewClassifier(), search.NewClient(cfg.Search))
			reply := synthesizer.Compose(cmd.Context(), strings.Join(args, " "))
			fmt.Fprintf(cmd.ErrOrStderr(), "rule=%s searched=%t found=%t\n", reply.Rule, reply.Searched, reply.Found)
			fmt.Fprintln(cmd.OutOrStdout(), reply.Text)
			return nil
		},
	}
}

// eventsCMD 订阅聊天事件主题并逐条打印。
func eventsCMD(cfgPath *string) *cobra.Command {
	var groupID string
	cmd := &cobra.Command{
		Use:   "events",
		Short: "Tail chat events from Kafka",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := config.Load(*cfgPath)
			if err != nil {
				return err
			}
			if !cfg.Kafka.Enabled {
				return errors.New("kafka is disabled, set kafka.enabled to true")
			}
			log.Init(cfg.Log.Level, cfg.Log.Format, cfg.Log.OutputPath)
			defer log.Sync()

			ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
			defer stop()

			out := cmd.OutOrStdout()
			return kafka.StartConsumer(ctx, cfg.Kafka, groupID, func(ctx context.Context, event events.Event, raw []byte) error {
				_, err := fmt.Fprintf(out, "%s\n", raw)
				return err
			})
		},
	}
	cmd.Flags().StringVar(&groupID, "group", "soul-chat-events-tail", "consumer group id")
	return cmd
}
