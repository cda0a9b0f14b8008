package main

import (
	"errors"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Consume queued evolution jobs from RabbitMQ",
	RunE: func(cmd *cobra.Command, _ []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c, lg, err := setup(ctx)
		if err != nil {
			return err
		}
		defer teardown(c, lg)

		if c.Queue == nil {
			return errors.New("RABBITMQ_URL is not set or the broker is unreachable")
		}

		go func() {
			_ = c.FollowReloads(ctx)
		}()
		return c.Queue.Consume(ctx, c.Trigger.Handle)
	},
}

func init() {
	rootCmd.AddCommand(workerCmd)
}
