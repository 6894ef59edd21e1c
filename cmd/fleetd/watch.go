package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/cuemby/fleetd/pkg/client"
)

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream job lifecycle signals from the orchestrator",
	RunE:  runWatch,
}

func init() {
	watchCmd.Flags().String("addr", ":1998", "Orchestrator public listen address")
}

func runWatch(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	c, err := client.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect to orchestrator: %w", err)
	}
	defer c.Close()

	fmt.Printf("watching %s, press Ctrl+C to stop\n", addr)
	return c.Watch(ctx, func(signal, payload string) {
		fmt.Printf("%s: %s\n", signal, payload)
	})
}
