package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/cuemby/fleetd/pkg/client"
)

var isolateCmd = &cobra.Command{
	Use:   "isolate <target>",
	Short: "Isolate target across every connected node",
	Args:  cobra.ExactArgs(1),
	RunE:  runIsolate,
}

func init() {
	isolateCmd.Flags().String("addr", ":1998", "Orchestrator public listen address")
}

func runIsolate(cmd *cobra.Command, args []string) error {
	addr, _ := cmd.Flags().GetString("addr")
	target := args[0]

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	c, err := client.Dial(ctx, addr)
	if err != nil {
		return fmt.Errorf("connect to orchestrator: %w", err)
	}
	defer c.Close()

	jobPath, err := c.IsolateAll(ctx, target)
	if err != nil {
		return fmt.Errorf("isolate %s: %w", target, err)
	}

	fmt.Printf("queued job: %s\n", jobPath)
	return nil
}
