// Package client is fleetd's Go client library: a thin wrapper around
// pkg/bus used by the CLI's isolate and watch subcommands.
//
// Dial connects to the orchestrator's public listener and completes the
// Hello handshake:
//
//	c, err := client.Dial(ctx, "manager:1998")
//	if err != nil {
//		log.Fatal(err)
//	}
//	defer c.Close()
//
//	jobPath, err := c.IsolateAll(ctx, "staging")
//
// Watch streams JobNew/JobRemoved notifications until ctx is cancelled:
//
//	err := c.Watch(ctx, func(signal, payload string) {
//		fmt.Println(signal, payload)
//	})
package client
