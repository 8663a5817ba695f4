package main

import (
	"context"
	"fmt"
	"os"

	"gitlab.com/timkado/api/accessibility-finder-service/internal/bootstrap"
	"gitlab.com/timkado/api/accessibility-finder-service/pkg/contextkeys"
)

func main() {
	// Root context; cancelling it stops the config watcher and cache sweeper.
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	ctx = context.WithValue(ctx, contextkeys.RequestIDKey, "app-main")

	app, cleanup, err := bootstrap.InitializeApp(ctx)
	if err != nil {
		// The main logger isn't available yet.
		fmt.Fprintf(os.Stderr, "Failed to initialize application: %v\n", err)
		os.Exit(1)
	}
	defer cleanup()

	// Run handles server start and graceful shutdown.
	if err := app.Run(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "Application run failed: %v\n", err)
		cleanup()
		os.Exit(1)
	}

	fmt.Println("Application exited gracefully.")
}
