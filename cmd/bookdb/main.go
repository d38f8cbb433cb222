package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	_ "github.com/noah-isme/bookdb-api/api/swagger"
)

// @title BookDB API
// @version 1.0.0
// @description Document library: uploads, PDF page splitting, bookmarks and realtime notifications.
// @BasePath /
// @schemes http

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		os.Exit(1)
	}
}
