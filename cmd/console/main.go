package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"faceconsole/internal/app"
	"faceconsole/internal/views"
)

func main() {
	application, err := app.New()
	if err != nil {
		fmt.Fprintf(os.Stderr, "faceconsole: %v\n", err)
		os.Exit(1)
	}
	defer application.Close()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	root := views.NewRootCmd(application)
	if err := root.ExecuteContext(ctx); err != nil {
		os.Exit(1)
	}
}
