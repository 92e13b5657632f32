// Command comments runs the thesis comments API over HTTP and, when
// GRPC_ADDRESS is set, over gRPC.
package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/patric-chuzhbe/thesiscomments/internal/app"
	"github.com/patric-chuzhbe/thesiscomments/internal/config"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:]); err != nil {
		panic(err)
	}
}

func run(ctx context.Context, args []string) error {
	application, err := app.New(config.WithArgs(args))
	if err != nil {
		return err
	}
	defer application.Close()

	return application.Run(ctx)
}
