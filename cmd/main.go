package main

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/yungbote/gbid-catalog/internal/app"
	"github.com/yungbote/gbid-catalog/internal/platform/shutdown"
)

func main() {
	ctx, stop := shutdown.NotifyContext(context.Background())
	defer stop()

	a, err := app.New(ctx)
	if err != nil {
		fmt.Printf("failed to initialize app: %v\n", err)
		os.Exit(1)
	}
	defer a.Close()

	if err := a.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		a.Log.Error("server exited", "error", err)
		a.Close()
		os.Exit(1)
	}
}
