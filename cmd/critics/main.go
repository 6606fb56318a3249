// Command critics prints the authors with the most comments, one
// "rank email count" row each, from the configured storage backend.
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/mflix-backend/internal/app"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

func main() {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	err := app.Run(ctx, func(ctx context.Context, _ *slog.Logger, stores *store.Stores) error {
		return app.PrintCritics(ctx, os.Stdout, stores.Comments)
	})
	if err != nil {
		log.Printf("critics: %v", err)
		os.Exit(1)
	}
}
