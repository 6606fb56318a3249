// Command seed loads demo users, sessions and comments into the configured
// storage backend. Existing demo users are left untouched.
//
// Flags:
//
//	--users     number of demo users (default 5)
//	--comments  comments written by the first user; the i-th user writes i times as many (default 2)
//	--password  plain-text password hashed with bcrypt for every demo user
//	--movie     movie id the comments refer to
//
// Exit codes: 0 = success, 1 = error.
package main

import (
	"context"
	"flag"
	"log"
	"log/slog"
	"os"
	"time"

	"github.com/heartmarshall/mflix-backend/internal/app"
	"github.com/heartmarshall/mflix-backend/internal/app/seed"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

func main() {
	usersFlag := flag.Int("users", 5, "number of demo users")
	commentsFlag := flag.Int("comments", 2, "comments written by the first demo user")
	passwordFlag := flag.String("password", "mflix-demo", "password of every demo user")
	movieFlag := flag.String("movie", seed.DefaultMovieID, "movie id the comments refer to")
	flag.Parse()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	err := app.Run(ctx, func(ctx context.Context, logger *slog.Logger, stores *store.Stores) error {
		_, err := seed.Run(ctx, logger, stores, seed.Options{
			Users:           *usersFlag,
			CommentsPerUser: *commentsFlag,
			Password:        *passwordFlag,
			MovieID:         *movieFlag,
		})
		return err
	})
	if err != nil {
		log.Printf("seed: %v", err)
		os.Exit(1)
	}
}
