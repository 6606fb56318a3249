// Package seed loads a small demo data set into the configured stores so the
// leaderboard and the session flow have something to show.
package seed

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/heartmarshall/mflix-backend/internal/domain"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

// DefaultMovieID is "Blacksmith Scene" in the sample_mflix data set.
const DefaultMovieID = "573a1390f29313caabcd4135"

// Options controls the size of the demo data set.
type Options struct {
	Users           int
	CommentsPerUser int
	Password        string
	MovieID         string
	// Cost is the bcrypt cost; zero means bcrypt.DefaultCost.
	Cost int
}

// Report counts what Run created.
type Report struct {
	Users    int
	Sessions int
	Comments int
}

// Email returns the address of the i-th demo user.
func Email(i int) string {
	return fmt.Sprintf("demo%02d@mflix.example", i)
}

// Run creates opts.Users demo users, logs each of them in and lets the i-th
// user (counting from zero) write (i+1)*opts.CommentsPerUser comments so the
// leaderboard has a clear order. Users that already exist are skipped.
func Run(ctx context.Context, logger *slog.Logger, stores *store.Stores, opts Options) (Report, error) {
	var report Report

	if opts.MovieID == "" {
		opts.MovieID = DefaultMovieID
	}
	cost := opts.Cost
	if cost == 0 {
		cost = bcrypt.DefaultCost
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(opts.Password), cost)
	if err != nil {
		return report, fmt.Errorf("hash password: %w", err)
	}

	for i := range opts.Users {
		email := Email(i)
		u := &domain.User{
			Name:           fmt.Sprintf("Demo User %d", i),
			Email:          email,
			HashedPassword: string(hash),
			Preferences:    domain.Preferences{"seeded": true},
		}

		_, err := stores.Users.AddUser(ctx, u)
		if errors.Is(err, domain.ErrDuplicateEntity) {
			logger.InfoContext(ctx, "seed: user exists, skipping", slog.String("email", email))
			continue
		}
		if err != nil {
			return report, fmt.Errorf("seed user %s: %w", email, err)
		}
		report.Users++

		if _, err := stores.Sessions.CreateSession(ctx, email, uuid.NewString()); err != nil {
			return report, fmt.Errorf("seed session %s: %w", email, err)
		}
		report.Sessions++

		for n := range (i + 1) * opts.CommentsPerUser {
			_, err := stores.Comments.AddComment(ctx, &domain.Comment{
				MovieID: opts.MovieID,
				Name:    u.Name,
				Email:   email,
				Text:    fmt.Sprintf("Demo comment %d from %s", n+1, u.Name),
			})
			if err != nil {
				return report, fmt.Errorf("seed comment for %s: %w", email, err)
			}
			report.Comments++
		}
	}

	logger.InfoContext(ctx, "seed: done",
		slog.Int("users", report.Users),
		slog.Int("sessions", report.Sessions),
		slog.Int("comments", report.Comments),
	)

	return report, nil
}
