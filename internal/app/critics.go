package app

import (
	"context"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/heartmarshall/mflix-backend/internal/store"
)

// PrintCritics writes the comment leaderboard to w, one "rank email count"
// row per author.
func PrintCritics(ctx context.Context, w io.Writer, comments store.CommentStore) error {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)

	rank := 0
	for c, err := range comments.MostActiveCommenters(ctx) {
		if err != nil {
			return fmt.Errorf("most active commenters: %w", err)
		}
		rank++
		fmt.Fprintf(tw, "%d\t%s\t%d\n", rank, c.Email, c.Count)
	}

	return tw.Flush()
}
