package domain

import "time"

// Comment is a user comment on a movie.
//
// Email is a denormalized copy of the author's address taken at write time;
// it is the ownership key for updates and deletes and is never rewritten
// when the user record changes.
type Comment struct {
	ID      string
	MovieID string
	Name    string
	Email   string
	Text    string
	Date    time.Time
}

// Validate checks the fields a comment must carry before it is inserted.
func (c *Comment) Validate() error {
	if c == nil {
		return NewValidationError("comment", "required")
	}

	var errs []FieldError
	if c.Email == "" {
		errs = append(errs, FieldError{Field: "email", Message: "required"})
	}
	if c.Text == "" {
		errs = append(errs, FieldError{Field: "text", Message: "required"})
	}
	if c.MovieID == "" {
		errs = append(errs, FieldError{Field: "movie_id", Message: "required"})
	}

	if len(errs) > 0 {
		return NewValidationErrors(errs)
	}
	return nil
}

// Critic is a leaderboard row: an author email and the number of comments
// written with it. It is computed on demand and never stored.
type Critic struct {
	Email string
	Count int64
}

// MaxCritics bounds the leaderboard length.
const MaxCritics = 20
