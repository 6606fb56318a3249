// Package storetest is a contract suite shared by every store backend.
// Backend test packages call Run with a factory that hands out stores over
// empty collections.
package storetest

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/heartmarshall/mflix-backend/internal/domain"
	"github.com/heartmarshall/mflix-backend/internal/store"
)

// MovieID is a content item id valid for every backend.
const MovieID = "573a1390f29313caabcd4135"

// Backend describes the implementation under test.
type Backend struct {
	// NewStores returns stores over empty collections. Resources must be
	// released through t.Cleanup.
	NewStores func(t *testing.T) *store.Stores
	// MissingCommentID is a well-formed comment id that never exists.
	MissingCommentID string
	// SkipComments disables the comment cases for session-only backends.
	SkipComments bool
	// SkipUsers disables the user cases for session-only backends.
	SkipUsers bool
}

// Run executes the full contract against b.
func Run(t *testing.T, b Backend) {
	t.Helper()

	t.Run("Sessions", func(t *testing.T) { runSessions(t, b) })
	if !b.SkipUsers {
		t.Run("Users", func(t *testing.T) { runUsers(t, b) })
	}
	if !b.SkipComments {
		t.Run("Comments", func(t *testing.T) { runComments(t, b) })
		t.Run("Critics", func(t *testing.T) { runCritics(t, b) })
	}
}

func uniqueEmail(prefix string) string {
	return prefix + "-" + uuid.New().String()[:8] + "@example.com"
}

// ---------------------------------------------------------------------------
// Users
// ---------------------------------------------------------------------------

func runUsers(t *testing.T, b Backend) {
	t.Run("AddUser_AssignsIDAndIsReadable", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()

		u := &domain.User{
			Name:           "Ned Stark",
			Email:          uniqueEmail("ned"),
			HashedPassword: "$2a$10$opaque",
			Preferences:    domain.Preferences{"lang": "en"},
		}

		ok, err := s.Users.AddUser(ctx, u)
		require.NoError(t, err)
		assert.True(t, ok)
		assert.NotEmpty(t, u.ID)

		got, err := s.Users.GetUser(ctx, u.Email)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, u.ID, got.ID)
		assert.Equal(t, "Ned Stark", got.Name)
		assert.Equal(t, "$2a$10$opaque", got.HashedPassword)
		assert.Equal(t, "en", got.Preferences["lang"])
	})

	t.Run("AddUser_DuplicateEmail", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		email := uniqueEmail("dup")

		ok, err := s.Users.AddUser(ctx, &domain.User{Name: "first", Email: email})
		require.NoError(t, err)
		require.True(t, ok)

		ok, err = s.Users.AddUser(ctx, &domain.User{Name: "second", Email: email})
		require.ErrorIs(t, err, domain.ErrDuplicateEntity)
		assert.False(t, ok)

		got, err := s.Users.GetUser(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "first", got.Name)
	})

	t.Run("AddUser_EmailIsCaseSensitive", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		email := uniqueEmail("case")

		_, err := s.Users.AddUser(ctx, &domain.User{Email: email})
		require.NoError(t, err)
		_, err = s.Users.AddUser(ctx, &domain.User{Email: strings.ToUpper(email)})
		require.NoError(t, err)
	})

	t.Run("AddUser_EmptyEmail", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		ok, err := s.Users.AddUser(context.Background(), &domain.User{Name: "anon"})

		require.ErrorIs(t, err, domain.ErrValidation)
		assert.False(t, ok)
	})

	t.Run("GetUser_Absent", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		got, err := s.Users.GetUser(context.Background(), uniqueEmail("ghost"))

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DeleteUser_CascadesToSessions", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		email := uniqueEmail("bye")

		_, err := s.Users.AddUser(ctx, &domain.User{Email: email})
		require.NoError(t, err)
		_, err = s.Sessions.CreateSession(ctx, email, "token-"+email)
		require.NoError(t, err)

		assert.True(t, s.Users.DeleteUser(ctx, email))

		u, err := s.Users.GetUser(ctx, email)
		require.NoError(t, err)
		assert.Nil(t, u)

		sess, err := s.Sessions.GetSession(ctx, email)
		require.NoError(t, err)
		assert.Nil(t, sess)
	})

	t.Run("DeleteUser_AbsentIsAcknowledged", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		assert.True(t, s.Users.DeleteUser(context.Background(), uniqueEmail("nobody")))
	})

	t.Run("AddUser_EmptyPreferencesKept", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		email := uniqueEmail("prefs-empty")

		_, err := s.Users.AddUser(ctx, &domain.User{Email: email, Preferences: domain.Preferences{}})
		require.NoError(t, err)

		got, err := s.Users.GetUser(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, got)
		require.NotNil(t, got.Preferences)
		assert.Empty(t, got.Preferences)
	})

	t.Run("UpdateUserPreferences_NilIsNoop", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		email := uniqueEmail("prefs-nil")

		_, err := s.Users.AddUser(ctx, &domain.User{Email: email, Preferences: domain.Preferences{"y": "keep"}})
		require.NoError(t, err)

		ok, err := s.Users.UpdateUserPreferences(ctx, email, nil)
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Users.GetUser(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "keep", got.Preferences["y"])
	})

	t.Run("UpdateUserPreferences_ReplacesWholesale", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		email := uniqueEmail("prefs")

		_, err := s.Users.AddUser(ctx, &domain.User{Email: email, Preferences: domain.Preferences{"y": "gone"}})
		require.NoError(t, err)

		ok, err := s.Users.UpdateUserPreferences(ctx, email, domain.Preferences{"x": 1})
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Users.GetUser(ctx, email)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.NotContains(t, got.Preferences, "y")
		assert.EqualValues(t, 1, got.Preferences["x"])
	})

	t.Run("UpdateUserPreferences_UnknownUser", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		ok, err := s.Users.UpdateUserPreferences(context.Background(), uniqueEmail("ghost"), domain.Preferences{"x": 1})

		require.NoError(t, err)
		assert.False(t, ok)
	})
}

// ---------------------------------------------------------------------------
// Sessions
// ---------------------------------------------------------------------------

func runSessions(t *testing.T, b Backend) {
	t.Run("CreateSession_ReplacesPrevious", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		userID := uniqueEmail("login")

		ok, err := s.Sessions.CreateSession(ctx, userID, "t1")
		require.NoError(t, err)
		assert.True(t, ok)

		ok, err = s.Sessions.CreateSession(ctx, userID, "t2")
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Sessions.GetSession(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, domain.Session{UserID: userID, Token: "t2"}, *got)

		ok, err = s.Sessions.DeleteUserSessions(ctx, userID)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = s.Sessions.GetSession(ctx, userID)
		require.NoError(t, err)
		assert.Nil(t, got, "only one session should have existed")
	})

	t.Run("GetSession_Absent", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		got, err := s.Sessions.GetSession(context.Background(), uniqueEmail("nosession"))

		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("DeleteUserSessions_NoneIsAcknowledged", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		ok, err := s.Sessions.DeleteUserSessions(context.Background(), uniqueEmail("nosession"))

		require.NoError(t, err)
		assert.True(t, ok)
	})

	t.Run("CreateSession_OtherUsersUntouched", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		alice, bob := uniqueEmail("alice"), uniqueEmail("bob")

		_, err := s.Sessions.CreateSession(ctx, alice, "ta")
		require.NoError(t, err)
		_, err = s.Sessions.CreateSession(ctx, bob, "tb")
		require.NoError(t, err)

		got, err := s.Sessions.GetSession(ctx, alice)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "ta", got.Token)
	})

	// Concurrent logins race between the lookup and the insert; the store
	// must still leave the user with a session carrying one of the tokens.
	t.Run("CreateSession_Concurrent", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		userID := uniqueEmail("race")

		const workers = 8
		tokens := make(map[string]bool, workers)
		var wg sync.WaitGroup
		for i := range workers {
			tok := fmt.Sprintf("tok-%d", i)
			tokens[tok] = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Sessions.CreateSession(ctx, userID, tok)
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		got, err := s.Sessions.GetSession(ctx, userID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, tokens[got.Token], "unexpected token %q", got.Token)
	})
}

// ---------------------------------------------------------------------------
// Comments
// ---------------------------------------------------------------------------

func newComment(email, text string) *domain.Comment {
	return &domain.Comment{
		MovieID: MovieID,
		Name:    "Arya Stark",
		Email:   email,
		Text:    text,
		Date:    time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC),
	}
}

func runComments(t *testing.T, b Backend) {
	t.Run("AddComment_ReturnsCommitted", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()

		added, err := s.Comments.AddComment(ctx, newComment(uniqueEmail("arya"), "not today"))
		require.NoError(t, err)
		require.NotNil(t, added)
		assert.NotEmpty(t, added.ID)
		assert.Equal(t, "not today", added.Text)
		assert.Equal(t, MovieID, added.MovieID)
		assert.True(t, added.Date.Equal(time.Date(2020, 1, 2, 3, 4, 5, 0, time.UTC)))

		got, err := s.Comments.GetComment(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})

	t.Run("AddComment_DefaultsDate", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		c := newComment(uniqueEmail("nodate"), "now")
		c.Date = time.Time{}

		added, err := s.Comments.AddComment(context.Background(), c)
		require.NoError(t, err)
		assert.WithinDuration(t, time.Now(), added.Date, time.Minute)
	})

	t.Run("AddComment_Invalid", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()

		got, err := s.Comments.AddComment(ctx, nil)
		require.ErrorIs(t, err, domain.ErrInvalidOperation)
		assert.Nil(t, got)

		got, err = s.Comments.AddComment(ctx, &domain.Comment{Text: "orphan"})
		require.ErrorIs(t, err, domain.ErrInvalidOperation)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Nil(t, got)
	})

	t.Run("GetComment_Absent", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()

		got, err := s.Comments.GetComment(ctx, b.MissingCommentID)
		require.NoError(t, err)
		assert.Nil(t, got)

	})

	t.Run("MalformedCommentID", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		author := uniqueEmail("owner")

		got, err := s.Comments.GetComment(ctx, "not-an-id")
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.Nil(t, got)

		ok, err := s.Comments.UpdateComment(ctx, "not-an-id", "text", author)
		require.ErrorIs(t, err, domain.ErrInvalidOperation)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.False(t, ok)

		ok, err = s.Comments.DeleteComment(ctx, "not-an-id", author)
		require.ErrorIs(t, err, domain.ErrInvalidArgument)
		require.ErrorIs(t, err, domain.ErrValidation)
		assert.False(t, ok)
	})

	t.Run("UpdateComment_Owner", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		author := uniqueEmail("owner")

		added, err := s.Comments.AddComment(ctx, newComment(author, "first draft"))
		require.NoError(t, err)

		ok, err := s.Comments.UpdateComment(ctx, added.ID, "final cut", author)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err := s.Comments.GetComment(ctx, added.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.Equal(t, "final cut", got.Text)
		assert.True(t, got.Date.After(added.Date), "date should be refreshed")
		assert.Equal(t, author, got.Email)
	})

	t.Run("UpdateComment_NotOwner", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		author := uniqueEmail("owner")

		added, err := s.Comments.AddComment(ctx, newComment(author, "mine"))
		require.NoError(t, err)

		for _, intruder := range []string{uniqueEmail("intruder"), strings.ToUpper(author), ""} {
			ok, err := s.Comments.UpdateComment(ctx, added.ID, "hijacked", intruder)
			require.NoError(t, err)
			assert.False(t, ok, "intruder %q", intruder)
		}

		got, err := s.Comments.GetComment(ctx, added.ID)
		require.NoError(t, err)
		assert.Equal(t, added, got)
	})

	t.Run("UpdateComment_Absent", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()

		ok, err := s.Comments.UpdateComment(ctx, b.MissingCommentID, "text", uniqueEmail("x"))
		require.NoError(t, err)
		assert.False(t, ok)

	})

	t.Run("DeleteComment_NotOwnerThenOwner", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		author := uniqueEmail("owner")

		added, err := s.Comments.AddComment(ctx, newComment(author, "delete me"))
		require.NoError(t, err)

		ok, err := s.Comments.DeleteComment(ctx, added.ID, uniqueEmail("intruder"))
		require.NoError(t, err)
		assert.False(t, ok)

		got, err := s.Comments.GetComment(ctx, added.ID)
		require.NoError(t, err)
		require.NotNil(t, got, "comment must survive a foreign delete")

		ok, err = s.Comments.DeleteComment(ctx, added.ID, author)
		require.NoError(t, err)
		assert.True(t, ok)

		got, err = s.Comments.GetComment(ctx, added.ID)
		require.NoError(t, err)
		assert.Nil(t, got)

		ok, err = s.Comments.DeleteComment(ctx, added.ID, author)
		require.NoError(t, err)
		assert.False(t, ok, "second delete finds nothing")
	})

	t.Run("UpdateComment_ConcurrentOwner", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		ctx := context.Background()
		author := uniqueEmail("busy")

		added, err := s.Comments.AddComment(ctx, newComment(author, "v0"))
		require.NoError(t, err)

		const workers = 8
		texts := make(map[string]bool, workers)
		var wg sync.WaitGroup
		for i := range workers {
			text := fmt.Sprintf("v%d", i+1)
			texts[text] = true
			wg.Add(1)
			go func() {
				defer wg.Done()
				ok, err := s.Comments.UpdateComment(ctx, added.ID, text, author)
				assert.NoError(t, err)
				assert.True(t, ok)
			}()
		}
		wg.Wait()

		got, err := s.Comments.GetComment(ctx, added.ID)
		require.NoError(t, err)
		require.NotNil(t, got)
		assert.True(t, texts[got.Text], "unexpected text %q", got.Text)
	})
}

// ---------------------------------------------------------------------------
// Critics
// ---------------------------------------------------------------------------

func seedComments(t *testing.T, s *store.Stores, email string, n int) {
	t.Helper()
	ctx := context.Background()
	for i := range n {
		_, err := s.Comments.AddComment(ctx, newComment(email, fmt.Sprintf("comment %d", i)))
		require.NoError(t, err)
	}
}

func runCritics(t *testing.T, b Backend) {
	t.Run("Empty", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		critics, err := store.CollectCritics(s.Comments.MostActiveCommenters(context.Background()))

		require.NoError(t, err)
		assert.Empty(t, critics)
	})

	t.Run("OrderedByCount", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		a, bb, c := uniqueEmail("a"), uniqueEmail("b"), uniqueEmail("c")

		seedComments(t, s, a, 5)
		seedComments(t, s, bb, 3)
		seedComments(t, s, c, 21)

		critics, err := store.CollectCritics(s.Comments.MostActiveCommenters(context.Background()))

		require.NoError(t, err)
		assert.Equal(t, []domain.Critic{
			{Email: c, Count: 21},
			{Email: a, Count: 5},
			{Email: bb, Count: 3},
		}, critics)
	})

	t.Run("TruncatedToTop", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)

		top := uniqueEmail("top")
		seedComments(t, s, top, 3)
		for range domain.MaxCritics + 5 {
			seedComments(t, s, uniqueEmail("one"), 1)
		}

		critics, err := store.CollectCritics(s.Comments.MostActiveCommenters(context.Background()))

		require.NoError(t, err)
		require.Len(t, critics, domain.MaxCritics)
		assert.Equal(t, domain.Critic{Email: top, Count: 3}, critics[0])
		for i := 1; i < len(critics); i++ {
			assert.GreaterOrEqual(t, critics[i-1].Count, critics[i].Count)
		}
	})

	t.Run("StopsEarly", func(t *testing.T) {
		t.Parallel()
		s := b.NewStores(t)
		seedComments(t, s, uniqueEmail("p"), 2)
		seedComments(t, s, uniqueEmail("q"), 1)

		n := 0
		for _, err := range s.Comments.MostActiveCommenters(context.Background()) {
			require.NoError(t, err)
			n++
			break
		}
		assert.Equal(t, 1, n)
	})
}
