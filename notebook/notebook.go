// Package notebook keeps the user directory and the notes owned by each user.
//
// Users are keyed by the subject id handed out by the identity provider,
// notes are append-only and listed in the order they were written.
//
// Nothing here survives a restart, both backends live inside the process.
package notebook

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/andrebq/notebox/internal/logutil"
)

type (
	// Profile is what the identity provider tells us about a user.
	Profile struct {
		Subject string
		Name    string
		Email   string
	}

	User struct {
		Subject string `json:"-"`
		Name    string `json:"name"`
		Email   string `json:"email"`
	}

	Note struct {
		ID        int64     `json:"id"`
		Content   string    `json:"content"`
		CreatedAt time.Time `json:"timestamp"`
	}

	// Store is the user directory and the note store behind a single handle.
	Store interface {
		// Upsert returns the user for p.Subject, creating it when absent.
		// Existing profiles are never refreshed.
		Upsert(ctx context.Context, p Profile) (u User, created bool, err error)
		Lookup(ctx context.Context, subject string) (User, bool, error)

		// ListNotes returns the notes of subject in creation order.
		ListNotes(ctx context.Context, subject string) ([]Note, error)
		AppendNote(ctx context.Context, subject, content string) (Note, error)

		Close() error
	}

	// IDSource hands out note ids derived from the wall clock, strictly
	// increasing for the life of the process.
	IDSource struct {
		last int64
	}
)

func (s *IDSource) Next(now time.Time) int64 {
	for {
		prev := atomic.LoadInt64(&s.last)
		next := now.UnixMilli()
		if next <= prev {
			next = prev + 1
		}
		if atomic.CompareAndSwapInt64(&s.last, prev, next) {
			return next
		}
	}
}

func blank(content string) bool {
	return len(strings.TrimSpace(content)) == 0
}

func announce(ctx context.Context, u User) {
	log := logutil.GetOrDefault(ctx)
	log.Info().Str("subject", u.Subject).Str("name", u.Name).Msg("New user registered")
}
