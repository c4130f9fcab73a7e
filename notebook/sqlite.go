package notebook

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/mattn/go-sqlite3"
)

type (
	sqlStore struct {
		db  *sql.DB
		ids *IDSource
		now func() time.Time
	}
)

// InSQLite returns a Store backed by a private in-memory sqlite database.
// The database disappears with the process.
func InSQLite(ctx context.Context) (Store, error) {
	return openSQLStore(ctx, &IDSource{}, time.Now)
}

func openSQLStore(ctx context.Context, ids *IDSource, now func() time.Time) (*sqlStore, error) {
	// every store gets its own named memory database, shared cache keeps it
	// alive for as long as the single pooled connection is open
	connstr := fmt.Sprintf("file:notebox-%v?mode=memory&cache=shared", uuid.NewString())
	conn, err := sql.Open("sqlite3", connstr)
	if err != nil {
		return nil, fmt.Errorf("unable to open sqlite store, cause %w", err)
	}
	conn.SetMaxOpenConns(1)
	conn.SetConnMaxLifetime(0)
	conn.SetConnMaxIdleTime(0)
	err = conn.PingContext(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to ping sqlite store, cause %w", err)
	}
	s := &sqlStore{db: conn, ids: ids, now: now}
	err = s.init(ctx)
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("unable to init sqlite store, cause %w", err)
	}
	return s, nil
}

func (s *sqlStore) init(ctx context.Context) error {
	for _, cmd := range []string{
		`create table if not exists users(
			subject_id text not null primary key,
			name text not null,
			email text not null
		)`,
		`create table if not exists notes(
			seq integer primary key autoincrement,
			note_id integer not null unique,
			subject_id text not null,
			content text not null,
			created_at text not null
		)`,
		`create index if not exists idx_notes_subject
			on notes(subject_id, seq)`,
	} {
		_, err := s.db.ExecContext(ctx, cmd)
		if err != nil {
			return err
		}
	}
	return nil
}

func (s *sqlStore) Upsert(ctx context.Context, p Profile) (User, bool, error) {
	if p.Subject == "" {
		return User{}, false, MissingSubject{}
	}
	res, err := s.db.ExecContext(ctx, `insert into users(subject_id, name, email) values (?, ?, ?)
		on conflict (subject_id) do nothing`, p.Subject, p.Name, p.Email)
	if err != nil {
		return User{}, false, fmt.Errorf("unable to upsert user %v, cause %w", p.Subject, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return User{}, false, fmt.Errorf("unable to upsert user %v, cause %w", p.Subject, err)
	}
	u, found, err := s.Lookup(ctx, p.Subject)
	if err != nil {
		return User{}, false, err
	} else if !found {
		return User{}, false, fmt.Errorf("user %v vanished after upsert", p.Subject)
	}
	created := affected > 0
	if created {
		announce(ctx, u)
	}
	return u, created, nil
}

func (s *sqlStore) Lookup(ctx context.Context, subject string) (User, bool, error) {
	u := User{Subject: subject}
	err := s.db.QueryRowContext(ctx, `select name, email from users where subject_id = ?`, subject).Scan(&u.Name, &u.Email)
	if errors.Is(err, sql.ErrNoRows) {
		return User{}, false, nil
	} else if err != nil {
		return User{}, false, fmt.Errorf("unable to lookup user %v, cause %w", subject, err)
	}
	return u, true, nil
}

func (s *sqlStore) ListNotes(ctx context.Context, subject string) ([]Note, error) {
	rows, err := s.db.QueryContext(ctx, `select note_id, content, created_at from notes
		where subject_id = ? order by seq asc`, subject)
	if err != nil {
		return nil, fmt.Errorf("unable to list notes of %v, cause %w", subject, err)
	}
	defer rows.Close()
	out := []Note{}
	for rows.Next() {
		var n Note
		var created string
		err = rows.Scan(&n.ID, &n.Content, &created)
		if err != nil {
			return nil, fmt.Errorf("unable to scan note of %v, cause %w", subject, err)
		}
		n.CreatedAt, err = time.Parse(time.RFC3339Nano, created)
		if err != nil {
			return nil, CorruptNote{ID: n.ID, cause: err}
		}
		out = append(out, n)
	}
	return out, rows.Err()
}

func (s *sqlStore) AppendNote(ctx context.Context, subject, content string) (Note, error) {
	if subject == "" {
		return Note{}, MissingSubject{}
	}
	if blank(content) {
		return Note{}, EmptyContent{}
	}
	now := s.now().UTC()
	n := Note{
		ID:        s.ids.Next(now),
		Content:   content,
		CreatedAt: now,
	}
	_, err := s.db.ExecContext(ctx, `insert into notes(note_id, subject_id, content, created_at) values (?, ?, ?, ?)`,
		n.ID, subject, n.Content, n.CreatedAt.Format(time.RFC3339Nano))
	if err != nil {
		return Note{}, fmt.Errorf("unable to store note for %v, cause %w", subject, err)
	}
	return n, nil
}

func (s *sqlStore) Close() error {
	return s.db.Close()
}
