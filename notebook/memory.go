package notebook

import (
	"context"
	"sync"
	"time"

	"github.com/cespare/xxhash/v2"
)

const shardCount = 16

type (
	memStore struct {
		shards [shardCount]shard
		ids    *IDSource
		now    func() time.Time
	}

	shard struct {
		sync.Mutex
		users map[string]User
		notes map[string][]Note
	}
)

// InMemory returns a Store kept in process maps. Subjects are spread over a
// fixed set of shards so writes for one user never wait on another shard.
func InMemory() Store {
	return newMemStore(&IDSource{}, time.Now)
}

func newMemStore(ids *IDSource, now func() time.Time) *memStore {
	m := &memStore{ids: ids, now: now}
	for i := range m.shards {
		m.shards[i].users = make(map[string]User)
		m.shards[i].notes = make(map[string][]Note)
	}
	return m
}

func (m *memStore) shardFor(subject string) *shard {
	return &m.shards[xxhash.Sum64String(subject)%shardCount]
}

func (m *memStore) Upsert(ctx context.Context, p Profile) (User, bool, error) {
	if p.Subject == "" {
		return User{}, false, MissingSubject{}
	}
	s := m.shardFor(p.Subject)
	s.Lock()
	if u, ok := s.users[p.Subject]; ok {
		s.Unlock()
		return u, false, nil
	}
	u := User{Subject: p.Subject, Name: p.Name, Email: p.Email}
	s.users[p.Subject] = u
	if _, ok := s.notes[p.Subject]; !ok {
		s.notes[p.Subject] = []Note{}
	}
	s.Unlock()
	announce(ctx, u)
	return u, true, nil
}

func (m *memStore) Lookup(ctx context.Context, subject string) (User, bool, error) {
	s := m.shardFor(subject)
	s.Lock()
	defer s.Unlock()
	u, ok := s.users[subject]
	return u, ok, nil
}

func (m *memStore) ListNotes(ctx context.Context, subject string) ([]Note, error) {
	s := m.shardFor(subject)
	s.Lock()
	defer s.Unlock()
	out := make([]Note, len(s.notes[subject]))
	copy(out, s.notes[subject])
	return out, nil
}

func (m *memStore) AppendNote(ctx context.Context, subject, content string) (Note, error) {
	if subject == "" {
		return Note{}, MissingSubject{}
	}
	if blank(content) {
		return Note{}, EmptyContent{}
	}
	now := m.now().UTC()
	s := m.shardFor(subject)
	s.Lock()
	defer s.Unlock()
	n := Note{
		ID:        m.ids.Next(now),
		Content:   content,
		CreatedAt: now,
	}
	s.notes[subject] = append(s.notes[subject], n)
	return n, nil
}

func (m *memStore) Close() error {
	return nil
}
