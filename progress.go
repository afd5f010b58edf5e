package main

import (
	"encoding/json"
	"fmt"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Per-player guessing progress, persisted in bbolt: one bucket per player
// id, one key per (content version, mode) scope, JSON value. Reads are
// best-effort — a missing or corrupt value is the same as no prior progress.

// progress is one player's record for a single scope.
type progress struct {
	Guessed map[string]bool

	// Order holds solved ids most-recent-first, for modes that track it.
	Order []string
}

// progressPayload is the stored JSON form; the guessed set round-trips as a
// list.
type progressPayload struct {
	Guessed []string `json:"guessed"`
	Order   []string `json:"guessOrder"`
}

func newProgress() *progress {
	return &progress{
		Guessed: make(map[string]bool),
	}
}

// markSolved records a correct answer. Already-solved ids are a no-op; the
// return value reports whether the record changed, which drives the reveal
// logic upstream. trackOrder prepends the id so the newest answer is first.
func (p *progress) markSolved(id string, trackOrder bool) bool {
	if p.Guessed[id] {
		return false
	}

	p.Guessed[id] = true
	if trackOrder {
		p.Order = append([]string{id}, p.Order...)
	}

	return true
}

// scopeKey composes version and mode into the storage key. The "/" separator
// cannot appear in either part, so distinct pairs never collide.
func scopeKey(version, mode string) string {
	return fmt.Sprintf("lol-guess/%s/%s", version, mode)
}

// load outcomes, kept distinct so silent recovery stays visible in tests.
type loadState int

const (
	loadFound loadState = iota
	loadMissing
	loadCorrupt
)

type progressStore struct {
	db *bolt.DB
}

// openProgressStore opens (or creates) the bbolt database at path.
func openProgressStore(path string) (*progressStore, error) {
	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("open progress db: %w", err)
	}

	return &progressStore{db: db}, nil
}

func (s *progressStore) close() error {
	return s.db.Close()
}

// decodeProgress turns a stored value into a record. Missing and corrupt
// values both yield an empty record; the loadState tells them apart for
// callers that care (tests do, the games collapse both to empty).
func decodeProgress(raw []byte) (*progress, loadState) {
	if raw == nil {
		return newProgress(), loadMissing
	}

	var payload progressPayload
	if err := json.Unmarshal(raw, &payload); err != nil {
		return newProgress(), loadCorrupt
	}

	p := newProgress()
	for _, id := range payload.Guessed {
		p.Guessed[id] = true
	}
	p.Order = payload.Order

	return p, loadFound
}

func (p *progress) payload() progressPayload {
	payload := progressPayload{
		Guessed: make([]string, 0, len(p.Guessed)),
		Order:   p.Order,
	}
	for id := range p.Guessed {
		payload.Guessed = append(payload.Guessed, id)
	}
	return payload
}

// load reads one scope's record for a player.
func (s *progressStore) load(playerID, scope string) (*progress, loadState) {
	var raw []byte

	_ = s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(playerID))
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(scope)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})

	return decodeProgress(raw)
}

// save writes the whole record in one transaction.
func (s *progressStore) save(playerID, scope string, p *progress) error {
	raw, err := json.Marshal(p.payload())
	if err != nil {
		return err
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(playerID))
		if err != nil {
			return err
		}
		return b.Put([]byte(scope), raw)
	})
}

// solve records a correct answer with the read, the mark, and the write all
// inside one write transaction, so two overlapping guesses from the same
// player can never drop each other's solves. Returns the record as written
// and whether this call changed it.
func (s *progressStore) solve(playerID, scope, id string, trackOrder bool) (*progress, bool, error) {
	var (
		p       *progress
		changed bool
	)

	err := s.db.Update(func(tx *bolt.Tx) error {
		b, err := tx.CreateBucketIfNotExists([]byte(playerID))
		if err != nil {
			return err
		}

		p, _ = decodeProgress(b.Get([]byte(scope)))
		changed = p.markSolved(id, trackOrder)
		if !changed {
			return nil
		}

		raw, err := json.Marshal(p.payload())
		if err != nil {
			return err
		}
		return b.Put([]byte(scope), raw)
	})

	if p == nil {
		// The transaction failed before the read; fall back to an
		// in-memory record so the caller still gets an answer.
		p, _ = decodeProgress(nil)
		changed = p.markSolved(id, trackOrder)
	}

	return p, changed, err
}

// reset clears one scope's persisted record. Irreversible.
func (s *progressStore) reset(playerID, scope string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket([]byte(playerID))
		if b == nil {
			return nil
		}
		return b.Delete([]byte(scope))
	})
}
