package main

import (
	"context"
	"math/rand/v2"
)

// Skill-quiz round engine. Each session holds at most one active round: a
// target champion plus one of its four abilities. A correct submission moves
// the session to solved; only an explicit next-round request draws again.

const slotCount = 4

var slotLetters = [slotCount]string{"Q", "W", "E", "R"}

// skillRound is the ephemeral target of one quiz round.
type skillRound struct {
	ChampionID string
	Name       string // primary-locale display name, falls back to the id
	Slot       int    // 0..3 for Q/W/E/R
	ImageURL   string
}

// detailFetcher abstracts the per-champion detail lookup so tests can count
// and fake fetches.
type detailFetcher func(ctx context.Context, version, locale, id string) (*championDetail, error)

// quizSession drives one player's quiz. It is owned by a single goroutine
// (the game hub), so no locking happens here.
type quizSession struct {
	catalog *Catalog
	locale  string
	spell   func(version, file string) string
	fetch   detailFetcher
	rng     *rand.Rand

	details map[string]*championDetail
	round   *skillRound
	solved  bool

	// generation guards against a stale detail fetch finishing after a
	// newer round has already been drawn.
	generation uint64
}

func newQuizSession(catalog *Catalog, dd *ddragon, locale string) *quizSession {
	return &quizSession{
		catalog: catalog,
		locale:  locale,
		spell:   dd.spellImageURL,
		fetch:   dd.championDetail,
		rng:     rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())),
		details: make(map[string]*championDetail),
	}
}

// championDetail returns the cached detail record for id, fetching it at
// most once per session.
func (q *quizSession) championDetail(ctx context.Context, id string) (*championDetail, error) {
	if detail, ok := q.details[id]; ok {
		return detail, nil
	}

	detail, err := q.fetch(ctx, q.catalog.Version, q.locale, id)
	if err != nil {
		return nil, err
	}

	// Details are scoped to the content version, never to a round, so the
	// result stays valid even if a newer draw superseded this one.
	q.details[id] = detail

	return detail, nil
}

// nextRound draws a fresh round: champion uniform over the catalog, slot
// uniform over the four ability positions. A missing spell image degrades to
// an empty image URL rather than failing the round.
func (q *quizSession) nextRound(ctx context.Context) (*skillRound, error) {
	q.generation++
	gen := q.generation

	champ := q.catalog.Champions[q.rng.IntN(len(q.catalog.Champions))]
	slot := q.rng.IntN(slotCount)

	detail, err := q.championDetail(ctx, champ.ID)
	if err != nil {
		return nil, err
	}

	// A newer draw superseded this one while its detail fetch was in
	// flight; keep the newer round instead of clobbering it.
	if gen != q.generation {
		return q.round, nil
	}

	var file string
	if slot < len(detail.Spells) {
		file = detail.Spells[slot].Image.Full
	}

	name := detail.Name
	if name == "" {
		name = champ.ID
	}

	q.round = &skillRound{
		ChampionID: champ.ID,
		Name:       name,
		Slot:       slot,
		ImageURL:   q.spell(q.catalog.Version, file),
	}
	q.solved = false

	return q.round, nil
}

// submit evaluates one guess against the active round. Correct requires both
// the resolved champion id and the submitted slot to match; a wrong champion
// and a wrong slot are reported identically. Resubmission after an incorrect
// answer is always allowed.
func (q *quizSession) submit(rawChampion string, slot int) (bool, error) {
	if q.round == nil || q.solved {
		return false, nil
	}

	id, err := q.catalog.resolve(rawChampion)
	if err != nil {
		return false, err
	}

	correct := id == q.round.ChampionID && slot == q.round.Slot
	if correct {
		q.solved = true
	}

	return correct, nil
}
