package main

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func quizFixtureCatalog(t *testing.T, ids ...string) *Catalog {
	t.Helper()

	primary := make(map[string]championEntry, len(ids))
	fallback := make(map[string]championEntry, len(ids))
	for i, id := range ids {
		primary[id] = championEntry{ID: id, Key: fmt.Sprintf("%d", i+1), Name: id}
		fallback[id] = championEntry{ID: id, Key: fmt.Sprintf("%d", i+1), Name: id}
	}

	return testCatalog(t, primary, fallback)
}

func fixtureDetail(id string) *championDetail {
	detail := &championDetail{ID: id, Name: id}
	for _, letter := range slotLetters {
		detail.Spells = append(detail.Spells, spell{
			ID:    id + letter,
			Name:  id + " " + letter,
			Image: spellImage{Full: id + letter + ".png"},
		})
	}
	return detail
}

func newTestSession(t *testing.T, catalog *Catalog, fetch detailFetcher) *quizSession {
	t.Helper()

	q := newQuizSession(catalog, newDDragon(defaultDDragonURL), "ko_KR")
	q.fetch = fetch
	q.rng = rand.New(rand.NewPCG(1, 2))
	return q
}

func countingFetcher(calls map[string]int) detailFetcher {
	return func(_ context.Context, _, _, id string) (*championDetail, error) {
		calls[id]++
		return fixtureDetail(id), nil
	}
}

func TestNextRoundDrawsUniformly(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri", "Annie", "Zed")
	q := newTestSession(t, catalog, countingFetcher(map[string]int{}))

	const draws = 10000
	champCounts := make(map[string]int)
	slotCounts := make(map[int]int)

	for range draws {
		round, err := q.nextRound(context.Background())
		require.NoError(t, err)
		champCounts[round.ChampionID]++
		slotCounts[round.Slot]++
	}

	// Each champion should land near draws/3, each slot near draws/4.
	// Allow five standard deviations, far beyond expected fluctuation.
	champTolerance := 5 * math.Sqrt(draws*(1.0/3)*(2.0/3))
	for _, id := range []string{"Ahri", "Annie", "Zed"} {
		assert.InDelta(t, draws/3, champCounts[id], champTolerance, "champion %s", id)
	}

	slotTolerance := 5 * math.Sqrt(draws*0.25*0.75)
	for s := range slotCount {
		assert.InDelta(t, draws/4, slotCounts[s], slotTolerance, "slot %d", s)
	}
}

func TestNextRoundCachesDetails(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	calls := make(map[string]int)
	q := newTestSession(t, catalog, countingFetcher(calls))

	_, err := q.nextRound(context.Background())
	require.NoError(t, err)
	_, err = q.nextRound(context.Background())
	require.NoError(t, err)

	assert.Equal(t, 1, calls["Ahri"], "detail fetched at most once per champion per session")
}

func TestSupersededDrawKeepsCacheAndRound(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	calls := make(map[string]int)
	q := newTestSession(t, catalog, nil)
	q.fetch = func(_ context.Context, _, _, id string) (*championDetail, error) {
		calls[id]++
		// Another draw starts while this fetch is still in flight.
		q.generation++
		return fixtureDetail(id), nil
	}

	round, err := q.nextRound(context.Background())
	require.NoError(t, err)

	// The superseded draw yields no round of its own, but its fetched
	// detail is version-scoped and stays cached for later draws.
	assert.Nil(t, round)
	assert.Contains(t, q.details, "Ahri")

	q.fetch = countingFetcher(calls)
	round, err = q.nextRound(context.Background())
	require.NoError(t, err)
	require.NotNil(t, round)
	assert.Equal(t, "Ahri", round.ChampionID)
	assert.Equal(t, 1, calls["Ahri"], "cached detail reused after a superseded draw")
}

func TestNextRoundImageURL(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	q := newTestSession(t, catalog, countingFetcher(map[string]int{}))

	round, err := q.nextRound(context.Background())
	require.NoError(t, err)

	letter := slotLetters[round.Slot]
	assert.Equal(t,
		"https://ddragon.leagueoflegends.com/cdn/15.1.1/img/spell/Ahri"+letter+".png",
		round.ImageURL)
	assert.Equal(t, "Ahri", round.Name)
}

func TestNextRoundMissingImageDegrades(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	q := newTestSession(t, catalog, func(context.Context, string, string, string) (*championDetail, error) {
		// No spells at all: the round still happens, with an empty image.
		return &championDetail{ID: "Ahri", Name: "아리"}, nil
	})

	round, err := q.nextRound(context.Background())
	require.NoError(t, err)
	assert.Empty(t, round.ImageURL)
	assert.Equal(t, "아리", round.Name)
}

func TestNextRoundFetchFailure(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	q := newTestSession(t, catalog, func(context.Context, string, string, string) (*championDetail, error) {
		return nil, fmt.Errorf("boom")
	})

	_, err := q.nextRound(context.Background())
	assert.Error(t, err)
	assert.Nil(t, q.round)
}

func TestSubmit(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri", "Annie")
	q := newTestSession(t, catalog, countingFetcher(map[string]int{}))

	q.round = &skillRound{ChampionID: "Ahri", Name: "Ahri", Slot: 1}

	// Wrong slot and wrong champion are both just "incorrect".
	correct, err := q.submit("Ahri", 2)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.False(t, q.solved)

	correct, err = q.submit("Annie", 1)
	require.NoError(t, err)
	assert.False(t, correct)

	// Resubmission after an incorrect answer is allowed.
	correct, err = q.submit("Ahri", 1)
	require.NoError(t, err)
	assert.True(t, correct)
	assert.True(t, q.solved)
}

func TestSubmitInputErrors(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	q := newTestSession(t, catalog, countingFetcher(map[string]int{}))
	q.round = &skillRound{ChampionID: "Ahri", Slot: 0}

	_, err := q.submit("", 0)
	assert.ErrorIs(t, err, errEmptyGuess)
	assert.False(t, q.solved)

	_, err = q.submit("Teemo", 0)
	assert.ErrorIs(t, err, errUnknownChampion)
	assert.False(t, q.solved)
}

func TestSubmitAfterSolvedIsIgnored(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	q := newTestSession(t, catalog, countingFetcher(map[string]int{}))
	q.round = &skillRound{ChampionID: "Ahri", Slot: 0}

	correct, err := q.submit("Ahri", 0)
	require.NoError(t, err)
	require.True(t, correct)

	// The solved state holds until an explicit next round.
	correct, err = q.submit("Ahri", 0)
	require.NoError(t, err)
	assert.False(t, correct)
	assert.True(t, q.solved)
}

func TestNextRoundClearsSolved(t *testing.T) {
	catalog := quizFixtureCatalog(t, "Ahri")
	q := newTestSession(t, catalog, countingFetcher(map[string]int{}))

	_, err := q.nextRound(context.Background())
	require.NoError(t, err)

	correct, err := q.submit("Ahri", q.round.Slot)
	require.NoError(t, err)
	require.True(t, correct)

	_, err = q.nextRound(context.Background())
	require.NoError(t, err)
	assert.False(t, q.solved)
}
