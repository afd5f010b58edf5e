package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	fixtureVersions = `["15.1.1","15.0.2","14.24.1"]`

	fixtureChampionsKo = `{"type":"champion","version":"15.1.1","data":{
		"Ahri":{"id":"Ahri","key":"103","name":"아리"},
		"MonkeyKing":{"id":"MonkeyKing","key":"62","name":"오공"}}}`

	fixtureChampionsEn = `{"type":"champion","version":"15.1.1","data":{
		"Ahri":{"id":"Ahri","key":"103","name":"Ahri"},
		"MonkeyKing":{"id":"MonkeyKing","key":"62","name":"Wukong"}}}`

	fixtureAhriDetail = `{"type":"champion","version":"15.1.1","data":{
		"Ahri":{"id":"Ahri","name":"아리","spells":[
			{"id":"AhriQ","name":"현혹의 구슬","image":{"full":"AhriQ.png"}},
			{"id":"AhriW","name":"여우불","image":{"full":"AhriW.png"}},
			{"id":"AhriE","name":"매혹","image":{"full":"AhriE.png"}},
			{"id":"AhriR","name":"혼령 질주","image":{"full":"AhriR.png"}}]}}}`
)

func newFixtureServer(t *testing.T, requests *atomic.Int64) *httptest.Server {
	t.Helper()

	mux := http.NewServeMux()
	mux.HandleFunc("/api/versions.json", func(w http.ResponseWriter, r *http.Request) {
		if requests != nil {
			requests.Add(1)
		}
		w.Write([]byte(fixtureVersions))
	})
	mux.HandleFunc("/cdn/15.1.1/data/ko_KR/champion.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureChampionsKo))
	})
	mux.HandleFunc("/cdn/15.1.1/data/en_US/champion.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureChampionsEn))
	})
	mux.HandleFunc("/cdn/15.1.1/data/ko_KR/champion/Ahri.json", func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(fixtureAhriDetail))
	})

	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)
	return srv
}

func TestLatestVersion(t *testing.T) {
	srv := newFixtureServer(t, nil)
	dd := newDDragon(srv.URL)

	version, err := dd.latestVersion(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15.1.1", version)
}

func TestLatestVersionEmptyList(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	_, err := newDDragon(srv.URL).latestVersion(context.Background())
	assert.Error(t, err)
}

func TestLatestVersionServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	t.Cleanup(srv.Close)

	_, err := newDDragon(srv.URL).latestVersion(context.Background())
	assert.Error(t, err)
}

func TestChampionNames(t *testing.T) {
	srv := newFixtureServer(t, nil)
	dd := newDDragon(srv.URL)

	names, err := dd.championNames(context.Background(), "15.1.1", "ko_KR")
	require.NoError(t, err)
	require.Len(t, names, 2)
	assert.Equal(t, "오공", names["MonkeyKing"].Name)
	assert.Equal(t, "62", names["MonkeyKing"].Key)
}

func TestChampionNamesMissingLocale(t *testing.T) {
	srv := newFixtureServer(t, nil)
	dd := newDDragon(srv.URL)

	_, err := dd.championNames(context.Background(), "15.1.1", "fr_FR")
	assert.Error(t, err)
}

func TestChampionDetail(t *testing.T) {
	srv := newFixtureServer(t, nil)
	dd := newDDragon(srv.URL)

	detail, err := dd.championDetail(context.Background(), "15.1.1", "ko_KR", "Ahri")
	require.NoError(t, err)
	assert.Equal(t, "아리", detail.Name)
	require.Len(t, detail.Spells, 4)
	assert.Equal(t, "AhriW.png", detail.Spells[1].Image.Full)
}

func TestImageURLs(t *testing.T) {
	dd := newDDragon(defaultDDragonURL)

	assert.Equal(t,
		"https://ddragon.leagueoflegends.com/cdn/15.1.1/img/champion/Ahri.png",
		dd.portraitURL("15.1.1", "Ahri"))
	assert.Equal(t,
		"https://ddragon.leagueoflegends.com/cdn/15.1.1/img/spell/AhriQ.png",
		dd.spellImageURL("15.1.1", "AhriQ.png"))
	assert.Empty(t, dd.spellImageURL("15.1.1", ""))
}

func TestCatalogHolderLoadsOnce(t *testing.T) {
	var requests atomic.Int64
	srv := newFixtureServer(t, &requests)
	holder := newCatalogHolder(newDDragon(srv.URL), "ko_KR", "en_US")

	first, err := holder.get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15.1.1", first.Version)
	assert.Len(t, first.Champions, 2)

	second, err := holder.get(context.Background())
	require.NoError(t, err)
	assert.Same(t, first, second)
	assert.Equal(t, int64(1), requests.Load(), "version endpoint hit once")
}

func TestCatalogHolderRetriesAfterFailure(t *testing.T) {
	fail := true
	mux := http.NewServeMux()
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		if fail {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		switch r.URL.Path {
		case "/api/versions.json":
			w.Write([]byte(fixtureVersions))
		case "/cdn/15.1.1/data/ko_KR/champion.json":
			w.Write([]byte(fixtureChampionsKo))
		case "/cdn/15.1.1/data/en_US/champion.json":
			w.Write([]byte(fixtureChampionsEn))
		default:
			http.NotFound(w, r)
		}
	})
	srv := httptest.NewServer(mux)
	t.Cleanup(srv.Close)

	holder := newCatalogHolder(newDDragon(srv.URL), "ko_KR", "en_US")

	_, err := holder.get(context.Background())
	require.Error(t, err)

	// The next attempt is a fresh load, not a cached failure.
	fail = false
	catalog, err := holder.get(context.Background())
	require.NoError(t, err)
	assert.Equal(t, "15.1.1", catalog.Version)
}
