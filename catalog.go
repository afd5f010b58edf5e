package main

import (
	"context"
	"errors"
	"sort"
	"sync"
)

var (
	errEmptyGuess      = errors.New("empty guess")
	errUnknownChampion = errors.New("no matching champion")
)

// Champion is one playable unit in the catalog. ID is the canonical Data
// Dragon identifier and the single source of truth for equality.
type Champion struct {
	ID       string `json:"id"`
	Key      string `json:"key"`
	Name     string `json:"name"`     // primary locale display name
	AltName  string `json:"altName"`  // fallback locale display name
	Portrait string `json:"portrait"` // image URL
}

// Catalog holds every champion for one content version plus the alias index
// mapping normalized name keys to canonical ids. It is rebuilt whole on each
// content load and never mutated afterwards.
type Catalog struct {
	Version   string
	Champions []Champion

	byAlias map[string]string
}

// buildCatalog constructs the catalog from the two locale listings. Every id
// in the primary listing yields a champion; the fallback name defaults to the
// id itself when the fallback listing lacks the entry.
//
// The alias index registers, per champion: primary name, fallback name, the
// id itself, and the fallback name with apostrophes/periods/whitespace
// stripped before normalization. Champions are visited in sorted id order and
// a key is never overwritten once assigned, so collisions resolve
// deterministically in favor of the earlier-declared name.
func buildCatalog(dd *ddragon, version string, primary, fallback map[string]championEntry) *Catalog {
	ids := make([]string, 0, len(primary))
	for id := range primary {
		ids = append(ids, id)
	}
	sort.Strings(ids)

	c := &Catalog{
		Version:   version,
		Champions: make([]Champion, 0, len(ids)),
		byAlias:   make(map[string]string, len(ids)*4),
	}

	for _, id := range ids {
		p := primary[id]

		altName := id
		if f, ok := fallback[id]; ok && f.Name != "" {
			altName = f.Name
		}

		key := p.Key
		if key == "" {
			key = fallback[id].Key
		}

		champ := Champion{
			ID:       id,
			Key:      key,
			Name:     p.Name,
			AltName:  altName,
			Portrait: dd.portraitURL(version, id),
		}
		c.Champions = append(c.Champions, champ)

		c.register(champ.Name, id)
		c.register(champ.AltName, id)
		c.register(id, id)
		c.register(stripNamePunct(champ.AltName), id)
	}

	return c
}

// register adds one alias with insert-if-absent semantics.
func (c *Catalog) register(name, id string) {
	key := normalize(name)
	if key == "" {
		return
	}
	if _, taken := c.byAlias[key]; !taken {
		c.byAlias[key] = id
	}
}

// resolve maps a raw guess to a canonical champion id. Empty normalized
// input and unknown names are reported as distinct errors so callers can
// give different feedback for each.
func (c *Catalog) resolve(raw string) (string, error) {
	key := normalize(raw)
	if key == "" {
		return "", errEmptyGuess
	}

	id, ok := c.byAlias[key]
	if !ok {
		return "", errUnknownChampion
	}

	return id, nil
}

func (c *Catalog) championByID(id string) (Champion, bool) {
	for _, champ := range c.Champions {
		if champ.ID == id {
			return champ, true
		}
	}
	return Champion{}, false
}

// catalogHolder lazily loads and caches the catalog. A failed load is not
// retried automatically; the next caller triggers a fresh attempt, matching
// the reload-to-retry contract of the games.
type catalogHolder struct {
	dd             *ddragon
	locale         string
	fallbackLocale string

	mu      sync.Mutex
	catalog *Catalog
}

func newCatalogHolder(dd *ddragon, locale, fallbackLocale string) *catalogHolder {
	return &catalogHolder{
		dd:             dd,
		locale:         locale,
		fallbackLocale: fallbackLocale,
	}
}

// get returns the cached catalog, loading it on first use.
func (h *catalogHolder) get(ctx context.Context) (*Catalog, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.catalog != nil {
		return h.catalog, nil
	}

	version, err := h.dd.latestVersion(ctx)
	if err != nil {
		return nil, err
	}

	primary, err := h.dd.championNames(ctx, version, h.locale)
	if err != nil {
		return nil, err
	}

	fallback, err := h.dd.championNames(ctx, version, h.fallbackLocale)
	if err != nil {
		return nil, err
	}

	h.catalog = buildCatalog(h.dd, version, primary, fallback)

	return h.catalog, nil
}
