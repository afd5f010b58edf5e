package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
)

// Riot Data Dragon client. Three endpoints are consumed: the version list
// (newest first), the per-locale champion listing, and the per-champion
// detail record. Image assets are referenced by URL only; their bytes are
// never fetched here.

const defaultDDragonURL = "https://ddragon.leagueoflegends.com"

type championEntry struct {
	ID   string `json:"id"`
	Key  string `json:"key"`
	Name string `json:"name"`
}

type championList struct {
	Data map[string]championEntry `json:"data"`
}

type spellImage struct {
	Full string `json:"full"`
}

type spell struct {
	ID    string     `json:"id"`
	Name  string     `json:"name"`
	Image spellImage `json:"image"`
}

type championDetail struct {
	ID     string  `json:"id"`
	Name   string  `json:"name"`
	Spells []spell `json:"spells"`
}

type championDetailList struct {
	Data map[string]championDetail `json:"data"`
}

type ddragon struct {
	base   string
	client *http.Client
}

func newDDragon(base string) *ddragon {
	return &ddragon{
		base: base,
		client: &http.Client{
			Timeout: timeout,
		},
	}
}

func (d *ddragon) cdn(version string) string {
	return d.base + "/cdn/" + version
}

func (d *ddragon) portraitURL(version, id string) string {
	return d.cdn(version) + "/img/champion/" + id + ".png"
}

func (d *ddragon) spellImageURL(version, file string) string {
	if file == "" {
		return ""
	}
	return d.cdn(version) + "/img/spell/" + file
}

func (d *ddragon) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d from %s", resp.StatusCode, url)
	}

	return json.NewDecoder(resp.Body).Decode(v)
}

// latestVersion returns the newest available content version.
func (d *ddragon) latestVersion(ctx context.Context) (string, error) {
	var versions []string

	err := d.getJSON(ctx, d.base+"/api/versions.json", &versions)
	if err != nil {
		return "", fmt.Errorf("fetch versions: %w", err)
	}
	if len(versions) == 0 {
		return "", fmt.Errorf("empty version list from %s", d.base)
	}

	return versions[0], nil
}

// championNames returns the champion listing for one locale, keyed by
// canonical champion id.
func (d *ddragon) championNames(ctx context.Context, version, locale string) (map[string]championEntry, error) {
	var list championList

	url := fmt.Sprintf("%s/data/%s/champion.json", d.cdn(version), locale)
	if err := d.getJSON(ctx, url, &list); err != nil {
		return nil, fmt.Errorf("fetch champion list (%s): %w", locale, err)
	}
	if list.Data == nil {
		return nil, fmt.Errorf("champion list (%s) has no data", locale)
	}

	return list.Data, nil
}

// championDetail returns the detail record (spells included) for one
// champion in the given locale.
func (d *ddragon) championDetail(ctx context.Context, version, locale, id string) (*championDetail, error) {
	var list championDetailList

	url := fmt.Sprintf("%s/data/%s/champion/%s.json", d.cdn(version), locale, id)
	if err := d.getJSON(ctx, url, &list); err != nil {
		return nil, fmt.Errorf("fetch champion detail %s: %w", id, err)
	}

	detail, ok := list.Data[id]
	if !ok {
		return nil, fmt.Errorf("champion detail %s missing from response", id)
	}

	return &detail, nil
}
