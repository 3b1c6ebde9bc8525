package edgar

import (
	"encoding/json"
	"os"
	"path/filepath"
	"time"
)

const cacheTTL = 24 * time.Hour

// companyCache persists the company tickers file locally so restarts do
// not re-download ~10k records from the SEC on every boot.
type companyCache struct {
	path string
}

func newCompanyCache(dir string) *companyCache {
	if dir == "" {
		dir = filepath.Join(".cache", "secagent")
	}
	return &companyCache{path: filepath.Join(dir, "company_tickers.json")}
}

type cacheEnvelope struct {
	FetchedAt time.Time       `json:"fetched_at"`
	Companies []CompanyRecord `json:"companies"`
}

// load returns the cached records if the cache file exists and is fresh.
func (c *companyCache) load() ([]CompanyRecord, bool) {
	data, err := os.ReadFile(c.path)
	if err != nil {
		return nil, false
	}
	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, false
	}
	if time.Since(env.FetchedAt) > cacheTTL || len(env.Companies) == 0 {
		return nil, false
	}
	return env.Companies, true
}

func (c *companyCache) save(records []CompanyRecord) {
	if err := os.MkdirAll(filepath.Dir(c.path), 0755); err != nil {
		return
	}
	data, err := json.Marshal(cacheEnvelope{FetchedAt: time.Now(), Companies: records})
	if err != nil {
		return
	}
	_ = os.WriteFile(c.path, data, 0644)
}

func (c *companyCache) clear() {
	_ = os.Remove(c.path)
}

// Info reports cache location and freshness for the --cache-info command.
func (c *companyCache) Info() map[string]any {
	info := map[string]any{"path": c.path, "exists": false}
	data, err := os.ReadFile(c.path)
	if err != nil {
		return info
	}
	info["exists"] = true
	var env cacheEnvelope
	if err := json.Unmarshal(data, &env); err == nil {
		info["fetched_at"] = env.FetchedAt
		info["companies"] = len(env.Companies)
		info["fresh"] = time.Since(env.FetchedAt) <= cacheTTL
	}
	return info
}

// CacheInfo exposes ticker cache metadata.
func (c *Client) CacheInfo() map[string]any {
	return c.cache.Info()
}
