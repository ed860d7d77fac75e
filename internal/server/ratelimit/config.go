// Read and write tiers and how requests map onto them.

package ratelimit

import (
	"net/http"
	"time"
)

// Tier is a named limiter. A nil *Tier means "not limited".
type Tier struct {
	Name    string
	Limiter *Limiter
}

// Key returns the bucket key of a client in this tier.
func (t *Tier) Key(clientIP string) string {
	return BuildKey(clientIP, t.Name)
}

// Config holds the tiers applied to the books API.
type Config struct {
	Read  *Tier
	Write *Tier
}

// NewConfig builds tiers from per-minute quotas. A quota of zero disables
// that tier. The burst is a sixth of the quota, at least one.
func NewConfig(readPerMin, writePerMin int) *Config {
	return &Config{
		Read:  newTier("read", readPerMin),
		Write: newTier("write", writePerMin),
	}
}

func newTier(name string, perMin int) *Tier {
	if perMin <= 0 {
		return nil
	}
	return &Tier{Name: name, Limiter: NewLimiter(perMin, time.Minute, max(perMin/6, 1))}
}

// Match returns the tier for a request, or nil when it is not limited.
func (c *Config) Match(method, path string) *Tier {
	if c == nil || path == "/health" {
		return nil
	}
	switch method {
	case http.MethodPost, http.MethodPut, http.MethodPatch, http.MethodDelete:
		return c.Write
	case http.MethodGet, http.MethodHead:
		return c.Read
	}
	return nil
}

// Close stops every limiter.
func (c *Config) Close() {
	if c == nil {
		return
	}
	for _, t := range []*Tier{c.Read, c.Write} {
		if t != nil {
			t.Limiter.Close()
		}
	}
}
