// Package identity describes the outbound client identity used when
// fetching result pages, and the rotation policy applied between retries.
//
// Identity is passed explicitly to every fetch call. There is no shared
// mutable client state; rotating is a pure function of the pool and the
// identity that just failed.
package identity

// Identity is what a request presents to the remote portal.
type Identity struct {
	// UserAgent is sent as the User-Agent header.
	UserAgent string
}

// DefaultUserAgents are common desktop browser user agents.
var DefaultUserAgents = []string{
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/605.1.15 (KHTML, like Gecko) Version/17.4 Safari/605.1.15",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64; rv:125.0) Gecko/20100101 Firefox/125.0",
	"Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36",
	"Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0.0.0 Safari/537.36 Edg/124.0.0.0",
}

// Pool is an ordered list of identities to rotate through.
type Pool []Identity

// NewPool builds a pool from user agent strings, skipping empty ones.
// An empty input yields a pool built from DefaultUserAgents.
func NewPool(userAgents []string) Pool {
	p := make(Pool, 0, len(userAgents))
	for _, ua := range userAgents {
		if ua == "" {
			continue
		}
		p = append(p, Identity{UserAgent: ua})
	}
	if len(p) == 0 {
		for _, ua := range DefaultUserAgents {
			p = append(p, Identity{UserAgent: ua})
		}
	}
	return p
}

// First returns the first identity of the pool, or the zero Identity.
func (p Pool) First() Identity {
	if len(p) == 0 {
		return Identity{}
	}
	return p[0]
}

// Next returns the identity that follows current in pool, wrapping around.
// An identity that is not in the pool is followed by the first entry.
// With an empty pool, current is returned unchanged.
func Next(pool Pool, current Identity) Identity {
	if len(pool) == 0 {
		return current
	}
	for i, id := range pool {
		if id == current {
			return pool[(i+1)%len(pool)]
		}
	}
	return pool[0]
}
