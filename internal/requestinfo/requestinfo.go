//
//  internal/requestinfo/requestinfo.go
//
//  Per-request client metadata: user-agent fingerprint, client IP, and
//  best-effort geolocation.  The structs are inert, so they are safe to log
//  or JSON-encode.
//
//  Dependencies
//  • github.com/avct/uasurfer          (UA parsing)
//  • github.com/oschwald/geoip2-golang (MaxMind lookup, optional)
//

package requestinfo

import (
	"context"
	"net"
	"sync"
	"time"

	"github.com/oschwald/geoip2-golang"
)

// UA holds the parsed user-agent properties.
type UA struct {
	Browser     string // "Chrome", "Firefox", "Safari", …
	Version     string // "124.0.6367"
	OS          string // "macOS", "Windows", "Android", …
	OSVersion   string
	Device      string // "Desktop", "Phone", "Tablet", …
	Platform    string
	IsBot       bool
	PrimaryLang string // first Accept-Language tag
}

// Geo holds IP-based hints.  Empty when no database is configured or the
// address has no match.
type Geo struct {
	CountryISO string
	City       string
}

// Info is what Enrich attaches to each request.
type Info struct {
	IP        net.IP
	UA        UA
	Geo       Geo
	Timestamp time.Time
}

/*──────────────────────────── geo database ─────────────────────────────────*/

// GeoDB is a MaxMind GeoLite2-City reader.  A nil *GeoDB performs no
// lookups.  Safe for concurrent reads.
type GeoDB struct {
	r *geoip2.Reader
}

// OpenGeo opens the database at path.
func OpenGeo(path string) (*GeoDB, error) {
	r, err := geoip2.Open(path)
	if err != nil {
		return nil, err
	}
	return &GeoDB{r: r}, nil
}

// Lookup returns best-effort Geo data for ip.
func (g *GeoDB) Lookup(ip net.IP) Geo {
	if g == nil || g.r == nil || ip == nil {
		return Geo{}
	}
	rec, err := g.r.City(ip)
	if err != nil {
		return Geo{}
	}
	return Geo{CountryISO: rec.Country.IsoCode, City: rec.City.Names["en"]}
}

func (g *GeoDB) Close() error {
	if g == nil || g.r == nil {
		return nil
	}
	return g.r.Close()
}

/*──────────────────────────── context plumbing ─────────────────────────────*/

type ctxKey struct{}
type holderKey struct{}

// FromContext returns the Info stored by Enrich, or nil.
func FromContext(ctx context.Context) *Info {
	v, _ := ctx.Value(ctxKey{}).(*Info)
	return v
}

// Holder lets an outer middleware read the Info produced further in.
type Holder struct {
	mu   sync.Mutex
	info *Info
}

func NewHolder() *Holder { return &Holder{} }

func (h *Holder) set(i *Info) {
	h.mu.Lock()
	h.info = i
	h.mu.Unlock()
}

// Info returns the captured Info, or nil when Enrich did not run.
func (h *Holder) Info() *Info {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.info
}

// WithHolder attaches h to ctx.
func WithHolder(ctx context.Context, h *Holder) context.Context {
	return context.WithValue(ctx, holderKey{}, h)
}
