package security

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/fraiseql/fraiseql-sub006/core/internal/dialect"
	"github.com/fraiseql/fraiseql-sub006/core/internal/where"
)

// SecurityContext is created at the transport boundary and threaded
// through the pipeline unmodified; nothing downstream of request parsing
// mutates it.
type SecurityContext struct {
	UserID          string
	Roles           []string
	TenantID        string
	Scopes          []string
	Attributes      map[string]interface{}
	RequestID       string
	IPAddress       string
	AuthenticatedAt time.Time
	ExpiresAt       time.Time
	Issuer          string
	Audience        string
}

// IsAdmin reports whether the context carries the "admin" role.
func (c SecurityContext) IsAdmin() bool {
	return c.HasRole("admin")
}

// HasRole reports whether the context carries role r.
func (c SecurityContext) HasRole(r string) bool {
	for _, have := range c.Roles {
		if have == r {
			return true
		}
	}
	return false
}

// HasScope reports whether the context carries scope s.
func (c SecurityContext) HasScope(s string) bool {
	for _, have := range c.Scopes {
		if have == s {
			return true
		}
	}
	return false
}

// GetAttribute returns an arbitrary authenticator-supplied attribute
// (claims, group memberships, ...) and whether it was present.
func (c SecurityContext) GetAttribute(key string) (interface{}, bool) {
	v, ok := c.Attributes[key]
	return v, ok
}

// Expired reports whether ExpiresAt has passed; a zero ExpiresAt never
// expires.
func (c SecurityContext) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && now.After(c.ExpiresAt)
}

// Filter is a compiled RLS predicate: its placeholders are numbered from 1
// as if it were the only clause in the statement. The caller (the engine,
// composing this with the user's own WHERE) is responsible for renumbering
// both SQL and params into one dense, left-to-right parameter vector before
// executing.
type Filter struct {
	SQL    string
	Params []interface{}
}

// Empty reports whether the filter imposes no restriction at all (admin
// bypass, or NoOpPolicy).
func (f Filter) Empty() bool { return f.SQL == "" }

// Policy evaluates RLS rules for a (context, type) pair.
type Policy interface {
	Evaluate(ctx SecurityContext, typeName string, d dialect.Dialect) (Filter, error)
}

// DefaultPolicy enforces tenant isolation plus owner-based access: admins
// bypass both rules entirely. Mirrors the reference policy's rule
// composition: tenant clause AND owner clause when both apply, either one
// alone when only one applies.
type DefaultPolicy struct {
	EnableTenantIsolation bool
	TenantField           string
	OwnerField            string
}

// NewDefaultPolicy returns the reference policy with tenant_id/author_id
// defaults.
func NewDefaultPolicy() DefaultPolicy {
	return DefaultPolicy{EnableTenantIsolation: true, TenantField: "tenant_id", OwnerField: "author_id"}
}

func (p DefaultPolicy) Evaluate(ctx SecurityContext, _ string, d dialect.Dialect) (Filter, error) {
	if ctx.IsAdmin() {
		return Filter{}, nil
	}

	b := where.NewBuilder(d)
	var clauses []string

	if p.EnableTenantIsolation && ctx.TenantID != "" {
		clauses = append(clauses, b.BuildComparison(d.QuoteIdent(p.TenantField), "=", ctx.TenantID))
	}
	if p.OwnerField != "" {
		clauses = append(clauses, b.BuildComparison(d.QuoteIdent(p.OwnerField), "=", ctx.UserID))
	}

	if len(clauses) == 0 {
		return Filter{}, nil
	}
	sql := clauses[0]
	for _, c := range clauses[1:] {
		sql = "(" + sql + " AND " + c + ")"
	}
	return Filter{SQL: sql, Params: b.Params()}, nil
}

// NoOpPolicy allows all access: for testing or fully open deployments.
type NoOpPolicy struct{}

func (NoOpPolicy) Evaluate(SecurityContext, string, dialect.Dialect) (Filter, error) {
	return Filter{}, nil
}

// CacheEntry is one (user, type) policy decision with a TTL.
type CacheEntry struct {
	Filter    Filter
	ExpiresAt time.Time
}

// PolicyCache is a concurrent, per-entry-TTL cache of RLS decisions keyed by
// "<user_id>:<type_name>". A miss or expiry is not an error — the caller
// re-evaluates and repopulates.
type PolicyCache struct {
	mu    sync.Mutex
	cache *lru.TwoQueueCache[string, CacheEntry]
}

func NewPolicyCache(size int) (*PolicyCache, error) {
	c, err := lru.New2Q[string, CacheEntry](size)
	if err != nil {
		return nil, err
	}
	return &PolicyCache{cache: c}, nil
}

func (c *PolicyCache) Get(key string) (Filter, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.cache.Get(key)
	if !ok || time.Now().After(entry.ExpiresAt) {
		return Filter{}, false
	}
	return entry.Filter, true
}

func (c *PolicyCache) Set(key string, f Filter, ttl time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache.Add(key, CacheEntry{Filter: f, ExpiresAt: time.Now().Add(ttl)})
}
