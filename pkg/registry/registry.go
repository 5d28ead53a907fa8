// Package registry maintains the routing table from the tool names exposed to
// the model to the endpoints that own them.
package registry

import (
	"context"
	"errors"
	"fmt"
	"hash/fnv"
	"log/slog"
	"strings"
	"sync"

	"github.com/germanamz/mcpchat/pkg/pool"
	"github.com/germanamz/mcpchat/pkg/tools/mcpclient"
	"github.com/germanamz/mcpchat/pkg/tools/toolbox"
)

// ErrToolNotFound is returned by Resolve for a name with no registered owner.
var ErrToolNotFound = errors.New("registry: tool not found")

// AmbiguousToolError is returned by Rebuild under the Reject policy when more
// than one endpoint exposes the same tool name, and under the Namespace
// policy when two endpoint keys still map to the same namespaced name.
type AmbiguousToolError struct {
	Name      string
	Endpoints []string
}

func (e *AmbiguousToolError) Error() string {
	return fmt.Sprintf("registry: tool %q is exposed by several endpoints: %s",
		e.Name, strings.Join(e.Endpoints, ", "))
}

// CollisionPolicy decides what happens when two endpoints expose a tool with
// the same name.
type CollisionPolicy string

const (
	// LastWins routes the name to the endpoint processed last in connection
	// order. The earlier descriptor is dropped from the catalog.
	LastWins CollisionPolicy = "last_wins"
	// Reject fails the rebuild.
	Reject CollisionPolicy = "reject"
	// Namespace exposes every tool as "<endpoint>__<tool>" and fails the
	// rebuild if two endpoints still end up with the same name.
	Namespace CollisionPolicy = "namespace"
)

// ParseCollisionPolicy parses a policy name. The empty string means LastWins.
func ParseCollisionPolicy(s string) (CollisionPolicy, error) {
	switch p := CollisionPolicy(strings.ToLower(strings.TrimSpace(s))); p {
	case "":
		return LastWins, nil
	case LastWins, Reject, Namespace:
		return p, nil
	default:
		return "", fmt.Errorf("registry: unknown collision policy %q", s)
	}
}

const (
	// namespaceSep separates endpoint and tool in namespaced names.
	namespaceSep = "__"
	// MaxNameLen is the longest function name chat APIs accept.
	MaxNameLen = 64
)

// NamespacedName returns the name a tool is exposed under with the Namespace
// policy. Characters outside [A-Za-z0-9_-] become underscores. Names longer
// than MaxNameLen keep their tail and get a hash of the full name in front.
func NamespacedName(endpoint, tool string) string {
	full := endpoint + namespaceSep + tool
	name := sanitize(full)
	if len(name) <= MaxNameLen {
		return name
	}

	h := fnv.New32a()
	_, _ = h.Write([]byte(full))
	prefix := fmt.Sprintf("%08x_", h.Sum32())
	return prefix + name[len(name)-(MaxNameLen-len(prefix)):]
}

func sanitize(s string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_', r == '-':
			return r
		default:
			return '_'
		}
	}, s)
}

// Sessions lists live endpoints and hands out their sessions. *pool.Pool
// satisfies it.
type Sessions interface {
	Endpoints() []mcpclient.Endpoint
	Get(key string) (pool.Session, error)
}

// Entry routes one exposed tool name to its endpoint.
type Entry struct {
	// Name is the name exposed to the model.
	Name string
	// RemoteName is the tool's name on its server.
	RemoteName string
	Endpoint   mcpclient.Endpoint
	Tool       toolbox.Tool
}

// Options configures a Registry.
type Options struct {
	Policy CollisionPolicy
	Logger *slog.Logger
}

// Registry is derived state: every Rebuild replaces the routing table
// wholesale.
type Registry struct {
	sessions Sessions
	policy   CollisionPolicy
	logger   *slog.Logger

	mu      sync.RWMutex
	entries []Entry
	index   map[string]int
}

// New creates an empty Registry over sessions. Call Rebuild to populate it.
func New(sessions Sessions, opts Options) *Registry {
	policy := opts.Policy
	if policy == "" {
		policy = LastWins
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}

	return &Registry{
		sessions: sessions,
		policy:   policy,
		logger:   logger,
		index:    map[string]int{},
	}
}

// Policy returns the collision policy in effect.
func (r *Registry) Policy() CollisionPolicy { return r.policy }

// Rebuild queries the catalog of every live session in connection order,
// replaces the routing table and returns the tools as exposed to the model.
// On error the previous table is kept.
func (r *Registry) Rebuild(ctx context.Context) ([]toolbox.Tool, error) {
	var (
		entries []Entry
		dropped []bool
		index   = map[string]int{}
		owners  = map[string][]string{}
		clashes []string
	)

	for _, ep := range r.sessions.Endpoints() {
		key := ep.Key()
		session, err := r.sessions.Get(key)
		if err != nil {
			return nil, fmt.Errorf("registry: %w", err)
		}

		tools, err := session.ListTools(ctx)
		if err != nil {
			return nil, fmt.Errorf("registry: list tools of %q: %w", key, err)
		}

		for _, t := range tools {
			name := t.Name
			if r.policy == Namespace {
				name = NamespacedName(key, t.Name)
			}

			if prev, dup := index[name]; dup {
				if len(owners[name]) == 1 {
					clashes = append(clashes, name)
				}
				owners[name] = append(owners[name], key)
				if r.policy == LastWins {
					r.logger.WarnContext(ctx, "tool name collision, last endpoint wins",
						"tool", name, "dropped", entries[prev].Endpoint.Key(), "owner", key)
					dropped[prev] = true
				}
			} else {
				owners[name] = []string{key}
			}

			index[name] = len(entries)
			entries = append(entries, Entry{
				Name:       name,
				RemoteName: t.Name,
				Endpoint:   ep,
				Tool:       t.Renamed(name),
			})
			dropped = append(dropped, false)
		}
	}

	if r.policy != LastWins && len(clashes) > 0 {
		errs := make([]error, len(clashes))
		for i, name := range clashes {
			errs[i] = &AmbiguousToolError{Name: name, Endpoints: owners[name]}
		}
		return nil, errors.Join(errs...)
	}

	kept := entries[:0]
	for i, e := range entries {
		if !dropped[i] {
			kept = append(kept, e)
		}
	}
	index = make(map[string]int, len(kept))
	catalog := make([]toolbox.Tool, len(kept))
	for i, e := range kept {
		index[e.Name] = i
		catalog[i] = e.Tool
	}

	r.mu.Lock()
	r.entries = kept
	r.index = index
	r.mu.Unlock()

	r.logger.DebugContext(ctx, "registry rebuilt", "tools", len(kept))

	return catalog, nil
}

// Resolve returns the routing entry of an exposed tool name.
func (r *Registry) Resolve(name string) (Entry, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	i, ok := r.index[name]
	if !ok {
		return Entry{}, fmt.Errorf("%w: %q", ErrToolNotFound, name)
	}
	return r.entries[i], nil
}

// Entries returns the routing table in catalog order.
func (r *Registry) Entries() []Entry {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Entry, len(r.entries))
	copy(out, r.entries)
	return out
}
