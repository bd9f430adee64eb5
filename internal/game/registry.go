package game

import (
	"fmt"
	"sort"
	"sync"

	"github.com/harborplay/roundengine/internal/domain"
)

// Registry holds the validated game definitions active in this deployment,
// together with the durations and timelines enabled for each. It is built
// once at startup and read-only afterwards.
type Registry struct {
	mu        sync.RWMutex
	games     map[string]Game
	durations map[string][]int
	timelines map[string][]string
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		games:     make(map[string]Game),
		durations: make(map[string][]int),
		timelines: make(map[string][]string),
	}
}

// Register validates and adds a game with its enabled durations and
// timelines. A validation failure is returned to the caller, which should
// treat it as fatal.
func (r *Registry) Register(g Game, durations []int, timelines []string) error {
	if err := g.Validate(); err != nil {
		return fmt.Errorf("register game: %w", err)
	}
	if len(durations) == 0 {
		return fmt.Errorf("register game %s: no durations enabled", g.Name())
	}
	if len(timelines) == 0 {
		timelines = []string{"a"}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.games[g.Name()]; exists {
		return fmt.Errorf("register game %s: already registered", g.Name())
	}
	r.games[g.Name()] = g
	r.durations[g.Name()] = append([]int(nil), durations...)
	r.timelines[g.Name()] = append([]string(nil), timelines...)
	return nil
}

// Get returns the game registered under name.
func (r *Registry) Get(name string) (Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.games[name]
	if !ok {
		return nil, domain.ErrUnknownGame
	}
	return g, nil
}

// Lookup returns the game only if the (name, duration, timeline) combination
// is enabled.
func (r *Registry) Lookup(name string, duration int, timeline string) (Game, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	g, ok := r.games[name]
	if !ok {
		return nil, domain.ErrUnknownGame
	}
	if !containsInt(r.durations[name], duration) {
		return nil, domain.ErrUnknownDuration
	}
	if !containsStr(r.timelines[name], timeline) {
		return nil, domain.ErrUnknownDuration
	}
	return g, nil
}

// Pair is one (game, duration, timeline) combination a round orchestrator
// runs for.
type Pair struct {
	Game     Game
	Duration int
	Timeline string
}

// Pairs enumerates every enabled (game, duration, timeline) combination in
// deterministic order.
func (r *Registry) Pairs() []Pair {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.games))
	for name := range r.games {
		names = append(names, name)
	}
	sort.Strings(names)

	var pairs []Pair
	for _, name := range names {
		for _, d := range r.durations[name] {
			for _, tl := range r.timelines[name] {
				pairs = append(pairs, Pair{Game: r.games[name], Duration: d, Timeline: tl})
			}
		}
	}
	return pairs
}

// List returns the registered game names in sorted order.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.games))
	for name := range r.games {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func containsInt(xs []int, v int) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}

func containsStr(xs []string, v string) bool {
	for _, x := range xs {
		if x == v {
			return true
		}
	}
	return false
}
