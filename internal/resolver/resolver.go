// Package resolver cross-references author nicknames against the profiles
// table and the three tag lists loaded at the start of a run.
package resolver

import (
	"strings"

	"github.com/ibeckermayer/feedsync/internal/types"
)

// TagSymbols are the markers for tag lists one to three, in output order
var TagSymbols = [3]string{"🐾", "🌟", "🔖"}

// TagSets holds the nicknames of the three tag lists
type TagSets [3][]string

// Resolver answers profile and tag lookups. It is read-only after New.
type Resolver struct {
	profiles map[string]types.Profile
	tags     [3]map[string]struct{}
}

// New builds a Resolver. Later profiles override earlier ones with the same nickname.
func New(profiles []types.Profile, tags TagSets) *Resolver {
	r := &Resolver{profiles: make(map[string]types.Profile, len(profiles))}
	for _, p := range profiles {
		nick := strings.TrimSpace(p.Nickname)
		if nick == "" {
			continue
		}
		p.Nickname = nick
		r.profiles[nick] = p
	}
	for i, set := range tags {
		r.tags[i] = make(map[string]struct{}, len(set))
		for _, nick := range set {
			if nick = strings.TrimSpace(nick); nick != "" {
				r.tags[i][nick] = struct{}{}
			}
		}
	}
	return r
}

// ResolveProfile returns the profile for nickname. A missing profile is
// expected and yields the zero Profile with ok=false.
func (r *Resolver) ResolveProfile(nickname string) (types.Profile, bool) {
	p, ok := r.profiles[nickname]
	return p, ok
}

// ResolveTags returns the comma-joined tag symbols for nickname, in list order
func (r *Resolver) ResolveTags(nickname string) string {
	var tags []string
	for i, set := range r.tags {
		if _, ok := set[nickname]; ok {
			tags = append(tags, TagSymbols[i])
		}
	}
	return strings.Join(tags, ",")
}

// ProfileCount returns the number of loaded profiles
func (r *Resolver) ProfileCount() int {
	return len(r.profiles)
}
