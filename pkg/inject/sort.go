package inject

import (
	"sort"

	"github.com/storylore/chronicle/pkg/session"
)

// sortedRelationships returns relationships in stable key order so rendered
// blocks are deterministic across runs.
func sortedRelationships(snap *session.Snapshot) []*session.Relationship {
	keys := make([]string, 0, len(snap.Relationships))
	for key := range snap.Relationships {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	rels := make([]*session.Relationship, len(keys))
	for i, key := range keys {
		rels[i] = snap.Relationships[key]
	}
	return rels
}
