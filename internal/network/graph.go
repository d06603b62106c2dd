package network

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/sablepoint/dealdesk/internal/models"
)

// ErrNoPath signals that no access path could be suggested for a target.
// Callers must surface this as an explicit state, not an empty path.
var ErrNoPath = errors.New("no path found")

// warmBridgeThreshold qualifies a contact as a bridge on warmth alone
const warmBridgeThreshold = 7.0

// PathStep is one contact along a suggested access path
type PathStep struct {
	ContactID    int64       `json:"contact_id"`
	Name         string      `json:"name"`
	Organization string      `json:"organization"`
	Tier         models.Tier `json:"tier"`
	WarmthScore  float64     `json:"warmth_score"`
	Via          string      `json:"via"` // direct_match, access_path, shared_organization
}

// PathResult is a heuristic access-path suggestion toward a target. It is a
// greedy best-warmth pick, not a guaranteed shortest path.
type PathResult struct {
	Target string     `json:"target"`
	Direct bool       `json:"direct"`
	Steps  []PathStep `json:"steps"` // from -> steps... ending at the target, at most 3 hops
}

// PathFinder builds the contact adjacency and answers access-path queries
type PathFinder struct {
	contacts []models.Contact
	byID     map[int64]*models.Contact
	adjacent map[int64]map[int64]string // neighbor id -> edge kind
}

// NewPathFinder indexes the contact set. Edges are the union of explicit
// access_paths references (both directions) and same-organization
// co-membership.
func NewPathFinder(contacts []models.Contact) *PathFinder {
	f := &PathFinder{
		contacts: contacts,
		byID:     make(map[int64]*models.Contact, len(contacts)),
		adjacent: make(map[int64]map[int64]string, len(contacts)),
	}

	for i := range contacts {
		f.byID[contacts[i].ID] = &contacts[i]
	}

	for i := range contacts {
		c := &contacts[i]
		for _, otherID := range c.AccessPaths {
			if _, ok := f.byID[otherID]; !ok {
				continue // dangling reference
			}
			f.addEdge(c.ID, otherID, "access_path")
			f.addEdge(otherID, c.ID, "access_path")
		}
	}

	// Same-organization co-membership edges
	byOrg := make(map[string][]int64)
	for i := range contacts {
		org := normalize(contacts[i].Organization)
		if org == "" {
			continue
		}
		byOrg[org] = append(byOrg[org], contacts[i].ID)
	}
	for _, ids := range byOrg {
		for _, a := range ids {
			for _, b := range ids {
				if a != b {
					f.addEdge(a, b, "shared_organization")
				}
			}
		}
	}

	return f
}

func (f *PathFinder) addEdge(from, to int64, kind string) {
	if f.adjacent[from] == nil {
		f.adjacent[from] = make(map[int64]string)
	}
	// access_path edges take precedence over organization edges
	if existing, ok := f.adjacent[from][to]; ok && existing == "access_path" {
		return
	}
	f.adjacent[from][to] = kind
}

// ByID returns the indexed contact with the given ID
func (f *PathFinder) ByID(id int64) (*models.Contact, error) {
	c, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("unknown contact: %d", id)
	}
	return c, nil
}

// Resolve finds the contact best matching a free-text query by name or
// organization substring. Ties break toward the warmest contact.
func (f *PathFinder) Resolve(query string) (*models.Contact, error) {
	q := normalize(query)
	if q == "" {
		return nil, ErrNoPath
	}
	var best *models.Contact
	for i := range f.contacts {
		c := &f.contacts[i]
		if strings.Contains(normalize(c.Name), q) || strings.Contains(normalize(c.Organization), q) {
			if best == nil || c.WarmthScore > best.WarmthScore {
				best = c
			}
		}
	}
	if best == nil {
		return nil, ErrNoPath
	}
	return best, nil
}

// FindPath suggests an access path from one contact to another. A direct
// name/organization substring match between the two (or an existing edge)
// short-circuits the search; otherwise the warmest qualifying bridge
// adjacent to the source is chosen greedily, with at most one intermediate
// hop before the target.
func (f *PathFinder) FindPath(fromID, targetID int64) (*PathResult, error) {
	from, ok := f.byID[fromID]
	if !ok {
		return nil, fmt.Errorf("unknown contact: %d", fromID)
	}
	target, ok := f.byID[targetID]
	if !ok {
		return nil, fmt.Errorf("unknown contact: %d", targetID)
	}
	if fromID == targetID {
		return nil, fmt.Errorf("source and target are the same contact")
	}

	// (a) direct match short-circuit: an existing edge or a name/organization
	// substring overlap means no bridge is needed.
	if kind, ok := f.adjacent[fromID][targetID]; ok {
		return &PathResult{
			Target: target.Name,
			Direct: true,
			Steps:  []PathStep{stepFor(target, kind)},
		}, nil
	}
	if substringOverlap(from, target) {
		return &PathResult{
			Target: target.Name,
			Direct: true,
			Steps:  []PathStep{stepFor(target, "direct_match")},
		}, nil
	}

	// (c) candidate bridges sorted warmest first
	candidates := f.bridgeCandidates(from, target)
	if len(candidates) == 0 {
		return nil, ErrNoPath
	}

	// Two-hop: warmest candidate with an edge to the target
	for _, bridge := range candidates {
		if kind, ok := f.adjacent[bridge.ID][targetID]; ok {
			return &PathResult{
				Target: target.Name,
				Steps:  []PathStep{stepFor(bridge, f.adjacent[fromID][bridge.ID]), stepFor(target, kind)},
			}, nil
		}
	}

	// Three-hop: warmest candidate with a neighbor that reaches the target
	for _, bridge := range candidates {
		if mid := f.bestIntermediary(bridge.ID, fromID, targetID); mid != nil {
			return &PathResult{
				Target: target.Name,
				Steps: []PathStep{
					stepFor(bridge, f.adjacent[fromID][bridge.ID]),
					stepFor(mid, f.adjacent[bridge.ID][mid.ID]),
					stepFor(target, f.adjacent[mid.ID][targetID]),
				},
			}, nil
		}
	}

	return nil, ErrNoPath
}

// bridgeCandidates applies the bridge filter over the source's neighbors and
// sorts descending by warmth. A candidate passes on organization-substring
// match with the target, allocator/founder tier, or high warmth.
func (f *PathFinder) bridgeCandidates(from, target *models.Contact) []*models.Contact {
	var out []*models.Contact
	for neighborID := range f.adjacent[from.ID] {
		c := f.byID[neighborID]
		if c == nil || c.ID == target.ID {
			continue
		}
		if f.qualifiesAsBridge(c, target) {
			out = append(out, c)
		}
	}
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].WarmthScore > out[j].WarmthScore
	})
	return out
}

func (f *PathFinder) qualifiesAsBridge(c, target *models.Contact) bool {
	org, targetOrg := normalize(c.Organization), normalize(target.Organization)
	if org != "" && targetOrg != "" && (strings.Contains(org, targetOrg) || strings.Contains(targetOrg, org)) {
		return true
	}
	if c.Tier == models.TierCapitalAllocator || c.Tier == models.TierFounder {
		return true
	}
	return c.WarmthScore >= warmBridgeThreshold
}

// bestIntermediary picks the warmest neighbor of bridgeID that has an edge
// to the target
func (f *PathFinder) bestIntermediary(bridgeID, fromID, targetID int64) *models.Contact {
	var best *models.Contact
	for neighborID := range f.adjacent[bridgeID] {
		if neighborID == fromID || neighborID == targetID {
			continue
		}
		if _, ok := f.adjacent[neighborID][targetID]; !ok {
			continue
		}
		n := f.byID[neighborID]
		if best == nil || n.WarmthScore > best.WarmthScore {
			best = n
		}
	}
	return best
}

func substringOverlap(a, b *models.Contact) bool {
	aName, bName := normalize(a.Name), normalize(b.Name)
	aOrg, bOrg := normalize(a.Organization), normalize(b.Organization)
	if aOrg != "" && bOrg != "" && (strings.Contains(aOrg, bOrg) || strings.Contains(bOrg, aOrg)) {
		return true
	}
	return aName != "" && bName != "" && (strings.Contains(aName, bName) || strings.Contains(bName, aName))
}

func stepFor(c *models.Contact, via string) PathStep {
	return PathStep{
		ContactID:    c.ID,
		Name:         c.Name,
		Organization: c.Organization,
		Tier:         c.Tier,
		WarmthScore:  c.WarmthScore,
		Via:          via,
	}
}

func normalize(s string) string {
	return strings.ToLower(strings.TrimSpace(s))
}
