package security

import (
	"sort"
)

// Group is the read-only rule list of one security group, ordered by
// ascending priority then id. Disabled rules are dropped on construction.
type Group struct {
	Id    int
	rules []*CompiledRule
}

func NewGroup(id int, rules []*SecurityRule) *Group {
	g := &Group{Id: id}
	for _, r := range rules {
		if r == nil || r.Enable != Enabled {
			continue
		}
		g.rules = append(g.rules, Compile(r))
	}
	sort.SliceStable(g.rules, func(i, j int) bool {
		a, b := g.rules[i].Rule, g.rules[j].Rule
		if a.Priority != b.Priority {
			return a.Priority < b.Priority
		}
		return a.Id < b.Id
	})
	return g
}

func (g *Group) Len() int { return len(g.rules) }

// Rules returns the evaluation order.
func (g *Group) Rules() []SecurityRule {
	out := make([]SecurityRule, len(g.rules))
	for i, r := range g.rules {
		out[i] = r.Rule
	}
	return out
}

// Resolve returns the first decisive outcome and the rule that produced it.
// The rule is nil when the group fell through to its default.
func (g *Group) Resolve(ip string) (Outcome, *SecurityRule, error) {
	addr, err := ParseAddress(ip)
	if err != nil {
		return Rejected, nil, err
	}
	if g != nil {
		for _, r := range g.rules {
			if o := r.Evaluate(addr); o != NoOpinion {
				rule := r.Rule
				return o, &rule, nil
			}
		}
	}
	return Allowed, nil, nil
}

// Decide is the admission decision for ip: an invalid address is rejected,
// an exhausted or empty group admits.
func (g *Group) Decide(ip string) bool {
	o, _, _ := g.Resolve(ip)
	return o == Allowed
}

// Snapshot is an immutable view of every group at one point in time.
// Swap whole snapshots; never mutate one in place.
type Snapshot struct {
	Version uint64
	groups  map[int]*Group
}

// NewSnapshot buckets rules by GroupId. Groups listed in ids but owning no
// rules are kept so lookups for them still succeed.
func NewSnapshot(version uint64, rules []*SecurityRule, ids ...int) *Snapshot {
	byGroup := make(map[int][]*SecurityRule)
	for _, id := range ids {
		byGroup[id] = nil
	}
	for _, r := range rules {
		if r == nil {
			continue
		}
		byGroup[r.GroupId] = append(byGroup[r.GroupId], r)
	}
	s := &Snapshot{Version: version, groups: make(map[int]*Group, len(byGroup))}
	for id, list := range byGroup {
		s.groups[id] = NewGroup(id, list)
	}
	return s
}

func (s *Snapshot) Group(id int) (*Group, bool) {
	if s == nil {
		return nil, false
	}
	g, ok := s.groups[id]
	return g, ok
}

// Decide resolves ip against group id. Unknown groups have no rules.
func (s *Snapshot) Decide(groupId int, ip string) bool {
	g, _ := s.Group(groupId)
	return g.Decide(ip)
}
