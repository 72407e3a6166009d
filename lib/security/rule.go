package security

import (
	"fmt"
	"strings"
	"time"
)

type PassType int

const (
	Reject PassType = iota
	Allow
)

func (p PassType) String() string {
	if p == Allow {
		return "allow"
	}
	return "reject"
}

func ParsePassType(s string) (PassType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "allow", "1":
		return Allow, nil
	case "reject", "0":
		return Reject, nil
	}
	return Reject, fmt.Errorf("security: unknown pass type %q", s)
}

func (p PassType) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

func (p *PassType) UnmarshalText(b []byte) (err error) {
	*p, err = ParsePassType(string(b))
	return
}

type EnableStatus int

const (
	Disabled EnableStatus = iota
	Enabled
)

// Outcome is the verdict of a single rule for a single address.
type Outcome int

const (
	NoOpinion Outcome = iota
	Allowed
	Rejected
)

func (o Outcome) String() string {
	switch o {
	case Allowed:
		return "allow"
	case Rejected:
		return "reject"
	default:
		return "no-opinion"
	}
}

type SecurityRule struct {
	Id          int
	GroupId     int
	Name        string
	Description string
	// Rule is a comma separated list of sub-patterns, IPv6 supports single addresses only:
	//   single: 192.168.1.1,0:0:0:0:0:0:10.0.0.1
	//   range:  192.168.1.0-192.168.1.255
	//   mask:   192.168.1.0/24
	//   any:    0.0.0.0 or ALL
	Rule       string
	PassType   PassType
	Priority   int // smaller is evaluated first
	UserId     int
	Enable     EnableStatus
	CreateTime time.Time
	UpdateTime time.Time
}

// Allow reports whether the rule lets ip through on its own.
// An invalid ip is never allowed; a rule without opinion lets it pass.
func (r *SecurityRule) Allow(ip string) bool {
	addr, err := ParseAddress(ip)
	if err != nil {
		return false
	}
	return Compile(r).Evaluate(addr) != Rejected
}

// CompiledRule is a rule with its pattern parsed once.
type CompiledRule struct {
	Rule     SecurityRule
	patterns []SubPattern
}

func Compile(r *SecurityRule) *CompiledRule {
	return &CompiledRule{Rule: *r, patterns: ParsePattern(r.Rule)}
}

func (c *CompiledRule) decide(match bool) Outcome {
	if c.Rule.PassType == Allow && match {
		return Allowed
	}
	return Rejected
}

// Evaluate applies the rule to addr.
//
// A blank pattern always admits. IPv6 addresses are compared literally
// against the first sub-pattern only. For IPv4 the sub-patterns are walked
// in order: a wildcard or a single address ends the walk whether or not it
// matches, a range or mask ends it only on a hit.
func (c *CompiledRule) Evaluate(addr Address) Outcome {
	if len(c.patterns) == 0 {
		// only a blank field admits, separators alone leave nothing to match
		if strings.TrimSpace(c.Rule.Rule) == "" {
			return Allowed
		}
		return NoOpinion
	}
	if addr.IsIPv6() {
		return c.decide(c.patterns[0].Raw == addr.String())
	}
	ip := addr.String()
	for _, p := range c.patterns {
		switch p.Kind {
		case KindWildcard:
			return c.decide(true)
		case KindSingle:
			return c.decide(p.Raw == ip)
		case KindRange:
			// bounds compare as text, "192.168.1.9" sorts after "192.168.1.10"
			if p.Lower <= ip && ip <= p.Upper {
				return c.decide(true)
			}
		case KindMask:
			if n := addr.Uint32(); p.Begin <= n && n <= p.End {
				return c.decide(true)
			}
		}
	}
	return NoOpinion
}
