package security

import (
	"regexp"
	"strconv"
	"strings"
)

type PatternKind int

const (
	KindUnrecognized PatternKind = iota
	KindWildcard
	KindSingle
	KindRange
	KindMask
)

func (k PatternKind) String() string {
	switch k {
	case KindWildcard:
		return "wildcard"
	case KindSingle:
		return "single"
	case KindRange:
		return "range"
	case KindMask:
		return "mask"
	default:
		return "unrecognized"
	}
}

var (
	singleRE = regexp.MustCompile(`^(\d+\.){3}\d+$`)
	rangeRE  = regexp.MustCompile(`^(\d+\.){3}\d+-(\d+\.){3}\d+$`)
	maskRE   = regexp.MustCompile(`^(\d+\.){3}\d+/\d+$`)
)

// SubPattern is one comma separated element of a rule pattern.
// Lower/Upper hold the range bounds as text; Begin/End the mask block.
type SubPattern struct {
	Raw   string
	Kind  PatternKind
	Lower string
	Upper string
	Begin uint32
	End   uint32
}

// ParsePattern splits a rule pattern on commas and classifies every
// non-empty element. A blank pattern yields an empty list.
func ParsePattern(pattern string) []SubPattern {
	if strings.TrimSpace(pattern) == "" {
		return nil
	}
	parts := strings.Split(pattern, ",")
	out := make([]SubPattern, 0, len(parts))
	for _, p := range parts {
		p = strings.TrimSpace(p)
		if p == "" {
			continue
		}
		out = append(out, classify(p))
	}
	return out
}

func classify(p string) SubPattern {
	sp := SubPattern{Raw: p}
	switch {
	case strings.EqualFold(p, "ALL") || p == "0.0.0.0" || p == "0.0.0.0/0":
		sp.Kind = KindWildcard
	case singleRE.MatchString(p):
		sp.Kind = KindSingle
	case rangeRE.MatchString(p):
		bounds := strings.SplitN(p, "-", 2)
		sp.Kind = KindRange
		sp.Lower, sp.Upper = bounds[0], bounds[1]
	case maskRE.MatchString(p):
		netIp, bits, _ := strings.Cut(p, "/")
		base, ok := ipv4ToUint32(netIp)
		prefix, err := strconv.Atoi(bits)
		if !ok || err != nil || prefix < 0 || prefix > 32 {
			break
		}
		var mask uint32
		if prefix > 0 {
			mask = ^uint32(0) << (32 - prefix)
		}
		sp.Kind = KindMask
		sp.Begin = base & mask
		sp.End = sp.Begin | ^mask
	}
	return sp
}
