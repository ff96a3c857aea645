package geo

import (
	"fmt"
	"strings"
)

// Kind identifies one of the three levels of the location hierarchy.
type Kind int

const (
	KindCountry Kind = iota + 1
	KindRegion
	KindCity
)

// kindLabels maps each kind to its Neo4j node label. Labels are never taken
// from caller input.
var kindLabels = map[Kind]string{
	KindCountry: "Country",
	KindRegion:  "Region",
	KindCity:    "City",
}

// Label returns the Neo4j label for the kind
func (k Kind) Label() string {
	if label, ok := kindLabels[k]; ok {
		return label
	}
	return ""
}

func (k Kind) String() string {
	switch k {
	case KindCountry:
		return "country"
	case KindRegion:
		return "region"
	case KindCity:
		return "city"
	default:
		return fmt.Sprintf("kind(%d)", int(k))
	}
}

// Valid reports whether k is one of the declared kinds
func (k Kind) Valid() bool {
	_, ok := kindLabels[k]
	return ok
}

// ParseKind converts "country", "region" or "city" (case-insensitive) into a Kind.
func ParseKind(s string) (Kind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "country":
		return KindCountry, nil
	case "region":
		return KindRegion, nil
	case "city":
		return KindCity, nil
	}
	return 0, fmt.Errorf("unknown location kind %q", s)
}

// Pair is a valid (child, parent) combination for a WITHIN edge.
type Pair int

const (
	CityInRegion Pair = iota + 1
	CityInCountry
	RegionInCountry
)

// Pairs lists every valid hierarchy pair.
var Pairs = []Pair{CityInRegion, CityInCountry, RegionInCountry}

var pairKinds = map[Pair][2]Kind{
	CityInRegion:    {KindCity, KindRegion},
	CityInCountry:   {KindCity, KindCountry},
	RegionInCountry: {KindRegion, KindCountry},
}

// Child returns the kind on the child side of the edge
func (p Pair) Child() Kind { return pairKinds[p][0] }

// Parent returns the kind on the parent side of the edge
func (p Pair) Parent() Kind { return pairKinds[p][1] }

// Valid reports whether p is one of the declared pairs
func (p Pair) Valid() bool {
	_, ok := pairKinds[p]
	return ok
}

func (p Pair) String() string {
	if !p.Valid() {
		return fmt.Sprintf("pair(%d)", int(p))
	}
	return p.Child().String() + "_in_" + p.Parent().String()
}

// ParsePair accepts the String form, e.g. "city_in_region".
func ParsePair(s string) (Pair, error) {
	for _, p := range Pairs {
		if p.String() == s {
			return p, nil
		}
	}
	return 0, fmt.Errorf("unknown hierarchy pair %q", s)
}

// PairFor returns the pair joining child to parent, if one exists.
func PairFor(child, parent Kind) (Pair, bool) {
	for _, p := range Pairs {
		if p.Child() == child && p.Parent() == parent {
			return p, true
		}
	}
	return 0, false
}

// MarshalText encodes the kind by name
func (k Kind) MarshalText() ([]byte, error) {
	if !k.Valid() {
		return nil, fmt.Errorf("cannot marshal %s", k)
	}
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name
func (k *Kind) UnmarshalText(text []byte) error {
	parsed, err := ParseKind(string(text))
	if err != nil {
		return err
	}
	*k = parsed
	return nil
}

// KindForLabel maps a Neo4j label back to its kind.
func KindForLabel(label string) (Kind, bool) {
	for k, l := range kindLabels {
		if l == label {
			return k, true
		}
	}
	return 0, false
}
