// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package source classifies document identifiers (DOIs) into the ordered
// list of upstream sources that can serve them.
package source

import (
	"regexp"
	"strings"
)

// Kind identifies one upstream data source with its own rate budget.
// Declaration order is the fallback priority among classified sources.
type Kind int

const (
	KindUnknown Kind = iota
	KindBioRxiv
	KindArxiv
	KindElsevier
	KindSpringer
	KindWiley
	KindPLOS
	KindFrontiers
	KindIEEE
	KindUnpaywall
	KindGeneric
)

func (k Kind) String() string {
	switch k {
	case KindBioRxiv:
		return "biorxiv"
	case KindArxiv:
		return "arxiv"
	case KindElsevier:
		return "elsevier"
	case KindSpringer:
		return "springer"
	case KindWiley:
		return "wiley"
	case KindPLOS:
		return "plos"
	case KindFrontiers:
		return "frontiers"
	case KindIEEE:
		return "ieee"
	case KindUnpaywall:
		return "unpaywall"
	case KindGeneric:
		return "generic"
	default:
		return "unknown"
	}
}

// Kinds lists every source with a rate budget, in priority order.
func Kinds() []Kind {
	return []Kind{
		KindBioRxiv, KindArxiv, KindElsevier, KindSpringer, KindWiley,
		KindPLOS, KindFrontiers, KindIEEE, KindUnpaywall, KindGeneric,
	}
}

// prefixRule maps identifier substrings to a source. Preprint servers are
// checked before publisher prefixes; within a tier, order is fixed.
type prefixRule struct {
	substrings []string
	kind       Kind
}

// prefixTable is checked top to bottom; the first substring match wins.
var prefixTable = []prefixRule{
	{[]string{"biorxiv", "10.1101"}, KindBioRxiv},
	{[]string{"arxiv"}, KindArxiv},
	{[]string{"10.1016", "10.1006"}, KindElsevier},
	{[]string{"10.1007", "10.1038", "10.1186"}, KindSpringer},
	{[]string{"10.1002"}, KindWiley},
	{[]string{"10.1371"}, KindPLOS},
	{[]string{"10.3389"}, KindFrontiers},
	{[]string{"10.1109"}, KindIEEE},
}

// doiPattern matches a DOI-shaped identifier: "10.<registrant>/<suffix>".
var doiPattern = regexp.MustCompile(`^10\.\d{4,9}/\S+$`)

// bareTokenPattern matches a suffix that is a bare alphabetic journal
// token ("fpls", "gigascience"): a truncation artifact from landing-page
// URL extraction, never a complete article identifier.
var bareTokenPattern = regexp.MustCompile(`^[A-Za-z]+$`)

// WellFormed reports whether the identifier is a complete DOI: recognized
// "10." prefix, a slash, and a suffix that is not a truncated journal
// token. Malformed identifiers are rejected before any network cost.
func WellFormed(identifier string) bool {
	identifier = strings.TrimSpace(identifier)
	if !doiPattern.MatchString(identifier) {
		return false
	}
	suffix := identifier[strings.Index(identifier, "/")+1:]
	return !bareTokenPattern.MatchString(suffix)
}

// Classify maps an identifier to its primary sources in fallback priority
// order. It is a pure function of the identifier text: case-insensitive
// substring match against the prefix table, checked in fixed order. An
// unrecognized identifier yields nil; the caller still owns the aggregator
// fallback path.
func Classify(identifier string) []Kind {
	lower := strings.ToLower(strings.TrimSpace(identifier))
	for _, rule := range prefixTable {
		for _, sub := range rule.substrings {
			if strings.Contains(lower, sub) {
				return []Kind{rule.kind}
			}
		}
	}
	return nil
}

// safeNamePattern matches every character that may not appear in an
// artifact filename derived from an identifier.
var safeNamePattern = regexp.MustCompile(`[^A-Za-z0-9._-]`)

// SafeName returns a filesystem-safe filename stem for the identifier:
// everything outside the alphanumeric/hyphen/period/underscore set becomes
// an underscore. Deterministic, so re-runs address the same artifact.
func SafeName(identifier string) string {
	return safeNamePattern.ReplaceAllString(strings.TrimSpace(identifier), "_")
}
