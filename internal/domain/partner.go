package domain

import (
	"sort"
	"strings"
)

// Partner is an execution platform that submits run metrics.
type Partner string

const (
	PartnerGalaxy           Partner = "GALAXY"
	PartnerTerra            Partner = "TERRA"
	PartnerDNAStack         Partner = "DNA_STACK"
	PartnerDNANexus         Partner = "DNA_NEXUS"
	PartnerCGC              Partner = "CGC"
	PartnerNHLBIBioCatalyst Partner = "NHLBI_BIOCATALYST"
	PartnerAnvil            Partner = "ANVIL"
	PartnerSevenBridges     Partner = "SEVEN_BRIDGES"
	PartnerElwazi           Partner = "ELWAZI"
	PartnerAGC              Partner = "AGC"
	PartnerOther            Partner = "OTHER"

	// PartnerAll is the cross-platform rollup, never a real platform.
	PartnerAll Partner = "ALL"
)

var partners = []Partner{
	PartnerGalaxy, PartnerTerra, PartnerDNAStack, PartnerDNANexus, PartnerCGC,
	PartnerNHLBIBioCatalyst, PartnerAnvil, PartnerSevenBridges, PartnerElwazi,
	PartnerAGC, PartnerOther, PartnerAll,
}

// Partners returns every declared partner, ALL included.
func Partners() []Partner {
	out := make([]Partner, len(partners))
	copy(out, partners)
	return out
}

// ParsePartner is case-insensitive; "dna-stack" and "dna_stack" are equivalent.
func ParsePartner(s string) (Partner, error) {
	norm := strings.ToUpper(strings.ReplaceAll(strings.TrimSpace(s), "-", "_"))
	for _, p := range partners {
		if string(p) == norm {
			return p, nil
		}
	}
	return "", NewValidationError("platform", "unknown platform %q", s)
}

// IsActualPartner is false only for the ALL rollup.
func (p Partner) IsActualPartner() bool {
	return p != PartnerAll
}

func (p Partner) String() string { return string(p) }

// PartnerSet is a sorted set of actual partners.
type PartnerSet []Partner

// NewPartnerSet de-duplicates, sorts and drops ALL.
func NewPartnerSet(in ...Partner) PartnerSet {
	seen := make(map[Partner]bool, len(in))
	out := make(PartnerSet, 0, len(in))
	for _, p := range in {
		if !p.IsActualPartner() || seen[p] {
			continue
		}
		seen[p] = true
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

func (s PartnerSet) Contains(p Partner) bool {
	for _, v := range s {
		if v == p {
			return true
		}
	}
	return false
}
