// Package household implements the §4.13 Household Analyzer: grouping
// candidate identity records sharing a normalized address and deriving
// a relationship graph within each group.
package household

import (
	"sort"
	"strings"
	"time"

	"github.com/sentrix/idxr-engine/internal/normalize"
	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

const (
	adultAge                = 18
	elderlyAge              = 65
	spouseMaxDelta          = 15
	grandparentMinDelta     = 40
	parentMinDelta          = 15
	siblingMaxDelta         = 20
	similarSurnameThreshold = 0.85
	emptyHouseholdKey       = "||"
)

// Candidate is one normalized record being considered for grouping.
type Candidate struct {
	IdentityKey string
	Record      models.IdentityRecord
}

type member struct {
	Candidate
	age    int
	hasAge bool
}

// Analyze groups candidates by normalized address key (§4.1) and, for
// every multi-member group, derives relationships relative to a head
// of household (§4.13). Single-member groups are dropped — a
// household of one has nothing to relate.
func Analyze(candidates []Candidate, now time.Time) []models.HouseholdGroup {
	ce := newClusterEngine()
	byID := make(map[string]Candidate, len(candidates))

	for _, c := range candidates {
		key := normalize.HouseholdKey(c.Record.Address)
		if key == emptyHouseholdKey {
			continue
		}
		byID[c.IdentityKey] = c
		ce.union(c.IdentityKey, "addr:"+key)
	}

	byRoot := make(map[string][]Candidate)
	for id, c := range byID {
		root := ce.find(id)
		byRoot[root] = append(byRoot[root], c)
	}

	var groups []models.HouseholdGroup
	for _, members := range byRoot {
		if len(members) < 2 {
			continue
		}
		groups = append(groups, buildGroup(members, now))
	}
	sort.Slice(groups, func(i, j int) bool {
		return groups[i].HeadIdentityKey < groups[j].HeadIdentityKey
	})
	return groups
}

func buildGroup(candidates []Candidate, now time.Time) models.HouseholdGroup {
	members := make([]member, len(candidates))
	for i, c := range candidates {
		age, ok := normalize.Age(c.Record.DateOfBirth, now)
		members[i] = member{Candidate: c, age: age, hasAge: ok}
	}

	sort.SliceStable(members, func(i, j int) bool {
		a, b := members[i], members[j]
		if a.hasAge != b.hasAge {
			return a.hasAge
		}
		if a.age != b.age {
			return a.age > b.age
		}
		return a.IdentityKey < b.IdentityKey
	})

	headIdx := 0
	for i, m := range members {
		if m.hasAge && m.age >= adultAge {
			headIdx = i
			break
		}
	}
	head := members[headIdx]

	out := make([]models.HouseholdMember, 0, len(members))
	hasChildren, hasElderly := false, false
	relSeen := make(map[models.Relationship]bool)

	for i, m := range members {
		if i == headIdx {
			out = append(out, models.HouseholdMember{
				IdentityKey:  m.IdentityKey,
				Relationship: models.RelHead,
				Confidence:   1.0,
			})
			relSeen[models.RelHead] = true
			if m.hasAge && m.age >= elderlyAge {
				hasElderly = true
			}
			continue
		}

		rel, conf := deriveRelationship(head, m)
		relSeen[rel] = true
		hm := models.HouseholdMember{IdentityKey: m.IdentityKey, Relationship: rel, Confidence: conf}
		if m.hasAge && m.age < adultAge {
			hm.GuardianKey = head.IdentityKey
			hasChildren = true
		}
		if m.hasAge && m.age >= elderlyAge {
			hasElderly = true
		}
		out = append(out, hm)
	}

	return models.HouseholdGroup{
		HeadIdentityKey: head.IdentityKey,
		Members:         out,
		PrimaryAddress:  head.Record.Address,
		HasChildren:     hasChildren,
		HasElderly:      hasElderly,
		Size:            len(out),
		Type:            deriveType(relSeen),
	}
}

// deriveRelationship implements the §4.13 ordered rule list: spouse,
// then (grand)parent/(grand)child, then sibling, then other-relative
// or unrelated.
func deriveRelationship(head, other member) (models.Relationship, float64) {
	similar := similarSurname(head, other)

	if !head.hasAge || !other.hasAge {
		if similar {
			return models.RelOtherRelative, 0.4
		}
		return models.RelUnrelated, 0.3
	}

	delta := head.age - other.age
	absDelta := delta
	if absDelta < 0 {
		absDelta = -absDelta
	}

	switch {
	case absDelta <= spouseMaxDelta && head.age >= adultAge && other.age >= adultAge:
		return models.RelSpouse, 0.75
	case absDelta >= grandparentMinDelta:
		if delta > 0 {
			return models.RelGrandchild, 0.8
		}
		return models.RelGrandparent, 0.8
	case absDelta >= parentMinDelta:
		if delta > 0 {
			return models.RelChild, 0.8
		}
		return models.RelParent, 0.8
	case absDelta > 0 && absDelta <= siblingMaxDelta && similar:
		return models.RelSibling, 0.65
	case similar:
		return models.RelOtherRelative, 0.45
	default:
		return models.RelUnrelated, 0.3
	}
}

func similarSurname(a, b member) bool {
	sa, sb := strings.TrimSpace(a.Record.Surname), strings.TrimSpace(b.Record.Surname)
	if sa == "" || sb == "" {
		return false
	}
	return similarity.LevenshteinRatio(sa, sb) >= similarSurnameThreshold
}

func deriveType(rel map[models.Relationship]bool) string {
	switch {
	case rel[models.RelSpouse] && (rel[models.RelChild] || rel[models.RelGrandchild]):
		return "nuclear-family"
	case rel[models.RelGrandparent] || rel[models.RelGrandchild]:
		return "multi-generational"
	case rel[models.RelChild] && !rel[models.RelSpouse]:
		return "single-parent"
	case rel[models.RelSpouse]:
		return "couple"
	case rel[models.RelSibling]:
		return "siblings"
	case rel[models.RelOtherRelative]:
		return "extended-family"
	default:
		return "unrelated-cohabitants"
	}
}
