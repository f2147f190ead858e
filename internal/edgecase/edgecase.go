// Package edgecase implements the C3 Edge-Case Detector (spec.md §4.3):
// advisory flags for populations needing special care. Grounded on the
// teacher's ScoreTransaction signal-accumulation style
// (internal/heuristics/realtime_risk.go) — a flat list of named
// signals rather than a class hierarchy.
package edgecase

import (
	"regexp"
	"strings"
	"time"

	"github.com/sentrix/idxr-engine/internal/similarity"
	"github.com/sentrix/idxr-engine/pkg/models"
)

const (
	FlagPotentialTwinMatch = "potential_twin_match"
	FlagTwinIndicator      = "twin_indicator"
	FlagUnhoused           = "high_mobility_or_unhoused"
	FlagInfant             = "infant"
	FlagChild              = "child"
	FlagTeenager           = "teenager"
)

var (
	suffixPattern     = regexp.MustCompile(`(?i)\b(JR|SR|II|III|IV)\b`)
	unhousedMarkers   = []string{"homeless", "general delivery", "no fixed address", "shelter"}
)

const twinNameSimilarityThreshold = 0.7

// Detect evaluates a normalized query against its candidate set and
// returns the advisory flag set for the request.
func Detect(query models.IdentityRecord, candidates []models.StoredIdentity, historicalAddressCount int, now time.Time) models.EdgeFlags {
	var flags []string

	if suffixPattern.MatchString(query.GivenName + " " + query.Surname) {
		flags = append(flags, FlagTwinIndicator)
	}

	for _, cand := range candidates {
		if isPotentialTwin(query, cand.Normalized) {
			flags = append(flags, FlagPotentialTwinMatch)
			break
		}
	}

	if isUnhoused(query.Address, historicalAddressCount) {
		flags = append(flags, FlagUnhoused)
	}

	if ageFlag := ageFlagFor(query.DateOfBirth, now); ageFlag != "" {
		flags = append(flags, ageFlag)
	}

	return models.EdgeFlags{Flags: dedupe(flags)}
}

func isPotentialTwin(query, candidate models.IdentityRecord) bool {
	if query.DateOfBirth == "" || query.DateOfBirth != candidate.DateOfBirth {
		return false
	}
	if similarity.Address(query.Address, candidate.Address) < 0.5 {
		return false
	}
	nameSim := similarity.NameSimilarity(query.GivenName, query.Surname, candidate.GivenName, candidate.Surname, false)
	return nameSim > twinNameSimilarityThreshold
}

func isUnhoused(addr models.Address, historicalAddressCount int) bool {
	text := strings.ToLower(addr.StreetName + " " + addr.Unit)
	for _, marker := range unhousedMarkers {
		if strings.Contains(text, marker) {
			return true
		}
	}
	return historicalAddressCount > 3
}

func ageFlagFor(isoDOB string, now time.Time) string {
	if isoDOB == "" {
		return ""
	}
	dob, err := time.Parse("2006-01-02", isoDOB)
	if err != nil {
		return ""
	}
	age := ageInYears(dob, now)
	switch {
	case age < 2:
		return FlagInfant
	case age < 13:
		return FlagChild
	case age < 18:
		return FlagTeenager
	default:
		return ""
	}
}

func ageInYears(dob, now time.Time) int {
	years := now.Year() - dob.Year()
	anniversary := time.Date(now.Year(), dob.Month(), dob.Day(), 0, 0, 0, 0, now.Location())
	if now.Before(anniversary) {
		years--
	}
	return years
}

func dedupe(in []string) []string {
	seen := make(map[string]bool, len(in))
	var out []string
	for _, v := range in {
		if !seen[v] {
			seen[v] = true
			out = append(out, v)
		}
	}
	return out
}
