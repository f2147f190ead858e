// Package models holds the data shapes shared across the resolution
// pipeline: the entities described in spec.md §3.
package models

import "time"

// Address is the structured, tokenized form of a postal address.
// Unit is kept for display but dropped from the grouping key (§4.1).
type Address struct {
	StreetNumber string `json:"streetNumber,omitempty"`
	StreetName   string `json:"streetName,omitempty"`
	Unit         string `json:"unit,omitempty"`
	City         string `json:"city,omitempty"`
	State        string `json:"state,omitempty"`
	PostalCode   string `json:"postalCode,omitempty"`
}

// IdentityRecord is the unit of input to the core. Every field is
// individually optional — a record with no discriminating field never
// reaches the core (rejected upstream, outside this package's concern).
type IdentityRecord struct {
	GivenName    string            `json:"givenName,omitempty"`
	Surname      string            `json:"surname,omitempty"`
	MiddleName   string            `json:"middleName,omitempty"`
	DateOfBirth  string            `json:"dateOfBirth,omitempty"` // ISO YYYY-MM-DD once normalized
	TaxpayerID   string            `json:"taxpayerId,omitempty"`  // full 9-digit or 4-digit suffix
	DriverID     string            `json:"driverId,omitempty"`
	Phone        string            `json:"phone,omitempty"`
	Email        string            `json:"email,omitempty"`
	Address      Address           `json:"address,omitempty"`
	Metadata     map[string]string `json:"metadata,omitempty"`
	SourceSystem string            `json:"sourceSystem,omitempty"`
}

// StoredIdentity is an identity record as held by the corpus, plus the
// bookkeeping the Candidate Store and Ensemble need.
type StoredIdentity struct {
	IdentityKey   string         `json:"identityKey"`
	Record        IdentityRecord `json:"record"`
	Normalized    IdentityRecord `json:"normalized"`
	SourceSystems []string       `json:"sourceSystems"`
	CreatedAt     time.Time      `json:"createdAt"`
	UpdatedAt     time.Time      `json:"updatedAt"`
	Active        bool           `json:"active"`
}

// MatchType tags which algorithm family produced a MatchCandidate.
type MatchType string

const (
	MatchTypeExact         MatchType = "exact"
	MatchTypeDeterministic MatchType = "deterministic"
	MatchTypeProbabilistic MatchType = "probabilistic"
	MatchTypeFuzzy         MatchType = "fuzzy"
	MatchTypeAIHybrid      MatchType = "ai-hybrid"
	MatchTypeEnsemble      MatchType = "ensemble"
)

// MatchCandidate is produced by a single matcher (or, after grouping,
// by the Ensemble) for one stored identity.
type MatchCandidate struct {
	IdentityKey   string                 `json:"identityKey"`
	Confidence    float64                `json:"confidence"`
	MatchType     MatchType              `json:"matchType"`
	MatchedFields []string               `json:"matchedFields"`
	Detail        map[string]interface{} `json:"detail,omitempty"`
}

// ResultStatus is the user-visible status of a MatchResult.
type ResultStatus string

const (
	StatusSuccess ResultStatus = "success"
	StatusNoMatch ResultStatus = "no_match"
	StatusPartial ResultStatus = "partial"
	StatusError   ResultStatus = "error"
)

// ScoreDiagnostics carries the composite-score explanation attached to
// a MatchResult: quality score, edge flags, and derived risk factors.
type ScoreDiagnostics struct {
	QualityScore float64  `json:"qualityScore"`
	EdgeFlags    []string `json:"edgeFlags,omitempty"`
	RiskFactors  []string `json:"riskFactors,omitempty"`
}

// MatchResult is the Resolver's output for one request.
type MatchResult struct {
	CorrelationID    string            `json:"correlationId"`
	Status           ResultStatus      `json:"status"`
	Matches          []MatchCandidate  `json:"matches"`
	ProcessingTimeMs float64           `json:"processingTimeMs"`
	Diagnostics      ScoreDiagnostics  `json:"diagnostics"`
	Error            string            `json:"error,omitempty"`
}

// ResolveOptions configures a single Resolve call (§6 inbound port).
type ResolveOptions struct {
	MatchThreshold       float64
	MaxMatches           int
	RequireHighConfidence bool
	Timeout              time.Duration
	CorrelationID        string
	SourceSystem         string
}
