package models

// Relationship is the tag a household member carries relative to the
// head of household (§3.1, §4.13).
type Relationship string

const (
	RelHead           Relationship = "head"
	RelSpouse         Relationship = "spouse"
	RelChild          Relationship = "child"
	RelParent         Relationship = "parent"
	RelSibling        Relationship = "sibling"
	RelGrandparent    Relationship = "grandparent"
	RelGrandchild     Relationship = "grandchild"
	RelOtherRelative  Relationship = "other-relative"
	RelUnrelated      Relationship = "unrelated"
)

// HouseholdMember is one record grouped into a household.
type HouseholdMember struct {
	IdentityKey  string       `json:"identityKey"`
	Relationship Relationship `json:"relationship"`
	Confidence   float64      `json:"confidence"`
	GuardianKey  string       `json:"guardianKey,omitempty"` // set for minors
}

// HouseholdGroup is the output of the Household Analyzer (§4.13).
type HouseholdGroup struct {
	HeadIdentityKey string            `json:"headIdentityKey"`
	Members         []HouseholdMember `json:"members"`
	PrimaryAddress  Address           `json:"primaryAddress"`
	HasChildren     bool              `json:"hasChildren"`
	HasElderly      bool              `json:"hasElderly"`
	Size            int               `json:"size"`
	Type            string            `json:"type"`
}
