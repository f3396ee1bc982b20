// Package program holds the program aggregate: a named campaign grouping
// solutions, visible and joinable only to users matching its scope.
package program

import (
	"encoding/json"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"outreach/internal/role"
)

// Statuses a program moves through. Only active programs are listed or
// joinable.
const (
	StatusActive   = "active"
	StatusInactive = "inactive"
)

// Scope records a program's entitlement: the location granularity it
// restricts on, the admitted canonical location IDs, and the admitted roles
// (or the all-roles sentinel). EntityType is set once at scope creation;
// every later entity resolution uses the stored value, never a
// caller-supplied one.
type Scope struct {
	EntityType string      `bson:"entityType,omitempty" json:"entityType,omitempty"`
	Entities   []string    `bson:"entities,omitempty" json:"entities,omitempty"`
	Roles      []role.Role `bson:"roles,omitempty" json:"roles,omitempty"`
}

// Program is one campaign document. Scope stays nil until first set; an
// absent scope means the program is never returned by the targeted read
// path.
type Program struct {
	ID                   bson.ObjectID `bson:"_id,omitempty" json:"_id,omitempty"`
	ExternalID           string        `bson:"externalId" json:"externalId"`
	Name                 string        `bson:"name" json:"name"`
	Description          string        `bson:"description" json:"description"`
	Owner                string        `bson:"owner" json:"owner"`
	CreatedBy            string        `bson:"createdBy" json:"createdBy"`
	UpdatedBy            string        `bson:"updatedBy" json:"updatedBy"`
	Status               string        `bson:"status" json:"status"`
	IsDeleted            bool          `bson:"isDeleted" json:"isDeleted"`
	IsAPrivateProgram    bool          `bson:"isAPrivateProgram" json:"isAPrivateProgram"`
	ResourceType         []string      `bson:"resourceType,omitempty" json:"resourceType,omitempty"`
	Language             []string      `bson:"language,omitempty" json:"language,omitempty"`
	Keywords             []string      `bson:"keywords,omitempty" json:"keywords,omitempty"`
	Concepts             []string      `bson:"concepts" json:"concepts"`
	Components           []string      `bson:"components" json:"components"`
	RootOrganisations    []string      `bson:"rootOrganisations,omitempty" json:"rootOrganisations,omitempty"`
	RequestForPIIConsent bool          `bson:"requestForPIIConsent" json:"requestForPIIConsent"`
	Scope                *Scope        `bson:"scope,omitempty" json:"scope,omitempty"`
	CreatedAt            time.Time     `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time     `bson:"updatedAt" json:"updatedAt"`
}

// ScopeRequest carries a scope creation/replacement. Each field's presence
// is independently significant: an absent field leaves that part of the new
// scope unset.
type ScopeRequest struct {
	EntityType string   `json:"entityType,omitempty"`
	Entities   []string `json:"entities,omitempty"`
	// Roles is either a list of role codes or the scalar sentinel "ALL";
	// RolesRequest keeps the two forms apart.
	Roles *RolesRequest `json:"roles,omitempty"`
}

// RolesRequest distinguishes the array form (explicit role codes) from the
// scalar sentinel form ("ALL"). Exactly one of the two is meaningful.
type RolesRequest struct {
	Codes []string
	All   bool
}

// UnmarshalJSON accepts either a JSON array of role codes or the scalar
// sentinel string.
func (r *RolesRequest) UnmarshalJSON(data []byte) error {
	var scalar string
	if err := json.Unmarshal(data, &scalar); err == nil {
		if scalar != role.All {
			return fmt.Errorf("roles must be a list of codes or %q", role.All)
		}
		r.All = true
		return nil
	}
	return json.Unmarshal(data, &r.Codes)
}

// CreateRequest carries program creation.
type CreateRequest struct {
	ExternalID           string        `json:"externalId"`
	Name                 string        `json:"name"`
	Description          string        `json:"description"`
	IsAPrivateProgram    bool          `json:"isAPrivateProgram"`
	RootOrganisations    []string      `json:"rootOrganisations,omitempty"`
	RequestForPIIConsent bool          `json:"requestForPIIConsent"`
	Scope                *ScopeRequest `json:"scope,omitempty"`
}

// UpdateRequest carries a partial program update. Scope routes through the
// scope mutator; everything else is a plain field set.
type UpdateRequest struct {
	Name        *string       `json:"name,omitempty"`
	Description *string       `json:"description,omitempty"`
	Keywords    []string      `json:"keywords,omitempty"`
	Status      *string       `json:"status,omitempty"`
	Scope       *ScopeRequest `json:"scope,omitempty"`
}

// TargetingRequest is the read-path authorization input: the caller's
// location references keyed by granularity, their role codes as CSV, and
// optional extra filter pairs.
type TargetingRequest struct {
	Locations map[string]string `json:"locations"`
	Role      string            `json:"role"`
	Filter    map[string]any    `json:"filter,omitempty"`
}

// JoinRequest carries one enrollment call.
type JoinRequest struct {
	UserRoleInformation map[string]string `json:"userRoleInformation,omitempty"`
	// IsResource marks a resource-start event; each such join increments the
	// membership's resource counter.
	IsResource bool `json:"isResource,omitempty"`
	// ConsentShared asks the service to register a consent record on the
	// caller's behalf during the join.
	ConsentShared bool `json:"consentShared,omitempty"`
}
