// Package membership owns the program_users collection: one record per
// (program, user) pair, created at first join and updated on every
// subsequent join.
package membership

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"

	"outreach/internal/user"
)

// AppInformation records which app the join originated from.
type AppInformation struct {
	AppName    string `bson:"appName,omitempty" json:"appName,omitempty"`
	AppVersion string `bson:"appVersion,omitempty" json:"appVersion,omitempty"`
}

// Membership is the per-(program, user) enrollment record. The program
// fields at the bottom are denormalized for the event stream only and are
// never persisted.
type Membership struct {
	ID                   bson.ObjectID     `bson:"_id,omitempty" json:"_id,omitempty"`
	ProgramID            string            `bson:"programId" json:"programId"`
	UserID               string            `bson:"userId" json:"userId"`
	UserRoleInformation  map[string]string `bson:"userRoleInformation,omitempty" json:"userRoleInformation,omitempty"`
	UserProfile          *user.Profile     `bson:"userProfile,omitempty" json:"userProfile,omitempty"`
	AppInformation       AppInformation    `bson:"appInformation,omitempty" json:"appInformation,omitempty"`
	NoOfResourcesStarted int               `bson:"noOfResourcesStarted" json:"noOfResourcesStarted"`
	CreatedAt            time.Time         `bson:"createdAt" json:"createdAt"`
	UpdatedAt            time.Time         `bson:"updatedAt" json:"updatedAt"`

	ProgramName          string `bson:"-" json:"programName,omitempty"`
	ProgramExternalID    string `bson:"-" json:"programExternalId,omitempty"`
	RequestForPIIConsent bool   `bson:"-" json:"requestForPIIConsent"`
}

// Update is one join's write set. AppName/AppVersion only touch their nested
// paths when non-empty, so a join without app metadata never clears what an
// earlier join recorded.
type Update struct {
	UserRoleInformation map[string]string
	UserProfile         *user.Profile
	AppName             string
	AppVersion          string
	// IncResourcesStarted increments the resource counter instead of
	// overwriting it.
	IncResourcesStarted bool
	Now                 time.Time
}
