// Package role resolves human-readable role codes against the role catalog.
// A program scope stores either resolved {id, code} records or the single
// "all roles" sentinel meaning unrestricted-by-role.
package role

// All is the sentinel role code admitting every role.
const All = "ALL"

// Role is one catalog record projected to what scopes store.
type Role struct {
	ID   string `bson:"id,omitempty" json:"id,omitempty"`
	Code string `bson:"code" json:"code"`
}

// Sentinel returns the distinguished single-element role set meaning
// unrestricted-by-role. No catalog call is involved.
func Sentinel() []Role {
	return []Role{{Code: All}}
}

// IsSentinel reports whether roles is exactly the all-roles sentinel entry.
func IsSentinel(roles []Role) bool {
	return len(roles) == 1 && roles[0].Code == All && roles[0].ID == ""
}
