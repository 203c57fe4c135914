// Package role defines the sender roles used in model conversations.
package role

// Role represents the sender of a message in a conversation.
type Role string

const (
	System    Role = "system"
	User      Role = "user"
	Assistant Role = "assistant"
)

// Valid reports whether r is one of the known roles.
func (r Role) Valid() bool {
	switch r {
	case System, User, Assistant:
		return true
	}
	return false
}

// String returns the underlying string value of the role.
func (r Role) String() string {
	return string(r)
}

// Parse converts s to a Role. Unknown values are returned as-is and report
// false.
func Parse(s string) (Role, bool) {
	r := Role(s)
	return r, r.Valid()
}
