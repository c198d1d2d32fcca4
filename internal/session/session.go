// Package session supplies the current owner identity. Authentication
// itself is an external concern; this core only consumes the id.
package session

// Provider answers who owns the current session, if anyone.
type Provider interface {
	CurrentOwnerID() (string, bool)
}

// Static is a fixed-owner provider configured at startup. An empty id
// means no session.
type Static struct {
	ownerID string
}

func NewStatic(ownerID string) *Static {
	return &Static{ownerID: ownerID}
}

func (s *Static) CurrentOwnerID() (string, bool) {
	return s.ownerID, s.ownerID != ""
}
