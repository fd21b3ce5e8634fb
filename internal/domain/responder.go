package domain

import "time"

// ResponderRole identifies a responder's function on the response team.
type ResponderRole string

// Responder roles.
const (
	RoleIncidentCommander ResponderRole = "incident_commander"
	RoleInvestigator      ResponderRole = "investigator"
	RoleAnalyst           ResponderRole = "analyst"
	RoleCommunications    ResponderRole = "communications"
	RoleLegal             ResponderRole = "legal"
	RoleForensics         ResponderRole = "forensics"
)

// IsValid checks if the role is one of the known values.
func (r ResponderRole) IsValid() bool {
	switch r {
	case RoleIncidentCommander, RoleInvestigator, RoleAnalyst,
		RoleCommunications, RoleLegal, RoleForensics:
		return true
	}
	return false
}

// Responder is a member of the response team. Responders live in a standalone
// registry; assigning one to an incident copies the record into that
// incident's responder list.
type Responder struct {
	ID        string            `json:"id"`
	Name      string            `json:"name"`
	Email     string            `json:"email"`
	Role      ResponderRole     `json:"role"`
	Skills    []string          `json:"skills"`
	Contact   map[string]string `json:"contact"`
	Available bool              `json:"available"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

// Clone returns a deep copy of the responder.
func (r *Responder) Clone() *Responder {
	out := *r
	out.Skills = cloneSlice(r.Skills)
	if r.Contact != nil {
		out.Contact = make(map[string]string, len(r.Contact))
		for k, v := range r.Contact {
			out.Contact[k] = v
		}
	}
	return &out
}
