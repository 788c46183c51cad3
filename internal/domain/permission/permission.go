// Package permission defines who may do what to tickets and panels.
package permission

// Resource is the object of an authorization check.
type Resource string

const (
	ResourceTicket Resource = "ticket"
	ResourcePanel  Resource = "panel"
)

// Action is the verb of an authorization check.
type Action string

const (
	ActionClose       Action = "close"
	ActionManage      Action = "manage"
	ActionSend        Action = "send"
	ActionBypassHours Action = "bypass_hours"
)

// Actor is the member performing a trigger, as reported by the platform.
type Actor struct {
	UserID        string
	Username      string
	RoleIDs       []string
	Administrator bool
}

// HasRole reports whether the actor carries roleID.
func (a Actor) HasRole(roleID string) bool {
	if roleID == "" {
		return false
	}
	for _, r := range a.RoleIDs {
		if r == roleID {
			return true
		}
	}
	return false
}

// Checker answers authorization questions for an actor.
type Checker interface {
	Can(actor Actor, resource Resource, action Action) (bool, error)
}
