package permission

import (
	"fmt"
	"sync"

	"github.com/casbin/casbin/v2"
	"github.com/casbin/casbin/v2/model"

	"github.com/sportello-bot/sportello/internal/domain/permission"
	"github.com/sportello-bot/sportello/internal/shared/config"
	"github.com/sportello-bot/sportello/internal/shared/logger"
)

var _ permission.Checker = (*Enforcer)(nil)

// modelText is a flat ACL with wildcard objects and actions. Subjects are
// Discord role ids prefixed with "role:", plus "admin" for members holding
// the administrator capability.
const modelText = `
[request_definition]
r = sub, obj, act

[policy_definition]
p = sub, obj, act

[policy_effect]
e = some(where (p.eft == allow))

[matchers]
m = r.sub == p.sub && (p.obj == "*" || r.obj == p.obj) && (p.act == "*" || r.act == p.act)
`

const adminSubject = "admin"

// Enforcer authorizes actors with casbin. Policies are built from the
// configured role ids at startup and live in memory.
type Enforcer struct {
	enforcer *casbin.Enforcer
	mu       sync.RWMutex
	logger   logger.Interface
}

func NewEnforcer(roles config.RolesConfig, log logger.Interface) (*Enforcer, error) {
	m, err := model.NewModelFromString(modelText)
	if err != nil {
		return nil, fmt.Errorf("failed to load casbin model: %w", err)
	}

	enforcer, err := casbin.NewEnforcer(m)
	if err != nil {
		return nil, fmt.Errorf("failed to create casbin enforcer: %w", err)
	}

	e := &Enforcer{
		enforcer: enforcer,
		logger:   log,
	}
	if err := e.initPolicies(roles); err != nil {
		return nil, err
	}
	return e, nil
}

// RoleSubject is the casbin subject of a Discord role.
func RoleSubject(roleID string) string {
	return "role:" + roleID
}

func (e *Enforcer) initPolicies(roles config.RolesConfig) error {
	ticket := string(permission.ResourceTicket)
	policies := [][]string{
		{adminSubject, "*", "*"},

		{RoleSubject(roles.Close), ticket, string(permission.ActionClose)},

		{RoleSubject(roles.Staff), ticket, string(permission.ActionManage)},
		{RoleSubject(roles.Staff), string(permission.ResourcePanel), string(permission.ActionSend)},
	}
	if roles.Bypass != "" {
		policies = append(policies, []string{RoleSubject(roles.Bypass), ticket, string(permission.ActionBypassHours)})
	}

	for _, policy := range policies {
		if _, err := e.enforcer.AddPolicy(policy); err != nil {
			e.logger.Errorw("failed to add permission policy",
				"error", err,
				"subject", policy[0],
				"resource", policy[1],
				"action", policy[2])
			return fmt.Errorf("failed to add policy [%s, %s, %s]: %w",
				policy[0], policy[1], policy[2], err)
		}
	}

	e.logger.Debugw("permission policies initialized", "count", len(policies))
	return nil
}

// Can reports whether any of the actor's subjects is allowed the action.
func (e *Enforcer) Can(actor permission.Actor, resource permission.Resource, action permission.Action) (bool, error) {
	e.mu.RLock()
	defer e.mu.RUnlock()

	subjects := make([]string, 0, len(actor.RoleIDs)+1)
	if actor.Administrator {
		subjects = append(subjects, adminSubject)
	}
	for _, roleID := range actor.RoleIDs {
		subjects = append(subjects, RoleSubject(roleID))
	}

	for _, sub := range subjects {
		allowed, err := e.enforcer.Enforce(sub, string(resource), string(action))
		if err != nil {
			e.logger.Errorw("permission check failed", "error", err, "user_id", actor.UserID, "resource", resource, "action", action)
			return false, fmt.Errorf("permission check failed: %w", err)
		}
		if allowed {
			return true, nil
		}
	}
	return false, nil
}

// AddPolicy grants a role an extra action at runtime.
func (e *Enforcer) AddPolicy(roleID string, resource permission.Resource, action permission.Action) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if _, err := e.enforcer.AddPolicy(RoleSubject(roleID), string(resource), string(action)); err != nil {
		return fmt.Errorf("failed to add policy: %w", err)
	}
	return nil
}
