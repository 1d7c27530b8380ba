package authorize

import (
	"context"
	"errors"
	"fmt"

	casbin "github.com/casbin/casbin/v2"
)

var (
	ErrForbidden   = errors.New("forbidden")
	ErrInvalidArgs = errors.New("invalid authorization arguments")
)

// IAuthorization is the only thing services/middleware should depend on.
type IAuthorization interface {
	// Enforce answers: "Is subject allowed to act on object inside domain?"
	Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error)

	// MustEnforce returns ErrForbidden if not allowed.
	MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error

	// Grouping policies: g, staff_id, role, domain
	AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error)
	GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error)

	// Policies: p, role, domain, object, action, eft
	AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)
	RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error)
}

// Authorization is a thin typed wrapper around casbin.Enforcer.
type Authorization struct {
	enforcer       casbin.IEnforcer
	superAdminRole Role
}

// NewAuthorization wraps an already-configured enforcer and loads its policy.
func NewAuthorization(e casbin.IEnforcer) (IAuthorization, error) {
	if e == nil {
		return nil, fmt.Errorf("%w: enforcer is nil", ErrInvalidArgs)
	}
	if err := e.LoadPolicy(); err != nil {
		return nil, err
	}
	return &Authorization{
		enforcer:       e,
		superAdminRole: RolePlatformSuperAdmin,
	}, nil
}

func checkDomain(domain Domain) error {
	if domain == "" || !IsValidDomain(domain) {
		return fmt.Errorf("%w: invalid domain: %q", ErrInvalidArgs, domain)
	}
	return nil
}

func checkObject(object Resource, action Action) error {
	if _, ok := KnownResources[object]; !ok && object != WildcardResource {
		return fmt.Errorf("%w: unknown resource: %q", ErrInvalidArgs, object)
	}
	if _, ok := KnownActions[action]; !ok && action != WildcardAction {
		return fmt.Errorf("%w: unknown action: %q", ErrInvalidArgs, action)
	}
	return nil
}

func checkRole(role Role) error {
	if _, ok := KnownRoles[role]; !ok && role != WildcardRole {
		return fmt.Errorf("%w: unknown role: %q", ErrInvalidArgs, role)
	}
	return nil
}

func (a *Authorization) Enforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) (bool, error) {
	if subject == "" {
		return false, fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	if err := checkObject(object, action); err != nil {
		return false, err
	}

	// platform superadmins pass every check
	if a.superAdminRole != "" {
		ok, err := a.enforcer.HasGroupingPolicy(string(subject), string(a.superAdminRole), string(DomainSys))
		if err != nil {
			return false, err
		}
		if ok {
			return true, nil
		}
	}

	return a.enforcer.Enforce(string(subject), string(domain), string(object), string(action))
}

func (a *Authorization) MustEnforce(ctx context.Context, subject GroupSubject, domain Domain, object Resource, action Action) error {
	ok, err := a.Enforce(ctx, subject, domain, object, action)
	if err != nil {
		return err
	}
	if !ok {
		return ErrForbidden
	}
	return nil
}

// ---- Grouping (roles) ----

func (a *Authorization) AddRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if subject == "" || role == "" {
		return false, fmt.Errorf("%w: empty subject/role", ErrInvalidArgs)
	}
	if err := checkRole(role); err != nil {
		return false, err
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.AddGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) RemoveRoleForUserInDomain(ctx context.Context, subject GroupSubject, role Role, domain Domain) (bool, error) {
	if subject == "" || role == "" {
		return false, fmt.Errorf("%w: empty subject/role", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.RemoveGroupingPolicy(string(subject), string(role), string(domain))
}

func (a *Authorization) GetRolesForUserInDomain(ctx context.Context, subject GroupSubject, domain Domain) ([]Role, error) {
	if subject == "" {
		return nil, fmt.Errorf("%w: subject is empty", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return nil, err
	}
	roles := a.enforcer.GetRolesForUserInDomain(string(subject), string(domain))
	out := make([]Role, 0, len(roles))
	for _, r := range roles {
		out = append(out, Role(r))
	}
	return out, nil
}

// ---- Permissions (p rules) ----

func (a *Authorization) AddPermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if role == "" || domain == "" || object == "" || action == "" || effect == "" {
		return false, fmt.Errorf("%w: empty permission fields", ErrInvalidArgs)
	}
	if err := checkRole(role); err != nil {
		return false, err
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	if err := checkObject(object, action); err != nil {
		return false, err
	}
	if effect != EffectAllow && effect != EffectDeny {
		return false, fmt.Errorf("%w: invalid effect: %q", ErrInvalidArgs, effect)
	}
	return a.enforcer.AddPolicy(string(role), string(domain), string(object), string(action), string(effect))
}

func (a *Authorization) RemovePermission(ctx context.Context, role Role, domain Domain, object Resource, action Action, effect PolicyEffect) (bool, error) {
	if role == "" || domain == "" || object == "" || action == "" || effect == "" {
		return false, fmt.Errorf("%w: empty permission fields", ErrInvalidArgs)
	}
	if err := checkDomain(domain); err != nil {
		return false, err
	}
	return a.enforcer.RemovePolicy(string(role), string(domain), string(object), string(action), string(effect))
}
