package authorize

import (
	"errors"

	"github.com/Alijeyrad/carevisit_backend/internal/model"
)

var ErrNoSubject = errors.New("no staff member in scope")

// ScopeTarget derives the Casbin subject and domain of a request scope.
func ScopeTarget(scope model.Scope) (GroupSubject, Domain, error) {
	if scope.StaffID == "" {
		return "", "", ErrNoSubject
	}
	if !scope.Bound() {
		return "", "", ErrInvalidArgs
	}
	return GroupSubject(scope.StaffID), FacilityDomain(scope.FacilityID), nil
}
