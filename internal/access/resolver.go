// Package access maps a session role to the stages it may see and act on.
package access

import (
	"fmt"
	"strings"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
)

// Policy decides what an unmapped, non-empty role gets.
type Policy int

const (
	// FailClosed denies every stage to roles the resolver does not know.
	FailClosed Policy = iota
	// FailOpen grants unknown roles the same view as Admin.
	FailOpen
)

// ParsePolicy accepts "fail-closed" and "fail-open".
func ParsePolicy(s string) (Policy, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "fail-closed":
		return FailClosed, nil
	case "fail-open":
		return FailOpen, nil
	}
	return FailClosed, fmt.Errorf("unknown access policy %q", s)
}

func (p Policy) String() string {
	if p == FailOpen {
		return "fail-open"
	}
	return "fail-closed"
}

var roleStages = map[domain.Role]domain.Stage{
	domain.RoleProductManager: domain.StageProduct,
	domain.RoleEngineer:       domain.StageEngineering,
	domain.RolePlatform:       domain.StagePlatform,
	domain.RoleImplementation: domain.StageImplementation,
}

// Filter limits visible stages. The zero value is unrestricted.
type Filter struct {
	Stage  domain.Stage
	Denied bool
}

func (f Filter) Unrestricted() bool {
	return f.Stage == "" && !f.Denied
}

// Allows reports whether a record in stage s is visible under f.
func (f Filter) Allows(s domain.Stage) bool {
	if f.Denied {
		return false
	}
	return f.Stage == "" || f.Stage == s
}

type Resolver struct {
	policy Policy
}

func NewResolver(p Policy) *Resolver {
	return &Resolver{policy: p}
}

func (r *Resolver) Policy() Policy { return r.policy }

// Resolve returns the stage filter for role. Admin and the empty role (no
// session) are unrestricted; mapped roles see exactly one stage.
func (r *Resolver) Resolve(role domain.Role) Filter {
	if role == "" || role == domain.RoleAdmin {
		return Filter{}
	}
	if stage, ok := roleStages[role]; ok {
		return Filter{Stage: stage}
	}
	if r.policy == FailOpen {
		return Filter{}
	}
	return Filter{Denied: true}
}
