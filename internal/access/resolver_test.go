package access

import (
	"testing"

	"github.com/arrocitosenpai/PLM-OpenSource-m5-sub001/internal/domain"
	"github.com/stretchr/testify/assert"
)

func TestResolveMappedRoles(t *testing.T) {
	r := NewResolver(FailClosed)

	cases := map[domain.Role]domain.Stage{
		domain.RoleProductManager: domain.StageProduct,
		domain.RoleEngineer:       domain.StageEngineering,
		domain.RolePlatform:       domain.StagePlatform,
		domain.RoleImplementation: domain.StageImplementation,
	}
	for role, stage := range cases {
		f := r.Resolve(role)
		assert.False(t, f.Unrestricted(), "role %s", role)
		assert.Equal(t, stage, f.Stage)
		assert.True(t, f.Allows(stage))
		assert.False(t, f.Allows(domain.StageIntake))
	}
}

func TestResolveUnrestrictedRoles(t *testing.T) {
	for _, p := range []Policy{FailClosed, FailOpen} {
		r := NewResolver(p)
		assert.True(t, r.Resolve(domain.RoleAdmin).Unrestricted())
		assert.True(t, r.Resolve("").Unrestricted(), "no session means no restriction")
		assert.True(t, r.Resolve("").Allows(domain.StageSupport))
	}
}

func TestResolveUnknownRoleFollowsPolicy(t *testing.T) {
	closed := NewResolver(FailClosed).Resolve("Intern")
	assert.True(t, closed.Denied)
	assert.False(t, closed.Unrestricted())
	assert.False(t, closed.Allows(domain.StageIntake))

	open := NewResolver(FailOpen).Resolve("Intern")
	assert.True(t, open.Unrestricted())
	assert.True(t, open.Allows(domain.StageIntake))
}

func TestParsePolicy(t *testing.T) {
	p, err := ParsePolicy("fail-open")
	assert.NoError(t, err)
	assert.Equal(t, FailOpen, p)

	p, err = ParsePolicy("")
	assert.NoError(t, err)
	assert.Equal(t, FailClosed, p)

	_, err = ParsePolicy("sometimes")
	assert.Error(t, err)
}
