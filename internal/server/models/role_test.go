package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseRole(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Role
		ok   bool
	}{
		{"SUPER_ADMIN", RoleSuperAdmin, true},
		{"DEV_ADMIN", RoleDevAdmin, true},
		{"USER", RoleUser, true},
		{"user", roleInvalid, false},
		{"", roleInvalid, false},
		{"ADMIN", roleInvalid, false},
	}
	for _, tt := range tests {
		got, ok := ParseRole(tt.in)
		assert.Equal(t, tt.ok, ok, tt.in)
		assert.Equal(t, tt.want, got, tt.in)
	}
}

func TestRole_StringRoundTrip(t *testing.T) {
	t.Parallel()

	for _, r := range Roles() {
		require.True(t, r.Valid())
		parsed, ok := ParseRole(r.String())
		require.True(t, ok)
		assert.Equal(t, r, parsed)
	}
	assert.False(t, roleInvalid.Valid())
	assert.False(t, NumRoles.Valid())
	assert.Equal(t, "Role(9)", Role(9).String())
}

func TestRole_IsAdmin(t *testing.T) {
	t.Parallel()

	assert.True(t, RoleSuperAdmin.IsAdmin())
	assert.True(t, RoleDevAdmin.IsAdmin())
	assert.False(t, RoleUser.IsAdmin())
	assert.False(t, roleInvalid.IsAdmin())
}

func TestRole_JSON(t *testing.T) {
	t.Parallel()

	b, err := json.Marshal(struct {
		Role Role `json:"role"`
	}{RoleDevAdmin})
	require.NoError(t, err)
	assert.JSONEq(t, `{"role":"DEV_ADMIN"}`, string(b))

	var v struct {
		Role Role `json:"role"`
	}
	require.NoError(t, json.Unmarshal([]byte(`{"role":"USER"}`), &v))
	assert.Equal(t, RoleUser, v.Role)

	require.Error(t, json.Unmarshal([]byte(`{"role":"ROOT"}`), &v))

	_, err = json.Marshal(struct{ R Role }{roleInvalid})
	require.Error(t, err)
}
