package rbac

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestEffective_AdminBypass(t *testing.T) {
	t.Parallel()

	cases := [][]string{
		nil,
		{},
		{"keyvault:view_keys"},
		{"totally:made_up", "another:garbage"},
	}
	for _, custom := range cases {
		set := Effective("admin", custom)
		require.Len(t, set, len(AllPermissions))
		for _, p := range AllPermissions {
			assert.Contains(t, set, p)
		}
	}
}

func TestEffective_UnionForNonAdmin(t *testing.T) {
	t.Parallel()

	custom := []string{string(PermKeyvaultGenerateKeys), "bogus:permission"}
	set := Effective("normal", custom)

	// роль даёт свою таблицу целиком
	for _, p := range RolePermissions[RoleNormal] {
		assert.Contains(t, set, p)
	}
	// валидный custom добавляется, невалидный — игнорируется
	assert.Contains(t, set, PermKeyvaultGenerateKeys)
	assert.NotContains(t, set, Permission("bogus:permission"))
}

func TestEffective_InvalidRoleCoercesToNormal(t *testing.T) {
	t.Parallel()

	got := Effective("superuser", nil)
	want := Effective("normal", nil)
	assert.Equal(t, want, got)
}

func TestHasPermission(t *testing.T) {
	t.Parallel()

	assert.True(t, HasPermission("admin", nil, PermUsersManagePermissions))
	assert.True(t, HasPermission("limited", nil, PermScannerScanText))
	assert.False(t, HasPermission("limited", nil, PermKeyvaultDeleteKeys))
	assert.True(t, HasPermission("limited", []string{string(PermKeyvaultDeleteKeys)}, PermKeyvaultDeleteKeys))
}

func TestHasAnyPermission(t *testing.T) {
	t.Parallel()

	assert.True(t, HasAnyPermission("normal", nil, PermKeyvaultDeleteKeys, PermScannerScanText))
	assert.False(t, HasAnyPermission("limited", nil, PermKeyvaultDeleteKeys, PermUsersManage))
	assert.True(t, HasAnyPermission("admin", nil))
}

func TestFilterValid(t *testing.T) {
	t.Parallel()

	in := []string{string(PermScannerRedact), "nope", string(PermUsersView)}
	assert.Equal(t, []string{string(PermScannerRedact), string(PermUsersView)}, FilterValid(in))
}

func TestRolePermissions_TotalMapping(t *testing.T) {
	t.Parallel()

	for _, r := range []Role{RoleAdmin, RoleCoAdmin, RoleNormal, RoleLimited} {
		_, ok := RolePermissions[r]
		require.True(t, ok, "role %s must have a table entry", r)
	}
	// запись admin в таблице — полная вселенная (плюс отдельный bypass)
	assert.ElementsMatch(t, AllPermissions, RolePermissions[RoleAdmin])
}
