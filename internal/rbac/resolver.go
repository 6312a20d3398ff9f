package rbac

import (
	"sort"

	"cyberlab/internal/logs"
)

// ParseRole приводит произвольную строку к известной роли.
// Невалидное значение — не авария: откатываемся к наименее
// привилегированной осмысленной роли (normal) с warn-логом.
func ParseRole(s string) Role {
	switch Role(s) {
	case RoleAdmin, RoleCoAdmin, RoleNormal, RoleLimited:
		return Role(s)
	default:
		logs.Component("rbac").Warnf("invalid role %q, defaulting to normal", s)
		return RoleNormal
	}
}

// Effective — эффективный набор разрешений: role-таблица ∪ custom.
// Для admin — безусловно вся вселенная (bypass, а не объединение);
// custom при этом не читается вовсе.
func Effective(roleStr string, custom []string) map[Permission]struct{} {
	role := ParseRole(roleStr)

	set := make(map[Permission]struct{})
	if role == RoleAdmin {
		for _, p := range AllPermissions {
			set[p] = struct{}{}
		}
		return set
	}

	for _, p := range RolePermissions[role] {
		set[p] = struct{}{}
	}
	for _, id := range custom {
		if IsValid(id) {
			set[Permission(id)] = struct{}{}
		}
	}
	return set
}

// EffectiveList — то же самое отсортированным срезом строк (для JSON-ответов).
func EffectiveList(roleStr string, custom []string) []string {
	set := Effective(roleStr, custom)
	out := make([]string, 0, len(set))
	for p := range set {
		out = append(out, string(p))
	}
	sort.Strings(out)
	return out
}

// HasPermission — единственное место, где живёт admin-bypass.
// Все проверки доступа обязаны идти через резолвер, не дублируя его локально.
func HasPermission(roleStr string, custom []string, p Permission) bool {
	if ParseRole(roleStr) == RoleAdmin {
		return true
	}
	_, ok := Effective(roleStr, custom)[p]
	return ok
}

// HasAnyPermission — true, если есть хотя бы одно из perms.
func HasAnyPermission(roleStr string, custom []string, perms ...Permission) bool {
	if ParseRole(roleStr) == RoleAdmin {
		return true
	}
	set := Effective(roleStr, custom)
	for _, p := range perms {
		if _, ok := set[p]; ok {
			return true
		}
	}
	return false
}
