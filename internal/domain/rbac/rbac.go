// Пакет rbac — роли Vocal Module и проверка принадлежности.
// Роли НЕ образуют иерархию: admin не включает researcher.
// Доступ к операции определяется явным членством в требуемой роли.
package rbac

// Допустимые роли. Закрытое перечисление.
const (
	RoleResearcher = "researcher"
	RoleAdmin      = "admin"
)

// validRoles — множество допустимых ролей.
var validRoles = map[string]bool{
	RoleResearcher: true,
	RoleAdmin:      true,
}

// IsValidRole проверяет, является ли строка допустимой ролью.
func IsValidRole(role string) bool {
	return validRoles[role]
}

// Filter отбрасывает неизвестные роли из набора.
// Порядок сохраняется, дубликаты не схлопываются.
func Filter(roles []string) []string {
	var out []string
	for _, r := range roles {
		if validRoles[r] {
			out = append(out, r)
		}
	}
	return out
}

// HasRole проверяет наличие конкретной роли в наборе.
// Никакого сравнения «по весу»: роли равноправны.
func HasRole(roles []string, role string) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}

// HasAnyRole проверяет наличие хотя бы одной из требуемых ролей.
func HasAnyRole(roles []string, required ...string) bool {
	for _, req := range required {
		if HasRole(roles, req) {
			return true
		}
	}
	return false
}
