package domain

const (
	// RoleAdmin is the role_type of administrators
	RoleAdmin = 1

	MaxDisplayNameLength = 30
	MaxContactURILength  = 255
)

// HasRole reports whether roles contains role
func HasRole(roles []int, role int) bool {
	for _, r := range roles {
		if r == role {
			return true
		}
	}
	return false
}
