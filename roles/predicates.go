package roles

// Fixed policy subsets for the dashboard sections
var (
	AdminRoles    = []Name{Administrador}
	ProductsRoles = []Name{Administrador, Asistente}
	ReportsRoles  = []Name{Administrador, Entrenador}
)

// HasAnyRole is true when the user holds at least one of the allowed roles
func HasAnyRole(user, allowed []Name) bool {
	for _, a := range allowed {
		if contains(user, a) {
			return true
		}
	}
	return false
}

// HasAllRoles is true when every required role is held by the user
func HasAllRoles(user, required []Name) bool {
	for _, r := range required {
		if !contains(user, r) {
			return false
		}
	}
	return true
}

func IsAdmin(user []Name) bool {
	return HasAnyRole(user, AdminRoles)
}

func CanAccessProducts(user []Name) bool {
	return HasAnyRole(user, ProductsRoles)
}

func CanAccessReports(user []Name) bool {
	return HasAnyRole(user, ReportsRoles)
}

// PrimaryRole returns the highest-priority role the user holds
func PrimaryRole(user []Name) (Name, bool) {
	for _, h := range Hierarchy {
		if contains(user, h) {
			return h, true
		}
	}
	return "", false
}

func contains(names []Name, n Name) bool {
	for _, v := range names {
		if v == n {
			return true
		}
	}
	return false
}
