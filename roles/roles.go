package roles

import "strings"

// Name is one of the fixed role names the dashboard understands
type Name string

const (
	Administrador Name = "Administrador" // Full access, user management
	Entrenador    Name = "Entrenador"    // Coaches, read reports
	Asistente     Name = "Asistente"     // Front desk, products and checkout
	Padre         Name = "Padre"         // Parent of a student
	Estudiante    Name = "Estudiante"    // Student
)

// Hierarchy is the priority order used to pick a user's primary role
var Hierarchy = []Name{Administrador, Entrenador, Asistente, Padre, Estudiante}

// Role is a role record as issued by the backend
type Role struct {
	ID          int    `json:"id" yaml:"id"`
	Name        Name   `json:"name" yaml:"name"`
	Description string `json:"description,omitempty" yaml:"description,omitempty"`
	Icon        string `json:"icon,omitempty" yaml:"icon,omitempty"`
}

// Ref is the minimal role reference embedded in a login response; only the ID is trusted
type Ref struct {
	ID int `json:"id"`
}

func (n Name) String() string {
	return string(n)
}

// Valid reports whether n is part of the closed role set
func (n Name) Valid() bool {
	for _, h := range Hierarchy {
		if n == h {
			return true
		}
	}
	return false
}

// ParseName matches a role name case-insensitively against the closed set
func ParseName(s string) (Name, bool) {
	s = strings.TrimSpace(s)
	for _, h := range Hierarchy {
		if strings.EqualFold(s, string(h)) {
			return h, true
		}
	}
	return "", false
}
