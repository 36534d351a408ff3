package roles_test

import (
	"testing"

	"github.com/jrsteele09/aqua-control/roles"
	"github.com/stretchr/testify/require"
)

func reversed(in []roles.Name) []roles.Name {
	out := make([]roles.Name, len(in))
	for i, n := range in {
		out[len(in)-1-i] = n
	}
	return out
}

func TestHasAnyRole(t *testing.T) {
	cases := []struct {
		name    string
		user    []roles.Name
		allowed []roles.Name
		want    bool
	}{
		{"overlap", []roles.Name{roles.Padre, roles.Entrenador}, []roles.Name{roles.Entrenador}, true},
		{"disjoint", []roles.Name{roles.Entrenador}, []roles.Name{roles.Administrador}, false},
		{"empty user", nil, []roles.Name{roles.Administrador}, false},
		{"empty allowed", []roles.Name{roles.Administrador}, nil, false},
		{"unrecognized name", []roles.Name{"Director"}, []roles.Name{roles.Administrador}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, roles.HasAnyRole(tc.user, tc.allowed))
			require.Equal(t, tc.want, roles.HasAnyRole(reversed(tc.user), reversed(tc.allowed)))
		})
	}
}

func TestHasAllRoles(t *testing.T) {
	cases := []struct {
		name     string
		user     []roles.Name
		required []roles.Name
		want     bool
	}{
		{"subset", []roles.Name{roles.Administrador, roles.Padre, roles.Entrenador}, []roles.Name{roles.Padre, roles.Administrador}, true},
		{"missing one", []roles.Name{roles.Administrador}, []roles.Name{roles.Administrador, roles.Padre}, false},
		{"empty required", []roles.Name{roles.Estudiante}, nil, true},
		{"empty user", nil, []roles.Name{roles.Estudiante}, false},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			require.Equal(t, tc.want, roles.HasAllRoles(tc.user, tc.required))
			require.Equal(t, tc.want, roles.HasAllRoles(reversed(tc.user), reversed(tc.required)))
		})
	}
}

func TestNamedPredicates(t *testing.T) {
	require.True(t, roles.IsAdmin([]roles.Name{roles.Padre, roles.Administrador}))
	require.False(t, roles.IsAdmin([]roles.Name{roles.Entrenador}))

	require.True(t, roles.CanAccessProducts([]roles.Name{roles.Asistente}))
	require.True(t, roles.CanAccessProducts([]roles.Name{roles.Administrador}))
	require.False(t, roles.CanAccessProducts([]roles.Name{roles.Entrenador}))

	require.True(t, roles.CanAccessReports([]roles.Name{roles.Entrenador}))
	require.False(t, roles.CanAccessReports([]roles.Name{roles.Asistente, roles.Padre}))
}

func TestPrimaryRole(t *testing.T) {
	t.Run("hierarchy order wins over input order", func(t *testing.T) {
		got, ok := roles.PrimaryRole([]roles.Name{roles.Estudiante, roles.Padre, roles.Entrenador})
		require.True(t, ok)
		require.Equal(t, roles.Entrenador, got)
	})

	t.Run("unrecognized names are skipped", func(t *testing.T) {
		got, ok := roles.PrimaryRole([]roles.Name{"Director", roles.Estudiante})
		require.True(t, ok)
		require.Equal(t, roles.Estudiante, got)
	})

	t.Run("none", func(t *testing.T) {
		_, ok := roles.PrimaryRole(nil)
		require.False(t, ok)
		_, ok = roles.PrimaryRole([]roles.Name{"Director"})
		require.False(t, ok)
	})
}

func TestParseName(t *testing.T) {
	n, ok := roles.ParseName(" administrador ")
	require.True(t, ok)
	require.Equal(t, roles.Administrador, n)
	require.True(t, n.Valid())

	_, ok = roles.ParseName("Director")
	require.False(t, ok)
	require.False(t, roles.Name("Director").Valid())
}
