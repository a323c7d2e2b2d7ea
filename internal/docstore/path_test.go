package docstore

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestSplitPath(t *testing.T) {
	collections, parents, err := splitPath("users_authentication")
	require.NoError(t, err)
	require.Equal(t, []string{"users_authentication"}, collections)
	require.Empty(t, parents)

	collections, parents, err = splitPath("users_authentication/42/refresh_tokens")
	require.NoError(t, err)
	require.Equal(t, []string{"users_authentication", "refresh_tokens"}, collections)
	require.Equal(t, []string{"42"}, parents)
}

func TestSplitPathRejectsBadShapes(t *testing.T) {
	for _, path := range []string{
		"users_authentication/42",
		"users_authentication//refresh_tokens",
		"/users",
		"",
	} {
		_, _, err := splitPath(path)
		require.ErrorIs(t, err, ErrBadPath, "path %q", path)
	}
}

func TestCollectionName(t *testing.T) {
	name, err := CollectionName("users_authentication/42/refresh_tokens")
	require.NoError(t, err)
	require.Equal(t, "users_authentication.refresh_tokens", name)

	name, err = CollectionName("users")
	require.NoError(t, err)
	require.Equal(t, "users", name)

	_, err = CollectionName("users/42")
	require.ErrorIs(t, err, ErrBadPath)
}
