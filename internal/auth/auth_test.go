package auth

import (
	"context"
	"crypto/ed25519"
	"crypto/rand"
	"os"
	"path/filepath"
	"testing"

	"go-maintdash/internal/store"

	"github.com/charmbracelet/ssh"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gossh "golang.org/x/crypto/ssh"
)

func newAuth(t *testing.T, keysFile string) (*Authenticator, store.Store) {
	t.Helper()
	st := store.NewSQLite(filepath.Join(t.TempDir(), "auth.db"))
	require.NoError(t, st.Init(context.Background()))
	t.Cleanup(func() { st.Close() })
	return New(st, nil, keysFile), st
}

func newKey(t *testing.T) ssh.PublicKey {
	t.Helper()
	pub, _, err := ed25519.GenerateKey(rand.Reader)
	require.NoError(t, err)
	key, err := gossh.NewPublicKey(pub)
	require.NoError(t, err)
	return key
}

func TestLoginRecordsEvent(t *testing.T) {
	a, st := newAuth(t, "")
	ctx := context.Background()
	_, err := a.CreateUser(ctx, "Ops", "Ops@Example.com", "hunter2", "", "")
	require.NoError(t, err)

	id, err := a.Login(ctx, "ops@example.com", "hunter2")
	require.NoError(t, err)
	assert.Equal(t, "Ops", id.Name)
	assert.Equal(t, "ops@example.com", id.Email)

	events, err := st.ListLogins(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, MethodPassword, events[0].Method)
	assert.Equal(t, "ops@example.com", events[0].Email)
}

func TestLoginRejects(t *testing.T) {
	a, st := newAuth(t, "")
	ctx := context.Background()
	_, err := a.CreateUser(ctx, "Ops", "ops@example.com", "hunter2", "", "")
	require.NoError(t, err)

	for name, creds := range map[string][2]string{
		"wrong password": {"ops@example.com", "nope"},
		"unknown user":   {"who@example.com", "hunter2"},
		"empty":          {"", ""},
	} {
		t.Run(name, func(t *testing.T) {
			_, err := a.Login(ctx, creds[0], creds[1])
			assert.ErrorIs(t, err, ErrInvalidCredentials)
		})
	}

	events, err := st.ListLogins(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, events)
}

func TestAuthorizeKeyFromUser(t *testing.T) {
	a, st := newAuth(t, "")
	ctx := context.Background()
	key := newKey(t)

	_, err := a.CreateUser(ctx, "Ops", "ops@example.com", "", string(gossh.MarshalAuthorizedKey(key)), RoleAdmin)
	require.NoError(t, err)

	id, err := a.AuthorizeKey(ctx, "ops", key)
	require.NoError(t, err)
	assert.Equal(t, "ops@example.com", id.Email)

	events, err := st.ListLogins(ctx, 10)
	require.NoError(t, err)
	require.Len(t, events, 1)
	assert.Equal(t, MethodSSH, events[0].Method)

	_, err = a.AuthorizeKey(ctx, "ops", newKey(t))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthorizeKeyFromFile(t *testing.T) {
	key := newKey(t)
	path := filepath.Join(t.TempDir(), "authorized_keys")
	line := "# comment\n" + FormatKey(key) + " alice@laptop\n"
	require.NoError(t, os.WriteFile(path, []byte(line), 0o600))

	a, _ := newAuth(t, path)
	id, err := a.AuthorizeKey(context.Background(), "alice", key)
	require.NoError(t, err)
	assert.Equal(t, "alice@laptop", id.Name)

	_, err = a.AuthorizeKey(context.Background(), "mallory", newKey(t))
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestCreateUserValidation(t *testing.T) {
	a, _ := newAuth(t, "")
	ctx := context.Background()

	_, err := a.CreateUser(ctx, "", "", "pw", "", "")
	assert.Error(t, err)
	_, err = a.CreateUser(ctx, "", "a@example.com", "", "", "")
	assert.Error(t, err)
	_, err = a.CreateUser(ctx, "", "a@example.com", "", "not a key", "")
	assert.Error(t, err)

	u, err := a.CreateUser(ctx, "", "a@example.com", "pw", "", "")
	require.NoError(t, err)
	assert.Equal(t, "a@example.com", u.Name)
	assert.Equal(t, RoleUser, u.Role)
	assert.NotEqual(t, "pw", u.PasswordHash)
}
