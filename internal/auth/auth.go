// Package auth verifies operator credentials and keeps the login audit trail.
package auth

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"go-maintdash/internal/models"
	"go-maintdash/internal/session"
	"go-maintdash/internal/store"

	"github.com/charmbracelet/ssh"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
	gossh "golang.org/x/crypto/ssh"
)

const (
	MethodPassword = "password"
	MethodSSH      = "ssh"

	RoleAdmin = "admin"
	RoleUser  = "user"
)

var ErrInvalidCredentials = errors.New("auth: invalid credentials")

type Authenticator struct {
	store          store.Store
	logger         *zap.Logger
	authorizedKeys string
	now            func() time.Time
}

// New builds an authenticator. authorizedKeys is an optional authorized_keys
// file whose entries are accepted for SSH in addition to user keys.
func New(st store.Store, logger *zap.Logger, authorizedKeys string) *Authenticator {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Authenticator{store: st, logger: logger, authorizedKeys: authorizedKeys, now: time.Now}
}

// Login checks the password against the stored bcrypt hash and records the
// login. Unknown users and wrong passwords are indistinguishable.
func (a *Authenticator) Login(ctx context.Context, email, password string) (session.Identity, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return session.Identity{}, ErrInvalidCredentials
	}
	u, err := a.store.FindUserByEmail(ctx, email)
	if errors.Is(err, store.ErrNotFound) {
		return session.Identity{}, ErrInvalidCredentials
	}
	if err != nil {
		return session.Identity{}, err
	}
	if u.PasswordHash == "" || bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte(password)) != nil {
		a.logger.Warn("login rejected", zap.String("email", email))
		return session.Identity{}, ErrInvalidCredentials
	}
	id := session.Identity{Name: u.Name, Email: u.Email}
	a.record(ctx, id, MethodPassword)
	return id, nil
}

// AuthorizeKey resolves an SSH public key to an identity. Keys registered on
// a user win over entries from the authorized_keys file.
func (a *Authenticator) AuthorizeKey(ctx context.Context, user string, key ssh.PublicKey) (session.Identity, error) {
	u, err := a.store.FindUserByPublicKey(ctx, FormatKey(key))
	switch {
	case err == nil:
		id := session.Identity{Name: u.Name, Email: u.Email}
		a.record(ctx, id, MethodSSH)
		return id, nil
	case !errors.Is(err, store.ErrNotFound):
		return session.Identity{}, err
	}

	comment, ok := a.fileAllows(key)
	if !ok {
		return session.Identity{}, ErrInvalidCredentials
	}
	name := comment
	if name == "" {
		name = user
	}
	id := session.Identity{Name: name}
	a.record(ctx, id, MethodSSH)
	return id, nil
}

func (a *Authenticator) fileAllows(key ssh.PublicKey) (string, bool) {
	if a.authorizedKeys == "" {
		return "", false
	}
	data, err := os.ReadFile(a.authorizedKeys)
	if err != nil {
		return "", false
	}
	for len(data) > 0 {
		allowed, comment, _, rest, err := ssh.ParseAuthorizedKey(data)
		if err != nil {
			data = rest
			continue
		}
		if ssh.KeysEqual(allowed, key) {
			return comment, true
		}
		data = rest
	}
	return "", false
}

// record appends a login event. A failed write is logged and does not reject
// the login.
func (a *Authenticator) record(ctx context.Context, id session.Identity, method string) {
	ev := &models.LoginEvent{Name: id.Name, Email: id.Email, Method: method, At: a.now()}
	if err := a.store.RecordLogin(ctx, ev); err != nil {
		a.logger.Error("record login", zap.String("email", id.Email), zap.Error(err))
	}
}

// CreateUser hashes the password and stores a new user. publicKey may be
// empty or a single authorized_keys line.
func (a *Authenticator) CreateUser(ctx context.Context, name, email, password, publicKey, role string) (models.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return models.User{}, errors.New("auth: email is required")
	}
	if password == "" && publicKey == "" {
		return models.User{}, errors.New("auth: a password or public key is required")
	}
	if role == "" {
		role = RoleUser
	}
	u := models.User{Name: strings.TrimSpace(name), Email: email, Role: role}
	if u.Name == "" {
		u.Name = email
	}
	if password != "" {
		hash, err := HashPassword(password)
		if err != nil {
			return models.User{}, err
		}
		u.PasswordHash = hash
	}
	if publicKey != "" {
		key, _, _, _, err := ssh.ParseAuthorizedKey([]byte(publicKey))
		if err != nil {
			return models.User{}, fmt.Errorf("auth: public key: %w", err)
		}
		u.PublicKey = FormatKey(key)
	}
	if err := a.store.AddUser(ctx, &u); err != nil {
		return models.User{}, err
	}
	return u, nil
}

func HashPassword(password string) (string, error) {
	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return "", fmt.Errorf("auth: hash password: %w", err)
	}
	return string(hash), nil
}

// FormatKey renders a key as "type base64" without comment.
func FormatKey(key ssh.PublicKey) string {
	return strings.TrimSpace(string(gossh.MarshalAuthorizedKey(key)))
}
