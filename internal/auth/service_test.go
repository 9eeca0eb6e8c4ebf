package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/bizdesk/bizdesk/internal/shared"
)

type stubProvider struct {
	users  map[string]string
	err    error
	signUp int
}

func (s *stubProvider) SignIn(_ context.Context, email, password string) (User, error) {
	if s.err != nil {
		return User{}, s.err
	}
	if pw, ok := s.users[email]; ok && pw == password {
		return User{ID: "uid-" + email, Email: email}, nil
	}
	return User{}, errors.New("invalid_grant")
}

func (s *stubProvider) SignUp(_ context.Context, email, password string) (User, error) {
	s.signUp++
	if s.err != nil {
		return User{}, s.err
	}
	if _, ok := s.users[email]; ok {
		return User{}, shared.ErrDuplicate
	}
	s.users[email] = password
	return User{ID: "uid-" + email, Email: email}, nil
}

func newOwnerSet(t *testing.T) *OwnerSet {
	t.Helper()
	mr := miniredis.RunT(t)
	client := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return NewOwnerSet(client)
}

func TestAuthenticateTracksOwner(t *testing.T) {
	owners := newOwnerSet(t)
	svc := NewService(&stubProvider{users: map[string]string{"ana@loja.com": "segredo1"}}, owners, nil)

	user, err := svc.Authenticate(context.Background(), " ana@loja.com ", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, "uid-ana@loja.com", user.ID)

	members, err := owners.Members(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []string{"uid-ana@loja.com"}, members)
}

func TestAuthenticateRejections(t *testing.T) {
	svc := NewService(&stubProvider{users: map[string]string{"ana@loja.com": "segredo1"}}, nil, nil)

	_, err := svc.Authenticate(context.Background(), "ana@loja.com", "errada")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "", "segredo1")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)

	_, err = svc.Authenticate(context.Background(), "ana@loja.com", "")
	assert.ErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestAuthenticateKeepsBackendFailures(t *testing.T) {
	boom := errors.Join(shared.ErrBackend, errors.New("timeout"))
	svc := NewService(&stubProvider{err: boom}, nil, nil)

	_, err := svc.Authenticate(context.Background(), "ana@loja.com", "segredo1")
	assert.ErrorIs(t, err, shared.ErrBackend)
	assert.NotErrorIs(t, err, shared.ErrInvalidCredentials)
}

func TestRegisterValidatesEmail(t *testing.T) {
	provider := &stubProvider{users: map[string]string{}}
	svc := NewService(provider, nil, nil)

	for _, email := range []string{"ana", "ana@loja", "ana@loja.c", "@loja.com", "ana @loja.com"} {
		_, err := svc.Register(context.Background(), email, "segredo1")
		require.ErrorIs(t, err, shared.ErrInvalidInput, email)
		assert.Equal(t, "Email inválido. Certifique-se de incluir um domínio válido.", shared.UserSafeMessage(err))
	}
	assert.Zero(t, provider.signUp)

	_, err := svc.Register(context.Background(), "ana@loja.com.br", "123")
	assert.ErrorIs(t, err, shared.ErrInvalidInput)

	user, err := svc.Register(context.Background(), "ana@loja.com.br", "segredo1")
	require.NoError(t, err)
	assert.Equal(t, "ana@loja.com.br", user.Email)

	_, err = svc.Register(context.Background(), "ana@loja.com.br", "segredo1")
	assert.ErrorIs(t, err, shared.ErrDuplicate)
}

func TestValidEmail(t *testing.T) {
	assert.True(t, ValidEmail("joao.silva+loja@empresa.com.br"))
	assert.False(t, ValidEmail("joao@empresa"))
}
