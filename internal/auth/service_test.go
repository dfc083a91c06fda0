package auth

import (
	"context"
	"io"
	"strings"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/sudo-init-do/agricompass/internal/apperr"
	"github.com/sudo-init-do/agricompass/internal/identity"
	"github.com/sudo-init-do/agricompass/internal/store"
	"github.com/sudo-init-do/agricompass/internal/user"
)

func newTestService(t *testing.T) (*Service, *store.Memory) {
	t.Helper()
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := store.NewMemory()
	return NewService(st, NewTokenIssuer("test-secret"), bcrypt.MinCost, log), st
}

func signupAmara(t *testing.T, svc *Service) Session {
	t.Helper()
	sess, err := svc.Signup(context.Background(), SignupRequest{
		Name: "Amara", Email: "a@x.com", Password: "pw123", Role: identity.RoleFarmer,
	})
	require.NoError(t, err)
	return sess
}

func TestSignup(t *testing.T) {
	svc, st := newTestService(t)
	sess := signupAmara(t, svc)

	assert.NotEmpty(t, sess.ID)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, identity.RoleFarmer, sess.Role)
	assert.Equal(t, "Amara", sess.Name)

	rec, err := st.FindOne(context.Background(), store.Users, store.Where(store.ByID(sess.ID)))
	require.NoError(t, err)
	var u user.User
	require.NoError(t, rec.Decode(&u))
	assert.False(t, u.Verified)
	assert.Equal(t, sess.Token, u.Token)
	assert.NotEqual(t, "pw123", u.PasswordHash)
	assert.NoError(t, bcrypt.CompareHashAndPassword([]byte(u.PasswordHash), []byte("pw123")))
}

func TestSignupDefaultsRoleToFarmer(t *testing.T) {
	svc, _ := newTestService(t)
	sess, err := svc.Signup(context.Background(), SignupRequest{Name: "Kwame", Email: "k@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, identity.RoleFarmer, sess.Role)
}

func TestSignupDuplicateEmailConflicts(t *testing.T) {
	svc, _ := newTestService(t)
	signupAmara(t, svc)

	_, err := svc.Signup(context.Background(), SignupRequest{
		Name: "Other", Email: "A@X.com ", Password: "different", Role: identity.RoleBuyer,
	})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindConflict))
}

func TestSignupValidation(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	cases := map[string]SignupRequest{
		"bad role":      {Name: "A", Email: "a@x.com", Password: "pw", Role: "chef"},
		"bad email":     {Name: "A", Email: "not-an-email", Password: "pw"},
		"missing name":  {Email: "a@x.com", Password: "pw"},
		"missing passw": {Name: "A", Email: "a@x.com"},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Signup(ctx, req)
			assert.True(t, apperr.Is(err, apperr.KindBadRequest), err)
		})
	}
}

func TestSignupPasswordLimitCountsBytes(t *testing.T) {
	svc, _ := newTestService(t)
	ctx := context.Background()

	// 40 characters, 80 bytes
	_, err := svc.Signup(ctx, SignupRequest{Name: "A", Email: "a@x.com", Password: strings.Repeat("é", 40)})
	require.Error(t, err)
	assert.True(t, apperr.Is(err, apperr.KindBadRequest), err)

	_, err = svc.Signup(ctx, SignupRequest{Name: "A", Email: "a@x.com", Password: strings.Repeat("é", 36)})
	assert.NoError(t, err)
}

func TestLogin(t *testing.T) {
	svc, _ := newTestService(t)
	signed := signupAmara(t, svc)
	ctx := context.Background()

	first, err := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, signed.ID, first.ID)
	assert.Equal(t, signed.Token, first.Token)

	second, err := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	signupAmara(t, svc)
	ctx := context.Background()

	_, err := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "wrong"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	_, err = svc.Login(ctx, LoginRequest{Email: "nobody@x.com", Password: "pw123"})
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}

func TestLoginIssuesTokenLazily(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	rec, err := st.Create(ctx, store.Users, user.User{Name: "Legacy", Email: "l@x.com", PasswordHash: string(hash), Role: identity.RoleBuyer})
	require.NoError(t, err)

	sess, err := svc.Login(ctx, LoginRequest{Email: "l@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.NotEmpty(t, sess.Token)
	assert.Equal(t, rec.ID, sess.ID)

	caller, err := svc.Resolve(ctx, "Bearer "+sess.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.Caller{ID: rec.ID, Role: identity.RoleBuyer, Name: "Legacy"}, caller)

	again, err := svc.Login(ctx, LoginRequest{Email: "l@x.com", Password: "pw"})
	require.NoError(t, err)
	assert.Equal(t, sess.Token, again.Token)
}

func TestConcurrentLoginsAgreeOnToken(t *testing.T) {
	svc, st := newTestService(t)
	ctx := context.Background()
	hash, err := bcrypt.GenerateFromPassword([]byte("pw"), bcrypt.MinCost)
	require.NoError(t, err)
	_, err = st.Create(ctx, store.Users, user.User{Name: "Legacy", Email: "l@x.com", PasswordHash: string(hash), Role: identity.RoleBuyer})
	require.NoError(t, err)

	const n = 8
	tokens := make([]string, n)
	var wg sync.WaitGroup
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sess, err := svc.Login(ctx, LoginRequest{Email: "l@x.com", Password: "pw"})
			if assert.NoError(t, err) {
				tokens[i] = sess.Token
			}
		}(i)
	}
	wg.Wait()

	for _, tok := range tokens[1:] {
		assert.Equal(t, tokens[0], tok)
	}
}

func TestResolve(t *testing.T) {
	svc, _ := newTestService(t)
	sess := signupAmara(t, svc)
	ctx := context.Background()

	caller, err := svc.Resolve(ctx, "Bearer "+sess.Token)
	require.NoError(t, err)
	assert.Equal(t, identity.Caller{ID: sess.ID, Role: identity.RoleFarmer, Name: "Amara"}, caller)

	caller, err = svc.Resolve(ctx, "bearer  "+sess.Token)
	require.NoError(t, err)
	assert.Equal(t, sess.ID, caller.ID)

	foreign, err := NewTokenIssuer("test-secret").Issue(sess.ID, identity.RoleAdmin)
	require.NoError(t, err)

	for _, header := range []string{"", "Bearer", "Bearer ", "Basic " + sess.Token, sess.Token, "Bearer garbage", "Bearer " + foreign} {
		_, err := svc.Resolve(ctx, header)
		assert.True(t, apperr.Is(err, apperr.KindUnauthorized), "header %q", header)
	}
}

func TestLogoutRevokesToken(t *testing.T) {
	svc, _ := newTestService(t)
	sess := signupAmara(t, svc)
	ctx := context.Background()

	caller, err := svc.Resolve(ctx, "Bearer "+sess.Token)
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, caller))

	_, err = svc.Resolve(ctx, "Bearer "+sess.Token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))

	fresh, err := svc.Login(ctx, LoginRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	assert.NotEqual(t, sess.Token, fresh.Token)
	_, err = svc.Resolve(ctx, "Bearer "+fresh.Token)
	assert.NoError(t, err)
}

func TestLoginReplacesTokenFromRotatedSecret(t *testing.T) {
	log := logrus.New()
	log.SetOutput(io.Discard)
	st := store.NewMemory()
	ctx := context.Background()
	before := NewService(st, NewTokenIssuer("secret-A"), bcrypt.MinCost, log)
	after := NewService(st, NewTokenIssuer("secret-B"), bcrypt.MinCost, log)

	old := signupAmara(t, before)

	first, err := after.Login(ctx, LoginRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	assert.NotEqual(t, old.Token, first.Token)
	caller, err := after.Resolve(ctx, "Bearer "+first.Token)
	require.NoError(t, err)
	assert.Equal(t, old.ID, caller.ID)

	second, err := after.Login(ctx, LoginRequest{Email: "a@x.com", Password: "pw123"})
	require.NoError(t, err)
	assert.Equal(t, first.Token, second.Token)

	_, err = after.Resolve(ctx, "Bearer "+old.Token)
	assert.True(t, apperr.Is(err, apperr.KindUnauthorized))
}
