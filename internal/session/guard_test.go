package session

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/mmeshcher/shipping-admin/internal/model"
	"github.com/mmeshcher/shipping-admin/internal/permission"
	"github.com/mmeshcher/shipping-admin/internal/repository"
)

var testNow = time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)

func signToken(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("backend-secret"))
	require.NoError(t, err)
	return token
}

type stubPermissions struct {
	calls int
	perms []string
	err   error
}

func (s *stubPermissions) GetCurrentUserPermissions(ctx context.Context) ([]string, error) {
	s.calls++
	return s.perms, s.err
}

func newTestGuard(store Store, perms *stubPermissions) *Guard {
	g := NewGuard(store, func(token string) PermissionSource { return perms }, nil)
	g.now = func() time.Time { return testNow }
	return g
}

func TestDeriveRole(t *testing.T) {
	tests := []struct {
		name  string
		roles []string
		want  model.Role
	}{
		{name: "merchant wins over employee", roles: []string{"Merchant", "Employee"}, want: model.RoleMerchant},
		{name: "merchant wins over courier", roles: []string{"Courier", "Merchant"}, want: model.RoleMerchant},
		{name: "courier", roles: []string{"Courier"}, want: model.RoleCourier},
		{name: "no roles", roles: nil, want: model.RoleEmployee},
		{name: "employee", roles: []string{"Employee"}, want: model.RoleEmployee},
		{name: "case sensitive", roles: []string{"merchant"}, want: model.RoleEmployee},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, DeriveRole(tt.roles))
		})
	}
}

func TestDecode(t *testing.T) {
	token := signToken(t, jwt.MapClaims{
		"sub":         "u-1",
		"roles":       []string{"Courier"},
		"permissions": "Orders:ViewOrders",
		"exp":         testNow.Add(time.Hour).Unix(),
	})

	c, err := Decode(token)
	require.NoError(t, err)
	assert.Equal(t, "u-1", c.Subject)
	assert.Equal(t, []string{"Courier"}, c.Roles)
	assert.Equal(t, []string{"Orders:ViewOrders"}, c.Permissions)
	assert.Equal(t, testNow.Add(time.Hour).Unix(), c.ExpiresAt.Unix())
}

func TestDecodeMalformed(t *testing.T) {
	for _, token := range []string{"", "garbage", "a.b.c"} {
		_, err := Decode(token)
		assert.True(t, errors.Is(err, ErrMalformedToken), "token %q", token)
	}
}

func TestLogin_TokenPermissions(t *testing.T) {
	store := repository.NewMemoryStore()
	perms := &stubPermissions{}
	g := newTestGuard(store, perms)

	token := signToken(t, jwt.MapClaims{
		"sub":         "m-1",
		"roles":       []string{"Merchant", "Employee"},
		"permissions": []string{"Orders:ViewOrders", "Orders:AddOrders", "Reports:Unknown"},
		"exp":         testNow.Add(time.Hour).Unix(),
	})

	s, err := g.Login(context.Background(), token, Profile{FullName: "Shop"})
	require.NoError(t, err)

	assert.NotEmpty(t, s.ID)
	assert.Equal(t, "m-1", s.UserID)
	assert.Equal(t, model.RoleMerchant, s.Role)
	assert.True(t, g.HasPermission(s, permission.OrdersView))
	assert.True(t, g.HasPermission(s, permission.OrdersAdd))
	assert.False(t, g.HasPermission(s, permission.OrdersDelete))
	assert.Equal(t, 0, perms.calls)

	stored, err := store.Get(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, s.Role, stored.Role)
}

func TestLogin_FetchesPermissionsOnce(t *testing.T) {
	perms := &stubPermissions{perms: []string{"Orders:UpdateOrders"}}
	g := newTestGuard(repository.NewMemoryStore(), perms)

	token := signToken(t, jwt.MapClaims{"sub": "e-1", "exp": testNow.Add(time.Hour).Unix()})

	s, err := g.Login(context.Background(), token, Profile{})
	require.NoError(t, err)
	assert.Equal(t, model.RoleEmployee, s.Role)
	assert.True(t, g.HasPermission(s, permission.OrdersUpdate))
	assert.Equal(t, 1, perms.calls)

	_, err = g.Resolve(context.Background(), s.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, perms.calls)
}

func TestLogin_ExpiredToken(t *testing.T) {
	g := newTestGuard(repository.NewMemoryStore(), &stubPermissions{})
	token := signToken(t, jwt.MapClaims{"sub": "e-1", "exp": testNow.Add(-time.Minute).Unix()})

	_, err := g.Login(context.Background(), token, Profile{})
	assert.True(t, errors.Is(err, ErrTokenExpired))
}

func TestLogin_NoExpiry(t *testing.T) {
	g := newTestGuard(repository.NewMemoryStore(), &stubPermissions{})
	token := signToken(t, jwt.MapClaims{"sub": "e-1"})

	_, err := g.Login(context.Background(), token, Profile{})
	assert.True(t, errors.Is(err, ErrMalformedToken))

	s, err := g.Login(context.Background(), token, Profile{ExpiresAt: testNow.Add(time.Hour)})
	require.NoError(t, err)
	assert.Equal(t, testNow.Add(time.Hour), s.TokenExpiry)
}

func TestResolve_ExpiredSessionIsDestroyed(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	g := newTestGuard(store, &stubPermissions{})

	var destroyed []string
	g.OnDestroy(func(id string) { destroyed = append(destroyed, id) })

	require.NoError(t, store.Save(ctx, &model.Session{
		ID:          "s-old",
		UserID:      "u-1",
		Token:       "tkn",
		TokenExpiry: testNow.Add(-time.Second),
	}))

	_, err := g.Resolve(ctx, "s-old")
	assert.True(t, errors.Is(err, ErrNoSession))
	assert.Equal(t, []string{"s-old"}, destroyed)

	_, err = store.Get(ctx, "s-old")
	assert.True(t, errors.Is(err, repository.ErrSessionNotFound))
}

func TestResolve_FailsClosed(t *testing.T) {
	g := newTestGuard(failingStore{}, &stubPermissions{})

	_, err := g.Resolve(context.Background(), "")
	assert.True(t, errors.Is(err, ErrNoSession))

	_, err = g.Resolve(context.Background(), "s-1")
	assert.True(t, errors.Is(err, ErrNoSession))
}

func TestLogout_Unconditional(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	g := newTestGuard(store, &stubPermissions{})

	var destroyed []string
	g.OnDestroy(func(id string) { destroyed = append(destroyed, id) })

	token := signToken(t, jwt.MapClaims{"sub": "e-1", "exp": testNow.Add(time.Hour).Unix()})
	s, err := g.Login(ctx, token, Profile{})
	require.NoError(t, err)

	g.Logout(ctx, s.ID)
	g.Logout(ctx, s.ID)

	_, err = g.Resolve(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrNoSession))
	assert.Equal(t, []string{s.ID, s.ID}, destroyed)
}

func TestSweepNotifiesHooks(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	g := newTestGuard(store, &stubPermissions{})

	var destroyed []string
	g.OnDestroy(func(id string) { destroyed = append(destroyed, id) })

	require.NoError(t, store.Save(ctx, &model.Session{ID: "gone", TokenExpiry: testNow.Add(-time.Hour)}))
	g.sweep(ctx, store)

	assert.Equal(t, []string{"gone"}, destroyed)
}

type failingStore struct{}

func (failingStore) Save(ctx context.Context, s *model.Session) error { return errors.New("down") }
func (failingStore) Get(ctx context.Context, id string) (*model.Session, error) {
	return nil, errors.New("down")
}
func (failingStore) Delete(ctx context.Context, id string) error { return errors.New("down") }

// ttlStore ведёт себя как Redis: запись пропадает сама, DeleteExpired нет.
type ttlStore struct {
	sessions map[string]*model.Session
}

func newTTLStore() *ttlStore { return &ttlStore{sessions: make(map[string]*model.Session)} }

func (s *ttlStore) Save(ctx context.Context, sess *model.Session) error {
	s.sessions[sess.ID] = sess
	return nil
}

func (s *ttlStore) Get(ctx context.Context, id string) (*model.Session, error) {
	sess, ok := s.sessions[id]
	if !ok {
		return nil, repository.ErrSessionNotFound
	}
	return sess, nil
}

func (s *ttlStore) Delete(ctx context.Context, id string) error {
	if _, ok := s.sessions[id]; !ok {
		return repository.ErrSessionNotFound
	}
	delete(s.sessions, id)
	return nil
}

func (s *ttlStore) expire(id string) { delete(s.sessions, id) }

func TestResolve_KeyExpiredInStore(t *testing.T) {
	ctx := context.Background()
	store := newTTLStore()
	g := newTestGuard(store, &stubPermissions{})

	var destroyed []string
	g.OnDestroy(func(id string) { destroyed = append(destroyed, id) })

	token := signToken(t, jwt.MapClaims{"sub": "e-1", "exp": testNow.Add(time.Hour).Unix()})
	s, err := g.Login(ctx, token, Profile{})
	require.NoError(t, err)

	store.expire(s.ID)

	_, err = g.Resolve(ctx, s.ID)
	assert.True(t, errors.Is(err, ErrNoSession))
	assert.Equal(t, []string{s.ID}, destroyed)
}

func TestSweepWatched_DropsVanishedSessions(t *testing.T) {
	ctx := context.Background()
	store := newTTLStore()
	g := newTestGuard(store, &stubPermissions{})

	var destroyed []string
	g.OnDestroy(func(id string) { destroyed = append(destroyed, id) })

	token := signToken(t, jwt.MapClaims{"sub": "e-1", "exp": testNow.Add(time.Hour).Unix()})
	alive, err := g.Login(ctx, token, Profile{})
	require.NoError(t, err)
	gone, err := g.Login(ctx, token, Profile{})
	require.NoError(t, err)

	g.Watch(func() []string { return []string{alive.ID, gone.ID} })
	store.expire(gone.ID)

	g.sweepWatched(ctx)

	assert.Equal(t, []string{gone.ID}, destroyed)
}

func TestResolve_MalformedStoredToken(t *testing.T) {
	ctx := context.Background()
	store := repository.NewMemoryStore()
	g := newTestGuard(store, &stubPermissions{})

	var destroyed []string
	g.OnDestroy(func(id string) { destroyed = append(destroyed, id) })

	require.NoError(t, store.Save(ctx, &model.Session{
		ID:          "s-bad",
		UserID:      "u-1",
		Token:       "not-a-token",
		TokenExpiry: testNow.Add(time.Hour),
	}))

	_, err := g.Resolve(ctx, "s-bad")
	assert.True(t, errors.Is(err, ErrNoSession))
	assert.Equal(t, []string{"s-bad"}, destroyed)

	_, err = store.Get(ctx, "s-bad")
	assert.True(t, errors.Is(err, repository.ErrSessionNotFound))
}
