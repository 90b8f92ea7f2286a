package service

import (
	"testing"

	"portal/internal/apperror"
	"portal/internal/repository"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var listAll = repository.ListOptions{Page: 1, Limit: 100}

func TestUserService_LoginAndTokens(t *testing.T) {
	f := newFixture(t)
	created, err := f.users.CreateUser(f.ctx, System, CreateUserRequest{Username: "alice", Password: "secret1", Email: "alice@example.com"})
	require.NoError(t, err)

	_, err = f.users.Login(f.ctx, LoginUserRequest{Username: "alice", Password: "wrong"})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))
	_, err = f.users.Login(f.ctx, LoginUserRequest{Username: "nobody", Password: "secret1"})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	tokens, err := f.users.Login(f.ctx, LoginUserRequest{Username: "alice", Password: "secret1"})
	require.NoError(t, err)

	id, err := f.users.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, created.ID, id)

	// A refresh token is not an access token.
	_, err = f.users.ParseAccessToken(tokens.RefreshToken)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	refreshed, err := f.users.Refresh(f.ctx, tokens.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	_, err = f.users.Refresh(f.ctx, tokens.AccessToken)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	p, err := f.users.PrincipalFor(f.ctx, id)
	require.NoError(t, err)
	me, err := f.users.Me(f.ctx, p)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	require.NotNil(t, me.Profile)
	assert.Equal(t, 10, me.Profile.PageSize)
}

func TestUserService_CreateUser(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")

	_, err := f.users.CreateUser(f.ctx, alice, CreateUserRequest{Username: "bob", Password: "secret1"})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	_, err = f.users.CreateUser(f.ctx, System, CreateUserRequest{Username: "bob", Password: "123"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.users.CreateUser(f.ctx, System, CreateUserRequest{Username: "bob", Password: "secret1", Email: "not-an-email"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.users.CreateUser(f.ctx, System, CreateUserRequest{Username: "alice", Password: "secret1"})
	assert.True(t, apperror.Is(err, apperror.KindConflict))
}

func TestUserService_ExternalSignInCreatesProfile(t *testing.T) {
	f := newFixture(t)

	tokens, err := f.users.AuthenticateExternal(f.ctx, "carol", "carol@example.com")
	require.NoError(t, err)
	id, err := f.users.ParseAccessToken(tokens.AccessToken)
	require.NoError(t, err)

	profile, err := f.userRepo.GetProfile(f.ctx, id)
	require.NoError(t, err)
	assert.Equal(t, id, profile.UserID)

	// Signing in again reuses the account and the profile.
	again, err := f.users.AuthenticateExternal(f.ctx, "carol", "")
	require.NoError(t, err)
	againID, err := f.users.ParseAccessToken(again.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, id, againID)
}

func TestUserService_Whitelist(t *testing.T) {
	f := newFixture(t, func(o *fixtureOptions) { o.whitelist = []string{"carol"} })

	_, err := f.users.AuthenticateExternal(f.ctx, "mallory", "")
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))
	_, err = f.userRepo.GetByUsername(f.ctx, "mallory")
	assert.True(t, apperror.Is(err, apperror.KindNotFound))

	_, err = f.users.AuthenticateExternal(f.ctx, "carol", "")
	assert.NoError(t, err)
}

func TestUserService_UpdateProfile(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	bob := f.user("bob", false, "")
	admin := f.user("admin", true, "")

	_, err := f.users.UpdateProfile(f.ctx, alice, alice.ID.String(), UpdateProfileRequest{CostRate: ptr("90")})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	_, err = f.users.UpdateProfile(f.ctx, bob, alice.ID.String(), UpdateProfileRequest{Mail: ptr(true)})
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	_, err = f.users.UpdateProfile(f.ctx, alice, alice.ID.String(), UpdateProfileRequest{PageSize: ptr(0)})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	updated, err := f.users.UpdateProfile(f.ctx, admin, alice.ID.String(), UpdateProfileRequest{CostRate: ptr("90")})
	require.NoError(t, err)
	require.NotNil(t, updated.Profile.CostRate)
	assert.Equal(t, "90.00", *updated.Profile.CostRate)

	p, err := f.users.PrincipalFor(f.ctx, alice.ID)
	require.NoError(t, err)
	require.NotNil(t, p.Profile)
	assert.Equal(t, "90.00", p.Profile.CostRate.Decimal.StringFixed(2))

	// Clearing the rate.
	updated, err = f.users.UpdateProfile(f.ctx, admin, alice.ID.String(), UpdateProfileRequest{CostRate: ptr("")})
	require.NoError(t, err)
	assert.Nil(t, updated.Profile.CostRate)
}

func TestUserService_ListUsersSuperuserOnly(t *testing.T) {
	f := newFixture(t)
	alice := f.user("alice", false, "")
	admin := f.user("admin", true, "")

	_, _, err := f.users.ListUsers(f.ctx, alice, listAll)
	assert.True(t, apperror.Is(err, apperror.KindPermissionDenied))

	users, total, err := f.users.ListUsers(f.ctx, admin, listAll)
	require.NoError(t, err)
	assert.EqualValues(t, 2, total)
	assert.Len(t, users, 2)
}

func TestUserService_RejectsControlCharactersInUsername(t *testing.T) {
	f := newFixture(t)

	_, err := f.users.AuthenticateExternal(f.ctx, "josé\r\nBcc: attacker@evil.test", "")
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.users.CreateUser(f.ctx, System, CreateUserRequest{Username: "two words", Password: "secret1"})
	assert.True(t, apperror.Is(err, apperror.KindValidation))

	_, err = f.users.AuthenticateExternal(f.ctx, "josé", "")
	assert.NoError(t, err)
}
