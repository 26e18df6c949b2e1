package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/dmitrijs2005/shipledger/internal/common"
	"github.com/dmitrijs2005/shipledger/internal/logging"
	"github.com/dmitrijs2005/shipledger/internal/server/auth"
	"github.com/dmitrijs2005/shipledger/internal/server/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newAuthService(t *testing.T) (*AuthService, *fixture) {
	t.Helper()
	f := newFixture(t)
	f.rm.u.byEmail["ann@example.com"] = &models.Account{
		ID: 5, Name: "Ann", Email: "ann@example.com", PasswordHash: "hash:secret",
		Role: models.RoleDevAdmin, Active: true,
	}
	f.rm.u.byEmail["off@example.com"] = &models.Account{
		ID: 6, Name: "Off", Email: "off@example.com", PasswordHash: "hash:secret",
		Role: models.RoleUser, Active: false,
	}
	signer := auth.NewTokenSigner([]byte("test-secret"))
	return NewAuthService(f.db, f.rm, f.hasher, signer, time.Hour, logging.Nop()), f
}

func TestLogin_Success(t *testing.T) {
	s, _ := newAuthService(t)

	res, err := s.Login(context.Background(), " ann@example.com ", "secret")
	require.NoError(t, err)
	assert.Equal(t, int64(5), res.Account.ID)

	actor, err := s.Authenticate("Bearer " + res.Token)
	require.NoError(t, err)
	assert.Equal(t, models.ActorContext{AccountID: 5, Role: models.RoleDevAdmin}, actor)
}

func TestLogin_UnknownAndWrongPasswordLookTheSame(t *testing.T) {
	s, f := newAuthService(t)

	_, errUnknown := s.Login(context.Background(), "nobody@example.com", "secret")
	_, errWrong := s.Login(context.Background(), "ann@example.com", "nope")

	require.Error(t, errUnknown)
	require.Error(t, errWrong)
	assert.Equal(t, errUnknown, errWrong)
	assert.True(t, errors.Is(errUnknown, common.ErrInvalidCredentials))
	assert.Equal(t, 1, f.hasher.dummyCalls, "unknown account still pays for a hash comparison")
}

func TestLogin_Inactive(t *testing.T) {
	s, _ := newAuthService(t)

	_, err := s.Login(context.Background(), "off@example.com", "secret")
	assert.True(t, errors.Is(err, common.ErrAccountInactive))

	_, err = s.Login(context.Background(), "off@example.com", "wrong")
	assert.True(t, errors.Is(err, common.ErrAccountInactive))
}

func TestLogin_MissingFields(t *testing.T) {
	s, _ := newAuthService(t)

	_, err := s.Login(context.Background(), "", "secret")
	assert.True(t, errors.Is(err, common.ErrMissingRequiredFields))
	_, err = s.Login(context.Background(), "ann@example.com", "")
	assert.True(t, errors.Is(err, common.ErrMissingRequiredFields))
}

func TestLogin_StoreFailure(t *testing.T) {
	s, f := newAuthService(t)
	f.rm.u.getErr = errDB

	_, err := s.Login(context.Background(), "ann@example.com", "secret")
	assert.True(t, errors.Is(err, common.ErrDependencyFailure))
	assert.NotContains(t, err.Error(), errDB.Error())
}

func TestAuthenticate_TokenSurvivesDeactivation(t *testing.T) {
	s, f := newAuthService(t)

	res, err := s.Login(context.Background(), "ann@example.com", "secret")
	require.NoError(t, err)

	f.rm.u.byEmail["ann@example.com"].Active = false

	actor, err := s.Authenticate("Bearer " + res.Token)
	require.NoError(t, err)
	assert.Equal(t, int64(5), actor.AccountID)
}

func TestAuthenticate_HeaderErrors(t *testing.T) {
	s, _ := newAuthService(t)

	tests := []struct {
		header string
		want   error
	}{
		{"", common.ErrMissingToken},
		{"   ", common.ErrMissingToken},
		{"Token abc", common.ErrMalformedToken},
		{"Bearer", common.ErrMalformedToken},
		{"Bearer   ", common.ErrMalformedToken},
		{"Bearer not-a-jwt", common.ErrMalformedToken},
	}
	for _, tt := range tests {
		_, err := s.Authenticate(tt.header)
		assert.True(t, errors.Is(err, tt.want), "header %q: got %v", tt.header, err)
	}
}

func TestAuthenticate_ForeignSignature(t *testing.T) {
	s, _ := newAuthService(t)

	other := auth.NewTokenSigner([]byte("another-secret"))
	token, err := other.Sign(models.ActorContext{AccountID: 5, Role: models.RoleSuperAdmin}, time.Hour)
	require.NoError(t, err)

	_, err = s.Authenticate("bearer " + token)
	assert.True(t, errors.Is(err, common.ErrInvalidToken))
}
