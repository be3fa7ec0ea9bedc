package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"fieldvault/internal/common"
	sc "fieldvault/internal/server/config"
	"fieldvault/internal/server/models"
)

// fakeOperators is an in-memory operators.Repository.
type fakeOperators struct {
	byLogin map[string]*models.Operator
}

func (f *fakeOperators) Create(_ context.Context, op *models.Operator) (*models.Operator, error) {
	if f.byLogin == nil {
		f.byLogin = make(map[string]*models.Operator)
	}
	op.ID = "uuid-" + op.Login
	op.CreatedAt = time.Now()
	f.byLogin[op.Login] = op
	return op, nil
}

func (f *fakeOperators) GetByLogin(_ context.Context, login string) (*models.Operator, error) {
	op, ok := f.byLogin[login]
	if !ok {
		return nil, common.ErrorNotFound
	}
	return op, nil
}

func newAuthService() (*AuthService, *fakeOperators) {
	cfg := &sc.Config{SecretKey: "test-secret", AccessTokenValidityDuration: time.Minute}
	repo := &fakeOperators{}
	return NewAuthService(repo, cfg), repo
}

func TestAuthService_RegisterAndLogin(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	op, err := svc.Register(ctx, "op-1", "pw")
	require.NoError(t, err)
	assert.NotEmpty(t, op.ID)
	assert.NotEqual(t, "pw", op.PasswordHash, "password must never be stored in clear")

	token, expiresAt, err := svc.Login(ctx, "op-1", "pw")
	require.NoError(t, err)
	require.NotEmpty(t, token)
	assert.True(t, expiresAt.After(time.Now()))

	operatorID, err := svc.VerifyToken(token)
	require.NoError(t, err)
	assert.Equal(t, op.ID, operatorID)
}

func TestAuthService_LoginWrongPassword(t *testing.T) {
	ctx := context.Background()
	svc, _ := newAuthService()

	_, err := svc.Register(ctx, "op-1", "pw")
	require.NoError(t, err)

	_, _, err = svc.Login(ctx, "op-1", "wrong")
	require.ErrorIs(t, err, common.ErrorUnauthorized)
}

func TestAuthService_LoginUnknownOperator(t *testing.T) {
	svc, _ := newAuthService()

	_, _, err := svc.Login(context.Background(), "ghost", "pw")
	require.ErrorIs(t, err, common.ErrorUnauthorized,
		"unknown login and wrong password must be indistinguishable")
}
