package service_test

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zawomons/battle-server/internal/repository/postgres"
	"github.com/zawomons/battle-server/internal/service"
	"github.com/zawomons/battle-server/internal/testutil"
)

func TestAuthService_TokenRoundTrip(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.Player, testutil.TestConfig())

	player := testutil.NewPlayerBuilder().Build(t, testDB.DB)

	token, err := authService.IssueToken(player)
	require.NoError(t, err)
	require.NotEmpty(t, token)

	playerID, err := authService.ValidateToken(token)
	require.NoError(t, err)
	assert.Equal(t, player.ID, playerID)

	resolved, err := authService.GetPlayerByID(context.Background(), playerID)
	require.NoError(t, err)
	assert.Equal(t, player.Username, resolved.Username)
}

func TestAuthService_RejectsBadTokens(t *testing.T) {
	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	authService := service.NewAuthService(repos.Player, testutil.TestConfig())

	player := testutil.NewPlayerBuilder().Build(t, testDB.DB)

	t.Run("garbage token", func(t *testing.T) {
		_, err := authService.ValidateToken("not-a-token")
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})

	t.Run("wrong signing key", func(t *testing.T) {
		otherCfg := testutil.TestConfig()
		otherCfg.JWTSecret = "a-different-secret-entirely"
		other := service.NewAuthService(repos.Player, otherCfg)

		token, err := other.IssueToken(player)
		require.NoError(t, err)

		_, err = authService.ValidateToken(token)
		assert.ErrorIs(t, err, service.ErrInvalidToken)
	})

	t.Run("unknown player id resolves to not found", func(t *testing.T) {
		_, err := authService.GetPlayerByID(context.Background(), uuid.New())
		assert.ErrorIs(t, err, service.ErrPlayerNotFound)
	})
}
