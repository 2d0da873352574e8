package service_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/engine"
	"github.com/zawomons/battle-server/internal/repository/postgres"
	"github.com/zawomons/battle-server/internal/service"
	"github.com/zawomons/battle-server/internal/testutil"
)

type invitationFixture struct {
	db          *testutil.TestDB
	invitations *service.InvitationService
	battles     *service.BattleService
	sender      *domain.Player
	receiver    *domain.Player
	senderPet   *domain.Creature
	receiverPet *domain.Creature
}

func newInvitationFixture(t *testing.T) *invitationFixture {
	t.Helper()

	testDB := testutil.NewTestDB(t)
	repos := postgres.NewRepositories(testDB.DB)
	tx := postgres.NewTxManager(testDB.DB)
	battles := service.NewBattleService(repos, tx, engine.New(testutil.ZeroRand{}))
	invitations := service.NewInvitationService(repos, tx, battles)

	spell := testutil.NewSpellBuilder().Build(t, testDB.DB)
	sender := testutil.NewPlayerBuilder().Build(t, testDB.DB)
	receiver := testutil.NewPlayerBuilder().Build(t, testDB.DB)

	return &invitationFixture{
		db:          testDB,
		invitations: invitations,
		battles:     battles,
		sender:      sender,
		receiver:    receiver,
		senderPet:   testutil.NewCreatureBuilder(sender).Knowing(spell).Build(t, testDB.DB),
		receiverPet: testutil.NewCreatureBuilder(receiver).Knowing(spell).Build(t, testDB.DB),
	}
}

// expire pushes an invitation's deadline into the past.
func (f *invitationFixture) expire(t *testing.T, invitationID uuid.UUID) {
	t.Helper()

	err := f.db.DB.Model(&domain.GameInvitation{}).
		Where("id = ?", invitationID).
		Update("expires_at", time.Now().Add(-time.Minute)).Error
	require.NoError(t, err)
}

func TestInvitationService_SendInvitation(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	t.Run("self invitation rejected", func(t *testing.T) {
		_, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.sender.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
		assert.ErrorIs(t, err, domain.ErrSelfInvitation)
	})

	t.Run("unknown receiver rejected", func(t *testing.T) {
		_, err := f.invitations.SendInvitation(ctx, f.sender.ID, uuid.New(), domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
		assert.ErrorIs(t, err, service.ErrPlayerNotFound)
	})

	t.Run("creatures must belong to the sender", func(t *testing.T) {
		_, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.receiverPet.ID})
		assert.ErrorIs(t, err, domain.ErrCreatureNotOwned)
	})

	t.Run("success sets the two minute deadline", func(t *testing.T) {
		inv, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeRanked, []uuid.UUID{f.senderPet.ID})
		require.NoError(t, err)

		assert.Equal(t, domain.InvitationStatusPending, inv.Status)
		assert.Equal(t, domain.BattleTypeRanked, inv.InvitationType)
		assert.WithinDuration(t, time.Now().Add(domain.InvitationTTL), inv.ExpiresAt, 5*time.Second)
		assert.True(t, inv.CanRespond())
	})

	t.Run("duplicate pending rejected", func(t *testing.T) {
		_, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
		assert.ErrorIs(t, err, domain.ErrInvitationPending)
	})
}

func TestInvitationService_SendAfterExpiry(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	first, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)
	f.expire(t, first.ID)

	// An expired pending invitation does not block a new one; it gets
	// closed in passing.
	second, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, second.ID)

	var stored domain.GameInvitation
	require.NoError(t, f.db.DB.First(&stored, "id = ?", first.ID).Error)
	assert.Equal(t, domain.InvitationStatusExpired, stored.Status)
}

func TestInvitationService_Decline(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)

	t.Run("only the receiver may respond", func(t *testing.T) {
		_, err := f.invitations.RespondToInvitation(ctx, inv.ID, f.sender.ID, false, nil)
		assert.ErrorIs(t, err, domain.ErrNotInvitationTarget)
	})

	result, err := f.invitations.RespondToInvitation(ctx, inv.ID, f.receiver.ID, false, nil)
	require.NoError(t, err)
	assert.False(t, result.Accepted)
	assert.Equal(t, domain.InvitationStatusDeclined, result.Invitation.Status)
	assert.NotNil(t, result.Invitation.RespondedAt)
	assert.Nil(t, result.Battle)

	// Terminal status is one-shot.
	_, err = f.invitations.RespondToInvitation(ctx, inv.ID, f.receiver.ID, true, []uuid.UUID{f.receiverPet.ID})
	assert.ErrorIs(t, err, domain.ErrInvitationClosed)
}

func TestInvitationService_Accept(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeRanked, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)

	result, err := f.invitations.RespondToInvitation(ctx, inv.ID, f.receiver.ID, true, []uuid.UUID{f.receiverPet.ID})
	require.NoError(t, err)

	assert.True(t, result.Accepted)
	assert.Equal(t, domain.InvitationStatusAccepted, result.Invitation.Status)
	require.NotNil(t, result.Battle)
	require.NotNil(t, result.Invitation.BattleID)
	assert.Equal(t, result.Battle.ID, *result.Invitation.BattleID)

	// The battle starts from the invitation's stored creatures: sender is
	// player1/team1, receiver player2/team2.
	assert.Equal(t, domain.BattleTypeRanked, result.Battle.Type)
	assert.Equal(t, domain.BattlePhaseSelection, result.Battle.Phase)
	assert.Equal(t, f.sender.ID, result.Battle.Player1ID)
	require.NotNil(t, result.Battle.Player2ID)
	assert.Equal(t, f.receiver.ID, *result.Battle.Player2ID)

	require.Len(t, result.Participants, 2)
	for _, p := range result.Participants {
		switch p.CreatureID {
		case f.senderPet.ID:
			assert.Equal(t, 1, p.Team)
		case f.receiverPet.ID:
			assert.Equal(t, 2, p.Team)
		default:
			t.Fatalf("unexpected participant creature %s", p.CreatureID)
		}
	}
}

func TestInvitationService_AcceptAfterExpiry(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)
	f.expire(t, inv.ID)

	_, err = f.invitations.RespondToInvitation(ctx, inv.ID, f.receiver.ID, true, []uuid.UUID{f.receiverPet.ID})
	assert.ErrorIs(t, err, domain.ErrInvitationExpired)

	// The lazily detected expiry is persisted and no battle was created.
	var stored domain.GameInvitation
	require.NoError(t, f.db.DB.First(&stored, "id = ?", inv.ID).Error)
	assert.Equal(t, domain.InvitationStatusExpired, stored.Status)
	assert.False(t, stored.CanRespond())

	var battles int64
	require.NoError(t, f.db.DB.Model(&domain.Battle{}).Count(&battles).Error)
	assert.Zero(t, battles)
}

func TestInvitationService_Cancel(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	inv, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)

	t.Run("receiver cannot cancel", func(t *testing.T) {
		_, err := f.invitations.CancelInvitation(ctx, inv.ID, f.receiver.ID)
		assert.ErrorIs(t, err, domain.ErrNotInvitationSender)
	})

	cancelled, err := f.invitations.CancelInvitation(ctx, inv.ID, f.sender.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.InvitationStatusCancelled, cancelled.Status)

	_, err = f.invitations.CancelInvitation(ctx, inv.ID, f.sender.ID)
	assert.ErrorIs(t, err, domain.ErrInvitationClosed)
}

func TestInvitationService_PendingAndSweep(t *testing.T) {
	f := newInvitationFixture(t)
	ctx := context.Background()

	live, err := f.invitations.SendInvitation(ctx, f.sender.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{f.senderPet.ID})
	require.NoError(t, err)

	third := testutil.NewPlayerBuilder().Build(t, f.db.DB)
	thirdPet := testutil.NewCreatureBuilder(third).Build(t, f.db.DB)
	stale, err := f.invitations.SendInvitation(ctx, third.ID, f.receiver.ID, domain.BattleTypeFriendly, []uuid.UUID{thirdPet.ID})
	require.NoError(t, err)
	f.expire(t, stale.ID)

	// Pending listing hides the expired one even before the sweep runs.
	pending, err := f.invitations.GetPendingForReceiver(ctx, f.receiver.ID)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, live.ID, pending[0].ID)

	expired, err := f.invitations.ExpireStale(ctx)
	require.NoError(t, err)
	require.Len(t, expired, 1)
	assert.Equal(t, stale.ID, expired[0].ID)
	assert.Equal(t, domain.InvitationStatusExpired, expired[0].Status)

	// Idempotent: nothing left to close.
	expired, err = f.invitations.ExpireStale(ctx)
	require.NoError(t, err)
	assert.Empty(t, expired)
}
