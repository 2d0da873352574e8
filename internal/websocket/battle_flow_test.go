package websocket_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zawomons/battle-server/internal/domain"
	"github.com/zawomons/battle-server/internal/testutil"
	"github.com/zawomons/battle-server/internal/websocket"
)

const defaultTimeout = 5 * time.Second

type battleFixture struct {
	ts        *testutil.TestServer
	player1   *domain.Player
	player2   *domain.Player
	creature1 *domain.Creature
	creature2 *domain.Creature
	spell     *domain.Spell
}

func newBattleFixture(t *testing.T) *battleFixture {
	t.Helper()

	ts := testutil.NewTestServer(t)

	spell := testutil.NewSpellBuilder().WithBasePower(25).Build(t, ts.DB.DB)
	player1 := testutil.NewPlayerBuilder().WithUsername("alice").Build(t, ts.DB.DB)
	player2 := testutil.NewPlayerBuilder().WithUsername("bob").Build(t, ts.DB.DB)

	return &battleFixture{
		ts:      ts,
		player1: player1,
		player2: player2,
		creature1: testutil.NewCreatureBuilder(player1).
			WithName("Emberfang").WithDamage(0).WithInitiative(20).
			Knowing(spell).Build(t, ts.DB.DB),
		creature2: testutil.NewCreatureBuilder(player2).
			WithName("Mosshide").WithDamage(0).WithInitiative(10).
			Knowing(spell).Build(t, ts.DB.DB),
		spell: spell,
	}
}

func (f *battleFixture) connect(t *testing.T, player *domain.Player) *testutil.WSClient {
	t.Helper()

	token := testutil.AuthToken(t, f.ts, player)
	client := testutil.NewWSClient(t, f.ts.WebSocketURL(token))
	client.ExpectMessage(websocket.MessageTypeConnectionEstablished, defaultTimeout)
	client.ExpectMessage(websocket.MessageTypePendingInvitations, defaultTimeout)
	return client
}

func TestBattleFlow_FullBattle(t *testing.T) {
	f := newBattleFixture(t)

	client1 := f.connect(t, f.player1)
	client2 := f.connect(t, f.player2)

	// Player 1 opens a battle, player 2 joins with both team lists.
	client1.CreateBattle("friendly", []uuid.UUID{f.creature1.ID})
	created := client1.ExpectBattleCreated(defaultTimeout)
	assert.Equal(t, "waiting", created.Phase)

	client2.JoinBattle(created.BattleID, []uuid.UUID{f.creature2.ID}, []uuid.UUID{f.creature1.ID})

	// battle_started goes to the whole group.
	started1 := client1.ExpectBattleStarted(defaultTimeout)
	started2 := client2.ExpectBattleStarted(defaultTimeout)
	assert.Equal(t, "selection", started1.Phase)
	require.Len(t, started1.Participants, 2)
	require.Len(t, started2.Participants, 2)

	// Both pick their move; the ack stays private to the sender.
	client1.SelectMove(f.creature1.ID, f.spell.ID, nil)
	client1.ExpectMessage(websocket.MessageTypeMoveSelected, defaultTimeout)
	client2.ExpectNoMessage(websocket.MessageTypeMoveSelected, 200*time.Millisecond)

	client2.SelectMove(f.creature2.ID, f.spell.ID, nil)
	client2.ExpectMessage(websocket.MessageTypeMoveSelected, defaultTimeout)

	// First confirm broadcasts readiness, second resolves the turn.
	client1.ConfirmReady()
	ready := client2.ExpectMessage(websocket.MessageTypePlayerReady, defaultTimeout)
	require.NotNil(t, ready)

	client2.ConfirmReady()
	turn1 := client1.ExpectTurnResults(defaultTimeout)
	turn2 := client2.ExpectTurnResults(defaultTimeout)

	assert.Equal(t, 0, turn1.TurnNumber)
	require.Len(t, turn1.Actions, 2)
	testutil.ActionsInOrder(t, turn1.Actions)

	// Zero variance, damage stat 0, 25-power spell: both at 75.
	p1 := testutil.ParticipantByCreature(t, turn2.Participants, f.creature1.ID.String())
	p2 := testutil.ParticipantByCreature(t, turn2.Participants, f.creature2.ID.String())
	assert.Equal(t, 75, p1.CurrentHP)
	assert.Equal(t, 75, p2.CurrentHP)

	// Three more identical turns finish the slower creature off.
	for i := 0; i < 3; i++ {
		client1.SelectMove(f.creature1.ID, f.spell.ID, nil)
		client1.ExpectMessage(websocket.MessageTypeMoveSelected, defaultTimeout)
		client2.SelectMove(f.creature2.ID, f.spell.ID, nil)
		client2.ExpectMessage(websocket.MessageTypeMoveSelected, defaultTimeout)

		client1.ConfirmReady()
		client2.ConfirmReady()

		if i < 2 {
			client1.ExpectTurnResults(defaultTimeout)
			client2.ExpectTurnResults(defaultTimeout)
		}
	}

	// Turn four: Emberfang acts first, Mosshide dies at 0 hp before
	// retaliating.
	ended1 := client1.ExpectBattleEnded(defaultTimeout)
	ended2 := client2.ExpectBattleEnded(defaultTimeout)

	assert.Equal(t, "team1", ended1.Outcome)
	require.NotNil(t, ended1.Winner)
	assert.Equal(t, f.player1.ID, *ended1.Winner)
	assert.NotEmpty(t, ended2.Actions, "terminal event carries the replay log")
	testutil.ActionsInOrder(t, ended2.Actions)
}

func TestBattleFlow_RejoinAfterDisconnect(t *testing.T) {
	f := newBattleFixture(t)

	client1 := f.connect(t, f.player1)
	client2 := f.connect(t, f.player2)

	client1.CreateBattle("friendly", []uuid.UUID{f.creature1.ID})
	created := client1.ExpectBattleCreated(defaultTimeout)
	client2.JoinBattle(created.BattleID, []uuid.UUID{f.creature2.ID}, []uuid.UUID{f.creature1.ID})
	client1.ExpectBattleStarted(defaultTimeout)
	client2.ExpectBattleStarted(defaultTimeout)

	// Dropping the connection forfeits nothing.
	client2.Close()

	rejoined := f.connect(t, f.player2)
	rejoined.JoinBattle(created.BattleID, nil, nil)
	snapshot := rejoined.ExpectBattleStarted(defaultTimeout)

	assert.Equal(t, created.BattleID, snapshot.BattleID)
	assert.Equal(t, "selection", snapshot.Phase)
	require.Len(t, snapshot.Participants, 2)

	// The rejoined session is fully live: moves still work.
	rejoined.SelectMove(f.creature2.ID, f.spell.ID, nil)
	rejoined.ExpectMessage(websocket.MessageTypeMoveSelected, defaultTimeout)
}

func TestBattleFlow_CreatorRejoinsWhileWaiting(t *testing.T) {
	f := newBattleFixture(t)

	client1 := f.connect(t, f.player1)
	client1.CreateBattle("friendly", []uuid.UUID{f.creature1.ID})
	created := client1.ExpectBattleCreated(defaultTimeout)
	client1.Close()

	// Reconnecting before an opponent arrives re-enters the battle; it
	// must not seat the creator in their own open slot.
	rejoined := f.connect(t, f.player1)
	rejoined.JoinBattle(created.BattleID, nil, nil)
	snapshot := rejoined.ExpectBattleStarted(defaultTimeout)
	assert.Equal(t, created.BattleID, snapshot.BattleID)
	assert.Equal(t, "waiting", snapshot.Phase)
	assert.Empty(t, snapshot.Participants)

	// The slot stayed open for a real opponent.
	client2 := f.connect(t, f.player2)
	client2.JoinBattle(created.BattleID, []uuid.UUID{f.creature2.ID}, []uuid.UUID{f.creature1.ID})
	started := rejoined.ExpectBattleStarted(defaultTimeout)
	assert.Equal(t, "selection", started.Phase)
	require.Len(t, started.Participants, 2)
	client2.ExpectBattleStarted(defaultTimeout)
}

func TestBattleFlow_SwitchingBattlesLeavesOldGroup(t *testing.T) {
	f := newBattleFixture(t)

	client1 := f.connect(t, f.player1)
	client2 := f.connect(t, f.player2)

	client1.CreateBattle("friendly", []uuid.UUID{f.creature1.ID})
	first := client1.ExpectBattleCreated(defaultTimeout)
	client1.CreateBattle("friendly", []uuid.UUID{f.creature1.ID})
	second := client1.ExpectBattleCreated(defaultTimeout)
	assert.NotEqual(t, first.BattleID, second.BattleID)

	// A session follows at most one battle: activity in the abandoned
	// first battle must not reach player 1 through the old group.
	client2.JoinBattle(first.BattleID, []uuid.UUID{f.creature2.ID}, []uuid.UUID{f.creature1.ID})
	client2.ExpectBattleStarted(defaultTimeout)
	client1.ExpectNoMessage(websocket.MessageTypeBattleStarted, 200*time.Millisecond)
}

func TestBattleFlow_ErrorsStayPrivate(t *testing.T) {
	f := newBattleFixture(t)

	client1 := f.connect(t, f.player1)
	client2 := f.connect(t, f.player2)

	client1.CreateBattle("friendly", []uuid.UUID{f.creature1.ID})
	created := client1.ExpectBattleCreated(defaultTimeout)
	client2.JoinBattle(created.BattleID, []uuid.UUID{f.creature2.ID}, []uuid.UUID{f.creature1.ID})
	client1.ExpectBattleStarted(defaultTimeout)
	client2.ExpectBattleStarted(defaultTimeout)

	// Submitting a move for the opponent's creature is rejected with an
	// error to the offender only.
	client1.SelectMove(f.creature2.ID, f.spell.ID, nil)
	errPayload := client1.ExpectError(defaultTimeout)
	assert.Equal(t, "NOT_OWNER", errPayload.Code)
	client2.ExpectNoMessage(websocket.MessageTypeError, 200*time.Millisecond)
}

func TestInvitationFlow_SendAcceptAndBattle(t *testing.T) {
	f := newBattleFixture(t)

	sender := f.connect(t, f.player1)
	receiver := f.connect(t, f.player2)

	sender.SendInvitation(f.player2.ID, "ranked", []uuid.UUID{f.creature1.ID})
	sender.ExpectMessage(websocket.MessageTypeInvitationSent, defaultTimeout)

	invitation := receiver.ExpectInvitation(defaultTimeout)
	assert.Equal(t, f.player1.ID, invitation.SenderID)
	assert.Equal(t, "ranked", invitation.InvitationType)
	assert.Equal(t, "alice", invitation.SenderName)

	receiver.RespondToInvitation(invitation.ID, "accepted", []uuid.UUID{f.creature2.ID})

	// Both parties get the bootstrap payload.
	msg := sender.ExpectMessage(websocket.MessageTypeInvitationAccepted, defaultTimeout)
	require.NotNil(t, msg)
	accepted := receiver.ExpectMessage(websocket.MessageTypeInvitationAccepted, defaultTimeout)
	require.NotNil(t, accepted)
}

func TestInvitationFlow_CancelNotifiesReceiver(t *testing.T) {
	f := newBattleFixture(t)

	sender := f.connect(t, f.player1)
	receiver := f.connect(t, f.player2)

	sender.SendInvitation(f.player2.ID, "friendly", []uuid.UUID{f.creature1.ID})
	sender.ExpectMessage(websocket.MessageTypeInvitationSent, defaultTimeout)
	invitation := receiver.ExpectInvitation(defaultTimeout)

	sender.CancelInvitation(invitation.ID)
	sender.ExpectMessage(websocket.MessageTypeInvitationCancelled, defaultTimeout)
	receiver.ExpectMessage(websocket.MessageTypeInvitationCancelled, defaultTimeout)

	// Nothing left to respond to.
	receiver.GetPendingInvitations()
	msg := receiver.ExpectMessage(websocket.MessageTypePendingInvitations, defaultTimeout)
	require.NotNil(t, msg)
}
