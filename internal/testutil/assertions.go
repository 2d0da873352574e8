package testutil

import (
	"encoding/json"
	"io"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zawomons/battle-server/internal/websocket"
)

// AssertStatusCode verifies the HTTP response status code
func AssertStatusCode(t *testing.T, resp *http.Response, expected int) {
	t.Helper()
	assert.Equal(t, expected, resp.StatusCode, "unexpected status code")
}

// AssertJSONResponse decodes JSON response into v and verifies success
func AssertJSONResponse(t *testing.T, resp *http.Response, v interface{}) {
	t.Helper()

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	err = json.Unmarshal(body, v)
	require.NoError(t, err, "failed to unmarshal response: %s", string(body))
}

// AssertErrorResponse verifies error response with expected status and message
func AssertErrorResponse(t *testing.T, resp *http.Response, expectedStatus int, expectedMessage string) {
	t.Helper()

	assert.Equal(t, expectedStatus, resp.StatusCode, "unexpected status code")

	body, err := io.ReadAll(resp.Body)
	require.NoError(t, err, "failed to read response body")

	// Error responses are plain text in this API
	assert.Contains(t, string(body), expectedMessage, "error message mismatch")
}

// ParticipantByCreature finds a wire participant by creature id.
func ParticipantByCreature(t *testing.T, participants []websocket.ParticipantView, creatureID string) *websocket.ParticipantView {
	t.Helper()

	for i := range participants {
		if participants[i].CreatureID.String() == creatureID {
			return &participants[i]
		}
	}
	t.Fatalf("creature %s not among participants", creatureID)
	return nil
}

// ActionsInOrder verifies action_order is strictly increasing within a turn.
func ActionsInOrder(t *testing.T, actions []websocket.ActionView) {
	t.Helper()

	lastTurn, lastOrder := -1, 0
	for _, a := range actions {
		if a.TurnNumber != lastTurn {
			lastTurn, lastOrder = a.TurnNumber, 0
		}
		assert.Greater(t, a.ActionOrder, lastOrder, "action order must strictly increase within turn %d", a.TurnNumber)
		lastOrder = a.ActionOrder
	}
}
