package service

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
)

func TestBattleLockLifecycle(t *testing.T) {
	svc := NewBattleService(nil, nil, nil)
	battleID := uuid.New()

	first := svc.battleLock(battleID)
	assert.Same(t, first, svc.battleLock(battleID), "same battle must share one mutex")

	svc.releaseLock(battleID)
	if _, held := svc.locks.Load(battleID); held {
		t.Fatal("lock entry survived release")
	}
	assert.NotSame(t, first, svc.battleLock(battleID), "release must drop the entry")
}
