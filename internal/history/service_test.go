package history_test

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/store/memory"
)

func TestDisplayLimitByRole(t *testing.T) {
	assert.Equal(t, 10, history.DisplayLimit(account.RoleUser))
	assert.Equal(t, 20, history.DisplayLimit(account.RoleAgent))
}

func TestForAccountTruncatesByRole(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	user := account.Account{ID: "u", Email: "u@example.com", Phone: "1", Role: account.RoleUser, Status: account.StatusApproved}
	agent := account.Account{ID: "g", Email: "g@example.com", Phone: "2", Role: account.RoleAgent, Status: account.StatusApproved}
	require.NoError(t, store.Create(ctx, user))
	require.NoError(t, store.Create(ctx, agent))

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	var recs []history.Record
	for i := 0; i < 25; i++ {
		at := base.Add(time.Duration(i) * time.Minute)
		recs = append(recs,
			history.Record{ID: fmt.Sprintf("u%d", i), Kind: history.KindCashOut, OwnerID: "u", Sender: user.Snapshot(), Receiver: agent.Snapshot(), CreatedAt: at},
			history.Record{ID: fmt.Sprintf("g%d", i), Kind: history.KindCashIn, OwnerID: "g", Sender: user.Snapshot(), Receiver: agent.Snapshot(), CreatedAt: at},
		)
	}
	require.NoError(t, store.WithinTx(ctx, func(tx ledger.Tx) error { return tx.AppendRecords(ctx, recs...) }))

	svc := history.NewService(store, store)

	userView, err := svc.ForAccount(ctx, "u")
	require.NoError(t, err)
	require.Len(t, userView, 10)
	assert.Equal(t, "u24", userView[0].ID)
	assert.Equal(t, "u15", userView[9].ID)

	agentView, err := svc.ForIdentifier(ctx, "g@example.com")
	require.NoError(t, err)
	require.Len(t, agentView, 20)
	for _, r := range agentView {
		assert.Equal(t, "g", r.OwnerID)
		assert.True(t, r.Matches("G@EXAMPLE"))
	}

	assert.False(t, agentView[0].Matches("nobody@"))
	assert.True(t, agentView[0].Matches(""))

	all, err := svc.Search(ctx, "  U@EXAMPLE ")
	require.NoError(t, err)
	assert.Len(t, all, 50)

	_, err = svc.ForAccount(ctx, "missing")
	require.ErrorIs(t, err, apperr.ErrNotFound)
}
