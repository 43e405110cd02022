package pending_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/pending"
	"github.com/congo-pay/agentcash/internal/store/memory"
)

func TestForAgentListsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := memory.New()
	require.NoError(t, store.Create(ctx, account.Account{ID: "g", Email: "g@example.com", Phone: "2", Role: account.RoleAgent}))
	require.NoError(t, store.Create(ctx, account.Account{ID: "u", Email: "u@example.com", Phone: "1", Role: account.RoleUser}))

	base := time.Date(2024, 5, 1, 8, 0, 0, 0, time.UTC)
	reqs := []pending.Request{
		{ID: "old", Kind: pending.KindCashOut, Agent: account.Snapshot{ID: "g"}, CreatedAt: base},
		{ID: "new", Kind: pending.KindCashIn, Agent: account.Snapshot{ID: "g"}, CreatedAt: base.Add(time.Hour)},
		{ID: "elsewhere", Kind: pending.KindCashIn, Agent: account.Snapshot{ID: "h"}, CreatedAt: base},
	}
	require.NoError(t, store.WithinTx(ctx, func(tx ledger.Tx) error {
		for _, r := range reqs {
			if err := tx.InsertRequest(ctx, r); err != nil {
				return err
			}
		}
		return nil
	}))

	svc := pending.NewService(store, store)
	inbox, err := svc.ForAgent(ctx, "g")
	require.NoError(t, err)
	require.Len(t, inbox, 2)
	assert.Equal(t, "new", inbox[0].ID)
	assert.Equal(t, "old", inbox[1].ID)

	_, err = svc.ForAgent(ctx, "u")
	require.ErrorIs(t, err, apperr.ErrNotAnAgent)
}
