package mongodb

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
)

func TestStorageErr(t *testing.T) {
	writeConflict := mongo.CommandError{Code: writeConflictCode, Message: "WriteConflict"}
	labelled := mongo.CommandError{Code: 251, Labels: []string{driver.TransientTransactionError}}

	assert.ErrorIs(t, storageErr(writeConflict), apperr.ErrConflict)
	assert.ErrorIs(t, storageErr(labelled), apperr.ErrConflict)
	assert.ErrorIs(t, storageErr(errors.New("server selection timeout")), apperr.ErrTransient)
	assert.Same(t, apperr.ErrRequestNotFound, storageErr(apperr.ErrRequestNotFound))
	assert.NoError(t, storageErr(nil))
}

func TestDocumentsKeepSnapshots(t *testing.T) {
	at := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	rec := history.Record{
		ID:        "r1",
		Kind:      history.KindCashOut,
		OwnerID:   "u1",
		Sender:    account.Snapshot{ID: "u1", Name: "Uwimana", Email: "u@example.com", Phone: "+1"},
		Receiver:  account.Snapshot{ID: "g1", Name: "Gloire", Email: "g@example.com", Phone: "+2"},
		Amount:    money.FromUnits(100),
		Fee:       money.FromUnits(1) + 50,
		CreatedAt: at,
	}
	doc := newRecordDoc(rec)
	assert.False(t, doc.Seq.IsZero())
	assert.Equal(t, rec, doc.toRecord())

	acc := account.Account{ID: "a1", Email: " Mixed@Example.com", Role: account.RoleAgent, Status: account.StatusApproved, Balance: 42, CreatedAt: at}
	assert.Equal(t, "mixed@example.com", newAccountDoc(acc).toAccount().Email)
}
