package mongodb

import (
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

type accountDoc struct {
	ID        string    `bson:"_id"`
	Name      string    `bson:"name"`
	Email     string    `bson:"email"`
	Phone     string    `bson:"phone"`
	PINHash   []byte    `bson:"pin_hash"`
	Role      string    `bson:"role"`
	Status    string    `bson:"status"`
	Balance   int64     `bson:"balance"`
	CreatedAt time.Time `bson:"created_at"`
}

func newAccountDoc(a account.Account) accountDoc {
	return accountDoc{
		ID:        a.ID,
		Name:      a.Name,
		Email:     account.NormalizeEmail(a.Email),
		Phone:     a.Phone,
		PINHash:   a.PINHash,
		Role:      string(a.Role),
		Status:    string(a.Status),
		Balance:   int64(a.Balance),
		CreatedAt: a.CreatedAt,
	}
}

func (d accountDoc) toAccount() account.Account {
	return account.Account{
		ID:        d.ID,
		Name:      d.Name,
		Email:     d.Email,
		Phone:     d.Phone,
		PINHash:   d.PINHash,
		Role:      account.Role(d.Role),
		Status:    account.Status(d.Status),
		Balance:   money.Amount(d.Balance),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type partyDoc struct {
	ID    string `bson:"id"`
	Name  string `bson:"name"`
	Email string `bson:"email"`
	Phone string `bson:"phone"`
}

func newPartyDoc(s account.Snapshot) partyDoc {
	return partyDoc{ID: s.ID, Name: s.Name, Email: s.Email, Phone: s.Phone}
}

func (p partyDoc) toSnapshot() account.Snapshot {
	return account.Snapshot{ID: p.ID, Name: p.Name, Email: p.Email, Phone: p.Phone}
}

// recordDoc carries seq to order records written in the same millisecond.
type recordDoc struct {
	ID        string             `bson:"_id"`
	Seq       primitive.ObjectID `bson:"seq"`
	Kind      string             `bson:"kind"`
	OwnerID   string             `bson:"owner_id"`
	Sender    partyDoc           `bson:"sender"`
	Receiver  partyDoc           `bson:"receiver"`
	Amount    int64              `bson:"amount"`
	Fee       int64              `bson:"fee"`
	CreatedAt time.Time          `bson:"created_at"`
}

func newRecordDoc(r history.Record) recordDoc {
	return recordDoc{
		ID:        r.ID,
		Seq:       primitive.NewObjectID(),
		Kind:      string(r.Kind),
		OwnerID:   r.OwnerID,
		Sender:    newPartyDoc(r.Sender),
		Receiver:  newPartyDoc(r.Receiver),
		Amount:    int64(r.Amount),
		Fee:       int64(r.Fee),
		CreatedAt: r.CreatedAt,
	}
}

func (d recordDoc) toRecord() history.Record {
	return history.Record{
		ID:        d.ID,
		Kind:      history.Kind(d.Kind),
		OwnerID:   d.OwnerID,
		Sender:    d.Sender.toSnapshot(),
		Receiver:  d.Receiver.toSnapshot(),
		Amount:    money.Amount(d.Amount),
		Fee:       money.Amount(d.Fee),
		CreatedAt: d.CreatedAt.UTC(),
	}
}

type requestDoc struct {
	ID        string    `bson:"_id"`
	Kind      string    `bson:"kind"`
	Requester partyDoc  `bson:"requester"`
	Agent     partyDoc  `bson:"agent"`
	Amount    int64     `bson:"amount"`
	Fee       int64     `bson:"fee"`
	CreatedAt time.Time `bson:"created_at"`
}

func newRequestDoc(r pending.Request) requestDoc {
	return requestDoc{
		ID:        r.ID,
		Kind:      string(r.Kind),
		Requester: newPartyDoc(r.Requester),
		Agent:     newPartyDoc(r.Agent),
		Amount:    int64(r.Amount),
		Fee:       int64(r.Fee),
		CreatedAt: r.CreatedAt,
	}
}

func (d requestDoc) toRequest() pending.Request {
	return pending.Request{
		ID:        d.ID,
		Kind:      pending.Kind(d.Kind),
		Requester: d.Requester.toSnapshot(),
		Agent:     d.Agent.toSnapshot(),
		Amount:    money.Amount(d.Amount),
		Fee:       money.Amount(d.Fee),
		CreatedAt: d.CreatedAt.UTC(),
	}
}
