package mongodb

import (
	"context"
	"errors"
	"math"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/money"
	"github.com/congo-pay/agentcash/internal/pending"
)

// mongoTx binds every call to the transaction's session while keeping the
// caller's deadline.
type mongoTx struct {
	store *Store
	sess  mongo.Session
}

func (t *mongoTx) ctx(ctx context.Context) mongo.SessionContext {
	return mongo.NewSessionContext(ctx, t.sess)
}

func (t *mongoTx) FindByID(ctx context.Context, id string) (account.Account, error) {
	return t.store.FindByID(t.ctx(ctx), id)
}

func (t *mongoTx) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	return t.store.FindByEmail(t.ctx(ctx), email)
}

func (t *mongoTx) FindByPhone(ctx context.Context, phone string) (account.Account, error) {
	return t.store.FindByPhone(t.ctx(ctx), phone)
}

func (t *mongoTx) ApplyDelta(ctx context.Context, accountID string, delta money.Amount) (account.Account, error) {
	sc := t.ctx(ctx)
	bounds := bson.M{"$gte": -int64(delta)}
	if delta > 0 {
		bounds = bson.M{"$lte": math.MaxInt64 - int64(delta)}
	}
	filter := bson.M{"_id": accountID, "balance": bounds}
	update := bson.M{"$inc": bson.M{"balance": int64(delta)}}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var doc accountDoc
	err := t.store.accounts.FindOneAndUpdate(sc, filter, update, opts).Decode(&doc)
	if err == nil {
		return doc.toAccount(), nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return account.Account{}, storageErr(err)
	}
	if _, err := t.store.FindByID(sc, accountID); err != nil {
		return account.Account{}, err
	}
	if delta > 0 {
		return account.Account{}, apperr.ErrBalanceOverflow
	}
	return account.Account{}, apperr.ErrInsufficientFunds
}

func (t *mongoTx) AppendRecords(ctx context.Context, records ...history.Record) error {
	if len(records) == 0 {
		return nil
	}
	docs := make([]any, 0, len(records))
	for _, r := range records {
		docs = append(docs, newRecordDoc(r))
	}
	_, err := t.store.records.InsertMany(t.ctx(ctx), docs, options.InsertMany().SetOrdered(true))
	return storageErr(err)
}

func (t *mongoTx) InsertRequest(ctx context.Context, req pending.Request) error {
	_, err := t.store.requests.InsertOne(t.ctx(ctx), newRequestDoc(req))
	if mongo.IsDuplicateKeyError(err) {
		return apperr.Validation("duplicate_request", "request already exists")
	}
	return storageErr(err)
}

func (t *mongoTx) TakeRequest(ctx context.Context, id string) (pending.Request, error) {
	var doc requestDoc
	err := t.store.requests.FindOneAndDelete(t.ctx(ctx), bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return pending.Request{}, apperr.ErrRequestNotFound
	}
	if err != nil {
		return pending.Request{}, storageErr(err)
	}
	return doc.toRequest(), nil
}
