// Package mongodb keeps accounts, history and pending requests in MongoDB.
// Units of work run in multi-document transactions, so the server must be
// a replica set.
package mongodb

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/x/mongo/driver"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/ledger"
	"github.com/congo-pay/agentcash/internal/pending"
)

var (
	_ ledger.Store       = (*Store)(nil)
	_ account.Repository = (*Store)(nil)
	_ history.Repository = (*Store)(nil)
	_ pending.Repository = (*Store)(nil)
)

const (
	accountsCollection = "accounts"
	recordsCollection  = "transaction_records"
	requestsCollection = "pending_requests"

	writeConflictCode = 112
)

// Store is the MongoDB implementation of every repository.
type Store struct {
	client   *mongo.Client
	accounts *mongo.Collection
	records  *mongo.Collection
	requests *mongo.Collection
}

// New binds the store to a database. Call EnsureIndexes before use.
func New(client *mongo.Client, database string) *Store {
	db := client.Database(database)
	return &Store{
		client:   client,
		accounts: db.Collection(accountsCollection),
		records:  db.Collection(recordsCollection),
		requests: db.Collection(requestsCollection),
	}
}

// EnsureIndexes creates the unique identity indexes and the query indexes.
// It also creates the collections, which transactions cannot do.
func (s *Store) EnsureIndexes(ctx context.Context) error {
	indexes := []struct {
		coll   *mongo.Collection
		models []mongo.IndexModel
	}{
		{s.accounts, []mongo.IndexModel{
			{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
			{Keys: bson.D{{Key: "phone", Value: 1}}, Options: options.Index().SetUnique(true)},
		}},
		{s.records, []mongo.IndexModel{
			{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}},
		}},
		{s.requests, []mongo.IndexModel{
			{Keys: bson.D{{Key: "agent.id", Value: 1}, {Key: "created_at", Value: -1}}},
		}},
	}
	for _, ix := range indexes {
		if _, err := ix.coll.Indexes().CreateMany(ctx, ix.models); err != nil {
			return fmt.Errorf("create indexes on %s: %w", ix.coll.Name(), err)
		}
	}
	return nil
}

// WithinTx runs fn inside a session transaction.
func (s *Store) WithinTx(ctx context.Context, fn func(ledger.Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return storageErr(err)
	}
	defer sess.EndSession(ctx)

	_, err = sess.WithTransaction(ctx, func(mongo.SessionContext) (any, error) {
		return nil, fn(&mongoTx{store: s, sess: sess})
	})
	return storageErr(err)
}

func (s *Store) FindByID(ctx context.Context, id string) (account.Account, error) {
	return s.findAccount(ctx, bson.M{"_id": id})
}

func (s *Store) FindByEmail(ctx context.Context, email string) (account.Account, error) {
	return s.findAccount(ctx, bson.M{"email": account.NormalizeEmail(email)})
}

func (s *Store) FindByPhone(ctx context.Context, phone string) (account.Account, error) {
	return s.findAccount(ctx, bson.M{"phone": phone})
}

func (s *Store) findAccount(ctx context.Context, filter bson.M) (account.Account, error) {
	var doc accountDoc
	err := s.accounts.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return account.Account{}, apperr.ErrAccountNotFound
	}
	if err != nil {
		return account.Account{}, storageErr(err)
	}
	return doc.toAccount(), nil
}

// storageErr maps driver failures onto apperr kinds. Domain errors pass
// through untouched.
func storageErr(err error) error {
	if err == nil {
		return nil
	}
	if apperr.KindOf(err) != nil {
		return err
	}
	var se mongo.ServerError
	if errors.As(err, &se) && (se.HasErrorLabel(driver.TransientTransactionError) || se.HasErrorCode(writeConflictCode)) {
		return apperr.Conflict(err)
	}
	return apperr.Transient(err)
}
