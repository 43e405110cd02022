package mongodb

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/congo-pay/agentcash/internal/account"
	"github.com/congo-pay/agentcash/internal/apperr"
	"github.com/congo-pay/agentcash/internal/money"
)

func (s *Store) Create(ctx context.Context, acc account.Account) error {
	if acc.CreatedAt.IsZero() {
		acc.CreatedAt = time.Now().UTC()
	}
	_, err := s.accounts.InsertOne(ctx, newAccountDoc(acc))
	if mongo.IsDuplicateKeyError(err) {
		return apperr.ErrDuplicateIdentity
	}
	return storageErr(err)
}

// List returns every account, newest first.
func (s *Store) List(ctx context.Context) ([]account.Account, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.accounts.Find(ctx, bson.M{}, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	var docs []accountDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err)
	}
	out := make([]account.Account, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toAccount())
	}
	return out, nil
}

// SetStatus moves the account from one status to another and credits grant
// in the same update.
func (s *Store) SetStatus(ctx context.Context, id string, from, to account.Status, grant money.Amount) (bool, error) {
	res, err := s.accounts.UpdateOne(ctx,
		bson.M{"_id": id, "status": string(from)},
		bson.M{"$set": bson.M{"status": string(to)}, "$inc": bson.M{"balance": int64(grant)}},
	)
	if err != nil {
		return false, storageErr(err)
	}
	if res.MatchedCount == 1 {
		return true, nil
	}
	if _, err := s.FindByID(ctx, id); err != nil {
		return false, err
	}
	return false, nil
}
