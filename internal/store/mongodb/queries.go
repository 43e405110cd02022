package mongodb

import (
	"context"
	"regexp"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/congo-pay/agentcash/internal/history"
	"github.com/congo-pay/agentcash/internal/pending"
)

var newestFirst = bson.D{{Key: "created_at", Value: -1}, {Key: "seq", Value: -1}}

// ByOwner returns the newest records owned by the account.
func (s *Store) ByOwner(ctx context.Context, ownerID string, limit int) ([]history.Record, error) {
	opts := options.Find().SetSort(newestFirst).SetLimit(int64(limit))
	return s.findRecords(ctx, bson.M{"owner_id": ownerID}, opts)
}

// Search matches term case-insensitively against either party's email.
func (s *Store) Search(ctx context.Context, term string) ([]history.Record, error) {
	pattern := primitive.Regex{Pattern: regexp.QuoteMeta(term), Options: "i"}
	filter := bson.M{"$or": bson.A{
		bson.M{"sender.email": pattern},
		bson.M{"receiver.email": pattern},
	}}
	return s.findRecords(ctx, filter, options.Find().SetSort(newestFirst))
}

func (s *Store) findRecords(ctx context.Context, filter bson.M, opts *options.FindOptions) ([]history.Record, error) {
	cur, err := s.records.Find(ctx, filter, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	var docs []recordDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err)
	}
	out := make([]history.Record, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRecord())
	}
	return out, nil
}

// ListByAgent returns the requests addressed to the agent, newest first.
func (s *Store) ListByAgent(ctx context.Context, agentID string) ([]pending.Request, error) {
	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: 1}})
	cur, err := s.requests.Find(ctx, bson.M{"agent.id": agentID}, opts)
	if err != nil {
		return nil, storageErr(err)
	}
	var docs []requestDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, storageErr(err)
	}
	out := make([]pending.Request, 0, len(docs))
	for _, d := range docs {
		out = append(out, d.toRequest())
	}
	return out, nil
}
