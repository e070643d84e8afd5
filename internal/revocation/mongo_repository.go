package revocation

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoLedger implements Ledger on a Mongo collection. The token string is
// the document _id, so plain inserts double as the uniqueness guard.
type MongoLedger struct {
	col *mongo.Collection
}

func NewMongoLedger(col *mongo.Collection) *MongoLedger {
	return &MongoLedger{col: col}
}

func (l *MongoLedger) Revoke(ctx context.Context, e *Entry) error {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.col.InsertOne(ctx, e)
	if err != nil && mongo.IsDuplicateKeyError(err) {
		// already revoked; existence is all that matters
		return nil
	}
	return err
}

func (l *MongoLedger) Claim(ctx context.Context, e *Entry) (bool, error) {
	if e.CreatedAt.IsZero() {
		e.CreatedAt = time.Now().UTC()
	}
	_, err := l.col.InsertOne(ctx, e)
	if err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return false, nil
		}
		return false, err
	}
	return true, nil
}

func (l *MongoLedger) IsRevoked(ctx context.Context, token string) (bool, error) {
	var e Entry
	if err := l.col.FindOne(ctx, bson.M{"_id": token}).Decode(&e); err != nil {
		if err == mongo.ErrNoDocuments {
			return false, nil
		}
		return false, err
	}
	if e.Expired(time.Now().UTC()) {
		// lazy delete: keeping the entry past the token's own expiry only
		// wastes storage
		_, _ = l.col.DeleteOne(ctx, bson.M{"_id": token})
		return false, nil
	}
	return true, nil
}

func (l *MongoLedger) SweepExpired(ctx context.Context) (int64, error) {
	res, err := l.col.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lt": time.Now().UTC()}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
