package members

import (
	"context"

	"github.com/chapterhub/chapterhub/internal/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// Repository defines persistence operations for members. Lookups are
// idempotent and side-effect free.
type Repository interface {
	FindByID(ctx context.Context, id string) (*models.Member, error)
	FindByEmail(ctx context.Context, email string) (*models.Member, error)
}

// MongoRepository implements Repository using MongoDB
type MongoRepository struct {
	col *mongo.Collection
}

// NewMongoRepository creates a new repository for the given collection
func NewMongoRepository(col *mongo.Collection) *MongoRepository {
	return &MongoRepository{col: col}
}

func (r *MongoRepository) FindByID(ctx context.Context, id string) (*models.Member, error) {
	var m models.Member
	if err := r.col.FindOne(ctx, bson.M{"_id": id}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}

func (r *MongoRepository) FindByEmail(ctx context.Context, email string) (*models.Member, error) {
	var m models.Member
	if err := r.col.FindOne(ctx, bson.M{"email": email}).Decode(&m); err != nil {
		if err == mongo.ErrNoDocuments {
			return nil, nil
		}
		return nil, err
	}
	return &m, nil
}
