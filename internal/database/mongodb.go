package database

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// ConnectMongo opens a connection and returns the client. Caller should call client.Disconnect(ctx).
func ConnectMongo(ctx context.Context, uri string, timeout time.Duration) (*mongo.Client, error) {
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()
	clientOpts := options.Client().ApplyURI(uri)
	client, err := mongo.Connect(ctx, clientOpts)
	if err != nil {
		return nil, fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		return nil, fmt.Errorf("mongo ping: %w", err)
	}
	return client, nil
}

// EnsureIndexes creates the indexes the credential subsystem relies on:
// unique member emails and an expiresAt index so revocation sweeps stay cheap.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	membersIdx := mongo.IndexModel{
		Keys:    bson.D{{Key: "email", Value: 1}},
		Options: options.Index().SetUnique(true),
	}
	if _, err := db.Collection("members").Indexes().CreateOne(ctx, membersIdx); err != nil {
		return fmt.Errorf("members email index: %w", err)
	}
	revocationIdx := mongo.IndexModel{
		Keys: bson.D{{Key: "expiresAt", Value: 1}},
	}
	if _, err := db.Collection("revocations").Indexes().CreateOne(ctx, revocationIdx); err != nil {
		return fmt.Errorf("revocations expiresAt index: %w", err)
	}
	return nil
}
