package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	mongorepo "github.com/yoockh/unistep/internal/repositories/mongo"
)

// MongoDBName is the database holding the university and apply collections.
func MongoDBName() string {
	return getenv("MONGO_DB", "unistep")
}

// mongoIndexes is every index the server relies on, by collection.
var mongoIndexes = map[string][]mongo.IndexModel{
	// login is the URL slug, email the alternate login
	mongorepo.UniversityCollection: {
		{Keys: bson.D{{Key: "login", Value: 1}}, Options: options.Index().SetName("uniq_login").SetUnique(true)},
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetName("uniq_email").SetUnique(true)},
	},
	// dashboard lists by tenant, newest first; wizardId reconciles the ledger
	mongorepo.ApplicationCollection: {
		{Keys: bson.D{{Key: "university", Value: 1}, {Key: "createdAt", Value: -1}}, Options: options.Index().SetName("by_university_created")},
		{Keys: bson.D{{Key: "wizardId", Value: 1}}, Options: options.Index().SetName("by_wizard").SetSparse(true)},
	},
}

// EnsureMongoIndexes creates missing indexes. Existing ones with the same
// name and keys are left alone by the server.
func EnsureMongoIndexes() error {
	if MongoClient == nil {
		return errors.New("MongoClient is nil; call InitMongo() first")
	}
	db := MongoClient.Database(MongoDBName())

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	for coll, idx := range mongoIndexes {
		if _, err := db.Collection(coll).Indexes().CreateMany(ctx, idx); err != nil {
			return fmt.Errorf("indexes on %s: %w", coll, err)
		}
	}
	return nil
}
