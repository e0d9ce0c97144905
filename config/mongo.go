package config

import (
	"context"
	"crypto/tls"
	"fmt"
	"os"
	"time"

	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var MongoClient *mongo.Client

const defaultMongoURI = "mongodb://localhost:27017"

// InitMongo connects to MONGO_URI (local default) and pings the primary.
// MONGO_MAX_POOL caps the pool; MONGO_TLS12=true pins TLS 1.2 for hosted
// clusters that reject newer handshakes.
func InitMongo() error {
	uri := getenv("MONGO_URI", defaultMongoURI)

	maxPool, err := intEnv("MONGO_MAX_POOL", 20)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Second)
	defer cancel()

	opts := options.Client().ApplyURI(uri).
		SetAppName("unistep").
		SetServerSelectionTimeout(15 * time.Second).
		SetConnectTimeout(10 * time.Second).
		SetMaxPoolSize(uint64(maxPool)).
		SetMinPoolSize(1)

	if os.Getenv("MONGO_TLS12") == "true" {
		opts = opts.SetTLSConfig(&tls.Config{
			MinVersion: tls.VersionTLS12,
			MaxVersion: tls.VersionTLS12,
		})
	}

	client, err := mongo.Connect(ctx, opts)
	if err != nil {
		return fmt.Errorf("mongo connect: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return fmt.Errorf("mongo ping: %w", err)
	}

	MongoClient = client
	return nil
}
