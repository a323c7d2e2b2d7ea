package database

import (
	"context"
	"log"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"projectx/internal/auth"
	"projectx/internal/docstore"
	"projectx/internal/users"
)

// EnsureUserIndexes makes usernames and emails unique across the directory.
func EnsureUserIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	indexes := db.Collection(users.UsersCollection).Indexes()

	usernameIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "username", Value: 1}},
		Options: options.Index().
			SetName("username_unique").
			SetUnique(true),
	}
	emailIndex := mongo.IndexModel{
		Keys: bson.D{{Key: "email", Value: 1}},
		Options: options.Index().
			SetName("email_unique").
			SetUnique(true),
	}

	log.Println("EnsureUserIndexes: creating username_unique and email_unique indexes")
	_, err := indexes.CreateMany(ctx, []mongo.IndexModel{usernameIndex, emailIndex})
	if err != nil {
		log.Println("EnsureUserIndexes: index error:", err)
		return err
	}
	return nil
}

// EnsureAuthIndexes backs the hot paths of the credential store and refresh
// ledger: username-based credential lookups at login, and per-user expiry
// scans on the prune-before-read.
func EnsureAuthIndexes(db *mongo.Database) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	credIndexes := db.Collection(auth.CredentialsCollection).Indexes()
	usernameIndex := mongo.IndexModel{
		Keys:    bson.D{{Key: "username", Value: 1}},
		Options: options.Index().SetName("username_index"),
	}

	log.Println("EnsureAuthIndexes: creating credential username_index")
	if _, err := credIndexes.CreateOne(ctx, usernameIndex); err != nil {
		log.Println("EnsureAuthIndexes: credential index error:", err)
		return err
	}

	ledgerCollection, err := docstore.CollectionName(
		auth.CredentialsCollection + "/_/" + auth.RefreshTokensSubcollection)
	if err != nil {
		return err
	}
	ledgerIndexes := db.Collection(ledgerCollection).Indexes()
	pruneIndex := mongo.IndexModel{
		Keys: bson.D{
			{Key: "parentId", Value: 1},
			{Key: "validUntil", Value: 1},
		},
		Options: options.Index().SetName("prune_scan"),
	}

	log.Println("EnsureAuthIndexes: creating refresh token prune_scan index")
	if _, err := ledgerIndexes.CreateOne(ctx, pruneIndex); err != nil {
		log.Println("EnsureAuthIndexes: ledger index error:", err)
		return err
	}
	return nil
}
