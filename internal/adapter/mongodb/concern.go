package mongodb

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"
)

// DurableCollection returns a handle whose writes return only after a
// majority of replica set members acknowledged them.
func DurableCollection(db *mongo.Database, name string) *mongo.Collection {
	return db.Collection(name, options.Collection().SetWriteConcern(writeconcern.Majority()))
}

// ConsistentCollection returns a handle whose reads only observe data
// acknowledged by a majority of replica set members.
func ConsistentCollection(db *mongo.Database, name string) *mongo.Collection {
	return db.Collection(name, options.Collection().SetReadConcern(readconcern.Majority()))
}
