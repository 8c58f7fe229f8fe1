package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const collection = "webhook_events"

// Record is one inbound webhook as received.
type Record struct {
	ID         string    `bson:"_id" json:"id"`
	Source     string    `bson:"source" json:"source"` // razorpay | mock
	Event      string    `bson:"event" json:"event"`
	EventID    string    `bson:"event_id,omitempty" json:"eventId,omitempty"`
	Body       string    `bson:"body" json:"body"`
	ReceivedAt time.Time `bson:"received_at" json:"receivedAt"`
}

func Connect(ctx context.Context, uri, dbName string) (*mongo.Client, *mongo.Database, error) {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, nil, fmt.Errorf("connect mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())
		return nil, nil, fmt.Errorf("ping mongo: %w", err)
	}
	return client, client.Database(dbName), nil
}

type Archive struct {
	coll *mongo.Collection
}

func New(db *mongo.Database) *Archive {
	return &Archive{coll: db.Collection(collection)}
}

func (a *Archive) Save(ctx context.Context, r Record) error {
	if _, err := a.coll.InsertOne(ctx, r); err != nil {
		return fmt.Errorf("archive webhook: %w", err)
	}
	return nil
}

// Recent lists the newest records, optionally for one source.
func (a *Archive) Recent(ctx context.Context, source string, limit int64) ([]Record, error) {
	filter := bson.M{}
	if source != "" {
		filter["source"] = source
	}
	opts := options.Find().SetSort(bson.D{{Key: "received_at", Value: -1}}).SetLimit(limit)

	cur, err := a.coll.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := []Record{}
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
