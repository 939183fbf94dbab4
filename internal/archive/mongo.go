package archive

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"juicestand/internal/core"
)

const snapshotCollection = "daily_snapshots"

// snapshotDocument is the stored form of a core.DaySnapshot. The date string
// is the document id so re-archiving a day overwrites it.
type snapshotDocument struct {
	Date          string    `bson:"_id"`
	IncomeCents   int64     `bson:"income_cents"`
	ExpensesCents int64     `bson:"expenses_cents"`
	ProfitCents   int64     `bson:"profit_cents"`
	ArchivedAt    time.Time `bson:"archived_at"`
}

func toDocument(s core.DaySnapshot, at time.Time) snapshotDocument {
	return snapshotDocument{
		Date:          s.Date.String(),
		IncomeCents:   s.Income.Cents,
		ExpensesCents: s.Expenses.Cents,
		ProfitCents:   s.Profit.Cents,
		ArchivedAt:    at.UTC(),
	}
}

func (d snapshotDocument) snapshot() (core.DaySnapshot, error) {
	date, err := core.ParseDate(d.Date)
	if err != nil {
		return core.DaySnapshot{}, err
	}
	return core.DaySnapshot{
		Date:     date,
		Income:   core.Money{Cents: d.IncomeCents},
		Expenses: core.Money{Cents: d.ExpensesCents},
		Profit:   core.Money{Cents: d.ProfitCents},
	}, nil
}

// MongoArchive stores snapshots in MongoDB.
type MongoArchive struct {
	client   *mongo.Client
	dbName   string
	collName string
}

var _ SnapshotArchive = (*MongoArchive)(nil)

// NewMongoArchive connects and pings the server.
func NewMongoArchive(ctx context.Context, uri, dbName string) (*MongoArchive, error) {
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to mongodb: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("failed to ping mongodb: %w", err)
	}
	return &MongoArchive{client: client, dbName: dbName, collName: snapshotCollection}, nil
}

func (a *MongoArchive) collection() *mongo.Collection {
	return a.client.Database(a.dbName).Collection(a.collName)
}

func (a *MongoArchive) SaveSnapshot(ctx context.Context, s core.DaySnapshot) error {
	if err := s.Date.Validate(); err != nil {
		return err
	}
	doc := toDocument(s, time.Now())
	_, err := a.collection().ReplaceOne(ctx, bson.M{"_id": doc.Date}, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to upsert snapshot %s: %w", doc.Date, err)
	}
	return nil
}

// Snapshots returns archived snapshots between from and to inclusive,
// oldest first.
func (a *MongoArchive) Snapshots(ctx context.Context, from, to core.Date) ([]core.DaySnapshot, error) {
	filter := bson.M{"_id": bson.M{"$gte": from.String(), "$lte": to.String()}}
	cur, err := a.collection().Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "_id", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to query snapshots: %w", err)
	}
	var docs []snapshotDocument
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode snapshots: %w", err)
	}
	out := make([]core.DaySnapshot, 0, len(docs))
	for _, d := range docs {
		s, err := d.snapshot()
		if err != nil {
			return nil, fmt.Errorf("snapshot %q: %w", d.Date, err)
		}
		out = append(out, s)
	}
	return out, nil
}

func (a *MongoArchive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
