package mongo

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/turbolytics/ckandiff/internal/archive"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.uber.org/zap"
)

const (
	defaultDatabase   = "ckandiff"
	defaultCollection = "ckan_records"
)

// Archive stores fetched records as documents, one per identifier and
// fetch date.
type Archive struct {
	client     *mongo.Client
	collection *mongo.Collection
	logger     *zap.Logger
}

// NewArchive connects to the server in uri. The database is taken from
// the path and the collection from the "collection" query parameter.
func NewArchive(ctx context.Context, uri *url.URL, logger *zap.Logger) (*Archive, error) {
	database := strings.TrimPrefix(uri.Path, "/")
	if database == "" {
		database = defaultDatabase
	}

	q := uri.Query()
	collection := q.Get("collection")
	if collection == "" {
		collection = defaultCollection
	}
	q.Del("collection")

	clean := *uri
	clean.RawQuery = q.Encode()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(clean.String()))
	if err != nil {
		return nil, err
	}
	if err := client.Ping(ctx, nil); err != nil {
		client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	if logger == nil {
		logger = zap.NewNop()
	}
	logger.Info("mongodb archive connected",
		zap.String("database", database),
		zap.String("collection", collection),
	)

	return &Archive{
		client:     client,
		collection: client.Database(database).Collection(collection),
		logger:     logger,
	}, nil
}

// DocumentID is the _id of the record of id fetched on date.
func DocumentID(id, date string) string {
	return id + "_" + date
}

func (a *Archive) Put(ctx context.Context, rec archive.Record) error {
	var record bson.M
	if err := bson.UnmarshalExtJSON(rec.Body, false, &record); err != nil {
		return fmt.Errorf("decode record %s: %w", rec.Identifier, err)
	}

	_id := DocumentID(rec.Identifier, rec.Date)
	doc := bson.M{
		"_id":        _id,
		"identifier": rec.Identifier,
		"fetch_date": rec.Date,
		"fetched_at": rec.FetchedAt,
		"record":     record,
	}

	_, err := a.collection.ReplaceOne(ctx,
		bson.M{"_id": _id},
		doc,
		options.Replace().SetUpsert(true),
	)
	if err != nil {
		return err
	}

	a.logger.Debug("archived record", zap.String("_id", _id))
	return nil
}

func (a *Archive) Close(ctx context.Context) error {
	return a.client.Disconnect(ctx)
}
