package designstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readpref"

	"github.com/zhsummersy/sql-generator/internal/config"
	"github.com/zhsummersy/sql-generator/internal/schema"
	"github.com/zhsummersy/sql-generator/pkg/logger"
)

// mongoStore keeps design records in a MongoDB collection, one document per
// table name. The design itself is stored as its canonical JSON text so the
// document shape stays identical to the sqlite backend's row shape.
type mongoStore struct {
	client     *mongo.Client
	collection *mongo.Collection
	log        *logger.Logger
}

type mongoRecord struct {
	TableName   string    `bson:"table_name"`
	DesignData  string    `bson:"design_data"`
	Fingerprint string    `bson:"fingerprint"`
	CreatedAt   time.Time `bson:"created_at"`
	UpdatedAt   time.Time `bson:"updated_at"`
}

func newMongoStore(cfg *config.Config, log *logger.Logger) (*mongoStore, error) {
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	client, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.DesignStoreMongoURI()))
	if err != nil {
		return nil, fmt.Errorf("failed to connect to design store: %w", err)
	}

	if err := client.Ping(ctx, readpref.Primary()); err != nil {
		return nil, fmt.Errorf("failed to ping design store: %w", err)
	}

	collection := client.
		Database(cfg.DesignStore.Database).
		Collection(cfg.DesignStore.Collection)

	return &mongoStore{client: client, collection: collection, log: log}, nil
}

func (s *mongoStore) Put(ctx context.Context, design *schema.Design) error {
	data, err := json.Marshal(design)
	if err != nil {
		return fmt.Errorf("failed to serialize design: %w", err)
	}
	fingerprint := Fingerprint(design)

	filter := bson.M{"table_name": design.Name}
	now := time.Now().UTC()

	var existing mongoRecord
	err = s.collection.FindOne(ctx, filter).Decode(&existing)
	switch {
	case err == nil:
		if existing.Fingerprint == fingerprint {
			s.log.WithTable(design.Name).Debug("design unchanged, skipping write")
			return nil
		}
	case errors.Is(err, mongo.ErrNoDocuments):
		existing.CreatedAt = now
	default:
		return fmt.Errorf("failed to read design record: %w", err)
	}

	doc := mongoRecord{
		TableName:   design.Name,
		DesignData:  string(data),
		Fingerprint: fingerprint,
		CreatedAt:   existing.CreatedAt,
		UpdatedAt:   now,
	}

	_, err = s.collection.ReplaceOne(ctx, filter, doc, options.Replace().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to write design record: %w", err)
	}

	return nil
}

func (s *mongoStore) Get(ctx context.Context, tableName string) (*Record, error) {
	var doc mongoRecord
	err := s.collection.FindOne(ctx, bson.M{"table_name": tableName}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("%w: %s", schema.ErrDesignNotFound, tableName)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read design record: %w", err)
	}

	return doc.toRecord()
}

func (s *mongoStore) Delete(ctx context.Context, tableName string) error {
	result, err := s.collection.DeleteOne(ctx, bson.M{"table_name": tableName})
	if err != nil {
		return fmt.Errorf("failed to delete design record: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", schema.ErrDesignNotFound, tableName)
	}

	return nil
}

func (s *mongoStore) List(ctx context.Context) ([]Record, error) {
	cursor, err := s.collection.Find(ctx, bson.D{},
		options.Find().SetSort(bson.D{{Key: "table_name", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list design records: %w", err)
	}
	defer cursor.Close(ctx)

	var records []Record
	for cursor.Next(ctx) {
		var doc mongoRecord
		if err := cursor.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to read design record: %w", err)
		}
		record, err := doc.toRecord()
		if err != nil {
			return nil, err
		}
		records = append(records, *record)
	}

	return records, cursor.Err()
}

func (s *mongoStore) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return s.client.Disconnect(ctx)
}

func (d *mongoRecord) toRecord() (*Record, error) {
	record := &Record{
		TableName:   d.TableName,
		Fingerprint: d.Fingerprint,
		CreatedAt:   d.CreatedAt,
		UpdatedAt:   d.UpdatedAt,
	}
	if err := json.Unmarshal([]byte(d.DesignData), &record.Design); err != nil {
		return nil, fmt.Errorf("failed to decode design record for %s: %w", d.TableName, err)
	}
	return record, nil
}
