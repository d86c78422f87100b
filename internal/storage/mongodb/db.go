// Package mongodb keeps inventory and rate days in two MongoDB collections.
package mongodb

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"

	"github.com/avstrong/arisync/internal/calendar"
	"github.com/avstrong/arisync/internal/inventory"
	"github.com/avstrong/arisync/internal/logger"
	"github.com/avstrong/arisync/internal/rate"
)

const (
	inventoryCollection = "inventory"
	rateCollection      = "rates"
)

type Config struct {
	L        *logger.Logger
	URI      string
	Database string
}

type DB struct {
	l         *logger.Logger
	client    *mongo.Client
	inventory *mongo.Collection
	rates     *mongo.Collection
}

func New(ctx context.Context, conf Config) (*DB, error) {
	client, err := mongo.Connect(options.Client().ApplyURI(conf.URI))
	if err != nil {
		return nil, fmt.Errorf("connect to mongodb: %w", err)
	}

	if err = client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(context.Background())

		return nil, fmt.Errorf("ping mongodb: %w", err)
	}

	database := client.Database(conf.Database)

	return &DB{
		l:         conf.L.With("mongodb"),
		client:    client,
		inventory: database.Collection(inventoryCollection),
		rates:     database.Collection(rateCollection),
	}, nil
}

func (db *DB) Close(ctx context.Context) error {
	if err := db.client.Disconnect(ctx); err != nil {
		return fmt.Errorf("disconnect mongodb: %w", err)
	}

	return nil
}

// EnsureIndexes creates the lookup indexes used by every match and upsert path.
func (db *DB) EnsureIndexes(ctx context.Context) error {
	//nolint:exhaustruct
	inventoryIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "hotelCode", Value: 1},
				{Key: "invTypeCode", Value: 1},
				{Key: "availability.startDate", Value: 1},
			},
			Options: options.Index().SetName("hotel_room_day").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "hotelCode", Value: 1}, {Key: "dataSource", Value: 1}},
			Options: options.Index().SetName("hotel_source"),
		},
	}

	if _, err := db.inventory.Indexes().CreateMany(ctx, inventoryIndexes); err != nil {
		return fmt.Errorf("create inventory indexes: %w", err)
	}

	//nolint:exhaustruct
	rateIndexes := []mongo.IndexModel{
		{
			Keys: bson.D{
				{Key: "hotelCode", Value: 1},
				{Key: "invTypeCode", Value: 1},
				{Key: "startDate", Value: 1},
			},
			Options: options.Index().SetName("hotel_room_day"),
		},
		{
			Keys: bson.D{
				{Key: "hotelCode", Value: 1},
				{Key: "invTypeCode", Value: 1},
				{Key: "ratePlanCode", Value: 1},
				{Key: "startDate", Value: 1},
				{Key: "endDate", Value: 1},
			},
			Options: options.Index().SetName("hotel_room_plan_window").SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "hotelCode", Value: 1}, {Key: "dataSource", Value: 1}},
			Options: options.Index().SetName("hotel_source"),
		},
	}

	if _, err := db.rates.Indexes().CreateMany(ctx, rateIndexes); err != nil {
		return fmt.Errorf("create rate indexes: %w", err)
	}

	db.l.LogInfo("Indexes ensured on %s and %s", inventoryCollection, rateCollection)

	return nil
}

func window(field string, from, to time.Time) bson.E {
	return bson.E{Key: field, Value: bson.D{
		{Key: "$gte", Value: calendar.Day(from)},
		{Key: "$lte", Value: calendar.EndOfDay(to)},
	}}
}

func (db *DB) FindInventory(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]inventory.Day, error) {
	filter := bson.D{
		{Key: "hotelCode", Value: hotelCode},
		{Key: "invTypeCode", Value: invTypeCode},
		window("availability.startDate", from, to),
	}

	cur, err := db.inventory.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "availability.startDate", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("find inventory: %w", err)
	}

	var docs []inventoryDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode inventory: %w", err)
	}

	days := make([]inventory.Day, 0, len(docs))
	for i := range docs {
		days = append(days, docs[i].toDay())
	}

	return days, nil
}

func statusModel(change inventory.StatusChange) *mongo.UpdateManyModel {
	return mongo.NewUpdateManyModel().
		SetFilter(dayFilter(change.HotelCode, change.InvTypeCode, change.Date)).
		SetUpdate(bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(change.Status)}}}}).
		SetUpsert(false)
}

func bulkResult(res *mongo.BulkWriteResult) inventory.BulkResult {
	if res == nil {
		return inventory.BulkResult{}
	}

	return inventory.BulkResult{
		Matched:  res.MatchedCount,
		Modified: res.ModifiedCount,
		Upserted: res.UpsertedCount,
	}
}

// BulkSetInventoryStatus sends every change in one unordered bulk write. It never inserts.
func (db *DB) BulkSetInventoryStatus(ctx context.Context, changes []inventory.StatusChange) (inventory.BulkResult, error) {
	if len(changes) == 0 {
		return inventory.BulkResult{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(changes))
	for _, change := range changes {
		models = append(models, statusModel(change))
	}

	res, err := db.inventory.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return bulkResult(res), fmt.Errorf("bulk update inventory status: %w", err)
	}

	return bulkResult(res), nil
}

func (db *DB) SetInventoryStatus(ctx context.Context, change inventory.StatusChange) (inventory.BulkResult, error) {
	res, err := db.inventory.UpdateMany(
		ctx,
		dayFilter(change.HotelCode, change.InvTypeCode, change.Date),
		bson.D{{Key: "$set", Value: bson.D{{Key: "status", Value: string(change.Status)}}}},
	)
	if err != nil {
		return inventory.BulkResult{}, fmt.Errorf("update inventory status: %w", err)
	}

	return inventory.BulkResult{Matched: res.MatchedCount, Modified: res.ModifiedCount, Upserted: 0}, nil
}

func (db *DB) UpsertInventory(ctx context.Context, days []inventory.Day) (inventory.BulkResult, error) {
	if len(days) == 0 {
		return inventory.BulkResult{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(days))

	for _, day := range days {
		day.Normalize()
		filter, update := inventoryUpsert(&day)
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}

	res, err := db.inventory.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))
	if err != nil {
		return bulkResult(res), fmt.Errorf("upsert inventory: %w", err)
	}

	return bulkResult(res), nil
}

func (db *DB) DeleteInventory(ctx context.Context, hotelCode string) (int64, error) {
	res, err := db.inventory.DeleteMany(ctx, bson.D{{Key: "hotelCode", Value: hotelCode}})
	if err != nil {
		return 0, fmt.Errorf("delete inventory of %s: %w", hotelCode, err)
	}

	return res.DeletedCount, nil
}

func (db *DB) FindRates(ctx context.Context, hotelCode, invTypeCode string, from, to time.Time) ([]rate.Day, error) {
	filter := bson.D{
		{Key: "hotelCode", Value: hotelCode},
		{Key: "invTypeCode", Value: invTypeCode},
		window("startDate", from, to),
	}

	sort := bson.D{{Key: "startDate", Value: 1}, {Key: "ratePlanCode", Value: 1}}

	cur, err := db.rates.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("find rates: %w", err)
	}

	var docs []rateDoc
	if err = cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode rates: %w", err)
	}

	days := make([]rate.Day, 0, len(docs))

	for i := range docs {
		day, err := docs[i].toDay()
		if err != nil {
			return nil, err
		}

		days = append(days, day)
	}

	return days, nil
}

func (db *DB) UpsertRates(ctx context.Context, days []rate.Day) (rate.WriteResult, error) {
	if len(days) == 0 {
		return rate.WriteResult{}, nil
	}

	models := make([]mongo.WriteModel, 0, len(days))

	for i := range days {
		doc, err := newRateDoc(&days[i])
		if err != nil {
			return rate.WriteResult{}, err
		}

		filter, update := rateUpsert(&doc)
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}

	res, err := db.rates.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(false))

	var result rate.WriteResult
	if res != nil {
		result = rate.WriteResult{Matched: res.MatchedCount, Modified: res.ModifiedCount, Upserted: res.UpsertedCount}
	}

	if err != nil {
		return result, fmt.Errorf("upsert rates: %w", err)
	}

	return result, nil
}

func (db *DB) DeleteRates(ctx context.Context, hotelCode string) (int64, error) {
	res, err := db.rates.DeleteMany(ctx, bson.D{{Key: "hotelCode", Value: hotelCode}})
	if err != nil {
		return 0, fmt.Errorf("delete rates of %s: %w", hotelCode, err)
	}

	return res.DeletedCount, nil
}

// DataSource returns the first recorded data source of a hotel, rates first.
func (db *DB) DataSource(ctx context.Context, hotelCode string) (string, error) {
	filter := bson.D{
		{Key: "hotelCode", Value: hotelCode},
		{Key: "dataSource", Value: bson.D{{Key: "$nin", Value: bson.A{nil, ""}}}},
	}

	for _, coll := range []*mongo.Collection{db.rates, db.inventory} {
		var doc struct {
			DataSource string `bson:"dataSource"`
		}

		err := coll.FindOne(ctx, filter, options.FindOne().SetProjection(bson.D{{Key: "dataSource", Value: 1}})).Decode(&doc)
		if errors.Is(err, mongo.ErrNoDocuments) {
			continue
		}

		if err != nil {
			return "", fmt.Errorf("find data source of %s in %s: %w", hotelCode, coll.Name(), err)
		}

		return doc.DataSource, nil
	}

	return "", nil
}
