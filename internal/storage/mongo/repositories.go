package mongo

import (
	"context"
	"errors"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/lugondev/go-amm/internal/storage"
)

type mongoAccountRepository struct {
	collection *mongo.Collection
}

// accountUpsert keys the document by pubkey and only writes created_at on insert.
func accountUpsert(a *storage.AccountModel) (filter, update bson.M) {
	filter = bson.M{"_id": a.Pubkey}
	update = bson.M{
		"$set": bson.M{
			"pubkey":     a.Pubkey,
			"lamports":   a.Lamports,
			"data":       a.Data,
			"owner":      a.Owner,
			"executable": a.Executable,
			"rent_epoch": a.RentEpoch,
			"slot":       a.Slot,
			"updated_at": a.UpdatedAt,
		},
		"$setOnInsert": bson.M{"created_at": a.CreatedAt},
	}
	return filter, update
}

func (r *mongoAccountRepository) Save(ctx context.Context, account *storage.AccountModel) error {
	filter, update := accountUpsert(account)
	_, err := r.collection.UpdateOne(ctx, filter, update, options.Update().SetUpsert(true))
	return err
}

func (r *mongoAccountRepository) SaveBatch(ctx context.Context, accounts []*storage.AccountModel) error {
	if len(accounts) == 0 {
		return nil
	}

	models := make([]mongo.WriteModel, 0, len(accounts))
	for _, account := range accounts {
		filter, update := accountUpsert(account)
		models = append(models, mongo.NewUpdateOneModel().SetFilter(filter).SetUpdate(update).SetUpsert(true))
	}
	_, err := r.collection.BulkWrite(ctx, models, options.BulkWrite().SetOrdered(true))
	return err
}

func (r *mongoAccountRepository) FindByPubkey(ctx context.Context, pubkey string) (*storage.AccountModel, error) {
	return findOne[storage.AccountModel](ctx, r.collection, bson.M{"_id": pubkey})
}

func (r *mongoAccountRepository) FindByOwner(ctx context.Context, owner string, limit int, offset int) ([]*storage.AccountModel, error) {
	opts := pageOptions(limit, offset).SetSort(bson.D{{Key: "slot", Value: -1}, {Key: "pubkey", Value: 1}})
	return findMany[storage.AccountModel](ctx, r.collection, bson.M{"owner": owner}, opts)
}

func (r *mongoAccountRepository) Delete(ctx context.Context, pubkey string) error {
	_, err := r.collection.DeleteOne(ctx, bson.M{"_id": pubkey})
	return err
}

type mongoInvocationRepository struct {
	collection *mongo.Collection
}

func (r *mongoInvocationRepository) Save(ctx context.Context, invocation *storage.InvocationModel) error {
	_, err := r.collection.ReplaceOne(ctx, bson.M{"_id": invocation.ID}, invocation, options.Replace().SetUpsert(true))
	return err
}

// SaveBatch inserts; invocation ids are unique per execution.
func (r *mongoInvocationRepository) SaveBatch(ctx context.Context, invocations []*storage.InvocationModel) error {
	return storage.NewMongoBatchHelper[*storage.InvocationModel](r.collection).InsertMany(ctx, invocations)
}

func (r *mongoInvocationRepository) FindByID(ctx context.Context, id string) (*storage.InvocationModel, error) {
	return findOne[storage.InvocationModel](ctx, r.collection, bson.M{"_id": id})
}

func (r *mongoInvocationRepository) FindByScenario(ctx context.Context, scenario string, limit int, offset int) ([]*storage.InvocationModel, error) {
	opts := pageOptions(limit, offset).SetSort(bson.D{{Key: "created_at", Value: 1}, {Key: "_id", Value: 1}})
	return findMany[storage.InvocationModel](ctx, r.collection, bson.M{"scenario": scenario}, opts)
}

func (r *mongoInvocationRepository) FindRecent(ctx context.Context, limit int) ([]*storage.InvocationModel, error) {
	opts := pageOptions(limit, 0).SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}})
	return findMany[storage.InvocationModel](ctx, r.collection, bson.M{}, opts)
}

// pageOptions maps limit and offset onto find options. A zero limit is unlimited in MongoDB too.
func pageOptions(limit, offset int) *options.FindOptions {
	opts := options.Find()
	if limit > 0 {
		opts.SetLimit(int64(limit))
	}
	if offset > 0 {
		opts.SetSkip(int64(offset))
	}
	return opts
}

func findOne[T any](ctx context.Context, collection *mongo.Collection, filter bson.M) (*T, error) {
	var out T
	if err := collection.FindOne(ctx, filter).Decode(&out); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, nil
		}
		return nil, err
	}
	return &out, nil
}

func findMany[T any](ctx context.Context, collection *mongo.Collection, filter bson.M, opts *options.FindOptions) ([]*T, error) {
	cursor, err := collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var out []*T
	if err := cursor.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
