package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/davrot/todolist/internal/todo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// todoSequence is the counters document that hands out todo ids.
const todoSequence = "todos"

// MongoRepo implements a MongoDB-backed repository for todos.
// Records use an integer _id allocated from a counters collection so ids
// look the same whichever backend is configured.
type MongoRepo struct {
	col      *mongo.Collection
	counters *mongo.Collection
}

// NewMongoRepo prepares the owner index and returns the repository.
func NewMongoRepo(ctx context.Context, db *mongo.Database) (*MongoRepo, error) {
	col := db.Collection("todos")
	idx := mongo.IndexModel{Keys: bson.D{{Key: "owner", Value: 1}, {Key: "_id", Value: 1}}}
	if _, err := col.Indexes().CreateOne(ctx, idx); err != nil {
		return nil, fmt.Errorf("create owner index: %w", err)
	}
	return &MongoRepo{col: col, counters: db.Collection("counters")}, nil
}

func (m *MongoRepo) nextID(ctx context.Context) (int64, error) {
	var seq struct {
		Value int64 `bson:"seq"`
	}
	opts := options.FindOneAndUpdate().SetUpsert(true).SetReturnDocument(options.After)
	err := m.counters.FindOneAndUpdate(ctx,
		bson.M{"_id": todoSequence},
		bson.M{"$inc": bson.M{"seq": int64(1)}},
		opts,
	).Decode(&seq)
	if err != nil {
		return 0, fmt.Errorf("allocate todo id: %w", err)
	}
	return seq.Value, nil
}

func (m *MongoRepo) ListByOwner(ctx context.Context, owner string) ([]*todo.Todo, error) {
	opts := options.Find().SetSort(bson.D{{Key: "_id", Value: 1}})
	cur, err := m.col.Find(ctx, bson.M{"owner": owner}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)
	out := []*todo.Todo{}
	for cur.Next(ctx) {
		var t todo.Todo
		if err := cur.Decode(&t); err != nil {
			return nil, err
		}
		t.TargetDate = t.TargetDate.UTC()
		out = append(out, &t)
	}
	return out, cur.Err()
}

func (m *MongoRepo) FindByID(ctx context.Context, id int64) (*todo.Todo, error) {
	var t todo.Todo
	err := m.col.FindOne(ctx, bson.M{"_id": id}).Decode(&t)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	t.TargetDate = t.TargetDate.UTC()
	return &t, nil
}

func (m *MongoRepo) Insert(ctx context.Context, t *todo.Todo) (*todo.Todo, error) {
	id, err := m.nextID(ctx)
	if err != nil {
		return nil, err
	}
	c := *t
	c.ID = id
	if _, err := m.col.InsertOne(ctx, c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (m *MongoRepo) Update(ctx context.Context, t *todo.Todo) error {
	set := bson.M{"description": t.Description, "targetDate": t.TargetDate, "done": t.Done}
	res, err := m.col.UpdateOne(ctx, bson.M{"_id": t.ID}, bson.M{"$set": set})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) DeleteByID(ctx context.Context, id int64) error {
	res, err := m.col.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (m *MongoRepo) Ping(ctx context.Context) error {
	return m.col.Database().Client().Ping(ctx, nil)
}
