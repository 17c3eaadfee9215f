package storage

import (
	"context"
	"database/sql"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.mongodb.org/mongo-driver/mongo"
)

// MongoBatchHelper inserts many documents in one round trip.
type MongoBatchHelper[T any] struct {
	collection *mongo.Collection
}

// NewMongoBatchHelper creates a new MongoDB batch helper.
func NewMongoBatchHelper[T any](collection *mongo.Collection) *MongoBatchHelper[T] {
	return &MongoBatchHelper[T]{
		collection: collection,
	}
}

// InsertMany performs an unordered batch insert.
func (h *MongoBatchHelper[T]) InsertMany(ctx context.Context, items []T) error {
	if len(items) == 0 {
		return nil
	}

	docs := make([]interface{}, len(items))
	for i, item := range items {
		docs[i] = item
	}

	_, err := h.collection.InsertMany(ctx, docs)
	return err
}

// PostgresBatchHelper queues statements into a single pgx batch.
type PostgresBatchHelper struct {
	pool *pgxpool.Pool
}

// NewPostgresBatchHelper creates a new PostgreSQL batch helper.
func NewPostgresBatchHelper(pool *pgxpool.Pool) *PostgresBatchHelper {
	return &PostgresBatchHelper{
		pool: pool,
	}
}

// Exec queues query once per item with the arguments returned by args and
// sends the batch. The first failing statement aborts it.
func (h *PostgresBatchHelper) Exec(ctx context.Context, query string, items int, args func(index int) []any) error {
	if items == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for i := 0; i < items; i++ {
		batch.Queue(query, args(i)...)
	}

	br := h.pool.SendBatch(ctx, batch)
	defer br.Close()

	for i := 0; i < items; i++ {
		if _, err := br.Exec(); err != nil {
			return err
		}
	}

	return br.Close()
}

// MySQLBatchHelper runs a prepared statement per item inside one transaction.
type MySQLBatchHelper struct {
	db *sql.DB
}

func NewMySQLBatchHelper(db *sql.DB) *MySQLBatchHelper {
	return &MySQLBatchHelper{
		db: db,
	}
}

// Exec prepares query once and executes it per item with the arguments returned by args.
func (h *MySQLBatchHelper) Exec(ctx context.Context, query string, items int, args func(index int) []any) error {
	if items == 0 {
		return nil
	}

	tx, err := h.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, query)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for i := 0; i < items; i++ {
		if _, err := stmt.ExecContext(ctx, args(i)...); err != nil {
			return err
		}
	}

	return tx.Commit()
}
