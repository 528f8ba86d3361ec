package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"cashflow/internal/dates"
	"cashflow/internal/models"
	"cashflow/internal/uuid"
)

// Collection names in the document store.
const (
	TransactionsCollection      = "transactions"
	RecurringExpensesCollection = "recurringExpenses"
)

// ConnectMongo opens a client, verifies it with a ping and returns a Store
// over database. Store.Close disconnects the client.
func ConnectMongo(ctx context.Context, uri, database string) (*Store, error) {
	if uri == "" {
		return nil, fmt.Errorf("mongo uri not set")
	}
	client, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, fmt.Errorf("connect to mongo: %w", err)
	}
	if err := client.Ping(ctx, nil); err != nil {
		_ = client.Disconnect(ctx)
		return nil, fmt.Errorf("ping mongo: %w", err)
	}

	store, err := NewMongoStore(ctx, client.Database(database))
	if err != nil {
		_ = client.Disconnect(ctx)
		return nil, err
	}
	store.Close = client.Disconnect
	return store, nil
}

// NewMongoStore returns repositories over db and ensures the owner indexes.
func NewMongoStore(ctx context.Context, db *mongo.Database) (*Store, error) {
	txs := db.Collection(TransactionsCollection)
	recurring := db.Collection(RecurringExpensesCollection)

	for _, c := range []*mongo.Collection{txs, recurring} {
		_, err := c.Indexes().CreateOne(ctx, mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
		})
		if err != nil {
			return nil, fmt.Errorf("create index on %s: %w", c.Name(), err)
		}
	}

	return &Store{
		Transactions:      &mongoTransactions{c: txs},
		RecurringExpenses: &mongoRecurringExpenses{c: recurring},
	}, nil
}

// transactionDoc is the stored shape of a transaction. Date fields are read
// as any because older documents hold strings or timestamp maps instead of
// BSON datetimes; Amount may be a double in the same documents.
type transactionDoc struct {
	ID          string `bson:"_id"`
	UserID      string `bson:"userId"`
	Title       string `bson:"title"`
	Amount      any    `bson:"amount"`
	Type        string `bson:"type"`
	Category    string `bson:"category,omitempty"`
	Description string `bson:"description,omitempty"`
	Date        any    `bson:"date,omitempty"`
	CreatedAt   any    `bson:"createdAt"`
	UpdatedAt   any    `bson:"updatedAt,omitempty"`
}

type recurringExpenseDoc struct {
	ID          string `bson:"_id"`
	UserID      string `bson:"userId"`
	Title       string `bson:"title"`
	Amount      any    `bson:"amount"`
	Category    string `bson:"category,omitempty"`
	Description string `bson:"description,omitempty"`
	Frequency   string `bson:"frequency,omitempty"`
	CreatedAt   any    `bson:"createdAt"`
	UpdatedAt   any    `bson:"updatedAt,omitempty"`
}

func toTransactionDoc(tx *models.Transaction) (transactionDoc, error) {
	amount, err := primitive.ParseDecimal128(tx.Amount.String())
	if err != nil {
		return transactionDoc{}, fmt.Errorf("encode amount: %w", err)
	}
	doc := transactionDoc{
		ID:          tx.ID,
		UserID:      tx.UserID,
		Title:       tx.Title,
		Amount:      amount,
		Type:        string(tx.Type),
		Category:    tx.Category,
		Description: tx.Description,
		CreatedAt:   primitive.NewDateTimeFromTime(tx.CreatedAt),
		UpdatedAt:   primitive.NewDateTimeFromTime(tx.UpdatedAt),
	}
	if tx.Date != nil {
		doc.Date = primitive.NewDateTimeFromTime(*tx.Date)
	}
	return doc, nil
}

func (d *transactionDoc) model() (models.Transaction, error) {
	amount, err := decodeAmount(d.Amount)
	if err != nil {
		return models.Transaction{}, fmt.Errorf("transaction %s: %w", d.ID, err)
	}
	tx := models.Transaction{
		Base: models.Base{
			ID:        d.ID,
			CreatedAt: decodeDate(d.CreatedAt),
			UpdatedAt: decodeDate(d.UpdatedAt),
		},
		UserID:      d.UserID,
		Title:       d.Title,
		Amount:      amount,
		Type:        models.TransactionType(d.Type),
		Category:    d.Category,
		Description: d.Description,
	}
	if date := decodeDate(d.Date); !date.IsZero() {
		tx.Date = &date
	}
	return tx, nil
}

func toRecurringExpenseDoc(re *models.RecurringExpense) (recurringExpenseDoc, error) {
	amount, err := primitive.ParseDecimal128(re.Amount.String())
	if err != nil {
		return recurringExpenseDoc{}, fmt.Errorf("encode amount: %w", err)
	}
	return recurringExpenseDoc{
		ID:          re.ID,
		UserID:      re.UserID,
		Title:       re.Title,
		Amount:      amount,
		Category:    re.Category,
		Description: re.Description,
		Frequency:   string(re.Frequency),
		CreatedAt:   primitive.NewDateTimeFromTime(re.CreatedAt),
		UpdatedAt:   primitive.NewDateTimeFromTime(re.UpdatedAt),
	}, nil
}

func (d *recurringExpenseDoc) model() (models.RecurringExpense, error) {
	amount, err := decodeAmount(d.Amount)
	if err != nil {
		return models.RecurringExpense{}, fmt.Errorf("recurring expense %s: %w", d.ID, err)
	}
	freq := models.Frequency(d.Frequency)
	if freq == "" {
		freq = models.DefaultFrequency
	}
	return models.RecurringExpense{
		Base: models.Base{
			ID:        d.ID,
			CreatedAt: decodeDate(d.CreatedAt),
			UpdatedAt: decodeDate(d.UpdatedAt),
		},
		UserID:      d.UserID,
		Title:       d.Title,
		Amount:      amount,
		Category:    d.Category,
		Description: d.Description,
		Frequency:   freq,
	}, nil
}

// decodeAmount reads Decimal128 values and the numeric types older
// documents were written with.
func decodeAmount(v any) (decimal.Decimal, error) {
	switch n := v.(type) {
	case primitive.Decimal128:
		return decimal.NewFromString(n.String())
	case float64:
		return decimal.NewFromFloat(n), nil
	case int32:
		return decimal.NewFromInt32(n), nil
	case int64:
		return decimal.NewFromInt(n), nil
	case string:
		return decimal.NewFromString(n)
	case nil:
		return decimal.Zero, nil
	}
	return decimal.Decimal{}, fmt.Errorf("unsupported amount type %T", v)
}

// decodeDate converts BSON values into the forms the date parser accepts.
// Embedded documents decode as primitive.D when the target is any.
func decodeDate(v any) time.Time {
	switch d := v.(type) {
	case primitive.D:
		v = map[string]any(d.Map())
	case primitive.M:
		v = map[string]any(d)
	case primitive.Timestamp:
		v = time.Unix(int64(d.T), 0)
	}
	t, _ := dates.Parse(v)
	return t
}

func ownerFilter(userID, id string) bson.M {
	return bson.M{"_id": id, "userId": userID}
}

type mongoTransactions struct {
	c *mongo.Collection
}

func (r *mongoTransactions) Create(ctx context.Context, tx *models.Transaction) error {
	if err := tx.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if tx.ID == "" {
		tx.ID = uuid.New()
	}
	tx.CreatedAt, tx.UpdatedAt = now, now

	doc, err := toTransactionDoc(tx)
	if err != nil {
		return err
	}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert transaction: %w", err)
	}
	return nil
}

func (r *mongoTransactions) Get(ctx context.Context, userID, id string) (*models.Transaction, error) {
	var doc transactionDoc
	if err := r.c.FindOne(ctx, ownerFilter(userID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find transaction: %w", err)
	}
	tx, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &tx, nil
}

func (r *mongoTransactions) Update(ctx context.Context, userID, id string, patch models.TransactionPatch) (*models.Transaction, error) {
	tx, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(tx)
	if err := tx.Validate(); err != nil {
		return nil, err
	}
	tx.UpdatedAt = time.Now()

	doc, err := toTransactionDoc(tx)
	if err != nil {
		return nil, err
	}
	result, err := r.c.ReplaceOne(ctx, ownerFilter(userID, id), doc)
	if err != nil {
		return nil, fmt.Errorf("replace transaction: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return tx, nil
}

func (r *mongoTransactions) Delete(ctx context.Context, userID, id string) error {
	result, err := r.c.DeleteOne(ctx, ownerFilter(userID, id))
	if err != nil {
		return fmt.Errorf("delete transaction: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoTransactions) ListByUser(ctx context.Context, userID string) ([]models.Transaction, error) {
	cursor, err := r.c.Find(ctx, bson.M{"userId": userID})
	if err != nil {
		return nil, fmt.Errorf("find transactions: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []transactionDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode transactions: %w", err)
	}
	out := make([]models.Transaction, 0, len(docs))
	for i := range docs {
		tx, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		out = append(out, tx)
	}
	return out, nil
}

type mongoRecurringExpenses struct {
	c *mongo.Collection
}

func (r *mongoRecurringExpenses) Create(ctx context.Context, re *models.RecurringExpense) error {
	if re.Frequency == "" {
		re.Frequency = models.DefaultFrequency
	}
	if err := re.Validate(); err != nil {
		return err
	}
	now := time.Now()
	if re.ID == "" {
		re.ID = uuid.New()
	}
	re.CreatedAt, re.UpdatedAt = now, now

	doc, err := toRecurringExpenseDoc(re)
	if err != nil {
		return err
	}
	if _, err := r.c.InsertOne(ctx, doc); err != nil {
		return fmt.Errorf("insert recurring expense: %w", err)
	}
	return nil
}

func (r *mongoRecurringExpenses) Get(ctx context.Context, userID, id string) (*models.RecurringExpense, error) {
	var doc recurringExpenseDoc
	if err := r.c.FindOne(ctx, ownerFilter(userID, id)).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("find recurring expense: %w", err)
	}
	re, err := doc.model()
	if err != nil {
		return nil, err
	}
	return &re, nil
}

func (r *mongoRecurringExpenses) Update(ctx context.Context, userID, id string, patch models.RecurringExpensePatch) (*models.RecurringExpense, error) {
	re, err := r.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	patch.Apply(re)
	if err := re.Validate(); err != nil {
		return nil, err
	}
	re.UpdatedAt = time.Now()

	doc, err := toRecurringExpenseDoc(re)
	if err != nil {
		return nil, err
	}
	result, err := r.c.ReplaceOne(ctx, ownerFilter(userID, id), doc)
	if err != nil {
		return nil, fmt.Errorf("replace recurring expense: %w", err)
	}
	if result.MatchedCount == 0 {
		return nil, ErrNotFound
	}
	return re, nil
}

func (r *mongoRecurringExpenses) Delete(ctx context.Context, userID, id string) error {
	result, err := r.c.DeleteOne(ctx, ownerFilter(userID, id))
	if err != nil {
		return fmt.Errorf("delete recurring expense: %w", err)
	}
	if result.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *mongoRecurringExpenses) ListByUser(ctx context.Context, userID string) ([]models.RecurringExpense, error) {
	cursor, err := r.c.Find(ctx, bson.M{"userId": userID}, options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("find recurring expenses: %w", err)
	}
	defer cursor.Close(ctx)

	var docs []recurringExpenseDoc
	if err := cursor.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("decode recurring expenses: %w", err)
	}
	out := make([]models.RecurringExpense, 0, len(docs))
	for i := range docs {
		re, err := docs[i].model()
		if err != nil {
			return nil, err
		}
		out = append(out, re)
	}
	return out, nil
}
