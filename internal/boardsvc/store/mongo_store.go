package store

import (
	"context"
	"errors"
	"fmt"
	"time"

	log "github.com/sirupsen/logrus"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
	"go.mongodb.org/mongo-driver/mongo/readconcern"
	"go.mongodb.org/mongo-driver/mongo/writeconcern"

	"github.com/avvvet/kanban-services/internal/boardsvc/models"
	"github.com/avvvet/kanban-services/internal/boardsvc/position"
	"github.com/avvvet/kanban-services/internal/db"
)

type columnDoc struct {
	ID        string    `bson:"_id"`
	Title     string    `bson:"title"`
	Position  int       `bson:"position"`
	Color     *string   `bson:"color,omitempty"`
	Rev       int64     `bson:"rev"`
	CreatedAt time.Time `bson:"created_at"`
	UpdatedAt time.Time `bson:"updated_at"`
}

func (d *columnDoc) model() *models.Column {
	return &models.Column{
		ID:        d.ID,
		Title:     d.Title,
		Order:     d.Position,
		Color:     d.Color,
		Cards:     []models.Card{},
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
}

type cardDoc struct {
	ID        string     `bson:"_id"`
	Title     string     `bson:"title"`
	Content   *string    `bson:"content,omitempty"`
	DueDate   *time.Time `bson:"due_date,omitempty"`
	Priority  *string    `bson:"priority,omitempty"`
	ColumnID  string     `bson:"column_id"`
	Position  int        `bson:"position"`
	CreatedAt time.Time  `bson:"created_at"`
	UpdatedAt time.Time  `bson:"updated_at"`
}

func newCardDoc(c *models.Card) *cardDoc {
	d := &cardDoc{
		ID:        c.ID,
		Title:     c.Title,
		Content:   c.Content,
		DueDate:   c.DueDate,
		ColumnID:  c.ColumnID,
		Position:  c.Order,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	}
	if c.Priority != nil {
		p := string(*c.Priority)
		d.Priority = &p
	}
	return d
}

func (d *cardDoc) model() *models.Card {
	c := &models.Card{
		ID:        d.ID,
		Title:     d.Title,
		Content:   d.Content,
		ColumnID:  d.ColumnID,
		Order:     d.Position,
		CreatedAt: d.CreatedAt.UTC(),
		UpdatedAt: d.UpdatedAt.UTC(),
	}
	if d.DueDate != nil {
		due := d.DueDate.UTC()
		c.DueDate = &due
	}
	if d.Priority != nil {
		p := models.Priority(*d.Priority)
		c.Priority = &p
	}
	return c
}

// MongoStore keeps the board in MongoDB. Transactions run in a session on a
// replica set; lock methods bump a revision counter so that concurrent
// transactions touching the same scope hit a write conflict.
type MongoStore struct {
	mongoTx
	client *mongo.Client
}

func NewMongoStore(client *mongo.Client, database *mongo.Database) *MongoStore {
	return &MongoStore{
		mongoTx: mongoTx{
			columns: database.Collection(db.ColumnsCollection),
			cards:   database.Collection(db.CardsCollection),
			meta:    database.Collection(db.MetaCollection),
		},
		client: client,
	}
}

func (s *MongoStore) WithTx(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error {
	sess, err := s.client.StartSession()
	if err != nil {
		return fmt.Errorf("failed to start session: %w", err)
	}
	defer sess.EndSession(context.Background())

	txOpts := options.Transaction().
		SetReadConcern(readconcern.Snapshot()).
		SetWriteConcern(writeconcern.Majority())
	if err := sess.StartTransaction(txOpts); err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}

	sctx := mongo.NewSessionContext(ctx, sess)
	tx := s.mongoTx
	tx.locking = true

	if err := fn(sctx, &tx); err != nil {
		if abortErr := sess.AbortTransaction(context.Background()); abortErr != nil {
			log.Errorf("failed to abort transaction: %v", abortErr)
		}
		return err
	}

	if err := sess.CommitTransaction(sctx); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", translateMongoErr(err))
	}
	return nil
}

func (s *MongoStore) Close() error {
	return s.client.Disconnect(context.Background())
}

type mongoTx struct {
	columns *mongo.Collection
	cards   *mongo.Collection
	meta    *mongo.Collection
	locking bool
}

func (t *mongoTx) LockBoard(ctx context.Context) error {
	if !t.locking {
		return nil
	}
	_, err := t.meta.UpdateOne(ctx,
		bson.M{"_id": "board"},
		bson.M{"$inc": bson.M{"rev": 1}},
		options.Update().SetUpsert(true))
	if err != nil {
		return fmt.Errorf("failed to lock board: %w", translateMongoErr(err))
	}
	return nil
}

func (t *mongoTx) LockColumns(ctx context.Context, ids ...string) error {
	if !t.locking || len(ids) == 0 {
		return nil
	}
	_, err := t.columns.UpdateMany(ctx,
		bson.M{"_id": bson.M{"$in": ids}},
		bson.M{"$inc": bson.M{"rev": 1}})
	if err != nil {
		return fmt.Errorf("failed to lock columns: %w", translateMongoErr(err))
	}
	return nil
}

func (t *mongoTx) findColumn(ctx context.Context, filter bson.M) (*models.Column, error) {
	var doc columnDoc
	err := t.columns.FindOne(ctx, filter).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrColumnNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to find column: %w", translateMongoErr(err))
	}
	return doc.model(), nil
}

func (t *mongoTx) GetColumn(ctx context.Context, id string) (*models.Column, error) {
	return t.findColumn(ctx, bson.M{"_id": id})
}

func (t *mongoTx) FindColumnByTitle(ctx context.Context, title string) (*models.Column, error) {
	return t.findColumn(ctx, bson.M{"title": title})
}

func maxPosition(ctx context.Context, coll *mongo.Collection, filter bson.M) (int, error) {
	var doc struct {
		Position int `bson:"position"`
	}
	opts := options.FindOne().
		SetSort(bson.D{{Key: "position", Value: -1}}).
		SetProjection(bson.M{"position": 1})
	err := coll.FindOne(ctx, filter, opts).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return 0, nil
	}
	if err != nil {
		return 0, fmt.Errorf("failed to read max position: %w", translateMongoErr(err))
	}
	return doc.Position, nil
}

func (t *mongoTx) MaxColumnOrder(ctx context.Context) (int, error) {
	return maxPosition(ctx, t.columns, bson.M{})
}

func (t *mongoTx) InsertColumn(ctx context.Context, c *models.Column) error {
	_, err := t.columns.InsertOne(ctx, columnDoc{
		ID:        c.ID,
		Title:     c.Title,
		Position:  c.Order,
		Color:     c.Color,
		CreatedAt: c.CreatedAt,
		UpdatedAt: c.UpdatedAt,
	})
	if err != nil {
		return fmt.Errorf("failed to insert column: %w", translateMongoErr(err))
	}
	return nil
}

func (t *mongoTx) UpdateColumn(ctx context.Context, c *models.Column) error {
	set := bson.M{
		"title":      c.Title,
		"position":   c.Order,
		"updated_at": c.UpdatedAt,
	}
	update := bson.M{"$set": set}
	if c.Color != nil {
		set["color"] = *c.Color
	} else {
		update["$unset"] = bson.M{"color": ""}
	}

	res, err := t.columns.UpdateOne(ctx, bson.M{"_id": c.ID}, update)
	if err != nil {
		return fmt.Errorf("failed to update column: %w", translateMongoErr(err))
	}
	if res.MatchedCount == 0 {
		return ErrColumnNotFound
	}
	return nil
}

func (t *mongoTx) DeleteColumn(ctx context.Context, id string) error {
	res, err := t.columns.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete column: %w", translateMongoErr(err))
	}
	if res.DeletedCount == 0 {
		return ErrColumnNotFound
	}
	return nil
}

func shiftFilter(s position.Shift) bson.M {
	return bson.M{"$gte": s.From, "$lte": s.To}
}

func (t *mongoTx) ShiftColumns(ctx context.Context, s position.Shift) error {
	if s.Empty() {
		return nil
	}
	_, err := t.columns.UpdateMany(ctx,
		bson.M{"position": shiftFilter(s)},
		bson.M{"$inc": bson.M{"position": s.Delta}})
	if err != nil {
		return fmt.Errorf("failed to shift columns: %w", translateMongoErr(err))
	}
	return nil
}

func (t *mongoTx) ListColumns(ctx context.Context) ([]*models.Column, error) {
	cur, err := t.columns.Find(ctx, bson.M{}, options.Find().SetSort(bson.D{{Key: "position", Value: 1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list columns: %w", translateMongoErr(err))
	}
	var docs []columnDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode columns: %w", err)
	}

	columns := make([]*models.Column, 0, len(docs))
	for i := range docs {
		columns = append(columns, docs[i].model())
	}
	return columns, nil
}

func (t *mongoTx) CountCards(ctx context.Context, columnID string) (int, error) {
	n, err := t.cards.CountDocuments(ctx, bson.M{"column_id": columnID})
	if err != nil {
		return 0, fmt.Errorf("failed to count cards: %w", translateMongoErr(err))
	}
	return int(n), nil
}

func (t *mongoTx) GetCard(ctx context.Context, id string) (*models.Card, error) {
	var doc cardDoc
	err := t.cards.FindOne(ctx, bson.M{"_id": id}).Decode(&doc)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return nil, ErrCardNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get card %s: %w", id, translateMongoErr(err))
	}
	return doc.model(), nil
}

func (t *mongoTx) MaxCardOrder(ctx context.Context, columnID string) (int, error) {
	return maxPosition(ctx, t.cards, bson.M{"column_id": columnID})
}

func (t *mongoTx) InsertCard(ctx context.Context, c *models.Card) error {
	if _, err := t.cards.InsertOne(ctx, newCardDoc(c)); err != nil {
		return fmt.Errorf("failed to insert card: %w", translateMongoErr(err))
	}
	return nil
}

func (t *mongoTx) UpdateCard(ctx context.Context, c *models.Card) error {
	res, err := t.cards.ReplaceOne(ctx, bson.M{"_id": c.ID}, newCardDoc(c))
	if err != nil {
		return fmt.Errorf("failed to update card: %w", translateMongoErr(err))
	}
	if res.MatchedCount == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (t *mongoTx) DeleteCard(ctx context.Context, id string) error {
	res, err := t.cards.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return fmt.Errorf("failed to delete card: %w", translateMongoErr(err))
	}
	if res.DeletedCount == 0 {
		return ErrCardNotFound
	}
	return nil
}

func (t *mongoTx) ShiftCards(ctx context.Context, columnID string, s position.Shift) error {
	if s.Empty() {
		return nil
	}
	_, err := t.cards.UpdateMany(ctx,
		bson.M{"column_id": columnID, "position": shiftFilter(s)},
		bson.M{"$inc": bson.M{"position": s.Delta}})
	if err != nil {
		return fmt.Errorf("failed to shift cards: %w", translateMongoErr(err))
	}
	return nil
}

func (t *mongoTx) findCards(ctx context.Context, filter bson.M, sort bson.D) ([]*models.Card, error) {
	cur, err := t.cards.Find(ctx, filter, options.Find().SetSort(sort))
	if err != nil {
		return nil, fmt.Errorf("failed to list cards: %w", translateMongoErr(err))
	}
	var docs []cardDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, fmt.Errorf("failed to decode cards: %w", err)
	}

	cards := make([]*models.Card, 0, len(docs))
	for i := range docs {
		cards = append(cards, docs[i].model())
	}
	return cards, nil
}

func (t *mongoTx) ListCards(ctx context.Context) ([]*models.Card, error) {
	return t.findCards(ctx, bson.M{}, bson.D{{Key: "column_id", Value: 1}, {Key: "position", Value: 1}})
}

func (t *mongoTx) ListCardsByColumn(ctx context.Context, columnID string) ([]*models.Card, error) {
	return t.findCards(ctx, bson.M{"column_id": columnID}, bson.D{{Key: "position", Value: 1}})
}

// transientTxLabel marks errors after which the whole transaction may be
// retried, write conflicts among them.
const transientTxLabel = "TransientTransactionError"

func translateMongoErr(err error) error {
	if mongo.IsDuplicateKeyError(err) {
		return fmt.Errorf("%w: %v", ErrTitleExists, err)
	}
	var le mongo.LabeledError
	if errors.As(err, &le) && le.HasErrorLabel(transientTxLabel) {
		return fmt.Errorf("%w: %v", ErrConflict, err)
	}
	return err
}
