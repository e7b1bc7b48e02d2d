package repository

import (
	"context"
	"time"

	"github.com/bhojansetu/bhojansetu/internal/models"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const messagesCollection = "messages"

type messageDoc struct {
	ID         string    `bson:"_id"`
	DonationID string    `bson:"donation"`
	SenderID   string    `bson:"sender"`
	Content    string    `bson:"content"`
	ReadBy     []string  `bson:"readBy"`
	CreatedAt  time.Time `bson:"createdAt"`
}

type MongoMessageRepository struct {
	coll *mongo.Collection
}

func NewMongoMessageRepository(db *mongo.Database) *MongoMessageRepository {
	return &MongoMessageRepository{coll: db.Collection(messagesCollection)}
}

// EnsureIndexes creates the thread index used by list and clear.
func (r *MongoMessageRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys:    bson.D{{Key: "donation", Value: 1}, {Key: "createdAt", Value: 1}},
		Options: options.Index().SetName("idx_messages_donation_created"),
	})
	return err
}

func (r *MongoMessageRepository) Create(ctx context.Context, message *models.Message) error {
	if message.ID == uuid.Nil {
		message.ID = uuid.New()
	}
	if message.CreatedAt.IsZero() {
		message.CreatedAt = time.Now().UTC()
	}
	_, err := r.coll.InsertOne(ctx, toMessageDoc(message))
	return err
}

func (r *MongoMessageRepository) ListByDonation(ctx context.Context, donationID uuid.UUID) ([]models.Message, error) {
	opts := options.Find().SetSort(bson.D{{Key: "createdAt", Value: 1}})
	cur, err := r.coll.Find(ctx, bson.M{"donation": donationID.String()}, opts)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var docs []messageDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, err
	}
	out := make([]models.Message, 0, len(docs))
	for _, doc := range docs {
		msg, err := doc.toModel()
		if err != nil {
			return nil, err
		}
		out = append(out, msg)
	}
	return out, nil
}

func (r *MongoMessageRepository) DeleteByDonation(ctx context.Context, donationID uuid.UUID) (int64, error) {
	res, err := r.coll.DeleteMany(ctx, bson.M{"donation": donationID.String()})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func (r *MongoMessageRepository) DeleteByDonations(ctx context.Context, donationIDs []uuid.UUID) (int64, error) {
	if len(donationIDs) == 0 {
		return 0, nil
	}
	ids := make([]string, len(donationIDs))
	for i, id := range donationIDs {
		ids[i] = id.String()
	}
	res, err := r.coll.DeleteMany(ctx, bson.M{"donation": bson.M{"$in": ids}})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

func toMessageDoc(m *models.Message) messageDoc {
	readBy := make([]string, len(m.ReadBy))
	for i, id := range m.ReadBy {
		readBy[i] = id.String()
	}
	return messageDoc{
		ID:         m.ID.String(),
		DonationID: m.DonationID.String(),
		SenderID:   m.SenderID.String(),
		Content:    m.Content,
		ReadBy:     readBy,
		CreatedAt:  m.CreatedAt,
	}
}

func (d messageDoc) toModel() (models.Message, error) {
	id, err := uuid.Parse(d.ID)
	if err != nil {
		return models.Message{}, err
	}
	donationID, err := uuid.Parse(d.DonationID)
	if err != nil {
		return models.Message{}, err
	}
	senderID, err := uuid.Parse(d.SenderID)
	if err != nil {
		return models.Message{}, err
	}
	readBy := make([]uuid.UUID, 0, len(d.ReadBy))
	for _, s := range d.ReadBy {
		if rid, err := uuid.Parse(s); err == nil {
			readBy = append(readBy, rid)
		}
	}
	return models.Message{
		ID:         id,
		DonationID: donationID,
		SenderID:   senderID,
		Content:    d.Content,
		ReadBy:     readBy,
		CreatedAt:  d.CreatedAt,
	}, nil
}
