package mongostore

import (
	"context"
	"time"

	"github.com/ChinmayaKolhe/VicharManthan/internal/database"
	"github.com/pkg/errors"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	chatsCollection         = "chats"
	notificationsCollection = "notifications"
)

// Repository stores chats as documents with their messages embedded,
// alongside a notifications collection.
type Repository struct {
	client        *mongo.Client
	chats         *mongo.Collection
	notifications *mongo.Collection
}

var _ database.Repository = (*Repository)(nil)

func NewRepository(ctx context.Context, uri, dbName string) (*Repository, error) {
	cli, err := mongo.Connect(ctx, options.Client().ApplyURI(uri))
	if err != nil {
		return nil, errors.Wrap(err, "connect mongo")
	}

	if err := cli.Ping(ctx, nil); err != nil {
		cli.Disconnect(ctx)
		return nil, errors.Wrap(err, "ping mongo")
	}

	db := cli.Database(dbName)
	r := &Repository{
		client:        cli,
		chats:         db.Collection(chatsCollection),
		notifications: db.Collection(notificationsCollection),
	}

	if err := r.ensureIndexes(ctx); err != nil {
		cli.Disconnect(ctx)
		return nil, err
	}

	return r, nil
}

func (r *Repository) ensureIndexes(ctx context.Context) error {
	if _, err := r.chats.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "participants", Value: 1}, {Key: "lastMessageAt", Value: -1}},
	}); err != nil {
		return errors.Wrap(err, "create chats index")
	}

	if _, err := r.notifications.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "recipient", Value: 1}, {Key: "createdAt", Value: -1}},
	}); err != nil {
		return errors.Wrap(err, "create notifications index")
	}

	return nil
}

func (r *Repository) Ping(ctx context.Context) error {
	return r.client.Ping(ctx, nil)
}

func (r *Repository) Close() error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	return r.client.Disconnect(ctx)
}

func (r *Repository) ListChats(ctx context.Context, userId string) ([]database.Chat, error) {
	cur, err := r.chats.Find(ctx,
		bson.M{"participants": userId},
		options.Find().SetSort(bson.D{{Key: "lastMessageAt", Value: -1}, {Key: "createdAt", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list chats")
	}
	defer cur.Close(ctx)

	var docs []chatDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode chats")
	}

	chats := make([]database.Chat, 0, len(docs))
	for _, d := range docs {
		chats = append(chats, d.toChat())
	}
	return chats, nil
}

func (r *Repository) FindChatBetween(ctx context.Context, userA, userB string) (database.Chat, error) {
	var doc chatDoc
	err := r.chats.FindOne(ctx, bson.M{
		"participants": bson.M{"$all": bson.A{userA, userB}},
	}).Decode(&doc)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return database.Chat{}, database.ErrNotFound
		}
		return database.Chat{}, errors.Wrap(err, "find chat")
	}
	return doc.toChat(), nil
}

func (r *Repository) CreateChat(ctx context.Context, participants []string) (database.Chat, error) {
	now := database.Now()
	doc := chatDoc{
		Id:           primitive.NewObjectID(),
		Participants: participants,
		Messages:     []messageDoc{},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if _, err := r.chats.InsertOne(ctx, doc); err != nil {
		return database.Chat{}, errors.Wrap(err, "insert chat")
	}
	return doc.toChat(), nil
}

func (r *Repository) GetChat(ctx context.Context, chatId string) (database.Chat, error) {
	oid, err := primitive.ObjectIDFromHex(chatId)
	if err != nil {
		return database.Chat{}, database.ErrNotFound
	}

	var doc chatDoc
	if err := r.chats.FindOne(ctx, bson.M{"_id": oid}).Decode(&doc); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return database.Chat{}, database.ErrNotFound
		}
		return database.Chat{}, errors.Wrap(err, "get chat")
	}
	return doc.toChat(), nil
}

// AppendMessage pushes a message onto the chat document. The returned Message
// is built from the exact document that was pushed.
func (r *Repository) AppendMessage(ctx context.Context, chatId string, params database.AppendMessageParams) (database.Message, error) {
	oid, err := primitive.ObjectIDFromHex(chatId)
	if err != nil {
		return database.Message{}, database.ErrNotFound
	}

	doc := messageDoc{
		Id:        primitive.NewObjectID(),
		Sender:    params.SenderId,
		Text:      params.Text,
		CreatedAt: database.Now(),
	}

	res, err := r.chats.UpdateOne(ctx,
		bson.M{"_id": oid},
		bson.M{
			"$push": bson.M{"messages": doc},
			"$set": bson.M{
				"lastMessage":   doc.Text,
				"lastMessageAt": doc.CreatedAt,
				"updatedAt":     doc.CreatedAt,
			},
		},
	)
	if err != nil {
		return database.Message{}, errors.Wrap(err, "append message")
	}
	if res.MatchedCount == 0 {
		return database.Message{}, database.ErrNotFound
	}

	return doc.toMessage(chatId), nil
}

func (r *Repository) CreateNotification(ctx context.Context, params database.CreateNotificationParams) (database.Notification, error) {
	doc := notificationDoc{
		Id:        primitive.NewObjectID(),
		Recipient: params.RecipientId,
		Sender:    params.SenderId,
		Type:      params.Type,
		Idea:      params.IdeaId,
		Proposal:  params.ProposalId,
		Message:   params.Message,
		CreatedAt: database.Now(),
	}

	if _, err := r.notifications.InsertOne(ctx, doc); err != nil {
		return database.Notification{}, errors.Wrap(err, "insert notification")
	}
	return doc.toNotification(), nil
}

func (r *Repository) ListNotifications(ctx context.Context, recipientId string) ([]database.Notification, error) {
	cur, err := r.notifications.Find(ctx,
		bson.M{"recipient": recipientId},
		options.Find().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}}),
	)
	if err != nil {
		return nil, errors.Wrap(err, "list notifications")
	}
	defer cur.Close(ctx)

	var docs []notificationDoc
	if err := cur.All(ctx, &docs); err != nil {
		return nil, errors.Wrap(err, "decode notifications")
	}

	notifications := make([]database.Notification, 0, len(docs))
	for _, d := range docs {
		notifications = append(notifications, d.toNotification())
	}
	return notifications, nil
}

func (r *Repository) MarkNotificationRead(ctx context.Context, id, recipientId string) error {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return database.ErrNotFound
	}

	res, err := r.notifications.UpdateOne(ctx,
		bson.M{"_id": oid, "recipient": recipientId},
		bson.M{"$set": bson.M{"read": true}},
	)
	if err != nil {
		return errors.Wrap(err, "mark notification read")
	}
	if res.MatchedCount == 0 {
		return database.ErrNotFound
	}
	return nil
}
