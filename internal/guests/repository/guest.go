package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	guesterrors "gatherly/internal/guests/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "guests"
)

// nameCollation sorts and compares names case-insensitively.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

type GuestRepository interface {
	Create(ctx context.Context, g *model.Guest) error
	FindByID(ctx context.Context, eventID, id string) (*model.Guest, error)
	FindByEmail(ctx context.Context, eventID, email string) (*model.Guest, error)
	Find(ctx context.Context, eventID string, q model.GuestQuery, skip int64, limit int) ([]*model.Guest, error)
	Count(ctx context.Context, eventID string, q model.GuestQuery) (int64, error)
	CountByTicketType(ctx context.Context, eventID, ticketType string) (int64, error)
	Update(ctx context.Context, g *model.Guest) error
	SetCheckIn(ctx context.Context, eventID, id string, checkedIn bool, at time.Time) (*model.Guest, error)
	Delete(ctx context.Context, eventID, id string) error
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)
}

type mongoGuestRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoGuestRepository(cfg *config.Config) GuestRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoGuestRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", guesterrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoGuestRepository) Create(ctx context.Context, g *model.Guest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	g.CreatedAt = mongotx.Now()
	g.UpdatedAt = g.CreatedAt
	result, err := r.collection.InsertOne(ctx, g)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", guesterrors.ErrDuplicateEmail, g.Email)
		}
		return fmt.Errorf("failed to create guest: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		g.ID = oid.Hex()
	}
	return nil
}

func (r *mongoGuestRepository) findOne(ctx context.Context, filter bson.M, key string) (*model.Guest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var g model.Guest
	err := r.collection.FindOne(ctx, filter).Decode(&g)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", guesterrors.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find guest: %w", err)
	}
	return &g, nil
}

func (r *mongoGuestRepository) FindByID(ctx context.Context, eventID, id string) (*model.Guest, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objectID, "event_id": eventID}, id)
}

func (r *mongoGuestRepository) FindByEmail(ctx context.Context, eventID, email string) (*model.Guest, error) {
	return r.findOne(ctx, bson.M{"event_id": eventID, "email": email}, email)
}

func (r *mongoGuestRepository) Find(ctx context.Context, eventID string, q model.GuestQuery, skip int64, limit int) ([]*model.Guest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetSkip(skip).
		SetLimit(int64(limit)).
		SetSort(Sort(q.Sort)).
		SetCollation(nameCollation)

	cursor, err := r.collection.Find(ctx, Filter(eventID, q), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query guests for event [%s]: %w", eventID, err)
	}
	defer cursor.Close(ctx)

	guests := []*model.Guest{}
	if err := cursor.All(ctx, &guests); err != nil {
		return nil, fmt.Errorf("failed to decode guests: %w", err)
	}
	return guests, nil
}

func (r *mongoGuestRepository) Count(ctx context.Context, eventID string, q model.GuestQuery) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, Filter(eventID, q))
	if err != nil {
		return 0, fmt.Errorf("failed to count guests for event [%s]: %w", eventID, err)
	}
	return count, nil
}

// CountByTicketType counts an event's guests; an empty ticketType counts all
// of them.
func (r *mongoGuestRepository) CountByTicketType(ctx context.Context, eventID, ticketType string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{"event_id": eventID}
	if ticketType != "" {
		filter["ticket_type"] = ticketType
	}

	count, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return 0, fmt.Errorf("failed to count guests for event [%s]: %w", eventID, err)
	}
	return count, nil
}

func (r *mongoGuestRepository) Update(ctx context.Context, g *model.Guest) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(g.ID)
	if err != nil {
		return err
	}

	g.UpdatedAt = mongotx.Now()
	update := bson.M{
		"$set": bson.M{
			"name":        g.Name,
			"email":       g.Email,
			"phone":       g.Phone,
			"ticket_type": g.TicketType,
			"notes":       g.Notes,
			"updated_at":  g.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "event_id": g.EventID}, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", guesterrors.ErrDuplicateEmail, g.Email)
		}
		return fmt.Errorf("failed to update guest: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", guesterrors.ErrNotFound, g.ID)
	}
	return nil
}

// SetCheckIn flips the check-in flag only when it differs from checkedIn, so
// concurrent scans at the door record a single check-in.
func (r *mongoGuestRepository) SetCheckIn(ctx context.Context, eventID, id string, checkedIn bool, at time.Time) (*model.Guest, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{"_id": objectID, "event_id": eventID, "checked_in": !checkedIn}
	set := bson.M{"checked_in": checkedIn, "updated_at": mongotx.Now()}
	if checkedIn {
		set["checked_in_at"] = at
	}
	update := bson.M{"$set": set}
	if !checkedIn {
		update["$unset"] = bson.M{"checked_in_at": ""}
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var g model.Guest
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&g)
	if err == nil {
		return &g, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return nil, fmt.Errorf("failed to update guest check-in: %w", err)
	}

	if _, findErr := r.FindByID(ctx, eventID, id); findErr != nil {
		return nil, findErr
	}
	return nil, fmt.Errorf("%w: %s", guesterrors.ErrCheckInUnchanged, id)
}

func (r *mongoGuestRepository) Delete(ctx context.Context, eventID, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "event_id": eventID})
	if err != nil {
		return fmt.Errorf("failed to delete guest: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", guesterrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoGuestRepository) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete guests of event %s: %w", eventID, err)
	}
	return result.DeletedCount, nil
}
