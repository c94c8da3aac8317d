package repository

import (
	"context"
	"errors"
	"fmt"

	eventserrors "gatherly/internal/events/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "events"
)

type EventRepository interface {
	Create(ctx context.Context, e *model.Event) error
	FindByID(ctx context.Context, id string) (*model.Event, error)
	FindVisible(ctx context.Context, ownerID string, orgIDs []string, status model.EventStatus, limit int, offset int64) ([]*model.Event, error)
	CountVisible(ctx context.Context, ownerID string, orgIDs []string, status model.EventStatus) (int64, error)
	Update(ctx context.Context, e *model.Event) error
	Delete(ctx context.Context, id string) error
	PurgeOrganization(ctx context.Context, orgID string) error

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoEventRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoEventRepository(cfg *config.Config) EventRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoEventRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", eventserrors.ErrInvalidID, id)
	}
	return oid, nil
}

// visibleFilter matches events owned by ownerID or belonging to one of orgIDs.
func visibleFilter(ownerID string, orgIDs []string, status model.EventStatus) bson.M {
	or := []bson.M{{"owner_id": ownerID}}
	if len(orgIDs) > 0 {
		or = append(or, bson.M{"organization_id": bson.M{"$in": orgIDs}})
	}

	filter := bson.M{"$or": or}
	if status != "" {
		filter["status"] = status
	}
	return filter
}

func (r *mongoEventRepository) Create(ctx context.Context, e *model.Event) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	e.CreatedAt = mongotx.Now()
	e.UpdatedAt = e.CreatedAt
	result, err := r.collection.InsertOne(ctx, e)
	if err != nil {
		return fmt.Errorf("failed to create event: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		e.ID = oid.Hex()
	}
	return nil
}

func (r *mongoEventRepository) FindByID(ctx context.Context, id string) (*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var e model.Event
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&e)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find event: %w", err)
	}
	return &e, nil
}

func (r *mongoEventRepository) FindVisible(ctx context.Context, ownerID string, orgIDs []string, status model.EventStatus, limit int, offset int64) ([]*model.Event, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().
		SetLimit(int64(limit)).
		SetSkip(offset).
		SetSort(bson.D{{Key: "starts_at", Value: 1}, {Key: "_id", Value: 1}})

	cursor, err := r.collection.Find(ctx, visibleFilter(ownerID, orgIDs, status), opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query events: %w", err)
	}
	defer cursor.Close(ctx)

	events := []*model.Event{}
	if err = cursor.All(ctx, &events); err != nil {
		return nil, fmt.Errorf("failed to decode events: %w", err)
	}
	return events, nil
}

func (r *mongoEventRepository) CountVisible(ctx context.Context, ownerID string, orgIDs []string, status model.EventStatus) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	count, err := r.collection.CountDocuments(ctx, visibleFilter(ownerID, orgIDs, status))
	if err != nil {
		return 0, fmt.Errorf("failed to count events: %w", err)
	}
	return count, nil
}

func (r *mongoEventRepository) Update(ctx context.Context, e *model.Event) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(e.ID)
	if err != nil {
		return err
	}

	e.UpdatedAt = mongotx.Now()
	update := bson.M{
		"$set": bson.M{
			"title":        e.Title,
			"description":  e.Description,
			"venue":        e.Venue,
			"starts_at":    e.StartsAt,
			"ends_at":      e.EndsAt,
			"time_zone":    e.TimeZone,
			"capacity":     e.Capacity,
			"status":       e.Status,
			"ticket_types": e.TicketTypes,
			"updated_at":   e.UpdatedAt,
		},
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", eventserrors.ErrNotFound, e.ID)
	}
	return nil
}

func (r *mongoEventRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete event: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", eventserrors.ErrNotFound, id)
	}
	return nil
}

// PurgeOrganization detaches the organization's events. They stay with their
// owners.
func (r *mongoEventRepository) PurgeOrganization(ctx context.Context, orgID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	update := bson.M{
		"$unset": bson.M{"organization_id": ""},
		"$set":   bson.M{"updated_at": mongotx.Now()},
	}
	if _, err := r.collection.UpdateMany(ctx, bson.M{"organization_id": orgID}, update); err != nil {
		return fmt.Errorf("failed to detach events from organization %s: %w", orgID, err)
	}
	return nil
}

func (r *mongoEventRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
