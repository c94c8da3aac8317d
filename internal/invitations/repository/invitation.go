package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	inverrors "gatherly/internal/invitations/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "invitations"
)

type InvitationRepository interface {
	Create(ctx context.Context, inv *model.Invitation) error
	FindByID(ctx context.Context, id string) (*model.Invitation, error)
	FindByOrganization(ctx context.Context, orgID string) ([]*model.Invitation, error)
	FindPending(ctx context.Context, orgID, email string, now time.Time) (*model.Invitation, error)
	Transition(ctx context.Context, id string, from, to model.InvitationStatus, set bson.M) error
	PurgeOrganization(ctx context.Context, orgID string) error
}

type mongoInvitationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoInvitationRepository(cfg *config.Config) InvitationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoInvitationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func (r *mongoInvitationRepository) Create(ctx context.Context, inv *model.Invitation) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	inv.CreatedAt = mongotx.Now()
	result, err := r.collection.InsertOne(ctx, inv)
	if err != nil {
		return fmt.Errorf("failed to create invitation: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		inv.ID = oid.Hex()
	}
	return nil
}

func (r *mongoInvitationRepository) FindByID(ctx context.Context, id string) (*model.Invitation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return nil, fmt.Errorf("%w: %s", inverrors.ErrInvalidID, id)
	}

	var inv model.Invitation
	if err := r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", inverrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find invitation: %w", err)
	}
	return &inv, nil
}

func (r *mongoInvitationRepository) FindByOrganization(ctx context.Context, orgID string) ([]*model.Invitation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"organization_id": orgID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query invitations: %w", err)
	}
	defer cursor.Close(ctx)

	invitations := []*model.Invitation{}
	if err = cursor.All(ctx, &invitations); err != nil {
		return nil, fmt.Errorf("failed to decode invitations: %w", err)
	}
	return invitations, nil
}

// FindPending returns the live pending invitation for email in orgID, or
// ErrNotFound.
func (r *mongoInvitationRepository) FindPending(ctx context.Context, orgID, email string, now time.Time) (*model.Invitation, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	filter := bson.M{
		"organization_id": orgID,
		"email":           email,
		"status":          model.InvitationPending,
		"expires_at":      bson.M{"$gt": now},
	}

	var inv model.Invitation
	if err := r.collection.FindOne(ctx, filter).Decode(&inv); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", inverrors.ErrNotFound, email)
		}
		return nil, fmt.Errorf("failed to find pending invitation: %w", err)
	}
	return &inv, nil
}

// Transition moves an invitation from one status to another, applying set
// alongside. It fails with ErrStatusChanged if the invitation is no longer in
// the from status.
func (r *mongoInvitationRepository) Transition(ctx context.Context, id string, from, to model.InvitationStatus, set bson.M) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return fmt.Errorf("%w: %s", inverrors.ErrInvalidID, id)
	}

	fields := bson.M{"status": to}
	for k, v := range set {
		fields[k] = v
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "status": from}, bson.M{"$set": fields})
	if err != nil {
		return fmt.Errorf("failed to update invitation: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", inverrors.ErrStatusChanged, id)
	}
	return nil
}

func (r *mongoInvitationRepository) PurgeOrganization(ctx context.Context, orgID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	if _, err := r.collection.DeleteMany(ctx, bson.M{"organization_id": orgID}); err != nil {
		return fmt.Errorf("failed to delete invitations: %w", err)
	}
	return nil
}
