package repository

import (
	"context"
	"errors"
	"fmt"

	orgerrors "gatherly/internal/organizations/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "organizations"
)

type OrganizationRepository interface {
	Create(ctx context.Context, org *model.Organization) error
	FindByID(ctx context.Context, id string) (*model.Organization, error)
	FindByMember(ctx context.Context, userID string) ([]*model.Organization, error)
	UpdateName(ctx context.Context, id, name, slug string) error
	Delete(ctx context.Context, id string) error

	AddMember(ctx context.Context, orgID string, m model.Member) error
	UpdateMember(ctx context.Context, orgID string, m model.Member) error
	RemoveMember(ctx context.Context, orgID, userID string) error
	CountMembersWithRole(ctx context.Context, orgID, roleID string) (int64, error)

	ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error
}

type mongoOrganizationRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
	txManager  mongotx.TransactionManager
}

func NewMongoOrganizationRepository(cfg *config.Config) OrganizationRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoOrganizationRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
		txManager:  mongotx.NewTransactionManager(cfg.Client.Mongo),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", orgerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoOrganizationRepository) Create(ctx context.Context, org *model.Organization) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	org.CreatedAt = mongotx.Now()
	org.UpdatedAt = org.CreatedAt
	result, err := r.collection.InsertOne(ctx, org)
	if err != nil {
		return fmt.Errorf("failed to create organization: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		org.ID = oid.Hex()
	}

	return nil
}

func (r *mongoOrganizationRepository) FindByID(ctx context.Context, id string) (*model.Organization, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	var org model.Organization
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID}).Decode(&org)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", orgerrors.ErrNotFound, id)
		}
		return nil, fmt.Errorf("failed to find organization: %w", err)
	}
	return &org, nil
}

func (r *mongoOrganizationRepository) FindByMember(ctx context.Context, userID string) ([]*model.Organization, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"members.user_id": userID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query organizations: %w", err)
	}
	defer cursor.Close(ctx)

	orgs := []*model.Organization{}
	if err = cursor.All(ctx, &orgs); err != nil {
		return nil, fmt.Errorf("failed to decode organizations: %w", err)
	}
	return orgs, nil
}

func (r *mongoOrganizationRepository) UpdateName(ctx context.Context, id, name, slug string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	update := bson.M{"$set": bson.M{"name": name, "slug": slug, "updated_at": mongotx.Now()}}
	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID}, update)
	if err != nil {
		return fmt.Errorf("failed to update organization: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", orgerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoOrganizationRepository) Delete(ctx context.Context, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID})
	if err != nil {
		return fmt.Errorf("failed to delete organization: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", orgerrors.ErrNotFound, id)
	}
	return nil
}

// AddMember appends m unless the user already holds a seat. The membership
// check is part of the filter so concurrent accepts cannot double-add.
func (r *mongoOrganizationRepository) AddMember(ctx context.Context, orgID string, m model.Member) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(orgID)
	if err != nil {
		return err
	}

	m.JoinedAt = mongotx.Now()
	filter := bson.M{"_id": objectID, "members.user_id": bson.M{"$ne": m.UserID}}
	update := bson.M{
		"$push": bson.M{"members": m},
		"$set":  bson.M{"updated_at": m.JoinedAt},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to add member: %w", err)
	}
	if result.MatchedCount == 0 {
		count, err := r.collection.CountDocuments(ctx, bson.M{"_id": objectID})
		if err != nil {
			return fmt.Errorf("failed to check organization: %w", err)
		}
		if count == 0 {
			return fmt.Errorf("%w: %s", orgerrors.ErrNotFound, orgID)
		}
		return fmt.Errorf("%w: %s", orgerrors.ErrDuplicateMember, m.UserID)
	}
	return nil
}

func (r *mongoOrganizationRepository) UpdateMember(ctx context.Context, orgID string, m model.Member) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(orgID)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": objectID, "members.user_id": m.UserID}
	update := bson.M{"$set": bson.M{
		"members.$.role_id":           m.RoleID,
		"members.$.extra_permissions": m.ExtraPermissions,
		"updated_at":                  mongotx.Now(),
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to update member: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", orgerrors.ErrMemberNotFound, m.UserID)
	}
	return nil
}

func (r *mongoOrganizationRepository) RemoveMember(ctx context.Context, orgID, userID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(orgID)
	if err != nil {
		return err
	}

	filter := bson.M{"_id": objectID, "members.user_id": userID}
	update := bson.M{
		"$pull": bson.M{"members": bson.M{"user_id": userID}},
		"$set":  bson.M{"updated_at": mongotx.Now()},
	}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		return fmt.Errorf("failed to remove member: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", orgerrors.ErrMemberNotFound, userID)
	}
	return nil
}

func (r *mongoOrganizationRepository) CountMembersWithRole(ctx context.Context, orgID, roleID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseID(orgID)
	if err != nil {
		return 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"_id": objectID}}},
		{{Key: "$unwind", Value: "$members"}},
		{{Key: "$match", Value: bson.M{"members.role_id": roleID}}},
		{{Key: "$count", Value: "n"}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, fmt.Errorf("failed to count members: %w", err)
	}
	defer cursor.Close(ctx)

	var out []struct {
		N int64 `bson:"n"`
	}
	if err := cursor.All(ctx, &out); err != nil {
		return 0, fmt.Errorf("failed to decode member count: %w", err)
	}
	if len(out) == 0 {
		return 0, nil
	}
	return out[0].N, nil
}

func (r *mongoOrganizationRepository) ExecuteTransaction(ctx context.Context, fn mongotx.TransactionFunc) error {
	return r.txManager.ExecuteTransaction(ctx, fn)
}
