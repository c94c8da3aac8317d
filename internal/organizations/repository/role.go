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
	RoleCollectionName = "roles"
)

type RoleRepository interface {
	Create(ctx context.Context, role *model.Role) error
	FindByID(ctx context.Context, orgID, roleID string) (*model.Role, error)
	FindByOrganization(ctx context.Context, orgID string) ([]*model.Role, error)
	Update(ctx context.Context, role *model.Role) error
	Delete(ctx context.Context, orgID, roleID string) error
	DeleteByOrganization(ctx context.Context, orgID string) (int64, error)
}

type mongoRoleRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRoleRepository(cfg *config.Config) RoleRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRoleRepository{
		cfg:        cfg,
		collection: db.Collection(RoleCollectionName),
	}
}

func parseRoleID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: role %s", orgerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoRoleRepository) Create(ctx context.Context, role *model.Role) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	role.CreatedAt = mongotx.Now()
	role.UpdatedAt = role.CreatedAt
	result, err := r.collection.InsertOne(ctx, role)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", orgerrors.ErrDuplicateRole, role.Name)
		}
		return fmt.Errorf("failed to create role: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		role.ID = oid.Hex()
	}
	return nil
}

func (r *mongoRoleRepository) FindByID(ctx context.Context, orgID, roleID string) (*model.Role, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	objectID, err := parseRoleID(roleID)
	if err != nil {
		return nil, err
	}

	var role model.Role
	err = r.collection.FindOne(ctx, bson.M{"_id": objectID, "organization_id": orgID}).Decode(&role)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", orgerrors.ErrRoleNotFound, roleID)
		}
		return nil, fmt.Errorf("failed to find role: %w", err)
	}
	return &role, nil
}

func (r *mongoRoleRepository) FindByOrganization(ctx context.Context, orgID string) ([]*model.Role, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "system", Value: -1}, {Key: "name", Value: 1}})
	cursor, err := r.collection.Find(ctx, bson.M{"organization_id": orgID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query roles: %w", err)
	}
	defer cursor.Close(ctx)

	roles := []*model.Role{}
	if err = cursor.All(ctx, &roles); err != nil {
		return nil, fmt.Errorf("failed to decode roles: %w", err)
	}
	return roles, nil
}

func (r *mongoRoleRepository) Update(ctx context.Context, role *model.Role) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseRoleID(role.ID)
	if err != nil {
		return err
	}

	role.UpdatedAt = mongotx.Now()
	filter := bson.M{"_id": objectID, "organization_id": role.OrganizationID, "system": false}
	update := bson.M{"$set": bson.M{
		"name":        role.Name,
		"permissions": role.Permissions,
		"updated_at":  role.UpdatedAt,
	}}

	result, err := r.collection.UpdateOne(ctx, filter, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", orgerrors.ErrDuplicateRole, role.Name)
		}
		return fmt.Errorf("failed to update role: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", orgerrors.ErrRoleNotFound, role.ID)
	}
	return nil
}

func (r *mongoRoleRepository) Delete(ctx context.Context, orgID, roleID string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseRoleID(roleID)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "organization_id": orgID, "system": false})
	if err != nil {
		return fmt.Errorf("failed to delete role: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", orgerrors.ErrRoleNotFound, roleID)
	}
	return nil
}

func (r *mongoRoleRepository) DeleteByOrganization(ctx context.Context, orgID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"organization_id": orgID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete roles: %w", err)
	}
	return result.DeletedCount, nil
}
