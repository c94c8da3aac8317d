package repository

import (
	"context"
	"errors"
	"fmt"

	promoerrors "gatherly/internal/promocodes/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const (
	CollectionName = "promo_codes"
)

type PromoCodeRepository interface {
	Create(ctx context.Context, p *model.PromoCode) error
	FindByID(ctx context.Context, eventID, id string) (*model.PromoCode, error)
	FindByCode(ctx context.Context, eventID, code string) (*model.PromoCode, error)
	FindByEvent(ctx context.Context, eventID string) ([]*model.PromoCode, error)
	Update(ctx context.Context, p *model.PromoCode) error
	Delete(ctx context.Context, eventID, id string) error
	DeleteByEvent(ctx context.Context, eventID string) (int64, error)

	// Redeem atomically takes one use of the code, provided it is active and
	// under its cap, and returns the updated document.
	Redeem(ctx context.Context, id string) (*model.PromoCode, error)
}

type mongoPromoCodeRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoPromoCodeRepository(cfg *config.Config) PromoCodeRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoPromoCodeRepository{
		cfg:        cfg,
		collection: db.Collection(CollectionName),
	}
}

func parseID(id string) (primitive.ObjectID, error) {
	oid, err := primitive.ObjectIDFromHex(id)
	if err != nil {
		return primitive.NilObjectID, fmt.Errorf("%w: %s", promoerrors.ErrInvalidID, id)
	}
	return oid, nil
}

func (r *mongoPromoCodeRepository) Create(ctx context.Context, p *model.PromoCode) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	p.CreatedAt = mongotx.Now()
	p.UpdatedAt = p.CreatedAt
	result, err := r.collection.InsertOne(ctx, p)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, p.Code)
		}
		return fmt.Errorf("failed to create promo code: %w", err)
	}

	if oid, ok := result.InsertedID.(primitive.ObjectID); ok {
		p.ID = oid.Hex()
	}
	return nil
}

func (r *mongoPromoCodeRepository) findOne(ctx context.Context, filter bson.M, key string) (*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	var p model.PromoCode
	err := r.collection.FindOne(ctx, filter).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", promoerrors.ErrNotFound, key)
		}
		return nil, fmt.Errorf("failed to find promo code: %w", err)
	}
	return &p, nil
}

func (r *mongoPromoCodeRepository) FindByID(ctx context.Context, eventID, id string) (*model.PromoCode, error) {
	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}
	return r.findOne(ctx, bson.M{"_id": objectID, "event_id": eventID}, id)
}

func (r *mongoPromoCodeRepository) FindByCode(ctx context.Context, eventID, code string) (*model.PromoCode, error) {
	return r.findOne(ctx, bson.M{"event_id": eventID, "code": code}, code)
}

func (r *mongoPromoCodeRepository) FindByEvent(ctx context.Context, eventID string) ([]*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	opts := options.Find().SetSort(bson.D{{Key: "created_at", Value: -1}})
	cursor, err := r.collection.Find(ctx, bson.M{"event_id": eventID}, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to query promo codes: %w", err)
	}
	defer cursor.Close(ctx)

	codes := []*model.PromoCode{}
	if err = cursor.All(ctx, &codes); err != nil {
		return nil, fmt.Errorf("failed to decode promo codes: %w", err)
	}
	return codes, nil
}

// Update rewrites the editable fields. used_count is owned by Redeem and is
// never written here.
func (r *mongoPromoCodeRepository) Update(ctx context.Context, p *model.PromoCode) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(p.ID)
	if err != nil {
		return err
	}

	p.UpdatedAt = mongotx.Now()
	set := bson.M{
		"code":           p.Code,
		"discount_type":  p.DiscountType,
		"discount_value": p.DiscountValue,
		"max_uses":       p.MaxUses,
		"ticket_types":   p.TicketTypes,
		"active":         p.Active,
		"updated_at":     p.UpdatedAt,
	}
	unset := bson.M{}
	if p.StartsAt != nil {
		set["starts_at"] = p.StartsAt
	} else {
		unset["starts_at"] = ""
	}
	if p.EndsAt != nil {
		set["ends_at"] = p.EndsAt
	} else {
		unset["ends_at"] = ""
	}

	update := bson.M{"$set": set}
	if len(unset) > 0 {
		update["$unset"] = unset
	}

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": objectID, "event_id": p.EventID}, update)
	if err != nil {
		if mongotx.IsDuplicateKey(err) {
			return fmt.Errorf("%w: %s", promoerrors.ErrDuplicateCode, p.Code)
		}
		return fmt.Errorf("failed to update promo code: %w", err)
	}
	if result.MatchedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrNotFound, p.ID)
	}
	return nil
}

func (r *mongoPromoCodeRepository) Delete(ctx context.Context, eventID, id string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return err
	}

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": objectID, "event_id": eventID})
	if err != nil {
		return fmt.Errorf("failed to delete promo code: %w", err)
	}
	if result.DeletedCount == 0 {
		return fmt.Errorf("%w: %s", promoerrors.ErrNotFound, id)
	}
	return nil
}

func (r *mongoPromoCodeRepository) DeleteByEvent(ctx context.Context, eventID string) (int64, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"event_id": eventID})
	if err != nil {
		return 0, fmt.Errorf("failed to delete promo codes of event %s: %w", eventID, err)
	}
	return result.DeletedCount, nil
}

func (r *mongoPromoCodeRepository) Redeem(ctx context.Context, id string) (*model.PromoCode, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	objectID, err := parseID(id)
	if err != nil {
		return nil, err
	}

	filter := bson.M{
		"_id":    objectID,
		"active": true,
		"$or": []bson.M{
			{"max_uses": 0},
			{"$expr": bson.M{"$lt": bson.A{"$used_count", "$max_uses"}}},
		},
	}
	update := bson.M{
		"$inc": bson.M{"used_count": 1},
		"$set": bson.M{"updated_at": mongotx.Now()},
	}
	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var p model.PromoCode
	err = r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&p)
	if err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, fmt.Errorf("%w: %s", promoerrors.ErrUnavailable, id)
		}
		return nil, fmt.Errorf("failed to redeem promo code: %w", err)
	}
	return &p, nil
}
