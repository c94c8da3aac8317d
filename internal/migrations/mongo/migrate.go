package mongo

import (
	"context"
	"fmt"

	guestsrepo "gatherly/internal/guests/repository"
	"gatherly/internal/migrations/mongo/validators"
	"gatherly/pkg/logger"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// nameCollation matches the case-insensitive collation guest queries run with,
// so their sorts can use the index.
var nameCollation = &options.Collation{Locale: "en", Strength: 2}

var (
	UsersIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "email", Value: 1}}, Options: options.Index().SetUnique(true)},
	}

	OrganizationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "members.user_id", Value: 1}}},
		{Keys: bson.D{{Key: "owner_id", Value: 1}}},
	}

	RolesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "organization_id", Value: 1}, {Key: "name", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	InvitationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{
			{Key: "organization_id", Value: 1},
			{Key: "email", Value: 1},
			{Key: "status", Value: 1},
		}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "created_at", Value: -1}}},
	}

	EventsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "owner_id", Value: 1}, {Key: "starts_at", Value: 1}}},
		{Keys: bson.D{{Key: "organization_id", Value: 1}, {Key: "starts_at", Value: 1}}},
	}

	PromoCodesIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "code", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
	}

	GuestsIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true),
		},
		{
			Keys:    bson.D{{Key: "event_id", Value: 1}, {Key: "name", Value: 1}, {Key: "_id", Value: 1}},
			Options: options.Index().SetCollation(nameCollation),
		},
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "checked_in", Value: 1}, {Key: "ticket_type", Value: 1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "created_at", Value: 1}}},
		{Keys: bson.D{{Key: "event_id", Value: 1}, {Key: "order_id", Value: 1}}},
	}

	RegistrationLocksIndexes = []mongo.IndexModel{
		{
			Keys:    bson.D{{Key: "created_at", Value: 1}},
			Options: options.Index().SetExpireAfterSeconds(int32(guestsrepo.LockTTL.Seconds())),
		},
	}

	NotificationsIndexes = []mongo.IndexModel{
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "created_at", Value: -1}}},
		{Keys: bson.D{{Key: "user_id", Value: 1}, {Key: "read", Value: 1}}},
	}
)

type collectionDef struct {
	Indexes   []mongo.IndexModel
	Validator bson.M
}

// Collections maps every collection to its validator and indexes.
var Collections = map[string]collectionDef{
	"users":         {Indexes: UsersIndexes, Validator: validators.UserValidator},
	"organizations": {Indexes: OrganizationsIndexes, Validator: validators.OrganizationValidator},
	"roles":         {Indexes: RolesIndexes, Validator: validators.RoleValidator},
	"invitations":   {Indexes: InvitationsIndexes, Validator: validators.InvitationValidator},
	"events":        {Indexes: EventsIndexes, Validator: validators.EventValidator},
	"promo_codes":   {Indexes: PromoCodesIndexes, Validator: validators.PromoCodeValidator},
	"guests":        {Indexes: GuestsIndexes, Validator: validators.GuestValidator},
	"notifications": {Indexes: NotificationsIndexes, Validator: validators.NotificationValidator},

	guestsrepo.LockCollectionName: {Indexes: RegistrationLocksIndexes, Validator: validators.RegistrationLockValidator},
}

func RunMigration(ctx context.Context, client *mongo.Client, dbName string, log *logger.Logger) error {
	db := client.Database(dbName)
	log.Info("Running Mongo migrations", "database", dbName)

	for name, def := range Collections {
		if err := ensureCollection(ctx, db, name, def.Validator, log); err != nil {
			return fmt.Errorf("failed to ensure collection %s: %w", name, err)
		}
		if err := ensureIndexes(ctx, db, name, def.Indexes, log); err != nil {
			return fmt.Errorf("failed to ensure indexes for %s: %w", name, err)
		}
	}

	log.Info("All migrations applied successfully", "collections", len(Collections))
	return nil
}

func ensureCollection(ctx context.Context, db *mongo.Database, name string, validator bson.M, log *logger.Logger) error {
	existing, err := db.ListCollectionNames(ctx, bson.D{{Key: "name", Value: name}})
	if err != nil {
		return err
	}

	if len(existing) == 0 {
		log.Info("Creating collection", "collection", name)
		opts := options.CreateCollection().SetValidator(validator)
		if err := db.CreateCollection(ctx, name, opts); err != nil {
			return fmt.Errorf("failed creating %s: %w", name, err)
		}
		return nil
	}

	command := bson.D{
		{Key: "collMod", Value: name},
		{Key: "validator", Value: validator},
	}
	if err := db.RunCommand(ctx, command).Err(); err != nil {
		log.Warn("Failed updating validator", "collection", name, "error", err)
	}
	return nil
}

func ensureIndexes(ctx context.Context, db *mongo.Database, name string, models []mongo.IndexModel, log *logger.Logger) error {
	coll := db.Collection(name)
	if _, err := coll.Indexes().CreateMany(ctx, models); err != nil {
		return err
	}
	log.Debug("Ensured indexes", "collection", name, "count", len(models))
	return nil
}
