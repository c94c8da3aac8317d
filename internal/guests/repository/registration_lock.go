package repository

import (
	"context"
	"fmt"
	"time"

	guesterrors "gatherly/internal/guests/errors"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

const (
	LockCollectionName = "registration_locks"

	// LockTTL bounds how long a crashed holder can block an event.
	LockTTL = 30 * time.Second
)

// RegistrationLockRepository provides advisory locks keyed by event. Acquire
// returns a token that Release must present, so a holder whose lock was
// taken over cannot free its successor's.
type RegistrationLockRepository interface {
	Acquire(ctx context.Context, eventID string) (string, error)
	Release(ctx context.Context, eventID, token string) error
}

type mongoRegistrationLockRepository struct {
	cfg        *config.Config
	collection *mongo.Collection
}

func NewMongoRegistrationLockRepository(cfg *config.Config) RegistrationLockRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoRegistrationLockRepository{
		cfg:        cfg,
		collection: db.Collection(LockCollectionName),
	}
}

// Acquire returns ErrRegistrationLocked while another holder owns the lock.
// Locks older than LockTTL are taken over.
func (r *mongoRegistrationLockRepository) Acquire(ctx context.Context, eventID string) (string, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	now := mongotx.Now()
	if _, err := r.collection.DeleteOne(ctx, bson.M{
		"_id":        eventID,
		"created_at": bson.M{"$lt": now.Add(-LockTTL)},
	}); err != nil {
		return "", err
	}

	lock := model.RegistrationLock{EventID: eventID, Token: uuid.NewString(), CreatedAt: now}
	if _, err := r.collection.InsertOne(ctx, lock); err != nil {
		if mongotx.IsDuplicateKey(err) {
			return "", fmt.Errorf("%w: %s", guesterrors.ErrRegistrationLocked, eventID)
		}
		return "", err
	}
	return lock.Token, nil
}

func (r *mongoRegistrationLockRepository) Release(ctx context.Context, eventID, token string) error {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.WriteTimeout)
	defer cancel()

	_, err := r.collection.DeleteOne(ctx, releaseFilter(eventID, token))
	return err
}

func releaseFilter(eventID, token string) bson.M {
	return bson.M{"_id": eventID, "token": token}
}
