package repository

import (
	"context"
	"fmt"

	guestsrepo "gatherly/internal/guests/repository"
	promorepo "gatherly/internal/promocodes/repository"
	"gatherly/pkg/config"
	mongotx "gatherly/pkg/db/mongo"
	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// TicketTypeCount is the guest tally for one stored ticket type name.
type TicketTypeCount struct {
	TicketType string `bson:"_id"`
	Guests     int64  `bson:"guests"`
	CheckedIn  int64  `bson:"checked_in"`
}

// StatsRepository runs the read-only aggregations behind an event dashboard.
type StatsRepository interface {
	GuestCounts(ctx context.Context, eventID string) ([]TicketTypeCount, error)
	Registrations(ctx context.Context, eventID, timeZone string) ([]model.DailyRegistrations, error)
	PromoCodeStats(ctx context.Context, eventID string) (model.PromoCodeStats, error)
}

type mongoStatsRepository struct {
	cfg        *config.Config
	guests     *mongo.Collection
	promoCodes *mongo.Collection
}

func NewMongoStatsRepository(cfg *config.Config) StatsRepository {
	db := cfg.Client.Mongo.Database(cfg.MongoDatabaseName)
	return &mongoStatsRepository{
		cfg:        cfg,
		guests:     db.Collection(guestsrepo.CollectionName),
		promoCodes: db.Collection(promorepo.CollectionName),
	}
}

func (r *mongoStatsRepository) GuestCounts(ctx context.Context, eventID string) ([]TicketTypeCount, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"event_id": eventID}},
		{"$group": bson.M{
			"_id":    bson.M{"$ifNull": bson.A{"$ticket_type", ""}},
			"guests": bson.M{"$sum": 1},
			"checked_in": bson.M{"$sum": bson.M{
				"$cond": bson.A{"$checked_in", 1, 0},
			}},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cur, err := r.guests.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate guests for event [%s]: %w", eventID, err)
	}
	defer cur.Close(ctx)

	counts := []TicketTypeCount{}
	if err := cur.All(ctx, &counts); err != nil {
		return nil, fmt.Errorf("failed to decode guest counts: %w", err)
	}
	return counts, nil
}

// Registrations counts guests by the calendar day they were added, in the
// event's time zone.
func (r *mongoStatsRepository) Registrations(ctx context.Context, eventID, timeZone string) ([]model.DailyRegistrations, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"event_id": eventID}},
		{"$group": bson.M{
			"_id": bson.M{"$dateToString": bson.M{
				"format":   "%Y-%m-%d",
				"date":     "$created_at",
				"timezone": timeZone,
			}},
			"count": bson.M{"$sum": 1},
		}},
		{"$sort": bson.M{"_id": 1}},
	}

	cur, err := r.guests.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate registrations for event [%s]: %w", eventID, err)
	}
	defer cur.Close(ctx)

	days := []model.DailyRegistrations{}
	for cur.Next(ctx) {
		var doc struct {
			Day   string `bson:"_id"`
			Count int64  `bson:"count"`
		}
		if err := cur.Decode(&doc); err != nil {
			return nil, fmt.Errorf("failed to decode registrations: %w", err)
		}
		days = append(days, model.DailyRegistrations{Day: doc.Day, Count: doc.Count})
	}
	if err := cur.Err(); err != nil {
		return nil, fmt.Errorf("failed to read registrations: %w", err)
	}
	return days, nil
}

func (r *mongoStatsRepository) PromoCodeStats(ctx context.Context, eventID string) (model.PromoCodeStats, error) {
	ctx, cancel := mongotx.WithTimeout(ctx, r.cfg.ReadTimeout)
	defer cancel()

	pipeline := []bson.M{
		{"$match": bson.M{"event_id": eventID}},
		{"$group": bson.M{
			"_id":         nil,
			"codes":       bson.M{"$sum": 1},
			"active":      bson.M{"$sum": bson.M{"$cond": bson.A{"$active", 1, 0}}},
			"redemptions": bson.M{"$sum": "$used_count"},
		}},
	}

	cur, err := r.promoCodes.Aggregate(ctx, pipeline)
	if err != nil {
		return model.PromoCodeStats{}, fmt.Errorf("failed to aggregate promo codes for event [%s]: %w", eventID, err)
	}
	defer cur.Close(ctx)

	var stats model.PromoCodeStats
	if cur.Next(ctx) {
		var doc struct {
			Codes       int64 `bson:"codes"`
			Active      int64 `bson:"active"`
			Redemptions int64 `bson:"redemptions"`
		}
		if err := cur.Decode(&doc); err != nil {
			return model.PromoCodeStats{}, fmt.Errorf("failed to decode promo code stats: %w", err)
		}
		stats = model.PromoCodeStats{Codes: doc.Codes, Active: doc.Active, Redemptions: doc.Redemptions}
	}
	return stats, cur.Err()
}
