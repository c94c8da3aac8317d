package repository

import (
	"regexp"
	"strings"

	"gatherly/pkg/model"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

const DefaultSort = "name"

var sortFields = map[string]string{
	"name":          "name",
	"created_at":    "created_at",
	"checked_in_at": "checked_in_at",
}

// ValidSort reports whether sort names a sortable field, optionally prefixed
// with '-' for descending order.
func ValidSort(sort string) bool {
	_, ok := sortFields[strings.TrimPrefix(sort, "-")]
	return ok
}

// Filter translates the guest-list view state into a Mongo filter scoped to
// one event. Search text is matched literally and case-insensitively against
// name, email and order ID.
func Filter(eventID string, q model.GuestQuery) bson.M {
	filter := bson.M{"event_id": eventID}

	if search := strings.TrimSpace(q.Search); search != "" {
		rx := primitive.Regex{Pattern: regexp.QuoteMeta(search), Options: "i"}
		filter["$or"] = bson.A{
			bson.M{"name": rx},
			bson.M{"email": rx},
			bson.M{"order_id": rx},
		}
	}

	switch q.Status {
	case model.CheckInCheckedIn:
		filter["checked_in"] = true
	case model.CheckInNotCheckedIn:
		filter["checked_in"] = false
	}

	if q.TicketType != "" {
		filter["ticket_type"] = q.TicketType
	}
	if q.Source != "" {
		filter["source"] = q.Source
	}

	return filter
}

// Sort returns the sort document for sort, falling back to DefaultSort. _id
// breaks ties so pages are stable.
func Sort(sort string) bson.D {
	if !ValidSort(sort) {
		sort = DefaultSort
	}

	dir := 1
	if strings.HasPrefix(sort, "-") {
		dir = -1
	}
	field := sortFields[strings.TrimPrefix(sort, "-")]

	return bson.D{{Key: field, Value: dir}, {Key: "_id", Value: dir}}
}
