package validators

import "go.mongodb.org/mongo-driver/bson"

var integer = bson.M{"bsonType": []string{"int", "long"}, "minimum": 0}

var EventValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"title", "starts_at", "ends_at", "time_zone", "status", "owner_id", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":       bson.M{"bsonType": "objectId"},
			"title":     bson.M{"bsonType": "string", "minLength": 2, "maxLength": 150},
			"starts_at": bson.M{"bsonType": "date"},
			"ends_at":   bson.M{"bsonType": "date"},
			"time_zone": bson.M{"bsonType": "string"},
			"capacity":  integer,
			"status":    bson.M{"enum": []string{"draft", "published", "cancelled"}},
			"ticket_types": bson.M{
				"bsonType": "array",
				"maxItems": 20,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"name"},
					"properties": bson.M{
						"name":        bson.M{"bsonType": "string", "minLength": 1, "maxLength": 60},
						"price_cents": integer,
						"quantity":    integer,
					},
				},
			},
			"owner_id":        bson.M{"bsonType": "string"},
			"organization_id": bson.M{"bsonType": "string"},
			"created_at":      bson.M{"bsonType": "date"},
		},
	},
}

var PromoCodeValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"event_id", "code", "discount_type", "discount_value", "used_count", "active"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":            bson.M{"bsonType": "objectId"},
			"event_id":       bson.M{"bsonType": "string"},
			"code":           bson.M{"bsonType": "string", "pattern": "^[A-Z0-9_-]{3,32}$"},
			"discount_type":  bson.M{"enum": []string{"percentage", "fixed"}},
			"discount_value": bson.M{"bsonType": []string{"int", "long"}, "minimum": 1},
			"max_uses":       integer,
			"used_count":     integer,
			"starts_at":      bson.M{"bsonType": "date"},
			"ends_at":        bson.M{"bsonType": "date"},
			"ticket_types":   bson.M{"bsonType": "array", "items": bson.M{"bsonType": "string"}},
			"active":         bson.M{"bsonType": "bool"},
		},
	},
}

var GuestValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"event_id", "name", "email", "source", "checked_in", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "objectId"},
			"event_id":      bson.M{"bsonType": "string"},
			"name":          bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
			"email":         bson.M{"bsonType": "string", "maxLength": 254},
			"phone":         bson.M{"bsonType": "string", "pattern": "^\\+[1-9][0-9]{1,14}$"},
			"ticket_type":   bson.M{"bsonType": "string"},
			"order_id":      bson.M{"bsonType": "string"},
			"source":        bson.M{"enum": []string{"manual", "order"}},
			"checked_in":    bson.M{"bsonType": "bool"},
			"checked_in_at": bson.M{"bsonType": "date"},
			"created_at":    bson.M{"bsonType": "date"},
		},
	},
}

var RegistrationLockValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{"_id", "token", "created_at"},
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "string"},
			"token":      bson.M{"bsonType": "string"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"user_id", "type", "title", "read", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":        bson.M{"bsonType": "objectId"},
			"user_id":    bson.M{"bsonType": "string"},
			"type":       bson.M{"bsonType": "string"},
			"title":      bson.M{"bsonType": "string", "maxLength": 200},
			"body":       bson.M{"bsonType": "string", "maxLength": 2000},
			"read":       bson.M{"bsonType": "bool"},
			"read_at":    bson.M{"bsonType": "date"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
