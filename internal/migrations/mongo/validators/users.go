package validators

import "go.mongodb.org/mongo-driver/bson"

var UserValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"email", "name", "password_hash", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":           bson.M{"bsonType": "objectId"},
			"email":         bson.M{"bsonType": "string", "maxLength": 254},
			"name":          bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
			"password_hash": bson.M{"bsonType": "string"},
			"created_at":    bson.M{"bsonType": "date"},
			"updated_at":    bson.M{"bsonType": "date"},
		},
	},
}
