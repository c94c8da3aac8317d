package validators

import "go.mongodb.org/mongo-driver/bson"

var permissionEnum = []string{
	"events:manage",
	"guests:manage",
	"promo_codes:manage",
	"members:manage",
	"dashboard:view",
}

var OrganizationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"name", "slug", "owner_id", "members", "created_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":      bson.M{"bsonType": "objectId"},
			"name":     bson.M{"bsonType": "string", "minLength": 2, "maxLength": 100},
			"slug":     bson.M{"bsonType": "string"},
			"owner_id": bson.M{"bsonType": "string"},
			"members": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"user_id", "role_id"},
					"properties": bson.M{
						"user_id":           bson.M{"bsonType": "string"},
						"role_id":           bson.M{"bsonType": "string"},
						"extra_permissions": bson.M{"bsonType": "array", "items": bson.M{"enum": permissionEnum}},
						"joined_at":         bson.M{"bsonType": "date"},
					},
				},
			},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}

var RoleValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"organization_id", "name", "permissions"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":             bson.M{"bsonType": "objectId"},
			"organization_id": bson.M{"bsonType": "string"},
			"name":            bson.M{"bsonType": "string", "minLength": 2, "maxLength": 50},
			"permissions":     bson.M{"bsonType": "array", "items": bson.M{"enum": permissionEnum}},
			"system":          bson.M{"bsonType": "bool"},
		},
	},
}

var InvitationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"organization_id", "email", "role_id", "invited_by", "status", "expires_at"},
		"additionalProperties": true,
		"properties": bson.M{
			"_id":             bson.M{"bsonType": "objectId"},
			"organization_id": bson.M{"bsonType": "string"},
			"email":           bson.M{"bsonType": "string", "maxLength": 254},
			"role_id":         bson.M{"bsonType": "string"},
			"permissions":     bson.M{"bsonType": "array", "items": bson.M{"enum": permissionEnum}},
			"invited_by":      bson.M{"bsonType": "string"},
			"status":          bson.M{"enum": []string{"pending", "accepted", "revoked", "expired"}},
			"expires_at":      bson.M{"bsonType": "date"},
			"accepted_at":     bson.M{"bsonType": "date"},
		},
	},
}
