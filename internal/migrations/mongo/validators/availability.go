package validators

import "go.mongodb.org/mongo-driver/bson"

var AvailabilityValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"mua_id", "available_date", "time_slots"},
		"additionalProperties": true,

		"properties": bson.M{
			"mua_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"available_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"time_slots": bson.M{
				"bsonType":    "array",
				"maxItems":    1440,
				"uniqueItems": true,
				"items": bson.M{
					"bsonType": "string",
					"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
				},
			},
		},
	},
}

var CollaboratorValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"booking_id", "profile_id", "role", "status", "invited_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"booking_id": bson.M{"bsonType": "long", "minimum": 1},
			"profile_id": bson.M{"bsonType": "string", "minLength": 1, "maxLength": 64},
			"role":       bson.M{"bsonType": "string", "enum": []string{"assistant", "co-mua", "lead"}},
			"status":     bson.M{"bsonType": "string", "enum": []string{"invited", "accepted", "declined"}},
			"invited_at": bson.M{"bsonType": "date"},
		},
	},
}

var NotificationValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType":             "object",
		"required":             []string{"user_id", "type", "is_read", "created_at"},
		"additionalProperties": true,

		"properties": bson.M{
			"user_id":    bson.M{"bsonType": "string", "minLength": 1},
			"type":       bson.M{"bsonType": "string", "enum": []string{"booking", "system", "payment"}},
			"is_read":    bson.M{"bsonType": "bool"},
			"created_at": bson.M{"bsonType": "date"},
		},
	},
}
