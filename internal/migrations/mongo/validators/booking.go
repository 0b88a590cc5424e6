package validators

import "go.mongodb.org/mongo-driver/bson"

var (
	bookingStates  = []string{"pending", "confirmed", "rejected", "in_progress", "completed", "cancelled"}
	legacyStatuses = []string{"pending", "confirmed", "rejected", "completed", "cancelled"}
	jobStatuses    = []string{"pending", "confirmed", "in_progress", "completed", "cancelled"}
	paymentStates  = []string{"unpaid", "partial", "paid", "refunded", "void"}
)

// Money fields are stored as fixed two-decimal strings.
var money = bson.M{
	"bsonType": "string",
	"pattern":  `^-?\d+\.\d{2}$`,
}

var BookingValidator = bson.M{
	"$jsonSchema": bson.M{
		"bsonType": "object",
		"required": []string{
			"_id",
			"customer_id",
			"mua_id",
			"booking_date",
			"booking_time",
			"service_type",
			"state",
			"status",
			"job_status",
			"active",
			"payment_status",
			"invoice_number",
			"grand_total",
			"version",
			"created_at",
		},
		"additionalProperties": true,

		"properties": bson.M{
			"_id": bson.M{
				"bsonType": "long",
				"minimum":  1,
			},

			"customer_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"mua_id": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 64,
			},

			"booking_date": bson.M{
				"bsonType": "string",
				"pattern":  `^\d{4}-\d{2}-\d{2}$`,
			},

			"booking_time": bson.M{
				"bsonType": "string",
				"pattern":  `^([01]\d|2[0-3]):[0-5]\d$`,
			},

			"service_type": bson.M{
				"bsonType": "string",
				"enum":     []string{"home_service", "studio"},
			},

			"person": bson.M{
				"bsonType": "int",
				"minimum":  1,
				"maximum":  50,
			},

			"state":          bson.M{"bsonType": "string", "enum": bookingStates},
			"status":         bson.M{"bsonType": "string", "enum": legacyStatuses},
			"job_status":     bson.M{"bsonType": "string", "enum": jobStatuses},
			"payment_status": bson.M{"bsonType": "string", "enum": paymentStates},
			"active":         bson.M{"bsonType": "bool"},

			"amount":          money,
			"subtotal":        money,
			"tax_amount":      money,
			"discount_amount": money,
			"grand_total":     money,
			"total":           money,
			"amount_paid":     money,

			"selected_add_ons": bson.M{
				"bsonType": "array",
				"maxItems": 50,
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"name", "price"},
					"properties": bson.M{
						"name":  bson.M{"bsonType": "string", "minLength": 1, "maxLength": 100},
						"price": money,
					},
				},
			},

			"payments": bson.M{
				"bsonType": "array",
				"items": bson.M{
					"bsonType": "object",
					"required": []string{"amount", "paid_at"},
					"properties": bson.M{
						"amount":  money,
						"paid_at": bson.M{"bsonType": "date"},
					},
				},
			},

			"invoice_number": bson.M{
				"bsonType":  "string",
				"minLength": 1,
				"maxLength": 40,
			},

			"invoice_date": bson.M{"bsonType": "date"},
			"due_date":     bson.M{"bsonType": "date"},

			"version": bson.M{
				"bsonType": []string{"int", "long"},
				"minimum":  1,
			},

			"created_at": bson.M{"bsonType": "date"},
			"updated_at": bson.M{"bsonType": "date"},
		},
	},
}
