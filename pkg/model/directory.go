package model

import "smstudio/pkg/money"

const (
	RoleCustomer = "customer"
	RoleMua      = "mua"
	RoleAdmin    = "admin"
)

func ValidRole(role string) bool {
	switch role {
	case RoleCustomer, RoleMua, RoleAdmin:
		return true
	}
	return false
}

// Profile is owned by the profile service; this module only reads it.
type Profile struct {
	ID       string `json:"id" bson:"_id"`
	Name     string `json:"name" bson:"name"`
	Role     string `json:"role" bson:"role"`
	IsOnline bool   `json:"is_online" bson:"is_online"`
}

type Offering struct {
	ID                 string        `json:"id" bson:"_id"`
	MuaID              string        `json:"mua_id" bson:"mua_id"`
	Name               string        `json:"name" bson:"name"`
	Price              money.Amount  `json:"price" bson:"price"`
	Collaboration      string        `json:"collaboration,omitempty" bson:"collaboration,omitempty"`
	CollaborationPrice *money.Amount `json:"collaboration_price,omitempty" bson:"collaboration_price,omitempty"`
}
