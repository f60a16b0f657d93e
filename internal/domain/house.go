package domain

import "time"

// Location is the embedded location block of a house listing.
type Location struct {
	Country string `json:"country" dynamodbav:"country" validate:"required"`
	State   string `json:"state" dynamodbav:"state" validate:"required"`
	City    string `json:"city" dynamodbav:"city" validate:"required"`
}

// House is an agent's listing.
type House struct {
	HouseID      string    `json:"id" dynamodbav:"house_id"`
	AgentID      string    `json:"agent_id" dynamodbav:"agent_id"`
	Name         string    `json:"name" dynamodbav:"name"`
	Description  string    `json:"description" dynamodbav:"description"`
	Location     Location  `json:"location" dynamodbav:"location"`
	Address      string    `json:"address" dynamodbav:"address"`
	HouseType    string    `json:"house_type" dynamodbav:"house_type"`
	Price        float64   `json:"price" dynamodbav:"price"`
	NumRooms     int       `json:"num_rooms" dynamodbav:"num_rooms"`
	NumBathrooms int       `json:"num_bathrooms" dynamodbav:"num_bathrooms"`
	NumToilets   int       `json:"num_toilets" dynamodbav:"num_toilets"`
	NumFloors    int       `json:"num_floors" dynamodbav:"num_floors"`
	Shared       bool      `json:"shared" dynamodbav:"shared"`
	Water        bool      `json:"water" dynamodbav:"water"`
	Electricity  bool      `json:"electricity" dynamodbav:"electricity"`
	CoverImage   string    `json:"cover_image" dynamodbav:"cover_image"` // S3 object key
	Images       []string  `json:"images" dynamodbav:"images"`           // S3 object keys
	CreatedAt    time.Time `json:"created" dynamodbav:"created_at"`
	UpdatedAt    time.Time `json:"updated" dynamodbav:"updated_at"`
}

type CreateHouseRequest struct {
	Name         string   `json:"name" validate:"required"`
	Description  string   `json:"description" validate:"required"`
	Location     Location `json:"location" validate:"required"`
	Address      string   `json:"address" validate:"required"`
	HouseType    string   `json:"house_type" validate:"required"`
	Price        float64  `json:"price" validate:"required,gt=0"`
	NumRooms     int      `json:"num_rooms" validate:"required,gte=1"`
	NumBathrooms int      `json:"num_bathrooms" validate:"gte=0"`
	NumToilets   int      `json:"num_toilets" validate:"gte=0"`
	NumFloors    int      `json:"num_floors" validate:"gte=1"`
	Shared       bool     `json:"shared"`
	Water        bool     `json:"water"`
	Electricity  bool     `json:"electricity"`
}

type UpdateHouseRequest struct {
	Name        *string  `json:"name"`
	Description *string  `json:"description"`
	Address     *string  `json:"address"`
	HouseType   *string  `json:"house_type"`
	Price       *float64 `json:"price"`
	NumRooms    *int     `json:"num_rooms"`
	Shared      *bool    `json:"shared"`
	Water       *bool    `json:"water"`
	Electricity *bool    `json:"electricity"`
}

// HouseFilter narrows a listing search. Zero values mean "no constraint".
// MaxPrice bounds the price from above and MinPrice from below.
type HouseFilter struct {
	City     string
	State    string
	NumRooms int
	MinPrice float64
	MaxPrice float64
}
