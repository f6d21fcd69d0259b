package domain

import (
	"errors"
	"time"
)

var (
	ErrMarketNotFound  = errors.New("market not found")
	ErrInvalidMarketID = errors.New("invalid market id")
)

// Market is one row of the market directory. NextEventDate is the earliest event on or
// after today, nil when none is scheduled.
type Market struct {
	MarketID      int64      `json:"marketId"`
	MarketName    string     `json:"marketName"`
	City          *string    `json:"city"`
	Region        *string    `json:"region"`
	Zip           *string    `json:"zip"`
	NextEventDate *time.Time `json:"nextEventDate"`
	OpenTime      *string    `json:"openTime"`
	CloseTime     *string    `json:"closeTime"`
}

type MarketInfo struct {
	MarketID    int64   `json:"marketId"`
	Name        string  `json:"name"`
	Description *string `json:"description"`
	City        *string `json:"city"`
	Region      *string `json:"region"`
	Zip         *string `json:"zip"`
	OpenTime    *string `json:"openTime"`
	CloseTime   *string `json:"closeTime"`
}

type MarketEvent struct {
	EventID   int64     `json:"eventId"`
	EventDate time.Time `json:"eventDate"`
	StartTime *string   `json:"startTime"`
	Address   *string   `json:"address"`
}

type Vendor struct {
	VendorID       int64   `json:"vendorId"`
	Name           string  `json:"name"`
	Description    *string `json:"description"`
	VendorCategory *string `json:"vendorCategory"`
}

// MarketDetail is a market with its upcoming events and the vendors that sell there.
type MarketDetail struct {
	Market  MarketInfo    `json:"market"`
	Events  []MarketEvent `json:"events"`
	Vendors []Vendor      `json:"vendors"`
}
