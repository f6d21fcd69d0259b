package domain

import "time"

// ProductHit is a product with stock left at one market event.
type ProductHit struct {
	ProductID    int64     `json:"productId"`
	ProductName  string    `json:"productName"`
	Category     *string   `json:"category"`
	VendorName   string    `json:"vendorName"`
	EventID      int64     `json:"eventId"`
	EventDate    time.Time `json:"eventDate"`
	MarketName   string    `json:"marketName"`
	QtyAvailable int       `json:"qtyAvailable"`
}
