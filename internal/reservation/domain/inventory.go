package domain

// InventoryLine is the stock allocated to one product at one market event.
// Invariant: 0 <= ReservedQuantity <= AvailableQuantity.
type InventoryLine struct {
	ID                int64
	EventID           int64
	ProductID         int64
	VendorID          int64
	AvailableQuantity int
	ReservedQuantity  int
}

type LineKey struct {
	EventID   int64
	ProductID int64
}

func (l InventoryLine) Key() LineKey {
	return LineKey{EventID: l.EventID, ProductID: l.ProductID}
}

func (l InventoryLine) Remaining() int {
	if r := l.AvailableQuantity - l.ReservedQuantity; r > 0 {
		return r
	}
	return 0
}
