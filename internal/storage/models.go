package storage

import "time"

// DefaultThresholdPercent applies to rarities whose threshold was never set
// by an operator.
const DefaultThresholdPercent = 50.0

// FloorRecord is the persisted per-rarity floor state. Exactly one row per
// rarity; created lazily on first write and never deleted.
type FloorRecord struct {
	Rarity           string
	FloorPrice       *float64
	ThresholdPercent float64
	UpdatedAt        time.Time
}

// NotificationRecord marks that an alert has fired for an item. Presence
// means "alerted at this price or higher"; a repeat alert is only allowed at
// a strictly lower price.
type NotificationRecord struct {
	ItemID           string
	LastAlertedPrice float64
	LastAlertedAt    time.Time
}

// FloorSample is one historical floor observation, recorded on every
// periodic refresh for the export command.
type FloorSample struct {
	Rarity     string
	Price      float64
	ObservedAt time.Time
}
