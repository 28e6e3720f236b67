package domain

type RoomType string

const (
	RoomStandard     RoomType = "standard"
	RoomDeluxe       RoomType = "deluxe"
	RoomSuite        RoomType = "suite"
	RoomPresidential RoomType = "presidential"
)

func ParseRoomType(s string) (RoomType, bool) {
	switch RoomType(s) {
	case RoomStandard, RoomDeluxe, RoomSuite, RoomPresidential:
		return RoomType(s), true
	default:
		return "", false
	}
}

// RoomStatus is the coarse property-wide flag set by housekeeping and
// maintenance. It is independent of any individual reservation's state.
type RoomStatus string

const (
	RoomAvailable   RoomStatus = "available"
	RoomOccupied    RoomStatus = "occupied"
	RoomMaintenance RoomStatus = "maintenance"
	RoomCleaning    RoomStatus = "cleaning"
	RoomReserved    RoomStatus = "reserved"
)

func ParseRoomStatus(s string) (RoomStatus, bool) {
	switch RoomStatus(s) {
	case RoomAvailable, RoomOccupied, RoomMaintenance, RoomCleaning, RoomReserved:
		return RoomStatus(s), true
	default:
		return "", false
	}
}

type Room struct {
	ID     string     `json:"id"`
	Number string     `json:"number"`
	Type   RoomType   `json:"type"`
	// PriceCents is the nightly rate in the property currency's minor unit.
	PriceCents int64      `json:"price_cents"`
	Capacity   int        `json:"capacity"`
	Status     RoomStatus `json:"status"`
}
