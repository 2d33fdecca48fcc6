package allotment

import "github.com/noah-isme/smart-allotment-api/internal/models"

// BookingInterval returns the stored interval of a ledger entry.
func BookingInterval(b models.Booking) Interval {
	return Interval{Start: Instant(b.StartTS), End: Instant(b.EndTS)}
}

// FindConflict scans bookings in ledger order and returns a copy of the first
// entry in roomID overlapping iv, or nil.
func FindConflict(bookings []models.Booking, roomID string, iv Interval) *models.Booking {
	for i := range bookings {
		if bookings[i].RoomID != roomID {
			continue
		}
		if BookingInterval(bookings[i]).Overlaps(iv, 0) {
			found := bookings[i]
			return &found
		}
	}
	return nil
}

// FindVacantRooms returns the rooms with no booking overlapping iv, in
// catalog order.
func FindVacantRooms(rooms []models.Room, bookings []models.Booking, iv Interval) []models.Room {
	vacant := make([]models.Room, 0, len(rooms))
	for _, room := range rooms {
		if FindConflict(bookings, room.ID, iv) == nil {
			vacant = append(vacant, room)
		}
	}
	return vacant
}
