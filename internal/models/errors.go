package models

import "errors"

var (
	// Catalog errors
	ErrEntityNotFound  = errors.New("entity not found")
	ErrInvalidEntity   = errors.New("invalid entity")
	ErrDateNotBookable = errors.New("date is not bookable")
	ErrSlotNotFound    = errors.New("slot not found")

	// Booking errors
	ErrBookingNotFound        = errors.New("booking not found")
	ErrBookingExists          = errors.New("booking already recorded")
	ErrInvalidQuantity        = errors.New("quantity must be greater than zero")
	ErrInvalidPrice           = errors.New("price must be a finite non-negative number")
	ErrFreeBookingUnsupported = errors.New("free bookings are not supported by this payment path")
	ErrInsufficientCapacity   = errors.New("insufficient capacity for the selected slot")

	// Ledger shape errors
	ErrUnknownBookingShape = errors.New("unknown booking document shape")

	// Access errors
	ErrAccessDenied = errors.New("access denied")
)
