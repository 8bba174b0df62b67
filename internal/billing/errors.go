package billing

import "errors"

// Sentinel errors returned by billing operations. Handlers translate
// these into HTTP statuses; anything else is a persistence failure and
// maps to 500 after the enclosing transaction has rolled back.
var (
	// ErrProductNotFound: the product id does not resolve to an active product.
	ErrProductNotFound = errors.New("product not found or inactive")

	// ErrDoctorNotFound: the doctor id does not resolve to an active doctor.
	ErrDoctorNotFound = errors.New("doctor not found or inactive")

	// ErrAppointmentNotFound: no appointment with that id for the caller.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrNoAvailableSessions: no wallet entry with a positive balance was
	// found for the purchase/service at consume time.
	ErrNoAvailableSessions = errors.New("no available sessions in wallet")

	// ErrPaymentRequired: the booking is not wallet-funded and no
	// confirmed payment accompanies it.
	ErrPaymentRequired = errors.New("payment required before booking")

	// ErrSlotTaken: an accepted or completed appointment already occupies
	// the requested slot.
	ErrSlotTaken = errors.New("an appointment already exists at this date and time")

	// ErrPurchaseNotActive: the purchase is missing, not owned by the
	// caller, or already in a terminal state.
	ErrPurchaseNotActive = errors.New("purchase not found or not active")

	// ErrInvalidDate / ErrInvalidTime: malformed date or time input.
	ErrInvalidDate = errors.New("invalid appointment date, expected YYYY-MM-DD")
	ErrInvalidTime = errors.New("invalid appointment time, expected HH:MM")

	// ErrPastDate: the appointment date is before today.
	ErrPastDate = errors.New("appointment date cannot be in the past")

	// ErrServiceTypeUnknown: no explicit service type was given and the
	// doctor's specialty does not map to one.
	ErrServiceTypeUnknown = errors.New("unable to resolve service type for this booking")
)
