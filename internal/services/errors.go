// Package services implements the business logic of the workshop backend:
// the appointment state machine, work-clock accounting, parts consumption,
// extra-service approval and invoice issuing. This file centralizes common
// service-level error values so that they can be consistently returned by
// service methods and checked by callers.
//
// These errors are intended for internal use by the service layer; translation
// into the stable HTTP error taxonomy is performed at the handler layer.
package services

import "errors"

var (
	// ErrAppointmentNotFound indicates that the requested appointment does
	// not exist.
	ErrAppointmentNotFound = errors.New("appointment not found")

	// ErrCustomerNotFound indicates a missing customer reference.
	ErrCustomerNotFound = errors.New("customer not found")

	// ErrVehicleNotFound indicates a missing vehicle reference.
	ErrVehicleNotFound = errors.New("vehicle not found")

	// ErrServiceNotFound indicates a missing catalog service reference.
	ErrServiceNotFound = errors.New("service not found")

	// ErrExtraNotFound indicates that the extra-service request does not exist.
	ErrExtraNotFound = errors.New("extra service request not found")

	// ErrPartNotFound indicates that the consumed-part snapshot does not exist.
	ErrPartNotFound = errors.New("consumed part not found")

	// ErrInvoiceNotFound indicates that no invoice exists for the appointment.
	ErrInvoiceNotFound = errors.New("invoice not found")

	// ErrIllegalTransition is returned when a requested status change is not
	// an edge of the appointment state machine.
	ErrIllegalTransition = errors.New("illegal status transition")

	// ErrIllegalMutation is returned on write attempts against an appointment
	// in a terminal or locked state (Waiting Payment, Finalized, Canceled).
	ErrIllegalMutation = errors.New("appointment is not mutable in its current state")

	// ErrCancelWithParts is returned when an in-repair appointment with
	// consumed parts is canceled.
	ErrCancelWithParts = errors.New("cannot cancel: parts already consumed")

	// ErrExtraNotMutable is returned when a non-pending extra-service request
	// is edited or re-decided in a conflicting direction.
	ErrExtraNotMutable = errors.New("extra service request is no longer pending")

	// ErrAmountExceedsTotal is returned when a payment confirmation carries an
	// amount above the invoice total including tax.
	ErrAmountExceedsTotal = errors.New("paid amount exceeds invoice total")

	// ErrUnknownStatus indicates the status catalog is missing a canonical row
	// at startup, or an appointment references an id outside the catalog.
	ErrUnknownStatus = errors.New("unknown status")

	// ErrInvalidArea is returned when a catalog service names an area outside
	// the fixed set of shop areas.
	ErrInvalidArea = errors.New("invalid service area")
)
