package outbox

// Event is the domain event envelope written to the outbox table.
// The Kafka topic name equals EventType.
type Event struct {
	AggregateType string
	AggregateID   string
	EventType     string
	Payload       []byte
}

const (
	AggregateAppointment = "appointment"
	AggregateService     = "service"
	AggregateUser        = "user"

	AppointmentBooked        = "clinic.appointment.booked.v1"
	AppointmentCancelled     = "clinic.appointment.cancelled.v1"
	AppointmentStatusChanged = "clinic.appointment.status_changed.v1"
	AppointmentDeleted       = "clinic.appointment.deleted.v1"
	UserRegistered           = "clinic.user.registered.v1"
)
