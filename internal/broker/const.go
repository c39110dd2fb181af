package broker

const (
	RegistrationsExchangeName = "registrations"
	RegistrationsExchangeType = "topic"

	// Registration API sends to and the payment service reads from:
	PaymentQueue              = "payment"
	RegistrationNewRoutingKey = "registration.new"

	// Payment service sends to and the enrollment service reads from:
	CourseQueue                = "course"
	RegistrationPaidRoutingKey = "registration.paid"

	// Enrollment service sends to and the notification service reads from:
	NotificationQueue               = "notification"
	RegistrationCompletedRoutingKey = "registration.completed"

	// Messages that exhausted their retries are parked here for an operator.
	DeadLetterQueue            = "registration.deadletter"
	RegistrationDeadRoutingKey = "registration.dead"

	MaxRetries          = 3
	RetryTTLMiliseconds = 10000
)
