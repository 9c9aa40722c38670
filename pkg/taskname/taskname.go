package taskname

const (
	// Appointment tasks
	AppointmentCompleted = "appointment:completed"

	// Reward tasks
	RewardReconcile = "reward:reconcile"
)
