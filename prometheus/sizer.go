package prometheus

type queueSizer interface {
	GetQueueSize() (uint, error)
}

type totalSizer interface {
	GetTotalSize() (uint, error)
}

type overAttemptsSizer interface {
	GetOverAttemptsSize(threshold int) (uint, error)
}

// Sizer is implemented by outbox.Repository.
type Sizer interface {
	queueSizer
	totalSizer
	overAttemptsSizer
}
