package domain

const (
	// ConsumerTagPrefix prefixes the RabbitMQ consumer tag of every consume process
	ConsumerTagPrefix = "dataset-worker"

	// MaxStderrBytes caps how much converter stderr is logged
	MaxStderrBytes = 8 << 10
)
