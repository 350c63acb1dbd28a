package domain

import "github.com/cuongbtq/dataset-hub/internal/task"

// Acknowledger is the part of amqp.Delivery the pool needs
type Acknowledger interface {
	Ack(multiple bool) error
	Nack(multiple, requeue bool) error
}

// JobMessage is a job taken off the queue together with its delivery
type JobMessage struct {
	Job      task.Job
	Delivery Acknowledger
}
