package jobs

import "time"

// Observer receives job lifecycle measurements.
type Observer interface {
	JobSubmitted(jobType string, accepted bool)
	JobFinished(jobType string, ok bool, elapsed time.Duration)
	QueueDepth(depth int)
	Workers(living int)
}

type nopObserver struct{}

func (nopObserver) JobSubmitted(string, bool)               {}
func (nopObserver) JobFinished(string, bool, time.Duration) {}
func (nopObserver) QueueDepth(int)                          {}
func (nopObserver) Workers(int)                             {}
