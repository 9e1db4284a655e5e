package storage

import "time"

// Recorder observes store operations. *observability.Metrics implements it.
type Recorder interface {
	ObserveDBOperation(operation string, duration time.Duration, err error)
}

// Observe records operation against r, which may be nil. Use it deferred
// with a pointer to the named error result:
//
//	defer storage.Observe(s.recorder, "products.create", time.Now(), &err)
func Observe(r Recorder, operation string, start time.Time, err *error) {
	if r == nil {
		return
	}
	var opErr error
	if err != nil {
		opErr = *err
	}
	r.ObserveDBOperation(operation, time.Since(start), opErr)
}
