package timers

import "time"

// Timer is a handle to a scheduled callback.
type Timer interface {
	// Stop cancels the callback. It reports false when the callback already
	// ran or was stopped before.
	Stop() bool
}

// Factory schedules callbacks. Debounce windows are expressed as values of
// this type so tests can drive them without sleeping.
type Factory interface {
	AfterFunc(d time.Duration, fn func()) Timer
}

// Real returns a Factory backed by time.AfterFunc. Callbacks run on their own
// goroutine.
func Real() Factory {
	return realFactory{}
}

type realFactory struct{}

func (realFactory) AfterFunc(d time.Duration, fn func()) Timer {
	return time.AfterFunc(d, fn)
}
