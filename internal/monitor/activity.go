package monitor

import (
	"fmt"
	"sync"
	"time"
)

const activityCapacity = 100

// Activity is a bounded, newest-first feed of operator-visible events.
type Activity struct {
	mu      sync.RWMutex
	entries []string
	now     func() time.Time
}

func NewActivity() *Activity {
	return &Activity{now: time.Now}
}

func (a *Activity) Add(msg string) {
	a.mu.Lock()
	defer a.mu.Unlock()
	entry := fmt.Sprintf("[%s] %s", a.now().Format("15:04:05"), msg)
	a.entries = append([]string{entry}, a.entries...)
	if len(a.entries) > activityCapacity {
		a.entries = a.entries[:activityCapacity]
	}
}

func (a *Activity) Addf(format string, args ...any) { a.Add(fmt.Sprintf(format, args...)) }

func (a *Activity) Entries() []string {
	a.mu.RLock()
	defer a.mu.RUnlock()
	out := make([]string, len(a.entries))
	copy(out, a.entries)
	return out
}
