package service

// Notifier publishes a real-time event. Implementations must not block
// the caller; delivery is best effort.
type Notifier interface {
	Notify(eventType string, payload any)
}

// Notifiers fans an event out to every notifier in order.
type Notifiers []Notifier

func (ns Notifiers) Notify(eventType string, payload any) {
	for _, n := range ns {
		if n != nil {
			n.Notify(eventType, payload)
		}
	}
}
