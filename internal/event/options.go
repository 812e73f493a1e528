package event

// Priority determines handler execution order. Lower values run first.
type Priority int

const (
	// PriorityCritical is for handlers that must observe state before anyone else.
	PriorityCritical Priority = 0

	// PriorityHigh is for lifecycle hooks that mutate marks.
	PriorityHigh Priority = 100

	// PriorityNormal is the default priority.
	PriorityNormal Priority = 200

	// PriorityLow is for logging and persistence observers that run last.
	PriorityLow Priority = 300
)

// subscriptionConfig contains configuration for a subscription.
type subscriptionConfig struct {
	priority Priority
	once     bool
}

// SubscriptionOption configures a subscription.
type SubscriptionOption func(*subscriptionConfig)

// WithPriority sets the handler priority.
func WithPriority(p Priority) SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.priority = p
	}
}

// WithOnce cancels the subscription after its first delivery.
func WithOnce() SubscriptionOption {
	return func(c *subscriptionConfig) {
		c.once = true
	}
}
