package queue

// Item is the minimal envelope placed on the delivery queue. Workers fetch
// the full Notification from the store using the ID, keeping the queue
// lightweight and the store authoritative.
type Item struct {
	NotificationID string
	Action         string
}

// ActionSend is the only action currently produced by Intake and Scheduler.
const ActionSend = "send"
