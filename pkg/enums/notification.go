package enums

// NotificationKind names the events published to the notification topic.
type NotificationKind string

const (
	NotificationOrderCreated    NotificationKind = "order.created"
	NotificationOrderPaid       NotificationKind = "order.paid"
	NotificationOrderCancelled  NotificationKind = "order.cancelled"
	NotificationPaymentFailed   NotificationKind = "payment.failed"
	NotificationPayoutCompleted NotificationKind = "payout.completed"
)
