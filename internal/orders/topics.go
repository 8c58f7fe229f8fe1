package orders

const (
	TopicOrderCreated    = "order.created"
	TopicPaymentResolved = "order.payment.resolved"
)

// Partition key = order_id so every event of one order keeps its ordering.
func PartitionKey(orderID string) []byte { return []byte(orderID) }
