package rabbitmq

import (
	"showservice/internal/model"

	amqp "github.com/rabbitmq/amqp091-go"
)

// DequeueCountHeader carries how many times a message has been handed to a consumer
const DequeueCountHeader = "x-dequeue-count"

// DequeueCount reads the delivery counter, defaulting to a first delivery.
// A broker-side redelivery (consumer died before acking) counts as one more.
func DequeueCount(d amqp.Delivery) int {
	count := headerInt(d.Headers, DequeueCountHeader)
	if count < 1 {
		count = 1
	}
	if d.Redelivered {
		count++
	}
	return count
}

// ToQueueMessage converts a delivery into the transport-neutral message
func ToQueueMessage(d amqp.Delivery) model.QueueMessage {
	return model.QueueMessage{
		ID:            d.MessageId,
		Body:          d.Body,
		DequeueCount:  DequeueCount(d),
		InsertionTime: d.Timestamp,
	}
}

// Redelivery copies a delivery for republishing with its counter bumped
func Redelivery(d amqp.Delivery) amqp.Publishing {
	headers := amqp.Table{}
	for k, v := range d.Headers {
		headers[k] = v
	}
	headers[DequeueCountHeader] = int32(DequeueCount(d) + 1)

	return amqp.Publishing{
		ContentType:  d.ContentType,
		DeliveryMode: amqp.Persistent,
		MessageId:    d.MessageId,
		Timestamp:    d.Timestamp,
		Headers:      headers,
		Body:         d.Body,
	}
}

func headerInt(headers amqp.Table, key string) int {
	switch v := headers[key].(type) {
	case int:
		return v
	case int8:
		return int(v)
	case int16:
		return int(v)
	case int32:
		return int(v)
	case int64:
		return int(v)
	case uint8:
		return int(v)
	case uint16:
		return int(v)
	case uint32:
		return int(v)
	case float64:
		return int(v)
	default:
		return 0
	}
}
