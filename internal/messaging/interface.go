package messaging

import "context"

// PublisherInterface is the event publishing contract the services depend
// on. The RabbitMQ publisher satisfies it in production and the test mock
// satisfies it in unit tests.
type PublisherInterface interface {
	Publish(ctx context.Context, routingKey string, eventData interface{}) error
	Close() error
}

var _ PublisherInterface = (*Publisher)(nil)
