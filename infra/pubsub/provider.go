// Package pubsub owns the messaging fabric of the service. Queue events
// always flow through an in-process bus; when a broker is configured the
// same events are additionally mirrored to a durable AMQP topic exchange so
// external dashboards can follow the showroom floor.
package pubsub

import (
	"errors"
	"fmt"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill-amqp/v3/pkg/amqp"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/virtuolot/showroom-assist-service/config"
)

const busBufferSize = 256

// Provider wires the in-process bus and the optional AMQP export publisher.
type Provider struct {
	bus    *gochannel.GoChannel
	export message.Publisher
}

func NewProvider(cfg *config.Config, logger watermill.LoggerAdapter) (*Provider, error) {
	p := &Provider{
		bus: gochannel.NewGoChannel(gochannel.Config{
			OutputChannelBuffer: busBufferSize,
		}, logger),
	}

	if cfg.Broker.Enabled() {
		export, err := newExportPublisher(cfg.Broker, logger)
		if err != nil {
			return nil, fmt.Errorf("EXPORT_PUBLISHER_SETUP: %w", err)
		}
		p.export = export
	}

	return p, nil
}

// newExportPublisher builds the AMQP mirror. The watermill topic doubles as
// the AMQP routing key, so consumers bind with patterns like
// "showroom.queue.v1.*".
func newExportPublisher(cfg config.BrokerConfig, logger watermill.LoggerAdapter) (message.Publisher, error) {
	exchange := cfg.Exchange

	amqpCfg := amqp.NewDurablePubSubConfig(cfg.AMQPURL, nil)
	amqpCfg.Exchange = amqp.ExchangeConfig{
		GenerateName: func(string) string { return exchange },
		Type:         "topic",
		Durable:      true,
	}
	amqpCfg.Publish.GenerateRoutingKey = func(topic string) string { return topic }

	return amqp.NewPublisher(amqpCfg, logger)
}

// Publisher is the in-process side everything publishes to.
func (p *Provider) Publisher() message.Publisher { return p.bus }

// Subscriber is the in-process side the router consumes from.
func (p *Provider) Subscriber() message.Subscriber { return p.bus }

// Export returns the AMQP mirror, or nil when no broker is configured.
func (p *Provider) Export() message.Publisher { return p.export }

func (p *Provider) Close() error {
	errs := []error{p.bus.Close()}
	if p.export != nil {
		errs = append(errs, p.export.Close())
	}
	return errors.Join(errs...)
}
