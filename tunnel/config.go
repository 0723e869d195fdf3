package tunnel

import (
	"errors"
	"fmt"

	"github.com/arloliu/go-creditlink/conntable"
	"github.com/arloliu/go-creditlink/logger"
)

const (
	// DefaultMaxConnections is the default size of the connection table.
	DefaultMaxConnections = conntable.DefaultSize
	// DefaultRingFactor is the default receive ring capacity in payloads.
	DefaultRingFactor = 3

	// MaxConnections is the upper bound accepted by WithMaxConnections.
	MaxConnections = 16
	// MaxRingFactor is the upper bound accepted by WithRingFactor.
	MaxRingFactor = 16
	// MaxPayloadSize is the upper bound accepted by WithMaxPayloadSize.
	MaxPayloadSize = 512
)

// ReceiveHandler consumes received data in auto-drain mode.
// p is only valid for the duration of the call.
type ReceiveHandler func(h Handle, p []byte)

// SendCompleteHandler is invoked when a send finished or was aborted by its data source.
//
// sent is the number of bytes the transport accepted. err is nil when every requested
// byte was sent. A disconnect cancels a send silently and does not invoke the handler.
type SendCompleteHandler func(h Handle, sent int, err error)

// Config represents the configuration of an Endpoint.
type Config struct {
	// maxConnections is the number of connection slots.
	// Defaults to 3.
	maxConnections int

	// ringFactor sizes the receive ring of a connection as ringFactor payloads.
	// Defaults to 3, enough to hold a full window of in-flight credits.
	ringFactor int

	// maxPayloadSize caps the payload derived from the MTU. 0 means no cap.
	maxPayloadSize int

	// initialGrant announces the whole receive window once the role is established.
	// Defaults to true.
	initialGrant bool

	// autoDrain is the initial auto-drain mode of new connections.
	// Defaults to false.
	autoDrain bool

	// peers is the peer record store. A private store is created when not set.
	peers *conntable.PeerStore

	receiveHandler      ReceiveHandler
	sendCompleteHandler SendCompleteHandler

	logger logger.Logger
}

// NewConfig creates an endpoint configuration with default values and applies opts in order.
func NewConfig(opts ...Option) (*Config, error) {
	cfg := &Config{
		maxConnections: DefaultMaxConnections,
		ringFactor:     DefaultRingFactor,
		initialGrant:   true,
		logger:         logger.GetLogger(),
	}

	for _, opt := range opts {
		if err := opt.apply(cfg); err != nil {
			return nil, err
		}
	}

	if cfg.peers == nil {
		cfg.peers = conntable.NewPeerStore()
	}

	return cfg, nil
}

// MaxConnections returns the number of connection slots.
func (cfg *Config) MaxConnections() int { return cfg.maxConnections }

// RingFactor returns the receive ring size in payloads.
func (cfg *Config) RingFactor() int { return cfg.ringFactor }

// MaxPayloadSize returns the payload cap, 0 when payloads are bounded only by the MTU.
func (cfg *Config) MaxPayloadSize() int { return cfg.maxPayloadSize }

// InitialGrant returns whether the receive window is announced when a role is established.
func (cfg *Config) InitialGrant() bool { return cfg.initialGrant }

// AutoDrain returns the initial auto-drain mode for new connections.
func (cfg *Config) AutoDrain() bool { return cfg.autoDrain }

// PeerStore returns the peer record store.
func (cfg *Config) PeerStore() *conntable.PeerStore { return cfg.peers }

// GetLogger returns the configured logger.
func (cfg *Config) GetLogger() logger.Logger { return cfg.logger }

// payloadSize returns the data payload size used for a connection with the given MTU.
func (cfg *Config) payloadSize(mtu int) int {
	size := min(BestFitPayload(mtu), MaxPayloadSize)
	if cfg.maxPayloadSize > 0 {
		size = min(size, cfg.maxPayloadSize)
	}

	return size
}

// ringCapacity returns the receive ring capacity for the given payload size.
// With payloads capped at MaxPayloadSize it stays below credit.MaxCredits.
func (cfg *Config) ringCapacity(payloadSize int) int {
	return payloadSize * cfg.ringFactor
}

// Option is a functional option for configuring a Config.
type Option interface {
	apply(*Config) error
}

type optFunc func(*Config) error

func (f optFunc) apply(cfg *Config) error { return f(cfg) }

// WithMaxConnections sets the number of concurrent connections, between 1 and 16.
func WithMaxConnections(n int) Option {
	return optFunc(func(cfg *Config) error {
		if n < 1 || n > MaxConnections {
			return fmt.Errorf("tunnel: max connections %d out of range [1, %d]", n, MaxConnections)
		}
		cfg.maxConnections = n

		return nil
	})
}

// WithRingFactor sets the receive ring capacity in payloads, between 1 and 16.
func WithRingFactor(factor int) Option {
	return optFunc(func(cfg *Config) error {
		if factor < 1 || factor > MaxRingFactor {
			return fmt.Errorf("tunnel: ring factor %d out of range [1, %d]", factor, MaxRingFactor)
		}
		cfg.ringFactor = factor

		return nil
	})
}

// WithMaxPayloadSize caps the per-packet data payload, between 1 and 512 bytes.
// By default the payload is derived from the MTU with BestFitPayload.
func WithMaxPayloadSize(size int) Option {
	return optFunc(func(cfg *Config) error {
		if size < 1 || size > MaxPayloadSize {
			return fmt.Errorf("tunnel: max payload size %d out of range [1, %d]", size, MaxPayloadSize)
		}
		cfg.maxPayloadSize = size

		return nil
	})
}

// WithInitialGrant enables or disables announcing the receive window when a role is established.
func WithInitialGrant(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.initialGrant = enabled
		return nil
	})
}

// WithAutoDrain sets the initial auto-drain mode of new connections.
func WithAutoDrain(enabled bool) Option {
	return optFunc(func(cfg *Config) error {
		cfg.autoDrain = enabled
		return nil
	})
}

// WithPeerStore shares a peer record store, e.g. between endpoints or across restarts of one.
func WithPeerStore(store *conntable.PeerStore) Option {
	return optFunc(func(cfg *Config) error {
		if store == nil {
			return errors.New("tunnel: peer store must not be nil")
		}
		cfg.peers = store

		return nil
	})
}

// WithReceiveHandler sets the consumer of auto-drained data.
func WithReceiveHandler(h ReceiveHandler) Option {
	return optFunc(func(cfg *Config) error {
		cfg.receiveHandler = h
		return nil
	})
}

// WithSendCompleteHandler sets the handler invoked when a send finishes.
func WithSendCompleteHandler(h SendCompleteHandler) Option {
	return optFunc(func(cfg *Config) error {
		cfg.sendCompleteHandler = h
		return nil
	})
}

// WithLogger sets the logger for the endpoint.
func WithLogger(l logger.Logger) Option {
	return optFunc(func(cfg *Config) error {
		if l == nil {
			return errors.New("tunnel: logger must not be nil")
		}
		cfg.logger = l

		return nil
	})
}
