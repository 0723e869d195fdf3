package tunnel

import (
	"fmt"

	"github.com/arloliu/go-creditlink/conntable"
	"github.com/arloliu/go-creditlink/logger"
)

// Endpoint is the tunnel data plane for a fixed set of peer connections.
type Endpoint struct {
	cfg     *Config
	logger  logger.Logger
	tr      Transport
	table   *conntable.Table
	peers   *conntable.PeerStore
	metrics Metrics
}

// ensure Endpoint implements EventHandler interface.
var _ EventHandler = (*Endpoint)(nil)

// ConnStats is a snapshot of one connection's state.
type ConnStats struct {
	Handle          Handle
	Addr            Addr
	Role            Role
	MTU             int
	PayloadSize     int
	AutoDrain       bool
	TransmitCredits int
	QueuedCredits   int
	Backpressured   bool
	Buffered        int
	BufferFree      int
	SendRequested   int
	SendSent        int
}

// NewEndpoint creates an Endpoint sending through tr.
func NewEndpoint(cfg *Config, tr Transport) (*Endpoint, error) {
	if cfg == nil {
		return nil, ErrConfigNil
	}
	if tr == nil {
		return nil, ErrTransportNil
	}

	return &Endpoint{
		cfg:    cfg,
		logger: cfg.logger.With("component", "tunnel"),
		tr:     tr,
		table:  conntable.New(cfg.maxConnections),
		peers:  cfg.peers,
	}, nil
}

// GetLogger returns the logger associated with the endpoint.
func (e *Endpoint) GetLogger() logger.Logger {
	return e.logger
}

// GetMetrics returns the metrics associated with the endpoint.
func (e *Endpoint) GetMetrics() *Metrics {
	return &e.metrics
}

// OnConnect registers a new connection with the negotiated MTU.
//
// When roleHint is not RoleUnknown the role is established right away, as with Configure.
// It returns an error wrapping ErrResourceExhausted when every slot is taken; the caller
// should then reject the connection.
func (e *Endpoint) OnConnect(h Handle, addr Addr, mtu int, roleHint Role) error {
	payload := e.cfg.payloadSize(mtu)

	c, err := e.table.Allocate(addr, h, e.cfg.ringCapacity(payload))
	if err != nil {
		e.logger.Warn("failed to allocate connection", "handle", h, "addr", addr, "error", err)
		return err
	}

	c.MTU = mtu
	c.AutoDrain = e.cfg.autoDrain
	c.SetPayloadSize(payload)
	e.peers.Update(addr, func(rec *conntable.PeerRecord) { rec.MTU = mtu })
	e.metrics.incActiveConnGauge()

	e.logger.Info("connection established",
		"handle", h, "addr", addr, "mtu", mtu, "payload", payload, "buffer", c.Ring.Cap())

	if roleHint != RoleUnknown {
		return e.Configure(h, roleHint)
	}

	return nil
}

// OnDisconnect drops the connection. Buffered data, credits and any pending send are
// discarded without notice.
func (e *Endpoint) OnDisconnect(h Handle) error {
	c, err := e.table.LookupByHandle(h)
	if err != nil {
		e.logger.Debug("disconnect for unknown connection", "handle", h)
		return err
	}

	e.logger.Info("connection closed",
		"handle", h, "addr", c.Addr(),
		"discarded_rx", c.Ring.Len(), "discarded_tx", c.Send.Remaining())

	if err := e.table.Release(c.Slot()); err != nil {
		return err
	}
	e.metrics.decActiveConnGauge()

	return nil
}

// OnMTUChanged updates the payload size of a connection after an MTU exchange.
// The receive buffer keeps its capacity and contents.
func (e *Endpoint) OnMTUChanged(h Handle, mtu int) error {
	c, err := e.lookup(h)
	if err != nil {
		return err
	}

	c.MTU = mtu
	c.SetPayloadSize(e.cfg.payloadSize(mtu))
	e.peers.Update(c.Addr(), func(rec *conntable.PeerRecord) { rec.MTU = mtu })
	e.logger.Debug("mtu changed", "handle", h, "mtu", mtu, "payload", c.PayloadSize)

	return nil
}

// Configure establishes the role of a connection.
//
// The first role wins: configuring the same role again is a no-op, a different role
// returns an error wrapping ErrRoleConflict. On first configuration the peer record is
// updated and, unless disabled with WithInitialGrant(false), the whole receive window is
// announced to the peer.
func (e *Endpoint) Configure(h Handle, role Role) error {
	c, err := e.lookup(h)
	if err != nil {
		return err
	}

	prev := c.Role()
	if err := c.SetRole(role); err != nil {
		e.logger.Warn("rejected role change", "handle", h, "role", prev, "requested", role)
		return err
	}
	if prev == role {
		return nil
	}

	e.peers.Update(c.Addr(), func(rec *conntable.PeerRecord) {
		rec.IsClient = role.IsClient()
		rec.IsServer = role.IsServer()
	})
	e.logger.Info("connection role established", "handle", h, "role", role)

	if e.cfg.initialGrant {
		e.announce(c, c.Ring.Free())
	}

	return nil
}

// SetAutoDrain switches the receive mode of a connection.
//
// When enabling, bytes already buffered are handed to the receive handler and credited
// back before new data starts bypassing the buffer.
func (e *Endpoint) SetAutoDrain(h Handle, enabled bool) error {
	c, err := e.lookup(h)
	if err != nil {
		return err
	}

	c.AutoDrain = enabled
	if !enabled || c.Ring.Len() == 0 {
		return nil
	}

	buf := make([]byte, c.Ring.Len())
	n, _ := c.Ring.Read(buf)
	e.deliverReceived(c, buf[:n])
	e.announce(c, n)

	return nil
}

// Stats returns a snapshot of the connection state.
func (e *Endpoint) Stats(h Handle) (ConnStats, error) {
	c, err := e.lookup(h)
	if err != nil {
		return ConnStats{}, err
	}

	return ConnStats{
		Handle:          c.Handle(),
		Addr:            c.Addr(),
		Role:            c.Role(),
		MTU:             c.MTU,
		PayloadSize:     c.PayloadSize,
		AutoDrain:       c.AutoDrain,
		TransmitCredits: c.Ledger.TransmitCredits(),
		QueuedCredits:   c.Ledger.QueuedCredits(),
		Backpressured:   c.Ledger.Backpressured(),
		Buffered:        c.Ring.Len(),
		BufferFree:      c.Ring.Free(),
		SendRequested:   c.Send.Requested,
		SendSent:        c.Send.Sent,
	}, nil
}

// Connections returns the number of active connections.
func (e *Endpoint) Connections() int {
	return e.table.InUse()
}

// PeerRecord returns the persistent record of a peer.
func (e *Endpoint) PeerRecord(addr Addr) (conntable.PeerRecord, bool) {
	return e.peers.Get(addr)
}

// ForgetPeer removes the persistent record of a peer. An active connection to the peer
// is not affected.
func (e *Endpoint) ForgetPeer(addr Addr) bool {
	return e.peers.Forget(addr)
}

func (e *Endpoint) lookup(h Handle) (*conntable.Conn, error) {
	c, err := e.table.LookupByHandle(h)
	if err != nil {
		e.logger.Debug("operation on unknown connection", "handle", h)
		return nil, err
	}

	return c, nil
}

// transmit sends p with the primitive matching the connection's role.
func (e *Endpoint) transmit(c *conntable.Conn, ch Channel, p []byte) (int, error) {
	switch c.Role() {
	case RoleServer:
		return e.tr.Notify(c.Handle(), ch, p)
	case RoleClient:
		return e.tr.WriteWithoutResponse(c.Handle(), ch, p)
	default:
		return 0, fmt.Errorf("%w: handle %d", ErrRoleNotSet, c.Handle())
	}
}
