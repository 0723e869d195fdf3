package tunnel

import (
	"sync/atomic"
)

// Metrics contains atomic counters for an endpoint.
// Metrics can be used as the value of a prometheus CounterFunc or GaugeFunc.
type Metrics struct {
	// DataPacketSendCount indicates the number of data packets accepted by the transport.
	DataPacketSendCount atomic.Uint64
	// DataByteSendCount indicates the number of data bytes accepted by the transport.
	DataByteSendCount atomic.Uint64
	// DataPacketRecvCount indicates the number of data packets received.
	DataPacketRecvCount atomic.Uint64
	// DataByteRecvCount indicates the number of data bytes received, including dropped ones.
	DataByteRecvCount atomic.Uint64

	// TransportBusyCount indicates how many times the transport refused a packet.
	TransportBusyCount atomic.Uint64
	// TransportErrCount indicates the number of non-busy transport errors.
	TransportErrCount atomic.Uint64

	// CreditsGranted is the total of transmit credits granted by peers.
	CreditsGranted atomic.Uint64
	// CreditsAnnounced is the total of receive credits delivered to peers.
	CreditsAnnounced atomic.Uint64

	// OverflowByteCount is the number of received bytes dropped on overflow.
	OverflowByteCount atomic.Uint64

	// SendCompleteCount indicates the number of sends that delivered every requested byte.
	SendCompleteCount atomic.Uint64
	// SendFailCount indicates the number of sends aborted by a source error.
	SendFailCount atomic.Uint64

	// ActiveConnGauge indicates the number of connections in the table.
	ActiveConnGauge atomic.Int32
}

func (m *Metrics) addDataSent(n int) {
	m.DataPacketSendCount.Add(1)
	m.DataByteSendCount.Add(uint64(n))
}

func (m *Metrics) addDataRecv(n int) {
	m.DataPacketRecvCount.Add(1)
	m.DataByteRecvCount.Add(uint64(n))
}

func (m *Metrics) incTransportBusyCount() {
	m.TransportBusyCount.Add(1)
}

func (m *Metrics) incTransportErrCount() {
	m.TransportErrCount.Add(1)
}

func (m *Metrics) addCreditsGranted(n int) {
	m.CreditsGranted.Add(uint64(n))
}

func (m *Metrics) addCreditsAnnounced(n int) {
	m.CreditsAnnounced.Add(uint64(n))
}

func (m *Metrics) addOverflowBytes(n int) {
	m.OverflowByteCount.Add(uint64(n))
}

func (m *Metrics) incSendCompleteCount() {
	m.SendCompleteCount.Add(1)
}

func (m *Metrics) incSendFailCount() {
	m.SendFailCount.Add(1)
}

func (m *Metrics) incActiveConnGauge() {
	m.ActiveConnGauge.Add(1)
}

func (m *Metrics) decActiveConnGauge() {
	m.ActiveConnGauge.Add(-1)
}
