package server

import (
	"sync/atomic"
	"time"
)

// ServerMetrics is a point-in-time snapshot of the reactor's counters.
type ServerMetrics struct {
	// Connections
	ActiveConnections int64
	TotalConnections  int64
	PeakConnections   int64

	// Traffic
	MessagesReceived int64
	BytesReceived    int64
	PacketsSent      int64
	BytesSent        int64

	// Drops and errors
	StaleEventsDropped int64
	QueueOverflows     int64
	ReadErrors         int64
	WriteErrors        int64

	// Downloads
	DownloadsCompleted int64
	DownloadsExpired   int64

	// Timestamp
	CollectedAt time.Time
}

// MetricsCollector accumulates reactor counters. All methods are safe
// for concurrent use.
type MetricsCollector struct {
	active           atomic.Int64
	total            atomic.Int64
	peak             atomic.Int64
	messagesReceived atomic.Int64
	bytesReceived    atomic.Int64
	packetsSent      atomic.Int64
	bytesSent        atomic.Int64
	staleDrops       atomic.Int64
	queueOverflows   atomic.Int64
	readErrors       atomic.Int64
	writeErrors      atomic.Int64
	downloadsDone    atomic.Int64
	downloadsExpired atomic.Int64
}

// NewMetricsCollector creates a zeroed collector.
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{}
}

// RecordConnect records an accepted connection.
func (m *MetricsCollector) RecordConnect() {
	m.total.Add(1)
	active := m.active.Add(1)
	for {
		peak := m.peak.Load()
		if active <= peak || m.peak.CompareAndSwap(peak, active) {
			break
		}
	}
}

// RecordDisconnect records a closed connection.
func (m *MetricsCollector) RecordDisconnect() {
	m.active.Add(-1)
}

// RecordMessageReceived records one inbound message.
func (m *MetricsCollector) RecordMessageReceived(bytes int) {
	m.messagesReceived.Add(1)
	m.bytesReceived.Add(int64(bytes))
}

// RecordPacketSent records one outbound packet.
func (m *MetricsCollector) RecordPacketSent(bytes int) {
	m.packetsSent.Add(1)
	m.bytesSent.Add(int64(bytes))
}

// RecordStaleDrop records an application event dropped because its
// connection was gone.
func (m *MetricsCollector) RecordStaleDrop() {
	m.staleDrops.Add(1)
}

// RecordQueueOverflow records a connection torn down on a full queue.
func (m *MetricsCollector) RecordQueueOverflow() {
	m.queueOverflows.Add(1)
}

// RecordReadError records a failed read.
func (m *MetricsCollector) RecordReadError() {
	m.readErrors.Add(1)
}

// RecordWriteError records a failed write.
func (m *MetricsCollector) RecordWriteError() {
	m.writeErrors.Add(1)
}

// RecordDownloadCompleted records a download answered by the app.
func (m *MetricsCollector) RecordDownloadCompleted() {
	m.downloadsDone.Add(1)
}

// RecordDownloadExpired records a download that timed out.
func (m *MetricsCollector) RecordDownloadExpired() {
	m.downloadsExpired.Add(1)
}

// Snapshot returns current metrics.
func (m *MetricsCollector) Snapshot() *ServerMetrics {
	return &ServerMetrics{
		ActiveConnections:  m.active.Load(),
		TotalConnections:   m.total.Load(),
		PeakConnections:    m.peak.Load(),
		MessagesReceived:   m.messagesReceived.Load(),
		BytesReceived:      m.bytesReceived.Load(),
		PacketsSent:        m.packetsSent.Load(),
		BytesSent:          m.bytesSent.Load(),
		StaleEventsDropped: m.staleDrops.Load(),
		QueueOverflows:     m.queueOverflows.Load(),
		ReadErrors:         m.readErrors.Load(),
		WriteErrors:        m.writeErrors.Load(),
		DownloadsCompleted: m.downloadsDone.Load(),
		DownloadsExpired:   m.downloadsExpired.Load(),
		CollectedAt:        time.Now(),
	}
}
