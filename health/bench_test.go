package health

import (
	"testing"
	"time"
)

func BenchmarkPeerHealth_RecordSuccess(b *testing.B) {
	ph := NewPeerHealth("node-1", 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ph.RecordSuccess()
	}
}

func BenchmarkPeerHealth_UpdateResponseTime(b *testing.B) {
	ph := NewPeerHealth("node-1", 10)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		ph.UpdateResponseTime(time.Duration(i%50) * time.Millisecond)
	}
}

func BenchmarkMonitor_SelectBestNodes(b *testing.B) {
	m := NewMonitor(newFakeTransport(), MonitorConfig{})
	for i := 0; i < 100; i++ {
		m.RecordSuccess(peerName(i))
	}

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		_ = m.SelectBestNodes(10, nil)
	}
}

func peerName(i int) string {
	return "node-" + string(rune('a'+i%26)) + string(rune('0'+i%10))
}
