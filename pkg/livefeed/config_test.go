package livefeed_test

import (
	"testing"
	"time"

	"github.com/bft-labs/livefeed/pkg/connection"
	"github.com/bft-labs/livefeed/pkg/livefeed"
	"github.com/bft-labs/livefeed/pkg/mapper"
)

func TestConfig_SetDefaultsPerField(t *testing.T) {
	cfg := livefeed.Config{
		Connection: connection.Config{BackoffMax: time.Minute},
		Mapper:     mapper.Config{WarningDuration: time.Minute},
	}
	cfg.SetDefaults()

	conn := cfg.Connection
	if conn.BackoffMax != time.Minute {
		t.Errorf("BackoffMax = %v, want 1m", conn.BackoffMax)
	}
	if conn.BackoffInitial != connection.DefaultBackoffInitial {
		t.Errorf("BackoffInitial = %v, want %v", conn.BackoffInitial, connection.DefaultBackoffInitial)
	}
	if conn.DialTimeout != connection.DefaultDialTimeout {
		t.Errorf("DialTimeout = %v, want %v", conn.DialTimeout, connection.DefaultDialTimeout)
	}
	if conn.BackoffJitter != 0 || conn.MaxAuthFailures != 0 {
		t.Errorf("explicit zero jitter and auth limit were overwritten: %+v", conn)
	}

	mc := cfg.Mapper
	if mc.WarningDuration != time.Minute {
		t.Errorf("WarningDuration = %v, want 1m", mc.WarningDuration)
	}
	if mc.DefaultDuration != mapper.DefaultDuration || mc.ErrorDuration != mapper.DefaultErrorDuration {
		t.Errorf("durations = %v/%v, want defaults", mc.DefaultDuration, mc.ErrorDuration)
	}
	if mc.DedupWindow != 0 {
		t.Errorf("DedupWindow = %v, want disabled", mc.DedupWindow)
	}
	if cfg.Transport != livefeed.TransportWebSocket {
		t.Errorf("Transport = %q", cfg.Transport)
	}
}

func TestConfig_SetDefaultsEmptySections(t *testing.T) {
	var cfg livefeed.Config
	cfg.SetDefaults()

	def := livefeed.DefaultConfig()
	if cfg.Connection != def.Connection {
		t.Errorf("Connection = %+v, want %+v", cfg.Connection, def.Connection)
	}
	if cfg.Mapper != def.Mapper {
		t.Errorf("Mapper = %+v, want %+v", cfg.Mapper, def.Mapper)
	}
}
