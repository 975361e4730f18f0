package mqtt

import (
	"context"
	"io"
	"log/slog"
	"testing"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/config"
	"github.com/goepfert/TX868-HTU21-LowPower/internal/types"
)

func TestTelemetryTopic(t *testing.T) {
	if got := TelemetryTopic("garden"); got != "stations/garden/telemetry" {
		t.Errorf("TelemetryTopic() = %q", got)
	}
}

func TestBrokerURL(t *testing.T) {
	if got := BrokerURL("localhost", 1883); got != "tcp://localhost:1883" {
		t.Errorf("BrokerURL() = %q", got)
	}
}

func newTestClient() *Client {
	cfg := config.Config{MQTTBroker: "127.0.0.1", MQTTPort: 1, MQTTClientID: "tx868-test"}
	return NewClient(cfg, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

func TestPublishTelemetry_NotConnected(t *testing.T) {
	c := newTestClient()
	if err := c.PublishTelemetry(types.Telemetry{StationID: "garden"}); err == nil {
		t.Fatal("PublishTelemetry error = nil, want not connected")
	}
}

func TestConnect_AfterDisconnect(t *testing.T) {
	c := newTestClient()
	c.Disconnect()
	c.Disconnect()
	if err := c.Connect(context.Background()); err == nil {
		t.Fatal("Connect error = nil, want client stopped")
	}
}
