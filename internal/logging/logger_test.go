package logging

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"strings"
	"testing"

	"github.com/goepfert/TX868-HTU21-LowPower/internal/config"
)

func TestNew_ProdWritesJSON(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "prod", LogLevel: slog.LevelInfo}
	logger := NewWithWriter(&buf, cfg, "1.2.0", "tx868")

	logger.Debug("hidden")
	logger.Info("frame sent", "address", 2)

	var rec map[string]any
	if err := json.Unmarshal(buf.Bytes(), &rec); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if rec["msg"] != "frame sent" || rec["app"] != "tx868" || rec["version"] != "1.2.0" || rec["env"] != "prod" {
		t.Errorf("record = %v", rec)
	}
}

func TestNew_DevUsesTint(t *testing.T) {
	var buf bytes.Buffer
	cfg := config.Config{AppEnv: "dev", LogLevel: slog.LevelDebug}
	logger := NewWithWriter(&buf, cfg, "dev", "tx868")

	logger.Debug("frame sent", "frame", "0002EE1B90154A01")

	out := buf.String()
	if !strings.Contains(out, "frame sent") || !strings.Contains(out, "0002EE1B90154A01") {
		t.Errorf("output = %q", out)
	}
	if strings.HasPrefix(strings.TrimSpace(out), "{") {
		t.Errorf("dev output looks like JSON: %q", out)
	}
}
