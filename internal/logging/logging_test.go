package logging

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
)

func TestNewJSONLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := Component(New(Config{Level: "warn", Format: "json"}, &buf), "pipeline")

	logger.Info().Msg("suppressed")
	logger.Warn().Str("session", "2025-01-27").Msg("skipped")

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("info 级别应被过滤, 实际输出 %q", buf.String())
	}

	var entry map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &entry); err != nil {
		t.Fatalf("日志应为 JSON: %v", err)
	}
	if entry["component"] != "pipeline" || entry["session"] != "2025-01-27" || entry["level"] != "warn" {
		t.Fatalf("日志字段不正确: %#v", entry)
	}
}

func TestConsoleLogger(t *testing.T) {
	var buf bytes.Buffer
	logger := New(Config{Level: "bogus", Format: "console"}, &buf)
	logger.Info().Msg("hello")

	if !strings.Contains(buf.String(), "hello") {
		t.Fatalf("console 输出缺少消息: %q", buf.String())
	}
	if strings.Contains(buf.String(), "\x1b[") {
		t.Fatalf("非终端输出不应带颜色: %q", buf.String())
	}
}
