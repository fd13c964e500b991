package alerting

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"
)

// Notification 封装一次分析运行的摘要。
type Notification struct {
	RunID   string
	Source  string
	At      time.Time
	Summary string
	Skipped []string
}

// Notifier 定义摘要推送接口。
type Notifier interface {
	Notify(ctx context.Context, notification Notification) error
}

// TelegramNotifier 通过 Telegram Bot API 推送消息。
type TelegramNotifier struct {
	botToken string
	chatID   string
	baseURL  string
	client   *http.Client
	logger   zerolog.Logger
}

// NewTelegramNotifier 构造 Telegram 推送器。
func NewTelegramNotifier(botToken, chatID, baseURL string, timeout time.Duration, logger zerolog.Logger) *TelegramNotifier {
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	if baseURL == "" {
		baseURL = "https://api.telegram.org"
	}

	return &TelegramNotifier{
		botToken: botToken,
		chatID:   chatID,
		baseURL:  strings.TrimRight(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
		logger:   logger.With().Str("component", "notify_telegram").Logger(),
	}
}

// Notify 调用 sendMessage API 推送文本。
func (n *TelegramNotifier) Notify(ctx context.Context, note Notification) error {
	payload := map[string]string{
		"chat_id": n.chatID,
		"text":    renderMessage(note),
	}

	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshal telegram payload: %w", err)
	}

	url := fmt.Sprintf("%s/bot%s/sendMessage", n.baseURL, n.botToken)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("create telegram request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := n.client.Do(req)
	if err != nil {
		return fmt.Errorf("send telegram request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return fmt.Errorf("telegram 响应码异常: %d", resp.StatusCode)
	}

	var result struct {
		OK bool `json:"ok"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&result); err == nil {
		if !result.OK {
			return fmt.Errorf("telegram 返回 ok=false")
		}
	}

	n.logger.Info().Str("run_id", note.RunID).
		Str("source", note.Source).
		Msg("摘要已发送 (Telegram)")
	return nil
}

// telegram 单条消息上限 4096 字符
const maxMessageLen = 4000

func renderMessage(note Notification) string {
	builder := strings.Builder{}
	builder.WriteString("[Session VWAP Backtest]\n")
	if note.RunID != "" {
		builder.WriteString(fmt.Sprintf("Run: %s\n", note.RunID))
	}
	if note.Source != "" {
		builder.WriteString(fmt.Sprintf("Source: %s\n", note.Source))
	}
	builder.WriteString(fmt.Sprintf("At: %s UTC\n\n", note.At.UTC().Format(time.RFC3339)))
	builder.WriteString(note.Summary)
	if len(note.Skipped) > 0 {
		builder.WriteString(fmt.Sprintf("\n\nSkipped: %s", strings.Join(note.Skipped, ", ")))
	}

	msg := builder.String()
	if len(msg) > maxMessageLen {
		cut := maxMessageLen
		for cut > 0 && !utf8.RuneStart(msg[cut]) {
			cut--
		}
		msg = msg[:cut] + "..."
	}
	return msg
}

var _ Notifier = (*TelegramNotifier)(nil)
