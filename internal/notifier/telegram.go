package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

const defaultTelegramAPI = "https://api.telegram.org"

// Telegram 通知器：把引擎事件推送至指定群/频道。
type Telegram struct {
	BotToken string
	ChatID   string
	Client   *http.Client
	// BaseURL 默认为 Telegram 官方 API，测试时可指向本地服务。
	BaseURL string
	// Attempts 为最大尝试次数，Backoff 为第 i 次失败后的等待基数。
	Attempts int
	Backoff  time.Duration
}

func NewTelegram(botToken, chatID string) *Telegram {
	return &Telegram{
		BotToken: botToken,
		ChatID:   chatID,
		Client:   &http.Client{Timeout: 15 * time.Second},
		BaseURL:  defaultTelegramAPI,
		Attempts: 3,
		Backoff:  time.Second,
	}
}

// SendText 发送文本消息（失败时按 Attempts 重试）。
func (t *Telegram) SendText(text string) error {
	return t.SendTextContext(context.Background(), text)
}

// SendTextContext 与 SendText 相同，ctx 结束时放弃剩余重试。
func (t *Telegram) SendTextContext(ctx context.Context, text string) error {
	if t.BotToken == "" || t.ChatID == "" {
		return fmt.Errorf("telegram 配置不完整")
	}
	base := strings.TrimRight(t.BaseURL, "/")
	if base == "" {
		base = defaultTelegramAPI
	}
	url := fmt.Sprintf("%s/bot%s/sendMessage", base, t.BotToken)
	body, err := json.Marshal(map[string]any{
		"chat_id":    t.ChatID,
		"text":       text,
		"parse_mode": "Markdown",
	})
	if err != nil {
		return err
	}
	attempts := t.Attempts
	if attempts <= 0 {
		attempts = 1
	}
	client := t.Client
	if client == nil {
		client = http.DefaultClient
	}

	var lastErr error
	for i := 0; i < attempts; i++ {
		if i > 0 {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(time.Duration(i) * t.Backoff):
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")
		resp, err := client.Do(req)
		if err != nil {
			lastErr = err
			continue
		}
		io.Copy(io.Discard, resp.Body)
		resp.Body.Close()
		if resp.StatusCode/100 == 2 {
			return nil
		}
		lastErr = fmt.Errorf("telegram status=%d", resp.StatusCode)
	}
	return lastErr
}
