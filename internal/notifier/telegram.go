package notifier

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/queuedesk/ticketero/pkg/circuitbreaker"
)

const telegramAPIBase = "https://api.telegram.org"

type TelegramConfig struct {
	BotToken string
	Timeout  time.Duration
}

// TelegramChannel sends notifications through the Telegram Bot API.
// The recipient is the chat id registered for the ticket's phone.
type TelegramChannel struct {
	token  string
	client *http.Client
	cb     *circuitbreaker.CircuitBreaker
}

func NewTelegramChannel(cfg TelegramConfig) *TelegramChannel {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &TelegramChannel{
		token:  cfg.BotToken,
		client: &http.Client{Timeout: timeout},
		cb: circuitbreaker.NewCircuitBreaker(circuitbreaker.Settings{
			Name:        "telegram",
			MaxFailures: 5,
			Timeout:     30 * time.Second,
		}),
	}
}

type telegramSendRequest struct {
	ChatID string `json:"chat_id"`
	Text   string `json:"text"`
}

type telegramSendResponse struct {
	OK     bool `json:"ok"`
	Result struct {
		MessageID int64 `json:"message_id"`
	} `json:"result"`
	Description string `json:"description"`
}

func (t *TelegramChannel) Send(ctx context.Context, recipient, text string) (string, error) {
	body, err := json.Marshal(telegramSendRequest{ChatID: recipient, Text: text})
	if err != nil {
		return "", &ChannelError{Channel: "telegram", Err: err}
	}

	var messageID string
	sendErr := t.cb.Execute(func() error {
		url := fmt.Sprintf("%s/bot%s/sendMessage", telegramAPIBase, t.token)
		req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			return err
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := t.client.Do(req)
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		var decoded telegramSendResponse
		if err := json.NewDecoder(resp.Body).Decode(&decoded); err != nil {
			return err
		}
		if !decoded.OK {
			return fmt.Errorf("telegram API error: %s", decoded.Description)
		}

		messageID = strconv.FormatInt(decoded.Result.MessageID, 10)
		return nil
	})
	if sendErr != nil {
		return "", &ChannelError{Channel: "telegram", Err: sendErr}
	}
	return messageID, nil
}
