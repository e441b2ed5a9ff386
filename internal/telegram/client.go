package telegram

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const (
	maxTextBytes    = 4096
	maxCaptionBytes = 1024
)

type Options struct {
	Token      string
	HTTPClient *http.Client
	Logger     *slog.Logger
	Debug      bool
	// MaxDownloadBytes caps files fetched from Telegram.
	MaxDownloadBytes int64
}

type Client struct {
	bot         *tgbotapi.BotAPI
	httpClient  *http.Client
	logger      *slog.Logger
	maxDownload int64
}

type Update = tgbotapi.Update

type Keyboard = tgbotapi.InlineKeyboardMarkup

func New(opts Options) (*Client, error) {
	if strings.TrimSpace(opts.Token) == "" {
		return nil, errors.New("telegram token is empty")
	}
	if opts.HTTPClient == nil {
		return nil, errors.New("http client is nil")
	}

	bot, err := tgbotapi.NewBotAPIWithClient(opts.Token, tgbotapi.APIEndpoint, opts.HTTPClient)
	if err != nil {
		return nil, err
	}
	bot.Debug = opts.Debug

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	maxDownload := opts.MaxDownloadBytes
	if maxDownload <= 0 {
		maxDownload = 20 << 20
	}

	return &Client{
		bot:         bot,
		httpClient:  opts.HTTPClient,
		logger:      logger,
		maxDownload: maxDownload,
	}, nil
}

func (c *Client) Username() string {
	return c.bot.Self.UserName
}

type UpdatesOptions struct {
	Timeout time.Duration
}

func (c *Client) Updates(opts UpdatesOptions) tgbotapi.UpdatesChannel {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = 30
	if opts.Timeout > 0 {
		u.Timeout = int(opts.Timeout.Seconds())
	}
	u.AllowedUpdates = []string{"message", "callback_query"}
	return c.bot.GetUpdatesChan(u)
}

func (c *Client) StopUpdates() {
	c.bot.StopReceivingUpdates()
}

func (c *Client) SendTyping(chatID int64) {
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, tgbotapi.ChatTyping))
}

func (c *Client) SendUploading(chatID int64, video bool) {
	action := tgbotapi.ChatUploadPhoto
	if video {
		action = tgbotapi.ChatUploadVideo
	}
	_, _ = c.bot.Send(tgbotapi.NewChatAction(chatID, action))
}

func (c *Client) SendText(chatID int64, text string) error {
	for _, p := range splitByBytes(text, maxTextBytes) {
		if _, err := c.bot.Send(tgbotapi.NewMessage(chatID, p)); err != nil {
			return err
		}
	}
	return nil
}

// SendTextWithKeyboard sends one message with an inline keyboard and returns
// its ID so the menu can be edited in place later.
func (c *Client) SendTextWithKeyboard(chatID int64, text string, kb Keyboard) (int, error) {
	msg := tgbotapi.NewMessage(chatID, truncateByBytes(text, maxTextBytes))
	msg.ReplyMarkup = kb
	sent, err := c.bot.Send(msg)
	if err != nil {
		return 0, err
	}
	return sent.MessageID, nil
}

func (c *Client) EditTextWithKeyboard(chatID int64, messageID int, text string, kb Keyboard) error {
	edit := tgbotapi.NewEditMessageTextAndMarkup(chatID, messageID, truncateByBytes(text, maxTextBytes), kb)
	_, err := c.bot.Request(edit)
	if err != nil && strings.Contains(err.Error(), "message is not modified") {
		return nil
	}
	return err
}

func (c *Client) AnswerCallback(callbackID, text string, alert bool) error {
	cfg := tgbotapi.NewCallback(callbackID, text)
	cfg.ShowAlert = alert
	_, err := c.bot.Request(cfg)
	return err
}

func (c *Client) SendPhotoBytes(chatID int64, name string, data []byte, caption string) error {
	photo := tgbotapi.NewPhoto(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	photo.Caption = truncateByBytes(caption, maxCaptionBytes)
	_, err := c.bot.Send(photo)
	return err
}

func (c *Client) SendVideoBytes(chatID int64, name string, data []byte, caption string) error {
	video := tgbotapi.NewVideo(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	video.Caption = truncateByBytes(caption, maxCaptionBytes)
	video.SupportsStreaming = true
	_, err := c.bot.Send(video)
	return err
}

// SendDocumentBytes sends a file uncompressed, keeping the generated quality.
func (c *Client) SendDocumentBytes(chatID int64, name string, data []byte, caption string) error {
	doc := tgbotapi.NewDocument(chatID, tgbotapi.FileBytes{Name: name, Bytes: data})
	doc.Caption = truncateByBytes(caption, maxCaptionBytes)
	_, err := c.bot.Send(doc)
	return err
}

func (c *Client) SendPhotoDataURL(chatID int64, dataURL string, caption string) error {
	mimeType, base64Data, err := parseDataURL(dataURL)
	if err != nil {
		return err
	}

	data, err := base64.StdEncoding.DecodeString(base64Data)
	if err != nil {
		return fmt.Errorf("decode base64: %w", err)
	}

	name := "image.jpg"
	if exts, _ := mime.ExtensionsByType(mimeType); len(exts) > 0 {
		name = "image" + exts[0]
	}
	return c.SendPhotoBytes(chatID, name, data, caption)
}

// DownloadFile fetches a file the user sent and returns its bytes and MIME type.
func (c *Client) DownloadFile(ctx context.Context, fileID string) ([]byte, string, error) {
	fileURL, err := c.bot.GetFileDirectURL(fileID)
	if err != nil {
		return nil, "", err
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, fileURL, nil)
	if err != nil {
		return nil, "", err
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, "", err
	}
	defer resp.Body.Close()

	if resp.StatusCode >= 400 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return nil, "", fmt.Errorf("telegram file download %s: %s", resp.Status, strings.TrimSpace(string(body)))
	}

	data, err := io.ReadAll(io.LimitReader(resp.Body, c.maxDownload+1))
	if err != nil {
		return nil, "", err
	}
	if int64(len(data)) > c.maxDownload {
		return nil, "", fmt.Errorf("telegram file exceeds %d bytes", c.maxDownload)
	}

	mimeType := cleanMIME(resp.Header.Get("content-type"))
	if mimeType == "" || mimeType == "application/octet-stream" {
		mimeType = cleanMIME(http.DetectContentType(data))
	}
	c.logger.Debug("telegram file downloaded", "bytes", len(data), "mime", mimeType)
	return data, mimeType, nil
}

func cleanMIME(value string) string {
	value = strings.TrimSpace(value)
	if i := strings.IndexByte(value, ';'); i >= 0 {
		value = strings.TrimSpace(value[:i])
	}
	return value
}

func parseDataURL(value string) (mimeType string, base64Data string, err error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return "", "", errors.New("empty data url")
	}

	const prefix = "data:"
	if !strings.HasPrefix(value, prefix) {
		return "image/jpeg", value, nil
	}

	meta, payload, ok := strings.Cut(value, ",")
	if !ok {
		return "", "", errors.New("invalid data url")
	}

	mimeType = cleanMIME(strings.TrimPrefix(meta, prefix))
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	return mimeType, payload, nil
}

func splitByBytes(text string, maxBytes int) []string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return []string{text}
	}

	var out []string
	var buf strings.Builder
	buf.Grow(maxBytes)

	for _, r := range text {
		if buf.Len() > 0 && buf.Len()+utf8.RuneLen(r) > maxBytes {
			out = append(out, buf.String())
			buf.Reset()
		}
		buf.WriteRune(r)
	}

	if buf.Len() > 0 {
		out = append(out, buf.String())
	}
	return out
}

func truncateByBytes(text string, maxBytes int) string {
	if len(text) <= maxBytes || maxBytes <= 0 {
		return text
	}

	var buf strings.Builder
	buf.Grow(maxBytes)
	for _, r := range text {
		if buf.Len()+utf8.RuneLen(r) > maxBytes {
			break
		}
		buf.WriteRune(r)
	}
	return buf.String()
}
