package ocr

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

// maxImageBytes matches the Bot API download limit.
const maxImageBytes = 20 << 20

// FileGetter is the part of *tgbotapi.BotAPI used to resolve file paths.
type FileGetter interface {
	GetFile(config tgbotapi.FileConfig) (tgbotapi.File, error)
}

// TelegramFiles downloads files that users sent to the bot.
type TelegramFiles struct {
	api      FileGetter
	token    string
	endpoint string
	httpc    *http.Client
}

// NewTelegramFiles creates a downloader. endpoint is a format string taking
// the bot token and file path; empty means tgbotapi.FileEndpoint.
func NewTelegramFiles(api FileGetter, token, endpoint string) *TelegramFiles {
	if endpoint == "" {
		endpoint = tgbotapi.FileEndpoint
	}
	return &TelegramFiles{
		api:      api,
		token:    token,
		endpoint: endpoint,
		httpc:    &http.Client{Timeout: 60 * time.Second},
	}
}

// Fetch resolves fileID and downloads its content.
func (f *TelegramFiles) Fetch(ctx context.Context, fileID string) ([]byte, error) {
	file, err := f.api.GetFile(tgbotapi.FileConfig{FileID: fileID})
	if err != nil {
		return nil, &FileResolutionError{FileID: fileID, Err: err}
	}
	if file.FilePath == "" {
		return nil, &FileResolutionError{FileID: fileID}
	}

	url := fmt.Sprintf(f.endpoint, f.token, file.FilePath)
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("build download request: %w", err)
	}
	resp, err := f.httpc.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download file: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("download file: status %d", resp.StatusCode)
	}
	data, err := io.ReadAll(io.LimitReader(resp.Body, maxImageBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read file: %w", err)
	}
	if len(data) > maxImageBytes {
		return nil, fmt.Errorf("download file: larger than %d bytes", maxImageBytes)
	}
	return data, nil
}
