package gemini

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"sync"
	"time"

	"google.golang.org/genai"
)

type VideoInput struct {
	Model       string
	Prompt      string
	AspectRatio string
	Image       []byte
	MIMEType    string
}

// VideoOutput is empty (no Data) when the model declined; Notes then explains why.
type VideoOutput struct {
	Data     []byte
	MIMEType string
	Notes    string
}

// VideoBackend runs an image-to-video generation to completion.
type VideoBackend interface {
	GenerateVideo(ctx context.Context, in VideoInput) (VideoOutput, error)
}

type VeoOptions struct {
	APIKey       string
	HTTPClient   *http.Client
	PollInterval time.Duration
	Logger       *slog.Logger
}

// VeoBackend drives Veo long-running operations through the genai SDK.
type VeoBackend struct {
	apiKey     string
	httpClient *http.Client
	poll       time.Duration
	logger     *slog.Logger

	mu     sync.Mutex
	client *genai.Client
}

func NewVeoBackend(opts VeoOptions) *VeoBackend {
	poll := opts.PollInterval
	if poll <= 0 {
		poll = 10 * time.Second
	}
	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}
	return &VeoBackend{
		apiKey:     strings.TrimSpace(opts.APIKey),
		httpClient: httpClient,
		poll:       poll,
		logger:     logger,
	}
}

func (b *VeoBackend) genaiClient(ctx context.Context) (*genai.Client, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	if b.client != nil {
		return b.client, nil
	}
	if b.apiKey == "" {
		return nil, errors.New("veo: api key is empty")
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:     b.apiKey,
		Backend:    genai.BackendGeminiAPI,
		HTTPClient: b.httpClient,
	})
	if err != nil {
		return nil, fmt.Errorf("create genai client: %w", err)
	}
	b.client = client
	return client, nil
}

func (b *VeoBackend) GenerateVideo(ctx context.Context, in VideoInput) (VideoOutput, error) {
	client, err := b.genaiClient(ctx)
	if err != nil {
		return VideoOutput{}, err
	}

	var image *genai.Image
	if len(in.Image) > 0 {
		image = &genai.Image{ImageBytes: in.Image, MIMEType: in.MIMEType}
	}

	op, err := client.Models.GenerateVideos(ctx, in.Model, in.Prompt, image, &genai.GenerateVideosConfig{
		AspectRatio: in.AspectRatio,
	})
	if err != nil {
		return VideoOutput{}, fmt.Errorf("start video generation: %w", err)
	}
	b.logger.Info("video operation started", "operation", op.Name, "model", in.Model)

	for !op.Done {
		select {
		case <-ctx.Done():
			return VideoOutput{}, ctx.Err()
		case <-time.After(b.poll):
		}

		op, err = client.Operations.GetVideosOperation(ctx, op, nil)
		if err != nil {
			return VideoOutput{}, fmt.Errorf("poll video operation: %w", err)
		}
		b.logger.Debug("video operation polled", "operation", op.Name, "done", op.Done)
	}

	if op.Error != nil {
		return VideoOutput{}, fmt.Errorf("video operation failed: %v", op.Error)
	}
	if op.Response == nil || len(op.Response.GeneratedVideos) == 0 {
		notes := ""
		if op.Response != nil {
			notes = strings.Join(op.Response.RAIMediaFilteredReasons, "; ")
		}
		return VideoOutput{Notes: notes}, nil
	}

	generated := op.Response.GeneratedVideos[0]
	if generated == nil || generated.Video == nil {
		return VideoOutput{}, nil
	}
	video := generated.Video

	mimeType := video.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}
	if len(video.VideoBytes) > 0 {
		return VideoOutput{Data: video.VideoBytes, MIMEType: mimeType}, nil
	}
	if video.URI == "" {
		return VideoOutput{}, nil
	}

	data, err := b.download(ctx, video.URI)
	if err != nil {
		return VideoOutput{}, err
	}
	return VideoOutput{Data: data, MIMEType: mimeType}, nil
}

func (b *VeoBackend) download(ctx context.Context, uri string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, uri, nil)
	if err != nil {
		return nil, fmt.Errorf("create download request: %w", err)
	}
	req.Header.Set("x-goog-api-key", b.apiKey)

	resp, err := b.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("download video: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read video: %w", err)
	}
	if resp.StatusCode >= 400 {
		return nil, newServiceError(resp.StatusCode, body)
	}
	return body, nil
}
