package gemini

import (
	"bytes"
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"golang.org/x/sync/semaphore"

	"ad-creative-studio/internal/credential"
	"ad-creative-studio/internal/creative"
)

const (
	defaultImageModel = "gemini-2.5-flash-image"
	defaultVideoModel = "veo-2.0-generate-001"
	defaultSourceMime = "image/jpeg"
)

type Options struct {
	Credential   credential.Key
	BaseURL      string
	APIVersion   string
	ImageModel   string
	VideoModel   string
	HTTPClient   *http.Client
	Logger       *slog.Logger
	Objects      ObjectStore
	Videos       VideoBackend
	PollInterval time.Duration
}

// Client talks to Gemini for one studio session. At most one generation may
// be in flight; a second call fails with ErrBusy instead of queueing.
type Client struct {
	key        credential.Key
	baseURL    string
	apiVersion string
	imageModel string
	videoModel string
	httpClient *http.Client
	logger     *slog.Logger
	objects    ObjectStore
	videos     VideoBackend
	inflight   *semaphore.Weighted
}

func New(opts Options) *Client {
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://generativelanguage.googleapis.com"
	}

	apiVersion := strings.TrimSpace(opts.APIVersion)
	if apiVersion == "" {
		apiVersion = "v1beta"
	}

	imageModel := strings.TrimSpace(opts.ImageModel)
	if imageModel == "" {
		imageModel = defaultImageModel
	}
	videoModel := strings.TrimSpace(opts.VideoModel)
	if videoModel == "" {
		videoModel = defaultVideoModel
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	httpClient := opts.HTTPClient
	if httpClient == nil {
		httpClient = http.DefaultClient
	}

	videos := opts.Videos
	if videos == nil {
		videos = NewVeoBackend(VeoOptions{
			APIKey:       opts.Credential.Value,
			HTTPClient:   httpClient,
			PollInterval: opts.PollInterval,
			Logger:       logger,
		})
	}

	return &Client{
		key:        opts.Credential,
		baseURL:    baseURL,
		apiVersion: apiVersion,
		imageModel: imageModel,
		videoModel: videoModel,
		httpClient: httpClient,
		logger:     logger,
		objects:    opts.Objects,
		videos:     videos,
		inflight:   semaphore.NewWeighted(1),
	}
}

func (c *Client) GenerateImage(ctx context.Context, req ImageRequest) (Artifact, error) {
	if !c.inflight.TryAcquire(1) {
		return Artifact{}, &Error{Kind: ErrBusy, Message: "Já existe uma geração em andamento. Aguarde a conclusão."}
	}
	defer c.inflight.Release(1)

	src, err := decodeSource(req.Source)
	if err != nil {
		return Artifact{}, err
	}
	if req.Mode == ModeEdit && strings.TrimSpace(req.Instruction) == "" {
		return Artifact{}, Validation("Digite o que deseja alterar na imagem.")
	}
	if err := c.checkCredential(); err != nil {
		return Artifact{}, err
	}

	mode := req.Mode
	if mode != ModeEdit {
		mode = ModeGenerate
	}
	instruction := BuildImageInstruction(mode, req.Instruction, req.Theme)

	payload := generateContentRequest{
		Contents: []content{{
			Role: "user",
			Parts: []part{
				{InlineData: &src},
				{Text: instruction},
			},
		}},
		GenerationConfig: generationConfig{
			ResponseModalities: []string{"IMAGE", "TEXT"},
		},
	}
	if ar := strings.TrimSpace(req.AspectRatio); ar != "" {
		payload.GenerationConfig.ImageConfig = &imageConfig{AspectRatio: ar}
	}

	start := time.Now()
	resp, err := c.generateContent(ctx, c.imageModel, payload)
	if err != nil {
		c.logger.Error("image generation failed", "mode", mode, "err", err)
		return Artifact{}, transport(err)
	}

	img, text, count := extractParts(resp)
	if count > 1 {
		c.logger.Warn("model returned several images; keeping the first", "count", count)
	}
	if img == nil {
		c.logger.Warn("model returned no image", "mode", mode, "text_len", len(text))
		return Artifact{}, generationEmpty(text)
	}

	mimeType := img.MimeType
	if mimeType == "" {
		mimeType = "image/png"
	}

	c.logger.Info("image generated", "mode", mode, "theme", req.Theme, "aspect", req.AspectRatio, "dur_ms", time.Since(start).Milliseconds())
	return Artifact{
		URL:      fmt.Sprintf("data:%s;base64,%s", mimeType, img.Data),
		MIMEType: mimeType,
		Kind:     creative.OutputImage,
		Text:     text,
	}, nil
}

func (c *Client) GenerateVideo(ctx context.Context, req VideoRequest) (Artifact, error) {
	if !c.inflight.TryAcquire(1) {
		return Artifact{}, &Error{Kind: ErrBusy, Message: "Já existe uma geração em andamento. Aguarde a conclusão."}
	}
	defer c.inflight.Release(1)

	src, err := decodeSource(req.Source)
	if err != nil {
		return Artifact{}, err
	}
	if err := c.checkCredential(); err != nil {
		return Artifact{}, err
	}

	raw, err := base64.StdEncoding.DecodeString(src.Data)
	if err != nil {
		return Artifact{}, Validation("A imagem enviada não é válida.")
	}

	start := time.Now()
	out, err := c.videos.GenerateVideo(ctx, VideoInput{
		Model:       c.videoModel,
		Prompt:      BuildVideoInstruction(req.Instruction, req.Theme),
		AspectRatio: videoAspectRatio(req.AspectRatio),
		Image:       raw,
		MIMEType:    src.MimeType,
	})
	if err != nil {
		c.logger.Error("video generation failed", "err", err)
		return Artifact{}, transport(err)
	}
	if len(out.Data) == 0 {
		return Artifact{}, generationEmpty(out.Notes)
	}

	mimeType := out.MIMEType
	if mimeType == "" {
		mimeType = "video/mp4"
	}

	url, err := c.publish(out.Data, mimeType)
	if err != nil {
		return Artifact{}, transport(fmt.Errorf("store video: %w", err))
	}

	c.logger.Info("video generated", "theme", req.Theme, "bytes", len(out.Data), "dur_ms", time.Since(start).Milliseconds())
	return Artifact{
		URL:      url,
		MIMEType: mimeType,
		Kind:     creative.OutputVideo,
	}, nil
}

func (c *Client) publish(data []byte, mimeType string) (string, error) {
	if c.objects == nil {
		return fmt.Sprintf("data:%s;base64,%s", mimeType, base64.StdEncoding.EncodeToString(data)), nil
	}
	return c.objects.Put(data, mimeType)
}

func (c *Client) checkCredential() error {
	if c.key.IsZero() {
		return missingCredential(credential.Remediation())
	}
	if !c.key.LooksValid() {
		return &Error{Kind: ErrInvalidCredential, Message: credential.MalformedRemediation(c.key)}
	}
	return nil
}

// Veo only renders landscape or portrait.
func videoAspectRatio(ar string) string {
	if ar == "16:9" {
		return ar
	}
	return "9:16"
}

func (c *Client) generateContent(ctx context.Context, model string, payload generateContentRequest) (generateContentResponse, error) {
	body, err := json.Marshal(payload)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/%s/models/%s:generateContent", c.baseURL, c.apiVersion, model)
	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("content-type", "application/json")
	httpReq.Header.Set("x-goog-api-key", c.key.Value)

	httpResp, err := c.httpClient.Do(httpReq)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("request: %w", err)
	}
	defer httpResp.Body.Close()

	rawBody, err := io.ReadAll(httpResp.Body)
	if err != nil {
		return generateContentResponse{}, fmt.Errorf("read response: %w", err)
	}

	if httpResp.StatusCode >= 400 {
		return generateContentResponse{}, newServiceError(httpResp.StatusCode, rawBody)
	}

	var decoded generateContentResponse
	if err := json.Unmarshal(rawBody, &decoded); err != nil {
		return generateContentResponse{}, fmt.Errorf("decode response: %w", err)
	}
	return decoded, nil
}

// extractParts returns the first inline image, all text, and the image count.
func extractParts(resp generateContentResponse) (*blob, string, int) {
	if len(resp.Candidates) == 0 {
		return nil, "", 0
	}

	var textBuilder strings.Builder
	var first *blob
	count := 0

	for _, p := range resp.Candidates[0].Content.Parts {
		if p.Text != "" {
			textBuilder.WriteString(p.Text)
		}
		if p.InlineData != nil && p.InlineData.Data != "" {
			count++
			if first == nil {
				b := *p.InlineData
				first = &b
			}
		}
	}

	return first, strings.TrimSpace(textBuilder.String()), count
}

type serviceError struct {
	Status  int
	Code    string
	Message string
}

func (e *serviceError) Error() string {
	if e.Code != "" {
		return fmt.Sprintf("gemini API %d %s: %s", e.Status, e.Code, e.Message)
	}
	return fmt.Sprintf("gemini API %d: %s", e.Status, e.Message)
}

func newServiceError(status int, body []byte) *serviceError {
	var apiErr errorResponse
	if err := json.Unmarshal(body, &apiErr); err == nil && apiErr.Error.Message != "" {
		return &serviceError{Status: status, Code: apiErr.Error.Status, Message: apiErr.Error.Message}
	}
	msg := strings.TrimSpace(string(body))
	if msg == "" {
		msg = http.StatusText(status)
	}
	return &serviceError{Status: status, Message: msg}
}

var dataURLRegex = regexp.MustCompile(`^data:([^;,]+)(;[^,]*)?,`)

// decodeSource strips a data-URI prefix and checks the payload is base64.
func decodeSource(source string) (blob, error) {
	source = strings.TrimSpace(source)
	if source == "" {
		return blob{}, Validation("Por favor, envie uma foto do produto primeiro.")
	}

	mime := defaultSourceMime
	if matches := dataURLRegex.FindStringSubmatch(source); len(matches) >= 2 {
		mime = matches[1]
	}

	data := stripDataURLPrefix(source)
	if data == "" {
		return blob{}, Validation("A imagem enviada está vazia.")
	}
	if _, err := base64.StdEncoding.DecodeString(data); err != nil {
		return blob{}, &Error{Kind: ErrValidation, Message: "A imagem enviada não é válida.", Err: err}
	}
	if !strings.HasPrefix(mime, "image/") {
		return blob{}, Validation("O arquivo enviado não é uma imagem.")
	}

	return blob{Data: data, MimeType: mime}, nil
}

func stripDataURLPrefix(value string) string {
	if !strings.HasPrefix(value, "data:") {
		return value
	}
	if idx := strings.IndexByte(value, ','); idx >= 0 {
		return value[idx+1:]
	}
	return ""
}
