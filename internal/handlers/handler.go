package handlers

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"golang.org/x/sync/errgroup"

	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/gemini"
	"ad-creative-studio/internal/mediagroup"
	"ad-creative-studio/internal/session"
	"ad-creative-studio/internal/studio"
	"ad-creative-studio/internal/telegram"
)

// Messenger is the part of the Telegram client the handler talks to.
// *telegram.Client satisfies it.
type Messenger interface {
	SendTyping(chatID int64)
	SendUploading(chatID int64, video bool)
	SendText(chatID int64, text string) error
	SendTextWithKeyboard(chatID int64, text string, kb telegram.Keyboard) (int, error)
	EditTextWithKeyboard(chatID int64, messageID int, text string, kb telegram.Keyboard) error
	AnswerCallback(callbackID, text string, alert bool) error
	SendPhotoBytes(chatID int64, name string, data []byte, caption string) error
	SendVideoBytes(chatID int64, name string, data []byte, caption string) error
	SendDocumentBytes(chatID int64, name string, data []byte, caption string) error
	SendPhotoDataURL(chatID int64, dataURL string, caption string) error
	DownloadFile(ctx context.Context, fileID string) ([]byte, string, error)
}

type Options struct {
	Telegram Messenger
	Sessions *session.Store
	Logger   *slog.Logger
}

type Handler struct {
	tg         Messenger
	sessions   *session.Store
	states     *stateStore
	logger     *slog.Logger
	aggregator *mediagroup.Aggregator
}

func New(opts Options) *Handler {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Handler{
		tg:       opts.Telegram,
		sessions: opts.Sessions,
		states:   newStateStore(),
		logger:   logger,
	}
}

func (h *Handler) SetMediaGroupAggregator(ag *mediagroup.Aggregator) {
	h.aggregator = ag
}

func (h *Handler) HandleUpdate(ctx context.Context, update telegram.Update) error {
	if update.CallbackQuery != nil {
		return h.handleCallback(ctx, update.CallbackQuery)
	}
	if update.Message == nil || update.Message.From == nil || update.Message.Chat == nil {
		return nil
	}

	msg := update.Message
	chatID := msg.Chat.ID
	userID := msg.From.ID

	if msg.IsCommand() {
		return h.handleCommand(ctx, chatID, userID, msg)
	}

	if fileID := imageFileID(msg); fileID != "" {
		return h.handlePhoto(ctx, chatID, userID, msg, fileID)
	}

	if msg.Text != "" {
		return h.handleText(ctx, chatID, userID, msg.Text)
	}

	return nil
}

func (h *Handler) HandleMediaGroup(ctx context.Context, group mediagroup.Group) {
	if err := h.processPhotos(ctx, group.ChatID, group.UserID, group.Caption, group.FileIDs); err != nil {
		h.logger.Error("media group processing failed", "chat_id", group.ChatID, "err", err)
		return
	}
	if group.Dropped > 0 {
		_ = h.tg.SendText(group.ChatID, fmt.Sprintf("ℹ️ Usei só as duas primeiras fotos do álbum (produto e logo); %d foram ignoradas.", group.Dropped))
	}
}

func sessionKey(chatID, userID int64) string {
	return fmt.Sprintf("tg:%d:%d", chatID, userID)
}

// ForgetSession drops the menu state of an evicted studio session. Pass it as
// session.Options.OnEvict.
func (h *Handler) ForgetSession(id string) {
	var chatID, userID int64
	if _, err := fmt.Sscanf(id, "tg:%d:%d", &chatID, &userID); err != nil {
		return
	}
	h.states.Delete(chatID, userID)
}

func (h *Handler) studio(chatID, userID int64) *studio.Session {
	return h.sessions.GetOrCreate(sessionKey(chatID, userID)).Studio
}

func (h *Handler) handleCommand(ctx context.Context, chatID int64, userID int64, msg *tgbotapi.Message) error {
	st := h.studio(chatID, userID)

	switch msg.Command() {
	case "start", "help":
		if err := h.tg.SendText(chatID, helpText); err != nil {
			return err
		}
		return h.sendMenu(chatID, userID)
	case "menu":
		return h.sendMenu(chatID, userID)
	case "generate":
		return h.runGeneration(ctx, chatID, userID, "")
	case "refine":
		instruction := strings.TrimSpace(msg.CommandArguments())
		if instruction == "" {
			return h.askField(chatID, userID, fieldRefine)
		}
		return h.runGeneration(ctx, chatID, userID, instruction)
	case "history":
		return h.sendHistory(chatID, userID)
	case "original":
		return h.sendOriginal(chatID, st)
	case "download":
		return h.sendDownload(chatID, st)
	case "reset":
		st.Reset()
		h.states.Reset(chatID, userID)
		_ = h.tg.SendText(chatID, "🔄 Projeto reiniciado. Envie uma nova foto do produto.")
		return h.sendMenu(chatID, userID)
	case "cancel":
		h.states.Update(chatID, userID, func(s *UIState) { s.Awaiting = fieldNone })
		return h.tg.SendText(chatID, "✅ Cancelado.")
	default:
		return h.tg.SendText(chatID, "❌ Comando desconhecido. Use /help.")
	}
}

func (h *Handler) handleText(ctx context.Context, chatID int64, userID int64, text string) error {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil
	}

	ui := h.states.Get(chatID, userID)
	if ui.Awaiting != fieldNone && ui.Awaiting != fieldLogo {
		return h.applyField(ctx, chatID, userID, ui.Awaiting, text)
	}

	st := h.studio(chatID, userID)
	if classifyText(text, st.Config().GeneratedImage != "") == intentRefine {
		return h.runGeneration(ctx, chatID, userID, text)
	}

	st.Update(func(m *creative.Model) { m.SetNarrative(text) })
	_ = h.tg.SendText(chatID, "📝 Narrativa atualizada.")
	return h.sendMenu(chatID, userID)
}

// applyField stores typed text into the field the menu asked for.
func (h *Handler) applyField(ctx context.Context, chatID, userID int64, f field, text string) error {
	h.states.Update(chatID, userID, func(s *UIState) { s.Awaiting = fieldNone })
	st := h.studio(chatID, userID)

	switch f {
	case fieldRefine:
		return h.runGeneration(ctx, chatID, userID, text)
	case fieldNarrative:
		st.Update(func(m *creative.Model) { m.SetNarrative(text) })
	case fieldHeadline:
		st.Update(func(m *creative.Model) { m.SetHeadline(text) })
	case fieldCTAText:
		st.Update(func(m *creative.Model) { m.SetCTAText(text) })
	case fieldSiteURL:
		st.Update(func(m *creative.Model) { m.SetSiteURL(text) })
	case fieldPhone:
		if creative.DigitsOnly(text) == "" {
			h.states.Update(chatID, userID, func(s *UIState) { s.Awaiting = fieldPhone })
			return h.tg.SendText(chatID, "❌ Número inválido. Envie apenas o DDD e o número, ex.: 11 99999-8888")
		}
		st.Update(func(m *creative.Model) { m.SetWhatsAppNumber(text) })
	}

	_ = h.tg.SendText(chatID, "✅ Atualizado.")
	return h.sendMenu(chatID, userID)
}

func (h *Handler) handlePhoto(ctx context.Context, chatID int64, userID int64, msg *tgbotapi.Message, fileID string) error {
	if msg.MediaGroupID != "" && h.aggregator != nil {
		h.aggregator.Add(mediagroup.Item{
			ChatID:       chatID,
			UserID:       userID,
			MediaGroupID: msg.MediaGroupID,
			MessageID:    msg.MessageID,
			Caption:      msg.Caption,
			FileID:       fileID,
		})
		return nil
	}

	if h.states.Get(chatID, userID).Awaiting == fieldLogo {
		h.states.Update(chatID, userID, func(s *UIState) { s.Awaiting = fieldNone })
		data, err := h.download(ctx, chatID, fileID)
		if err != nil {
			return err
		}
		if err := h.studio(chatID, userID).UploadLogo(ctx, bytes.NewReader(data)); err != nil {
			return h.sendError(chatID, err)
		}
		_ = h.tg.SendText(chatID, "🏷 Logo atualizado.")
		return h.sendMenu(chatID, userID)
	}

	return h.processPhotos(ctx, chatID, userID, msg.Caption, []string{fileID})
}

// processPhotos downloads the photos in parallel. The first becomes the
// product, the second the logo; any others are ignored.
func (h *Handler) processPhotos(ctx context.Context, chatID int64, userID int64, caption string, fileIDs []string) error {
	if len(fileIDs) == 0 {
		return nil
	}
	if len(fileIDs) > 2 {
		fileIDs = fileIDs[:2]
	}
	h.tg.SendTyping(chatID)

	downloads := make([][]byte, len(fileIDs))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, fileID := range fileIDs {
		eg.Go(func() error {
			data, _, err := h.tg.DownloadFile(egCtx, fileID)
			if err != nil {
				return err
			}
			downloads[i] = data
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		return h.tg.SendText(chatID, "❌ Não consegui baixar a imagem. Tente enviar novamente.")
	}

	st := h.studio(chatID, userID)
	if err := st.UploadProduct(ctx, bytes.NewReader(downloads[0])); err != nil {
		return h.sendError(chatID, err)
	}
	notice := "📸 Foto do produto recebida."
	if len(downloads) > 1 {
		if err := st.UploadLogo(ctx, bytes.NewReader(downloads[1])); err != nil {
			return h.sendError(chatID, err)
		}
		notice = "📸 Foto do produto e logo recebidos."
	}
	if caption = strings.TrimSpace(caption); caption != "" {
		st.Update(func(m *creative.Model) { m.SetNarrative(caption) })
	}

	_ = h.tg.SendText(chatID, notice)
	return h.sendMenu(chatID, userID)
}

func (h *Handler) download(ctx context.Context, chatID int64, fileID string) ([]byte, error) {
	h.tg.SendTyping(chatID)
	data, _, err := h.tg.DownloadFile(ctx, fileID)
	if err != nil {
		h.logger.Error("photo download failed", "chat_id", chatID, "err", err)
		_ = h.tg.SendText(chatID, "❌ Não consegui baixar a imagem. Tente enviar novamente.")
		return nil, err
	}
	return data, nil
}

func (h *Handler) runGeneration(ctx context.Context, chatID, userID int64, instruction string) error {
	st := h.studio(chatID, userID)
	cfg := st.Config()
	video := instruction == "" && cfg.OutputType == creative.OutputVideo

	if video {
		_ = h.tg.SendText(chatID, "🎬 Gerando vídeo. Isso pode levar alguns minutos...")
	} else {
		_ = h.tg.SendText(chatID, "🎨 Gerando seu anúncio...")
	}
	h.tg.SendUploading(chatID, video)

	var err error
	if instruction == "" {
		_, err = st.Generate(ctx)
	} else {
		_, err = st.Refine(ctx, instruction)
	}
	if err != nil {
		if !errors.Is(err, gemini.ErrValidation) && !errors.Is(err, gemini.ErrBusy) {
			h.logger.Error("generation failed", "chat_id", chatID, "refine", instruction != "", "err", err)
		}
		return h.sendError(chatID, err)
	}

	if err := h.sendCurrent(chatID, st); err != nil {
		return err
	}
	return h.sendMenu(chatID, userID)
}

func (h *Handler) sendError(chatID int64, err error) error {
	return h.tg.SendText(chatID, "❌ "+gemini.UserMessage(err))
}

func imageFileID(msg *tgbotapi.Message) string {
	if len(msg.Photo) > 0 {
		return msg.Photo[len(msg.Photo)-1].FileID
	}
	if msg.Document != nil && strings.HasPrefix(msg.Document.MimeType, "image/") {
		return msg.Document.FileID
	}
	return ""
}

const helpText = "🎯 Estúdio de Anúncios com IA\n\n" +
	"1. Envie a foto do produto (opcional: uma segunda foto no mesmo álbum vira o logo).\n" +
	"2. Escreva a narrativa da cena ou ajuste tudo pelo menu.\n" +
	"3. Toque em Gerar.\n\n" +
	"Comandos:\n" +
	"/menu - Abrir o menu\n" +
	"/generate - Gerar o anúncio\n" +
	"/refine <instrução> - Ajustar a imagem gerada\n" +
	"/history - Ver resultados anteriores\n" +
	"/original - Ver a foto original\n" +
	"/download - Baixar o resultado atual\n" +
	"/reset - Começar um novo projeto\n" +
	"/cancel - Cancelar a pergunta atual"
