package handlers

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"

	"ad-creative-studio/internal/creative"
	"ad-creative-studio/internal/studio"
	"ad-creative-studio/internal/telegram"
)

const callbackPrefix = "ad"

// maxHistoryButtons bounds the history keyboard; older entries stay reachable
// through the web surface.
const maxHistoryButtons = 10

// emptyKeyboard removes the buttons from an edited message.
var emptyKeyboard = telegram.Keyboard{InlineKeyboard: [][]tgbotapi.InlineKeyboardButton{}}

var fieldPrompts = map[field]string{
	fieldNarrative: "✍️ Descreva a cena do anúncio (ex.: mulher segurando o perfume na praia ao pôr do sol).",
	fieldHeadline:  "📰 Envie a manchete do anúncio.",
	fieldCTAText:   "🔘 Envie o texto do botão (ex.: Comprar Agora).",
	fieldSiteURL:   "🔗 Envie o link do site.",
	fieldPhone:     "📱 Envie o número do WhatsApp com DDD (ex.: 11 99999-8888).",
	fieldRefine:    "🪄 O que deseja alterar na imagem? (ex.: deixe o fundo azul)",
	fieldLogo:      "🏷 Envie a imagem do logo.",
}

func callbackData(ownerID int64, action string, args ...string) string {
	parts := append([]string{callbackPrefix, strconv.FormatInt(ownerID, 10), action}, args...)
	return strings.Join(parts, ":")
}

type callback struct {
	OwnerID int64
	Action  string
	Arg     string
}

func parseCallback(data string) (callback, bool) {
	parts := strings.SplitN(data, ":", 4)
	if len(parts) < 3 || parts[0] != callbackPrefix {
		return callback{}, false
	}
	owner, err := strconv.ParseInt(parts[1], 10, 64)
	if err != nil {
		return callback{}, false
	}
	cb := callback{OwnerID: owner, Action: parts[2]}
	if len(parts) == 4 {
		cb.Arg = parts[3]
	}
	return cb, true
}

func (h *Handler) handleCallback(ctx context.Context, q *tgbotapi.CallbackQuery) error {
	cb, ok := parseCallback(q.Data)
	if !ok || q.From == nil || q.Message == nil || q.Message.Chat == nil {
		return h.tg.AnswerCallback(q.ID, "", false)
	}
	if q.From.ID != cb.OwnerID {
		return h.tg.AnswerCallback(q.ID, "Este menu pertence a outra pessoa.", true)
	}

	chatID := q.Message.Chat.ID
	userID := q.From.ID
	messageID := q.Message.MessageID
	st := h.studio(chatID, userID)
	_ = h.tg.AnswerCallback(q.ID, "", false)

	switch cb.Action {
	case "menu":
		h.states.Update(chatID, userID, func(s *UIState) {
			s.Menu = cb.Arg
			s.MessageID = messageID
		})
	case "theme":
		if t, ok := creative.ParseTheme(cb.Arg); ok {
			st.Update(func(m *creative.Model) { m.SetTheme(t) })
		}
		h.states.Update(chatID, userID, func(s *UIState) { s.Menu = menuMain })
	case "device":
		if d, ok := creative.ParseDevice(cb.Arg); ok {
			st.Update(func(m *creative.Model) { m.SetDevice(d) })
		}
		h.states.Update(chatID, userID, func(s *UIState) { s.Menu = menuMain })
	case "output":
		if o, ok := creative.ParseOutputType(cb.Arg); ok {
			st.Update(func(m *creative.Model) { m.SetOutputType(o) })
		}
		h.states.Update(chatID, userID, func(s *UIState) { s.Menu = menuMain })
	case "cta":
		if mode, ok := creative.ParseCTAMode(cb.Arg); ok {
			st.Update(func(m *creative.Model) { m.SetCTAMode(mode) })
		}
		h.states.Update(chatID, userID, func(s *UIState) { s.Menu = menuMain })
	case "ask":
		return h.askField(chatID, userID, field(cb.Arg))
	case "nologo":
		st.RemoveLogo()
	case "generate":
		return h.runGeneration(ctx, chatID, userID, "")
	case "original":
		return h.sendOriginal(chatID, st)
	case "history":
		return h.sendHistory(chatID, userID)
	case "pick":
		i, err := strconv.Atoi(cb.Arg)
		if err != nil {
			return nil
		}
		if _, err := st.SelectHistory(i); err != nil {
			return h.sendError(chatID, err)
		}
		return h.sendCurrent(chatID, st)
	case "download":
		return h.sendDownload(chatID, st)
	case "reset":
		st.Reset()
		h.states.Reset(chatID, userID)
	case "close":
		h.states.Reset(chatID, userID)
		return h.tg.EditTextWithKeyboard(chatID, messageID, "✅ Menu fechado. Use /menu para abrir novamente.", emptyKeyboard)
	default:
		return nil
	}

	ui := h.states.Update(chatID, userID, func(s *UIState) { s.MessageID = messageID })
	return h.tg.EditTextWithKeyboard(chatID, messageID, menuText(st.Snapshot(), ui), menuKeyboard(userID, st.Snapshot(), ui.Menu))
}

func (h *Handler) askField(chatID, userID int64, f field) error {
	prompt, ok := fieldPrompts[f]
	if !ok {
		return nil
	}
	h.states.Update(chatID, userID, func(s *UIState) { s.Awaiting = f })
	return h.tg.SendText(chatID, prompt+"\n\n/cancel para cancelar.")
}

// sendMenu posts a fresh main menu below the latest messages.
func (h *Handler) sendMenu(chatID, userID int64) error {
	snap := h.studio(chatID, userID).Snapshot()
	ui := h.states.Update(chatID, userID, func(s *UIState) { s.Menu = menuMain })

	msgID, err := h.tg.SendTextWithKeyboard(chatID, menuText(snap, ui), menuKeyboard(userID, snap, menuMain))
	if err != nil {
		return err
	}
	h.states.Update(chatID, userID, func(s *UIState) { s.MessageID = msgID })
	return nil
}

func (h *Handler) sendHistory(chatID, userID int64) error {
	snap := h.studio(chatID, userID).Snapshot()
	if len(snap.History) == 0 {
		return h.tg.SendText(chatID, "🕘 O histórico está vazio. Gere um anúncio primeiro.")
	}
	text := fmt.Sprintf("🕘 Histórico (%d itens). Escolha um para restaurar:", len(snap.History))
	_, err := h.tg.SendTextWithKeyboard(chatID, text, historyKeyboard(userID, snap.History))
	return err
}

func menuText(snap studio.Snapshot, ui UIState) string {
	cfg := snap.Config
	var b strings.Builder

	b.WriteString("🎯 Estúdio de Anúncios\n\n")
	fmt.Fprintf(&b, "Produto: %s\n", presence(cfg.ProductImage))
	fmt.Fprintf(&b, "Logo: %s\n", presence(cfg.LogoImage))
	fmt.Fprintf(&b, "Formato: %s\n", outputName(cfg.OutputType))
	fmt.Fprintf(&b, "Tema: %s\n", cfg.Theme.Name())
	fmt.Fprintf(&b, "Dispositivo: %s (%s)\n", cfg.Device.Name(), cfg.Device.AspectRatio())
	fmt.Fprintf(&b, "Narrativa: %s\n", orDash(cfg.Narrative))
	fmt.Fprintf(&b, "Manchete: %s\n", orDash(cfg.Headline))
	fmt.Fprintf(&b, "Botão: %s → %s\n", orDash(cfg.CTAText), orDash(cfg.CTALink))
	if len(snap.History) > 0 {
		fmt.Fprintf(&b, "Histórico: %d\n", len(snap.History))
	}
	if snap.State.Message != "" && snap.State.Status != creative.StatusSuccess {
		fmt.Fprintf(&b, "\nStatus: %s\n", snap.State.Message)
	}

	switch ui.Menu {
	case menuTheme:
		b.WriteString("\nEscolha o tema:")
	case menuDevice:
		b.WriteString("\nEscolha o dispositivo:")
	case menuOutput:
		b.WriteString("\nEscolha o formato:")
	case menuCTA:
		b.WriteString("\nPara onde o botão deve levar?")
	default:
		if cfg.ProductImage == "" {
			b.WriteString("\n📸 Envie a foto do produto para começar.")
		}
	}
	return b.String()
}

func menuKeyboard(userID int64, snap studio.Snapshot, menu string) telegram.Keyboard {
	button := func(label, action string, args ...string) tgbotapi.InlineKeyboardButton {
		return tgbotapi.NewInlineKeyboardButtonData(label, callbackData(userID, action, args...))
	}
	back := tgbotapi.NewInlineKeyboardRow(button("⬅️ Voltar", "menu", menuMain))
	cfg := snap.Config

	switch menu {
	case menuTheme:
		var rows [][]tgbotapi.InlineKeyboardButton
		for _, opt := range creative.Themes() {
			rows = append(rows, tgbotapi.NewInlineKeyboardRow(button(mark(opt.Key == string(cfg.Theme))+opt.Name, "theme", opt.Key)))
		}
		return tgbotapi.NewInlineKeyboardMarkup(append(rows, back)...)
	case menuDevice:
		var row []tgbotapi.InlineKeyboardButton
		for _, opt := range creative.Devices() {
			row = append(row, button(mark(opt.Key == string(cfg.Device))+opt.Name, "device", opt.Key))
		}
		return tgbotapi.NewInlineKeyboardMarkup(row, back)
	case menuOutput:
		var row []tgbotapi.InlineKeyboardButton
		for _, opt := range creative.OutputTypes() {
			row = append(row, button(mark(opt.Key == string(cfg.OutputType))+opt.Name, "output", opt.Key))
		}
		return tgbotapi.NewInlineKeyboardMarkup(row, back)
	case menuCTA:
		return tgbotapi.NewInlineKeyboardMarkup(
			tgbotapi.NewInlineKeyboardRow(
				button(mark(snap.CTAMode == creative.CTASite)+"🌐 Site", "cta", string(creative.CTASite)),
				button(mark(snap.CTAMode == creative.CTAWhatsApp)+"💬 WhatsApp", "cta", string(creative.CTAWhatsApp)),
			),
			back,
		)
	}

	linkButton := button("🔗 Link do site", "ask", string(fieldSiteURL))
	if snap.CTAMode == creative.CTAWhatsApp {
		linkButton = button("📱 Número WhatsApp", "ask", string(fieldPhone))
	}
	logoButton := button("🏷 Logo", "ask", string(fieldLogo))
	if cfg.LogoImage != "" {
		logoButton = button("🏷 Remover logo", "nologo")
	}

	rows := [][]tgbotapi.InlineKeyboardButton{
		tgbotapi.NewInlineKeyboardRow(
			button("🎨 Tema", "menu", menuTheme),
			button("📱 Dispositivo", "menu", menuDevice),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🖼 Formato: "+outputName(cfg.OutputType), "menu", menuOutput),
			button("🔘 Destino do botão", "menu", menuCTA),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("✍️ Narrativa", "ask", string(fieldNarrative)),
			button("📰 Manchete", "ask", string(fieldHeadline)),
		),
		tgbotapi.NewInlineKeyboardRow(
			button("🔤 Texto do botão", "ask", string(fieldCTAText)),
			linkButton,
		),
		tgbotapi.NewInlineKeyboardRow(logoButton),
	}

	if cfg.ProductImage != "" {
		action := tgbotapi.NewInlineKeyboardRow(
			button("✨ Gerar", "generate"),
			button("👁 Original", "original"),
		)
		if cfg.GeneratedImage != "" {
			action = append(action, button("🪄 Refinar", "ask", string(fieldRefine)))
		}
		rows = append(rows, action)
	}
	if len(snap.History) > 0 {
		rows = append(rows, tgbotapi.NewInlineKeyboardRow(
			button(fmt.Sprintf("🕘 Histórico (%d)", len(snap.History)), "history"),
			button("⬇️ Baixar", "download"),
		))
	}
	rows = append(rows, tgbotapi.NewInlineKeyboardRow(
		button("🔄 Novo projeto", "reset"),
		button("✖️ Fechar", "close"),
	))
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

// historyKeyboard lists the newest entries first, five per row. History is
// already newest-first, so button i restores entry i.
func historyKeyboard(userID int64, history []creative.HistoryEntry) telegram.Keyboard {
	var rows [][]tgbotapi.InlineKeyboardButton
	var row []tgbotapi.InlineKeyboardButton
	for i := 0; i < len(history) && i < maxHistoryButtons; i++ {
		icon := "🖼"
		if history[i].Type == creative.OutputVideo {
			icon = "🎬"
		}
		label := fmt.Sprintf("%s %d", icon, i+1)
		row = append(row, tgbotapi.NewInlineKeyboardButtonData(label, callbackData(userID, "pick", strconv.Itoa(i))))
		if len(row) == 5 {
			rows = append(rows, row)
			row = nil
		}
	}
	if len(row) > 0 {
		rows = append(rows, row)
	}
	return tgbotapi.NewInlineKeyboardMarkup(rows...)
}

func outputName(o creative.OutputType) string {
	for _, opt := range creative.OutputTypes() {
		if opt.Key == string(o) {
			return opt.Name
		}
	}
	return string(o)
}

func presence(value string) string {
	if value == "" {
		return "(vazio)"
	}
	return "enviado ✅"
}

func orDash(value string) string {
	if strings.TrimSpace(value) == "" {
		return "(vazio)"
	}
	return value
}

func mark(selected bool) string {
	if selected {
		return "✅ "
	}
	return ""
}
