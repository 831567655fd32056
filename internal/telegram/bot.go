package telegram

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"slices"
	"strings"
	"time"

	"middag/internal/app"
	"middag/internal/config"
	"middag/internal/i18n"
	"middag/internal/metrics"
	"middag/internal/planner"
	"middag/internal/share"
	"middag/internal/storage"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
)

const commandTimeout = 30 * time.Second

// sender is the part of the Telegram API the bot replies through.
type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// UsageReader returns aggregated generation metrics.
type UsageReader interface {
	GetDailyUsage(ctx context.Context, days int) ([]metrics.DailyUsage, error)
}

// Bot answers planner commands sent to a Telegram chat.
type Bot struct {
	api      *tgbotapi.BotAPI
	send     sender
	planner  *app.Planner
	sessions *app.Sessions
	tr       *i18n.Translator
	logger   *slog.Logger

	usage    UsageReader
	dataPath string
	linkFor  func(id string) string
	allowed  []int64
	language string
}

// Option configures a Bot.
type Option func(*Bot)

// WithUsage enables the /metrics command.
func WithUsage(u UsageReader, dataPath string) Option {
	return func(b *Bot) {
		b.usage = u
		b.dataPath = dataPath
	}
}

// WithLinks sets how a shared plan id is turned into a link.
func WithLinks(fn func(id string) string) Option {
	return func(b *Bot) { b.linkFor = fn }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(b *Bot) { b.logger = l }
}

// NewBot initializes the Telegram API and sets the webhook.
func NewBot(cfg *config.Config, p *app.Planner, sessions *app.Sessions, opts ...Option) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramBotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to init telegram api: %w", err)
	}

	b := newBot(api, p, sessions, cfg.TelegramAllowUserIDs, cfg.DefaultLanguage, opts...)
	b.api = api
	b.logger.Info("authorized on telegram", "account", api.Self.UserName)

	if cfg.TelegramWebhookURL != "" {
		wh, err := tgbotapi.NewWebhook(cfg.TelegramWebhookURL)
		if err != nil {
			return nil, fmt.Errorf("invalid webhook url %s: %w", cfg.TelegramWebhookURL, err)
		}
		resp, err := api.Request(wh)
		if err != nil {
			return nil, fmt.Errorf("failed to set webhook to %s: %w", cfg.TelegramWebhookURL, err)
		}
		b.logger.Info("webhook set", "description", resp.Description)
	}
	return b, nil
}

func newBot(send sender, p *app.Planner, sessions *app.Sessions, allowed []int64, lang string, opts ...Option) *Bot {
	b := &Bot{
		api:      &tgbotapi.BotAPI{},
		send:     send,
		planner:  p,
		sessions: sessions,
		tr:       i18n.Default(),
		logger:   slog.Default(),
		linkFor:  func(id string) string { return id },
		allowed:  allowed,
		language: i18n.Normalize(lang),
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

// Handler serves the webhook endpoint.
func (b *Bot) Handler() http.Handler {
	return http.HandlerFunc(b.handleWebhook)
}

func (b *Bot) handleWebhook(w http.ResponseWriter, r *http.Request) {
	update, err := b.api.HandleUpdate(r)
	if err != nil {
		b.logger.Warn("failed to parse update", "error", err)
		w.WriteHeader(http.StatusBadRequest)
		return
	}
	w.WriteHeader(http.StatusOK)

	if update.Message == nil || update.Message.From == nil {
		return
	}
	go func(msg *tgbotapi.Message) {
		ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
		defer cancel()
		b.processMessage(ctx, msg)
	}(update.Message)
}

// isAllowed reports whether userID may use the bot. An empty list allows everyone.
func (b *Bot) isAllowed(userID int64) bool {
	return len(b.allowed) == 0 || slices.Contains(b.allowed, userID)
}

func (b *Bot) processMessage(ctx context.Context, msg *tgbotapi.Message) {
	cmd, args := parseCommand(msg.Text)
	lang := b.replyLanguage(msg, args)

	if !b.isAllowed(msg.From.ID) {
		b.logger.Warn("unauthorized access attempt", "user_id", msg.From.ID, "username", msg.From.UserName)
		b.reply(msg.Chat.ID, escape(b.tr.T(lang, i18n.KeyUnauthorized, nil)))
		return
	}

	switch cmd {
	case "/plan", "/start":
		b.handlePlan(ctx, msg.Chat.ID, lang)
	case "/share":
		b.handleShare(ctx, msg.Chat.ID, lang)
	case "/show":
		b.handleShow(ctx, msg.Chat.ID, lang, args)
	case "/metrics":
		b.handleMetrics(ctx, msg.Chat.ID, lang)
	default:
		b.logger.Debug("ignoring message", "chat_id", msg.Chat.ID)
	}
}

// parseCommand splits "/cmd@bot arg1 arg2" into "/cmd" and its arguments.
func parseCommand(text string) (string, []string) {
	fields := strings.Fields(text)
	if len(fields) == 0 || !strings.HasPrefix(fields[0], "/") {
		return "", nil
	}
	cmd, _, _ := strings.Cut(strings.ToLower(fields[0]), "@")
	return cmd, fields[1:]
}

// replyLanguage picks the first supported of: a language argument, the
// sender's client language, the configured default.
func (b *Bot) replyLanguage(msg *tgbotapi.Message, args []string) string {
	if len(args) > 0 && i18n.Supported(args[0]) {
		return args[0]
	}
	if msg.From != nil {
		if code, _, _ := strings.Cut(msg.From.LanguageCode, "-"); i18n.Supported(code) {
			return code
		}
		if strings.HasPrefix(msg.From.LanguageCode, "nb") || strings.HasPrefix(msg.From.LanguageCode, "nn") {
			return i18n.Norwegian
		}
	}
	return b.language
}

func (b *Bot) handlePlan(ctx context.Context, chatID int64, lang string) {
	st, err := b.planner.NewState(ctx, app.NewStateRequest{Language: lang})
	if err != nil {
		b.replyError(chatID, lang, err)
		return
	}
	b.reply(chatID, formatPlanMarkdown(b.tr.T(lang, i18n.KeyWeeklyPlanTitle, nil), st))
}

func (b *Bot) handleShare(ctx context.Context, chatID int64, lang string) {
	st, err := b.planner.NewState(ctx, app.NewStateRequest{Language: lang})
	if err != nil {
		b.replyError(chatID, lang, err)
		return
	}
	id, err := b.sessions.Create(ctx, st)
	if err != nil {
		b.replyError(chatID, lang, err)
		return
	}
	link := b.tr.T(lang, i18n.KeySharedPlanLink, map[string]string{"url": b.linkFor(id)})
	b.reply(chatID, formatPlanMarkdown(b.tr.T(lang, i18n.KeyWeeklyPlanTitle, nil), st)+"\n"+escape(link))
}

func (b *Bot) handleShow(ctx context.Context, chatID int64, lang string, args []string) {
	id := ""
	for _, a := range args {
		if !i18n.Supported(a) {
			id = a
			break
		}
	}
	if id == "" {
		b.reply(chatID, escape(b.tr.T(lang, i18n.KeyUsageShow, nil)))
		return
	}
	st, err := b.sessions.Get(ctx, id)
	if err != nil {
		b.replyError(chatID, lang, err)
		return
	}
	b.reply(chatID, formatPlanMarkdown(b.tr.T(st.Language, i18n.KeyWeeklyPlanTitle, nil), st))
}

func (b *Bot) handleMetrics(ctx context.Context, chatID int64, lang string) {
	if b.usage == nil {
		return
	}
	usage, err := b.usage.GetDailyUsage(ctx, 7)
	if err != nil {
		b.replyError(chatID, lang, err)
		return
	}
	b.reply(chatID, formatMetricsMarkdown(usage, metrics.GetSysHealth(b.dataPath)))
}

func (b *Bot) replyError(chatID int64, lang string, err error) {
	key := i18n.KeySaveError
	switch {
	case errors.Is(err, storage.ErrNotFound):
		key = i18n.KeyNotFound
	case errors.Is(err, app.ErrMenuUnavailable):
		key = i18n.KeyLoadError
	}
	b.logger.Error("command failed", "chat_id", chatID, "error", err)
	b.reply(chatID, "❌ "+escape(b.tr.T(lang, key, nil)))
}

func (b *Bot) reply(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	msg.ParseMode = tgbotapi.ModeMarkdown
	if _, err := b.send.Send(msg); err != nil {
		b.logger.Error("failed to send reply", "chat_id", chatID, "error", err)
	}
}

func escape(s string) string {
	return tgbotapi.EscapeText(tgbotapi.ModeMarkdown, s)
}

func formatPlanMarkdown(title string, st share.State) string {
	var sb strings.Builder
	sb.WriteString("📅 *" + escape(strings.TrimSuffix(title, ":")) + "*\n\n")
	for _, slot := range st.Plan {
		sb.WriteString(fmt.Sprintf("*%s*: %s", escape(slot.Day), escape(slot.Dish)))
		if st.LockedIDs.Has(slot.ID) {
			sb.WriteString(" 🔒")
		}
		if slot.Category != "" && slot.Category != planner.CategoryNone {
			sb.WriteString(fmt.Sprintf(" _(%s)_", escape(slot.Category)))
		}
		sb.WriteString("\n")
	}
	return sb.String()
}

func formatMetricsMarkdown(usage []metrics.DailyUsage, health metrics.SysHealth) string {
	var sb strings.Builder
	sb.WriteString("📊 *Usage & Health Report*\n\n")

	sb.WriteString("🗓 *Recent Generations*\n")
	if len(usage) == 0 {
		sb.WriteString("_No data yet_\n")
	}
	for _, d := range usage {
		sb.WriteString(fmt.Sprintf("• *%s*: %d plans, %d locked, %d placeholders (%.1fms avg)\n",
			d.Date, d.Generations, d.LockedSlots, d.Placeholders, d.AvgLatencyMS))
	}

	sb.WriteString("\n🧠 *System Health*\n")
	sb.WriteString(fmt.Sprintf("• RAM: %dMB (Alloc) / %dMB (Sys)\n", health.AllocMB, health.SysMB))
	sb.WriteString(fmt.Sprintf("• Goroutines: %d\n", health.Goroutines))
	sb.WriteString(fmt.Sprintf("• Uptime: %s\n", health.Uptime))
	sb.WriteString(fmt.Sprintf("• Disk Data: %s\n", health.DataDiskSize))
	return sb.String()
}
