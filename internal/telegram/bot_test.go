package telegram

import (
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"sync"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"middag/internal/app"
	"middag/internal/menu"
	"middag/internal/metrics"
	"middag/internal/planner"
	"middag/internal/share"
	"middag/internal/storage"
)

type fakeSender struct {
	mu   sync.Mutex
	sent []tgbotapi.MessageConfig
}

func (f *fakeSender) Send(c tgbotapi.Chattable) (tgbotapi.Message, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if msg, ok := c.(tgbotapi.MessageConfig); ok {
		f.sent = append(f.sent, msg)
	}
	return tgbotapi.Message{}, nil
}

func (f *fakeSender) texts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.sent))
	for i, m := range f.sent {
		out[i] = m.Text
	}
	return out
}

type staticMenu struct {
	m   menu.Menu
	err error
}

func (s staticMenu) Load(context.Context) (menu.Menu, error) {
	return s.m, s.err
}

var testMenu = menu.Menu{
	Categories: []string{"Fisk", "Kjøtt"},
	Dishes: map[string][]string{
		"Fisk":  {"Laks", "Torsk", "Sei", "Fiskekaker"},
		"Kjøtt": {"Taco", "Lasagne", "Pølser", "Kjøttkaker"},
	},
}

type stubUsage struct{}

func (stubUsage) GetDailyUsage(context.Context, int) ([]metrics.DailyUsage, error) {
	return []metrics.DailyUsage{{Date: "2026-10-18", Generations: 4, LockedSlots: 2, AvgLatencyMS: 0.5}}, nil
}

func newTestBot(t *testing.T, loader menu.Loader, allowed []int64) (*Bot, *fakeSender, *app.Sessions) {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	gen := planner.NewGenerator(planner.WithRand(rand.New(rand.NewPCG(5, 6))))
	p := app.NewPlanner(loader, gen, app.WithPlannerLogger(logger))

	store, err := storage.NewFileStore(filepath.Join(t.TempDir(), "shared"))
	require.NoError(t, err)
	autosave := share.NewAutosaver(store, time.Hour)
	t.Cleanup(autosave.Close)
	sessions := app.NewSessions(store, autosave)

	send := &fakeSender{}
	b := newBot(send, p, sessions, allowed, "en",
		WithLogger(logger),
		WithUsage(stubUsage{}, t.TempDir()),
		WithLinks(func(id string) string { return "https://middag.example/api/plans/" + id }),
	)
	return b, send, sessions
}

func message(userID int64, text string) *tgbotapi.Message {
	return &tgbotapi.Message{
		Text: text,
		From: &tgbotapi.User{ID: userID, UserName: "tester"},
		Chat: &tgbotapi.Chat{ID: 99},
	}
}

func TestParseCommand(t *testing.T) {
	tests := []struct {
		text string
		cmd  string
		args []string
	}{
		{"/plan", "/plan", []string{}},
		{"/plan es", "/plan", []string{"es"}},
		{"/Show@middag_bot abc", "/show", []string{"abc"}},
		{"hello", "", nil},
		{"", "", nil},
	}
	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			cmd, args := parseCommand(tt.text)
			assert.Equal(t, tt.cmd, cmd)
			assert.Equal(t, tt.args, args)
		})
	}
}

func TestFormatPlanMarkdown(t *testing.T) {
	st := share.State{
		Plan: planner.Plan{
			{ID: "a", Day: "Monday", Dish: "Fish_and_chips", Category: "Fisk"},
			{ID: "b", Day: "Tuesday", Dish: "No dishes available", Category: planner.CategoryNone},
		},
		LockedIDs: planner.NewLockSet("a"),
	}

	out := formatPlanMarkdown("Weekly Plan:", st)
	assert.True(t, strings.HasPrefix(out, "📅 *Weekly Plan*\n\n"))
	assert.Contains(t, out, `*Monday*: Fish\_and\_chips 🔒 _(Fisk)_`)
	assert.Contains(t, out, "*Tuesday*: No dishes available\n")
}

func TestProcessMessage_Plan(t *testing.T) {
	b, send, _ := newTestBot(t, staticMenu{m: testMenu}, nil)

	b.processMessage(context.Background(), message(1, "/plan es"))

	texts := send.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "*Plan Semanal*")
	assert.Contains(t, texts[0], "*Lunes*: ")
}

func TestProcessMessage_ShareAndShow(t *testing.T) {
	b, send, sessions := newTestBot(t, staticMenu{m: testMenu}, []int64{7})
	ctx := context.Background()

	b.processMessage(ctx, message(7, "/share"))
	texts := send.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "Shared plan: https://middag.example/api/plans/")

	id := texts[0][strings.LastIndex(texts[0], "/")+1:]
	st, err := sessions.Get(ctx, id)
	require.NoError(t, err)

	b.processMessage(ctx, message(7, "/show "+id))
	texts = send.texts()
	require.Len(t, texts, 2)
	assert.Contains(t, texts[1], "*Monday*: "+escape(st.Plan[0].Dish))

	b.processMessage(ctx, message(7, "/show"))
	assert.Equal(t, "Usage: /show <id>", send.texts()[2])

	b.processMessage(ctx, message(7, "/show "+storage.NewID()))
	assert.Equal(t, "❌ Plan not found.", send.texts()[3])
}

func TestProcessMessage_Unauthorized(t *testing.T) {
	b, send, _ := newTestBot(t, staticMenu{m: testMenu}, []int64{7})

	b.processMessage(context.Background(), message(8, "/plan"))
	assert.Equal(t, []string{"You are not allowed to use this bot."}, send.texts())
}

func TestProcessMessage_MenuError(t *testing.T) {
	b, send, _ := newTestBot(t, staticMenu{err: errors.New("offline")}, nil)

	b.processMessage(context.Background(), message(1, "/plan no"))
	assert.Equal(t, []string{"❌ Kunne ikke laste middagsdata."}, send.texts())
}

func TestProcessMessage_Metrics(t *testing.T) {
	b, send, _ := newTestBot(t, staticMenu{m: testMenu}, nil)

	b.processMessage(context.Background(), message(1, "/metrics"))
	texts := send.texts()
	require.Len(t, texts, 1)
	assert.Contains(t, texts[0], "• *2026-10-18*: 4 plans, 2 locked, 0 placeholders (0.5ms avg)")
	assert.Contains(t, texts[0], "🧠 *System Health*")
}

func TestReplyLanguage(t *testing.T) {
	b, _, _ := newTestBot(t, staticMenu{m: testMenu}, nil)

	msg := message(1, "/plan")
	assert.Equal(t, "en", b.replyLanguage(msg, nil))

	msg.From.LanguageCode = "es-MX"
	assert.Equal(t, "es", b.replyLanguage(msg, nil))

	msg.From.LanguageCode = "nb"
	assert.Equal(t, "no", b.replyLanguage(msg, nil))

	assert.Equal(t, "en", b.replyLanguage(msg, []string{"en"}))
}

func TestHandleWebhook(t *testing.T) {
	b, send, _ := newTestBot(t, staticMenu{m: testMenu}, nil)

	body := `{"update_id":1,"message":{"message_id":1,"text":"/plan en","from":{"id":1},"chat":{"id":99}}}`
	rec := httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/webhook", bytes.NewBufferString(body)))
	assert.Equal(t, http.StatusOK, rec.Code)

	require.Eventually(t, func() bool { return len(send.texts()) == 1 }, time.Second, 5*time.Millisecond)
	assert.Contains(t, send.texts()[0], "*Weekly Plan*")

	rec = httptest.NewRecorder()
	b.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/webhook", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}
