// Package stickerspam sends every sticker of a pack to a chat. The user
// replies to a sticker with /sspam, confirms with a button and then sends
// the delay between stickers.
package stickerspam

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"sync"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
	"golang.org/x/time/rate"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "stickerspam"

const (
	dataStart  = "sspam_start"
	dataCancel = "sspam_cancel"

	// MaxDelay is the longest accepted pause between two stickers.
	MaxDelay = 5 * time.Minute

	// PendingTTL is how long a started /sspam waits for the user.
	PendingTTL = 10 * time.Minute

	msgNeedSticker = "⚠️ Reply to a sticker with /sspam to use this command."
	msgNoPack      = "⚠️ This sticker is not from a sticker pack."
	msgAskDelay    = "⏳ Send me the delay (in seconds) between stickers:"
	msgBadDelay    = "⚠️ Please send a valid positive number of seconds (at most 300)."
	msgCancelled   = "❌ Spam cancelled."
	msgNothing     = "Nothing to cancel."
	msgNotPending  = "⌛ This request expired or belongs to someone else."
	msgFetchFailed = "⚠️ Could not fetch sticker pack."
	msgCompleted   = "✅ Sticker spam completed."
)

func init() {
	plugin.Register(Name, New)
}

type key struct {
	chatID int64
	userID int64
}

type run struct {
	cancel context.CancelFunc
}

type pending struct {
	setName      string
	awaitingWait bool
	createdAt    time.Time
}

// Plugin implements /sspam, /cancel, the confirmation buttons and the delay
// listener. Pending requests and running spams live in memory only.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time

	mu      sync.Mutex
	pending map[key]pending
	running map[key]*run
	closed  bool
	wg      sync.WaitGroup
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	return &Plugin{
		deps:    deps,
		now:     time.Now,
		pending: make(map[key]pending),
		running: make(map[key]*run),
	}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🎭 Sticker Spam",
		Description: "Reply to a sticker with /sspam, confirm with the button, then send the delay in seconds. The bot sends the whole pack.",
		Commands:    []string{"/sspam", "/cancel"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("sspam", p.handleCommand)
	r.Command("cancel", p.handleCancel)
	r.CallbackExact(dataStart, p.handleButton)
	r.CallbackExact(dataCancel, p.handleButton)
	r.Message("sspam_delay", p.awaitsDelay, p.handleDelay)
	return nil
}

// take returns the live pending request of k, dropping it when stale.
// p.mu must be held.
func (p *Plugin) take(k key) (pending, bool) {
	req, ok := p.pending[k]
	if ok && p.now().Sub(req.createdAt) > PendingTTL {
		delete(p.pending, k)
		return pending{}, false
	}
	return req, ok
}

func (p *Plugin) awaitsDelay(update *models.Update) bool {
	msg := update.Message
	if msg == nil || msg.From == nil || msg.Text == "" || strings.HasPrefix(msg.Text, "/") {
		return false
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	req, ok := p.take(key{msg.Chat.ID, msg.From.ID})
	return ok && req.awaitingWait
}

func (p *Plugin) handleCommand(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	reply := msg.ReplyToMessage
	if reply == nil || reply.Sticker == nil {
		_, err := telegram.Reply(ctx, b, msg, msgNeedSticker, nil)
		return err
	}
	setName := reply.Sticker.SetName
	if setName == "" {
		_, err := telegram.Reply(ctx, b, msg, msgNoPack, nil)
		return err
	}

	p.mu.Lock()
	p.pending[key{msg.Chat.ID, msg.From.ID}] = pending{setName: setName, createdAt: p.now()}
	p.mu.Unlock()

	text := fmt.Sprintf("🎭 Sticker Spam ready for pack: <code>%s</code>\n\nChoose an option:", telegram.EscapeHTML(setName))
	_, err := telegram.Reply(ctx, b, msg, text, telegram.Keyboard([]models.InlineKeyboardButton{
		telegram.Button("▶️ Start", dataStart),
		telegram.Button("❌ Cancel", dataCancel),
	}))
	return err
}

func (p *Plugin) handleButton(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	msg := telegram.CallbackMessage(query)
	if msg == nil {
		return telegram.Answer(ctx, b, query, msgNotPending, true)
	}
	k := key{msg.Chat.ID, query.From.ID}

	p.mu.Lock()
	req, ok := p.take(k)
	if ok {
		if query.Data == dataStart {
			req.awaitingWait = true
			p.pending[k] = req
		} else {
			delete(p.pending, k)
		}
	}
	p.mu.Unlock()

	if !ok {
		return telegram.Answer(ctx, b, query, msgNotPending, true)
	}
	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	text := msgAskDelay
	if query.Data == dataCancel {
		text = msgCancelled
	}
	return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, text, nil)
}

func (p *Plugin) handleCancel(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	k := key{msg.Chat.ID, msg.From.ID}

	p.mu.Lock()
	_, hadPending := p.pending[k]
	delete(p.pending, k)
	r, wasRunning := p.running[k]
	p.mu.Unlock()

	if wasRunning {
		r.cancel()
	}
	text := msgNothing
	if hadPending || wasRunning {
		text = msgCancelled
	}
	_, err := telegram.Reply(ctx, b, msg, text, nil)
	return err
}

// parseDelay accepts a positive number of seconds up to MaxDelay.
func parseDelay(s string) (time.Duration, bool) {
	secs, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil || !(secs > 0) || secs > MaxDelay.Seconds() {
		return 0, false
	}
	return time.Duration(secs * float64(time.Second)), true
}

func (p *Plugin) handleDelay(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	k := key{msg.Chat.ID, msg.From.ID}

	delay, ok := parseDelay(msg.Text)
	if !ok {
		_, err := telegram.Reply(ctx, b, msg, msgBadDelay, nil)
		return err
	}

	p.mu.Lock()
	req, ok := p.take(k)
	delete(p.pending, k)
	closed := p.closed
	p.mu.Unlock()
	if !ok || closed {
		return nil
	}

	if _, err := b.DeleteMessage(ctx, &tgbot.DeleteMessageParams{ChatID: msg.Chat.ID, MessageID: msg.ID}); err != nil {
		p.deps.Logger.DebugContext(ctx, "Failed to delete delay message", "chat_id", msg.Chat.ID, "error", err)
	}

	set, err := b.GetStickerSet(ctx, &tgbot.GetStickerSetParams{Name: req.setName})
	if err != nil {
		_, sendErr := telegram.Send(ctx, b, msg.Chat.ID, msgFetchFailed, nil)
		return errors.Join(fmt.Errorf("failed to fetch sticker set %q: %w", req.setName, err), sendErr)
	}

	text := fmt.Sprintf("🚀 Starting spam with %s delay (%d stickers)…", delay, len(set.Stickers))
	if _, err := telegram.Send(ctx, b, msg.Chat.ID, text, nil); err != nil {
		return err
	}

	fileIDs := make([]string, len(set.Stickers))
	for i, s := range set.Stickers {
		fileIDs[i] = s.FileID
	}

	spamCtx, cancel := context.WithCancel(ctx)
	current := &run{cancel: cancel}
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		cancel()
		return nil
	}
	if prev, ok := p.running[k]; ok {
		prev.cancel()
	}
	p.running[k] = current
	p.wg.Add(1)
	p.mu.Unlock()

	go func() {
		defer p.wg.Done()
		defer cancel()
		p.spam(spamCtx, b, k, fileIDs, delay)
		p.mu.Lock()
		if p.running[k] == current {
			delete(p.running, k)
		}
		p.mu.Unlock()
	}()
	return nil
}

// spam sends the stickers one by one, paced by a limiter that releases one
// send per delay.
func (p *Plugin) spam(ctx context.Context, b *tgbot.Bot, k key, fileIDs []string, delay time.Duration) {
	log := p.deps.Logger.With("chat_id", k.chatID, "user_id", k.userID)
	limiter := rate.NewLimiter(rate.Every(delay), 1)

	sent, failed := 0, 0
	for _, id := range fileIDs {
		if err := limiter.Wait(ctx); err != nil {
			log.InfoContext(ctx, "Sticker spam stopped", "sent", sent, "reason", err)
			return
		}
		if _, err := b.SendSticker(ctx, &tgbot.SendStickerParams{
			ChatID:  k.chatID,
			Sticker: &models.InputFileString{Data: id},
		}); err != nil {
			failed++
			log.WarnContext(ctx, "Failed to send sticker", "file_id", id, "error", err)
			continue
		}
		sent++
	}
	if failed > 0 {
		log.ErrorContext(ctx, "Sticker spam finished with failures", "sent", sent, "failed", failed)
	}
	if _, err := telegram.Send(ctx, b, k.chatID, msgCompleted, nil); err != nil {
		log.ErrorContext(ctx, "Failed to report sticker spam completion", "error", err)
	}
}

// Close implements plugin.Closer. It stops every running spam and waits for
// the senders to return; no new spam starts afterwards.
func (p *Plugin) Close(ctx context.Context) error {
	p.mu.Lock()
	p.closed = true
	for _, r := range p.running {
		r.cancel()
	}
	p.mu.Unlock()

	done := make(chan struct{})
	go func() {
		p.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return fmt.Errorf("sticker spams still running: %w", ctx.Err())
	}
}

// wait blocks until every running spam returned.
func (p *Plugin) wait() {
	p.wg.Wait()
}
