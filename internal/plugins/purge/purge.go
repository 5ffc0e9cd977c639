// Package purge deletes ranges of messages for admins.
package purge

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "purge"

const (
	// MaxPurge caps the number of messages one command may delete.
	MaxPurge = 1000

	// batchSize is the Bot API limit of deleteMessages.
	batchSize = 100

	msgNeedReply    = "Reply to a message to start purging."
	msgNeedReplyDel = "Reply to the message you want to delete."
	msgBadCount     = "Please provide a valid number: /purge &lt;X&gt;"
	msgMarkStart    = "Reply to a message to mark purge start."
	msgMarkEnd      = "Reply to a message to mark purge end."
	msgMarked       = "Marked the starting point for purge."
	msgNoMark       = "No starting point found. Use /purgefrom first."
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements the purge commands. Start marks of /purgefrom live in
// memory and are lost on restart.
type Plugin struct {
	deps        plugin.Deps
	botUsername string

	mu    sync.Mutex
	marks map[int64]int
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	p := &Plugin{deps: deps, marks: make(map[int64]int)}
	if deps.BotInfo != nil {
		p.botUsername = deps.BotInfo.Username
	}
	return p, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🧹 Purges",
		Description: "Mass delete messages easily. Admins only.",
		Commands:    []string{"/purge", "/purge <X>", "/spurge", "/del", "/purgefrom", "/purgeto"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	admin := plugin.AdminOnly(p.deps.Config, p.deps.Logger)
	r.Command("purge", p.handlePurge, admin)
	r.Command("spurge", p.handleSilentPurge, admin)
	r.Command("del", p.handleDelete, admin)
	r.Command("purgefrom", p.handlePurgeFrom, admin)
	r.Command("purgeto", p.handlePurgeTo, admin)
	return nil
}

// span returns the ids from first to last inclusive, capped at MaxPurge.
func span(first, last int) []int {
	if last < first {
		first, last = last, first
	}
	if last-first+1 > MaxPurge {
		last = first + MaxPurge - 1
	}
	ids := make([]int, 0, last-first+1)
	for id := first; id <= last; id++ {
		ids = append(ids, id)
	}
	return ids
}

// deleteAll deletes ids in batches. Ids that no longer exist are ignored by
// Telegram, so the result counts attempted deletions.
func (p *Plugin) deleteAll(ctx context.Context, b *tgbot.Bot, chatID int64, ids []int) (int, error) {
	deleted := 0
	for start := 0; start < len(ids); start += batchSize {
		end := min(start+batchSize, len(ids))
		if _, err := b.DeleteMessages(ctx, &tgbot.DeleteMessagesParams{ChatID: chatID, MessageIDs: ids[start:end]}); err != nil {
			return deleted, fmt.Errorf("failed to delete messages %d..%d in chat %d: %w", ids[start], ids[end-1], chatID, err)
		}
		deleted += end - start
	}
	p.deps.Logger.InfoContext(ctx, "Purged messages", "chat_id", chatID, "count", deleted)
	return deleted, nil
}

func (p *Plugin) report(ctx context.Context, b *tgbot.Bot, msg *models.Message, n int, err error) error {
	if err != nil {
		_, replyErr := telegram.Reply(ctx, b, msg, "❌ Purge stopped: "+telegram.EscapeHTML(err.Error()), nil)
		return errors.Join(err, replyErr)
	}
	_, err = telegram.Send(ctx, b, msg.Chat.ID, fmt.Sprintf("Purged %d messages.", n), nil)
	return err
}

func (p *Plugin) handlePurge(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil {
		_, err := telegram.Reply(ctx, b, msg, msgNeedReply, nil)
		return err
	}
	start := msg.ReplyToMessage.ID

	cmd, _ := telegram.CommandFromUpdate(update, p.botUsername)
	var ids []int
	if len(cmd.Args) > 0 {
		count, err := strconv.Atoi(cmd.Args[0])
		if err != nil || count < 1 {
			_, err := telegram.Reply(ctx, b, msg, msgBadCount, nil)
			return err
		}
		ids = span(start, start+count)
	} else {
		ids = span(start, msg.ID-1)
	}

	n, err := p.deleteAll(ctx, b, msg.Chat.ID, ids)
	return p.report(ctx, b, msg, n, err)
}

func (p *Plugin) handleSilentPurge(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil {
		return nil
	}
	_, err := p.deleteAll(ctx, b, msg.Chat.ID, span(msg.ReplyToMessage.ID, msg.ID))
	return err
}

func (p *Plugin) handleDelete(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil {
		_, err := telegram.Reply(ctx, b, msg, msgNeedReplyDel, nil)
		return err
	}
	_, err := p.deleteAll(ctx, b, msg.Chat.ID, []int{msg.ReplyToMessage.ID, msg.ID})
	return err
}

func (p *Plugin) handlePurgeFrom(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil {
		_, err := telegram.Reply(ctx, b, msg, msgMarkStart, nil)
		return err
	}
	p.mu.Lock()
	p.marks[msg.Chat.ID] = msg.ReplyToMessage.ID
	p.mu.Unlock()
	_, err := telegram.Reply(ctx, b, msg, msgMarked, nil)
	return err
}

func (p *Plugin) handlePurgeTo(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	if msg.ReplyToMessage == nil {
		_, err := telegram.Reply(ctx, b, msg, msgMarkEnd, nil)
		return err
	}

	p.mu.Lock()
	start, ok := p.marks[msg.Chat.ID]
	delete(p.marks, msg.Chat.ID)
	p.mu.Unlock()
	if !ok {
		_, err := telegram.Reply(ctx, b, msg, msgNoMark, nil)
		return err
	}

	n, err := p.deleteAll(ctx, b, msg.Chat.ID, span(start, msg.ReplyToMessage.ID))
	return p.report(ctx, b, msg, n, err)
}
