// Package groups greets members joining and leaving a group, keeps a small
// activity record per group and offers a few party commands.
package groups

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"strconv"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "groups"

const (
	prefixWelcome = "welcome_hi_"
	prefixTOD     = "tod_"

	dataTruth  = prefixTOD + "truth"
	dataDare   = prefixTOD + "dare"
	dataRandom = prefixTOD + "random"

	msg8BallUsage = "🎱 Ask me a question! Example: <code>/8ball Will it rain today?</code>"
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements the member listener and the group commands.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time
	intn func(n int) int
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil {
		return nil, errors.New("groups requires a store")
	}
	return &Plugin{deps: deps, now: time.Now, intn: rand.IntN}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🎉 Group Fun",
		Description: "Welcomes new members, says goodbye to leaving ones and brings party games to the group.",
		Commands: []string{
			"/truthordare", "/tod", "/8ball <question>", "/fact", "/randomfact", "/groupstats",
		},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	groupOnly := plugin.GroupOnly(p.deps.Logger)

	r.Message("member_updates", isMemberUpdate, p.handleMembers)
	r.Command("truthordare", p.handleTruthOrDare)
	r.Command("tod", p.handleTruthOrDare)
	r.Command("8ball", p.handle8Ball)
	r.Command("fact", p.handleFact)
	r.Command("randomfact", p.handleFact)
	r.Command("groupstats", p.handleStats, groupOnly)
	r.Callback(prefixWelcome, p.handleSayHi)
	r.Callback(prefixTOD, p.handleTODChoice)
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(ctx context.Context) error {
	return p.deps.Store.Ping(ctx)
}

func isMemberUpdate(update *models.Update) bool {
	msg := update.Message
	return msg != nil && telegram.IsGroup(msg.Chat) && (len(msg.NewChatMembers) > 0 || msg.LeftChatMember != nil)
}

func (p *Plugin) pick(list []string) string {
	return list[p.intn(len(list))]
}

func displayName(u *models.User, fallback string) string {
	switch {
	case u.FirstName != "":
		return u.FirstName
	case u.Username != "":
		return u.Username
	}
	return fallback
}

func (p *Plugin) handleMembers(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	group := &database.Group{
		ChatID:       msg.Chat.ID,
		Title:        msg.Chat.Title,
		ChatType:     string(msg.Chat.Type),
		LastActivity: p.now(),
	}

	var errs []error
	for i := range msg.NewChatMembers {
		member := &msg.NewChatMembers[i]
		if member.IsBot {
			continue
		}
		name := telegram.EscapeHTML(displayName(member, "New Member"))
		text := strings.ReplaceAll(p.pick(welcomeMessages), "{name}", name)
		keyboard := telegram.Keyboard([]models.InlineKeyboardButton{
			telegram.Button("👋 Say Hi!", prefixWelcome+strconv.FormatInt(member.ID, 10)),
		})
		if _, err := telegram.Reply(ctx, b, msg, text, keyboard); err != nil {
			errs = append(errs, err)
		}
		if err := p.deps.Store.TouchGroup(ctx, group, 1); err != nil {
			errs = append(errs, err)
		}
	}

	if left := msg.LeftChatMember; left != nil && !left.IsBot {
		name := telegram.EscapeHTML(displayName(left, "Member"))
		text := strings.ReplaceAll(p.pick(goodbyeMessages), "{name}", name)
		if _, err := telegram.Reply(ctx, b, msg, text, nil); err != nil {
			errs = append(errs, err)
		}
		if err := p.deps.Store.TouchGroup(ctx, group, -1); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func (p *Plugin) handleSayHi(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	msg := telegram.CallbackMessage(query)
	if msg == nil {
		return nil
	}
	text := "👋 Someone said hi to our new member! 🎉"
	if strings.TrimPrefix(query.Data, prefixWelcome) == strconv.FormatInt(query.From.ID, 10) {
		text = "👋 Thanks for saying hi! Welcome to the group! 🎉"
	}
	return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, text, nil)
}

func (p *Plugin) handleTruthOrDare(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	keyboard := telegram.Keyboard(
		[]models.InlineKeyboardButton{
			telegram.Button("🤔 Truth", dataTruth),
			telegram.Button("😈 Dare", dataDare),
		},
		[]models.InlineKeyboardButton{telegram.Button("🎲 Random", dataRandom)},
	)
	_, err := telegram.Reply(ctx, b, update.Message, "🎮 <b>Truth or Dare?</b>\n\nChoose your challenge!", keyboard)
	return err
}

func (p *Plugin) handleTODChoice(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	msg := telegram.CallbackMessage(query)
	if msg == nil {
		return nil
	}

	choice := query.Data
	if choice == dataRandom {
		choice = dataTruth
		if p.intn(2) == 1 {
			choice = dataDare
		}
	}
	var text string
	switch choice {
	case dataTruth:
		text = "🤔 <b>Truth Question:</b>\n\n" + telegram.EscapeHTML(p.pick(truths))
	case dataDare:
		text = "😈 <b>Dare Challenge:</b>\n\n" + telegram.EscapeHTML(p.pick(dares))
	default:
		return nil
	}
	return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, text, nil)
}

func (p *Plugin) handle8Ball(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	var botUsername string
	if p.deps.BotInfo != nil {
		botUsername = p.deps.BotInfo.Username
	}
	cmd, _ := telegram.CommandFromUpdate(update, botUsername)
	text := msg8BallUsage
	if cmd.Payload != "" {
		text = fmt.Sprintf("🎱 <b>Magic 8-Ball</b>\n\n<b>Question:</b> %s\n<b>Answer:</b> %s",
			telegram.EscapeHTML(cmd.Payload), p.pick(eightBall))
	}
	_, err := telegram.Reply(ctx, b, update.Message, text, nil)
	return err
}

func (p *Plugin) handleFact(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	_, err := telegram.Reply(ctx, b, update.Message, "🎯 <b>Random Fact:</b>\n\n"+telegram.EscapeHTML(p.pick(facts)), nil)
	return err
}

func (p *Plugin) handleStats(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	chatID := msg.Chat.ID

	members, err := b.GetChatMemberCount(ctx, &tgbot.GetChatMemberCountParams{ChatID: chatID})
	if err != nil {
		return fmt.Errorf("failed to get member count of chat %d: %w", chatID, err)
	}
	warns, err := p.deps.Store.CountChatWarns(ctx, chatID)
	if err != nil {
		return err
	}

	var sb strings.Builder
	sb.WriteString("📊 <b>Group Statistics</b>\n\n")
	fmt.Fprintf(&sb, "<b>Group:</b> %s\n", telegram.EscapeHTML(msg.Chat.Title))
	fmt.Fprintf(&sb, "<b>Members:</b> %d\n", members)
	fmt.Fprintf(&sb, "<b>Total Warnings:</b> %d", warns)

	group, err := p.deps.Store.GetGroup(ctx, chatID)
	switch {
	case err == nil:
		fmt.Fprintf(&sb, "\n<b>Member Changes:</b> %+d", group.MemberDelta)
		fmt.Fprintf(&sb, "\n<b>Last Activity:</b> %s", group.LastActivity.UTC().Format("2006-01-02 15:04"))
	case !database.IsNotFound(err):
		return err
	}

	_, err = telegram.Reply(ctx, b, msg, sb.String(), nil)
	return err
}
