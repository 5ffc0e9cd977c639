// Package users tracks everyone who talks to the bot and reports newcomers
// to the support chat.
package users

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	tgbot "github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"

	"github.com/edgard/lunabot/internal/database"
	"github.com/edgard/lunabot/internal/plugin"
	"github.com/edgard/lunabot/internal/telegram"
)

// Name is the plugin name.
const Name = "users"

const topUsers = 5

func init() {
	plugin.Register(Name, New)
}

// Plugin implements the user tracking observer and /userstats.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil {
		return nil, errors.New("users requires a store")
	}
	return &Plugin{deps: deps, now: time.Now}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "👥 User Tracker",
		Description: "Keeps track of everyone who talks to the bot. Owners can see usage statistics.",
		Commands:    []string{"/userstats"},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Observe("track_user", p.track)
	r.Command("userstats", p.handleStats, plugin.OwnerOnly(p.deps.Config, p.deps.Logger))
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(ctx context.Context) error {
	_, err := p.deps.Store.CountUsers(ctx)
	return err
}

func (p *Plugin) track(ctx context.Context, _ *tgbot.Bot, update *models.Update) error {
	var (
		from *models.User
		chat *models.Chat
	)
	switch {
	case update.Message != nil:
		from, chat = update.Message.From, &update.Message.Chat
	case update.CallbackQuery != nil:
		from = &update.CallbackQuery.From
		if msg := telegram.CallbackMessage(update.CallbackQuery); msg != nil {
			chat = &msg.Chat
		}
	}
	if from == nil || from.ID == 0 {
		return nil
	}

	user := &database.User{
		UserID:       from.ID,
		Username:     from.Username,
		FirstName:    from.FirstName,
		LastName:     from.LastName,
		LanguageCode: from.LanguageCode,
		IsBot:        from.IsBot,
		LastSeen:     p.now(),
	}
	if chat != nil {
		user.ChatID = chat.ID
		user.ChatType = string(chat.Type)
	}
	created, err := p.deps.Store.TouchUser(ctx, user)
	if err != nil || !created {
		return err
	}

	total, err := p.deps.Store.CountUsers(ctx)
	if err != nil {
		return err
	}
	p.deps.Logger.InfoContext(ctx, "New user", "user_id", from.ID, "total", total)
	if p.deps.Support == nil {
		return nil
	}
	return p.deps.Support.Notify(ctx, newUserText(user, total))
}

func newUserText(u *database.User, total int) string {
	var sb strings.Builder
	fmt.Fprintf(&sb, "👤 <b>New User #%d</b>\n", total)
	fmt.Fprintf(&sb, "• <b>Name:</b> %s\n", telegram.EscapeHTML(strings.TrimSpace(u.FirstName+" "+u.LastName)))
	fmt.Fprintf(&sb, "• <b>Username:</b> @%s\n", telegram.EscapeHTML(orNA(u.Username)))
	fmt.Fprintf(&sb, "• <b>User ID:</b> <code>%d</code>\n", u.UserID)
	fmt.Fprintf(&sb, "• <b>Language:</b> %s\n", telegram.EscapeHTML(orNA(u.LanguageCode)))
	fmt.Fprintf(&sb, "• <b>Chat Type:</b> %s", telegram.EscapeHTML(orNA(u.ChatType)))
	return sb.String()
}

func orNA(s string) string {
	if s == "" {
		return "N/A"
	}
	return s
}

func (p *Plugin) handleStats(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	now := p.now().UTC()
	dayStart := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)

	stats, err := p.deps.Store.GetUserStats(ctx, dayStart, topUsers)
	if err != nil {
		_, replyErr := telegram.Reply(ctx, b, update.Message, "❌ Error retrieving user statistics.", nil)
		return errors.Join(err, replyErr)
	}
	_, err = telegram.Reply(ctx, b, update.Message, statsText(stats), nil)
	return err
}

func statsText(stats *database.UserStats) string {
	var sb strings.Builder
	sb.WriteString("📊 <b>User Statistics</b>\n\n")
	fmt.Fprintf(&sb, "• <b>Total Users:</b> %d\n", stats.Total)
	fmt.Fprintf(&sb, "• <b>New Today:</b> %d\n\n", stats.NewToday)
	sb.WriteString("<b>Top Active Users:</b>")
	for i, u := range stats.Top {
		name := u.FirstName
		if name == "" {
			name = "Unknown"
		}
		fmt.Fprintf(&sb, "\n%d. %s", i+1, telegram.EscapeHTML(name))
		if u.Username != "" {
			fmt.Fprintf(&sb, " (@%s)", telegram.EscapeHTML(u.Username))
		}
		fmt.Fprintf(&sb, " - %d interactions", u.InteractionCount)
	}
	return sb.String()
}
