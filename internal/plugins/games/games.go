// Package games hosts small chat games: trivia, riddles, word scrambles,
// dice, coin flips and rock paper scissors. Interactive games are stored in
// the database so answers survive restarts.
package games

import (
	"context"
	"encoding/json"
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
const Name = "games"

// Game types stored in the games table.
const (
	TypeTrivia = "trivia"
	TypeRiddle = "riddle"
	TypeWord   = "word"
)

const (
	prefixTrivia = "trivia_"
	prefixRiddle = "riddle_"
	prefixWord   = "word_"

	actionCancel = "cancel"
	actionHint   = "hint"
	actionGiveUp = "giveup"

	expireTaskName = "games_expire"
	expireSchedule = "0 */10 * * * *"

	// MaxGameAge is how long a game stays answerable.
	MaxGameAge = time.Hour

	msgGameGone    = "❌ Game not found or already completed."
	msgNotYourGame = "❌ This is not your game!"
	msgDiceUsage   = "❌ Invalid format. Use: <code>/dice [number_of_dice] [sides]</code>"
	msgRPSUsage    = "✂️ <b>Rock Paper Scissors</b>\n\nUsage: <code>/rps rock</code>, <code>/rps paper</code>, or <code>/rps scissors</code>"
	msgRPSInvalid  = "❌ Invalid choice. Use: rock, paper, or scissors"
)

func init() {
	plugin.Register(Name, New)
}

// Plugin implements the game commands, buttons and the answer listener.
type Plugin struct {
	deps plugin.Deps
	now  func() time.Time
	intn func(n int) int
}

// New builds the plugin.
func New(deps plugin.Deps) (plugin.Plugin, error) {
	if deps.Store == nil {
		return nil, errors.New("games requires a store")
	}
	return &Plugin{deps: deps, now: time.Now, intn: rand.IntN}, nil
}

// Name implements plugin.Plugin.
func (p *Plugin) Name() string { return Name }

// Info implements plugin.Describer.
func (p *Plugin) Info() plugin.Info {
	return plugin.Info{
		Name:        "🎮 Fun Games",
		Description: "Trivia, riddles, word scrambles and a few quick games of chance.",
		Commands: []string{
			"/trivia", "/riddle", "/wordgame",
			"/dice [num] [sides]", "/coinflip", "/flip", "/rps <choice>",
		},
	}
}

// Setup implements plugin.Setupper.
func (p *Plugin) Setup(r *plugin.Registrar) error {
	r.Command("trivia", p.handleTrivia)
	r.Command("riddle", p.handleRiddle)
	r.Command("wordgame", p.handleWordGame)
	r.Command("dice", p.handleDice)
	r.Command("coinflip", p.handleCoinFlip)
	r.Command("flip", p.handleCoinFlip)
	r.Command("rps", p.handleRPS)
	r.Callback(prefixTrivia, p.handleButton)
	r.Callback(prefixRiddle, p.handleButton)
	r.Callback(prefixWord, p.handleButton)
	r.Message("game_answer", isAnswer, p.handleAnswer)
	r.Task(expireTaskName, expireSchedule, p.expire)
	return nil
}

// Test implements plugin.Tester.
func (p *Plugin) Test(ctx context.Context) error {
	return p.deps.Store.Ping(ctx)
}

func isAnswer(update *models.Update) bool {
	msg := update.Message
	return msg != nil && msg.From != nil && strings.TrimSpace(msg.Text) != "" && !strings.HasPrefix(msg.Text, "/")
}

// start sends the game message and stores the game bound to it.
func (p *Plugin) start(ctx context.Context, b *tgbot.Bot, msg *models.Message, gameType, text string, keyboard *models.InlineKeyboardMarkup, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to encode %s payload: %w", gameType, err)
	}
	sent, err := telegram.Reply(ctx, b, msg, text, keyboard)
	if err != nil {
		return err
	}
	game := &database.Game{
		ChatID:    msg.Chat.ID,
		MessageID: sent.ID,
		UserID:    msg.From.ID,
		GameType:  gameType,
		Payload:   string(raw),
		StartedAt: p.now().UTC(),
	}
	if err := p.deps.Store.CreateGame(ctx, game); err != nil {
		return err
	}
	p.deps.Logger.DebugContext(ctx, "Game started", "game_id", game.ID, "type", gameType, "chat_id", msg.Chat.ID, "user_id", msg.From.ID)
	return nil
}

func (p *Plugin) handleTrivia(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	q := triviaQuestions[p.intn(len(triviaQuestions))]

	rows := make([][]models.InlineKeyboardButton, 0, len(q.Options)+1)
	for i, option := range q.Options {
		label := fmt.Sprintf("%c. %s", 'A'+i, option)
		rows = append(rows, []models.InlineKeyboardButton{telegram.Button(label, prefixTrivia+strconv.Itoa(i))})
	}
	rows = append(rows, []models.InlineKeyboardButton{telegram.Button("❌ Cancel", prefixTrivia+actionCancel)})

	text := fmt.Sprintf("🧠 <b>Trivia Time!</b>\n<b>Category:</b> %s\n\n<b>Question:</b> %s",
		telegram.EscapeHTML(q.Category), telegram.EscapeHTML(q.Question))
	return p.start(ctx, b, update.Message, TypeTrivia, text, telegram.Keyboard(rows...), q)
}

func hintKeyboard(prefix string) *models.InlineKeyboardMarkup {
	return telegram.Keyboard(
		[]models.InlineKeyboardButton{telegram.Button("💡 Get Hint", prefix+actionHint)},
		[]models.InlineKeyboardButton{telegram.Button("🤔 Give Up", prefix+actionGiveUp)},
	)
}

func (p *Plugin) handleRiddle(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	r := riddles[p.intn(len(riddles))]
	text := fmt.Sprintf("🤔 <b>Riddle Time!</b>\n\n<b>Riddle:</b> %s\n\nType your answer in the chat!", telegram.EscapeHTML(r.Riddle))
	return p.start(ctx, b, update.Message, TypeRiddle, text, hintKeyboard(prefixRiddle), r)
}

func (p *Plugin) handleWordGame(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	w := words[p.intn(len(words))]
	w.Scrambled = scramble(w.Word, p.intn)
	text := fmt.Sprintf("🔤 <b>Word Game!</b>\n\n<b>Scrambled Word:</b> <code>%s</code>\n<b>Category:</b> %s\n\nUnscramble the letters to find the word!",
		w.Scrambled, telegram.EscapeHTML(w.Category))
	return p.start(ctx, b, update.Message, TypeWord, text, hintKeyboard(prefixWord), w)
}

// scramble shuffles the letters of word. The result always differs from
// word unless all its letters are equal.
func scramble(word string, intn func(int) int) string {
	letters := []rune(word)
	for i := len(letters) - 1; i > 0; i-- {
		j := intn(i + 1)
		letters[i], letters[j] = letters[j], letters[i]
	}
	if string(letters) == word && len(letters) > 1 {
		letters = append(letters[1:], letters[0])
	}
	return string(letters)
}

func (p *Plugin) handleButton(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	query := update.CallbackQuery
	msg := telegram.CallbackMessage(query)
	if msg == nil {
		return telegram.Answer(ctx, b, query, msgGameGone, true)
	}

	game, err := p.deps.Store.GetActiveGameByMessage(ctx, msg.Chat.ID, msg.ID)
	if database.IsNotFound(err) {
		if err := telegram.Answer(ctx, b, query, "", false); err != nil {
			return err
		}
		return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, msgGameGone, nil)
	}
	if err != nil {
		return err
	}
	if game.UserID != query.From.ID {
		return telegram.Answer(ctx, b, query, msgNotYourGame, true)
	}

	gameType, action := splitAction(query.Data)
	if gameType != game.GameType {
		return telegram.Answer(ctx, b, query, msgGameGone, true)
	}
	switch gameType {
	case TypeTrivia:
		return p.triviaButton(ctx, b, query, msg, game, action)
	default:
		return p.puzzleButton(ctx, b, query, msg, game, action)
	}
}

// splitAction maps "trivia_2" to ("trivia", "2") and "word_hint" to
// ("word", "hint").
func splitAction(data string) (gameType, action string) {
	switch {
	case strings.HasPrefix(data, prefixTrivia):
		return TypeTrivia, strings.TrimPrefix(data, prefixTrivia)
	case strings.HasPrefix(data, prefixRiddle):
		return TypeRiddle, strings.TrimPrefix(data, prefixRiddle)
	case strings.HasPrefix(data, prefixWord):
		return TypeWord, strings.TrimPrefix(data, prefixWord)
	}
	return "", ""
}

func (p *Plugin) finish(ctx context.Context, game *database.Game, status string) error {
	if err := p.deps.Store.FinishGame(ctx, game.ID, status, p.now()); err != nil {
		return err
	}
	p.deps.Logger.DebugContext(ctx, "Game finished", "game_id", game.ID, "status", status)
	return nil
}

func (p *Plugin) triviaButton(ctx context.Context, b *tgbot.Bot, query *models.CallbackQuery, msg *models.Message, game *database.Game, action string) error {
	var q triviaQuestion
	if err := json.Unmarshal([]byte(game.Payload), &q); err != nil {
		return fmt.Errorf("failed to decode trivia game %d: %w", game.ID, err)
	}

	var text string
	if action == actionCancel {
		if err := p.finish(ctx, game, database.GameCancelled); err != nil {
			return err
		}
		text = "❌ Trivia cancelled."
	} else {
		selected, err := strconv.Atoi(action)
		if err != nil || selected < 0 || selected >= len(q.Options) {
			return telegram.Answer(ctx, b, query, msgGameGone, true)
		}
		if err := p.finish(ctx, game, database.GameCompleted); err != nil {
			return err
		}
		correct := telegram.EscapeHTML(q.Options[q.Correct])
		if selected == q.Correct {
			text = "✅ <b>Correct!</b>\n\n<b>Answer:</b> " + correct
		} else {
			text = fmt.Sprintf("❌ <b>Wrong!</b>\n\n<b>Your answer:</b> %s\n<b>Correct answer:</b> %s",
				telegram.EscapeHTML(q.Options[selected]), correct)
		}
	}

	if err := telegram.Answer(ctx, b, query, "", false); err != nil {
		return err
	}
	return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID, text, nil)
}

// puzzle is the common view of riddles and word games.
type puzzle struct {
	label  string
	answer string
	hint   string
}

func decodePuzzle(game *database.Game) (puzzle, error) {
	switch game.GameType {
	case TypeRiddle:
		var r riddle
		if err := json.Unmarshal([]byte(game.Payload), &r); err != nil {
			return puzzle{}, fmt.Errorf("failed to decode riddle game %d: %w", game.ID, err)
		}
		return puzzle{label: "🤔 <b>Answer:</b> ", answer: r.Answer, hint: r.Hint}, nil
	case TypeWord:
		var w scrambledWord
		if err := json.Unmarshal([]byte(game.Payload), &w); err != nil {
			return puzzle{}, fmt.Errorf("failed to decode word game %d: %w", game.ID, err)
		}
		return puzzle{label: "🔤 <b>Word:</b> ", answer: w.Word, hint: w.Hint}, nil
	}
	return puzzle{}, fmt.Errorf("game %d has unknown type %q", game.ID, game.GameType)
}

func (p *Plugin) puzzleButton(ctx context.Context, b *tgbot.Bot, query *models.CallbackQuery, msg *models.Message, game *database.Game, action string) error {
	pz, err := decodePuzzle(game)
	if err != nil {
		return err
	}
	switch action {
	case actionHint:
		if err := p.deps.Store.MarkGameHintUsed(ctx, game.ID); err != nil {
			return err
		}
		return telegram.Answer(ctx, b, query, "💡 Hint: "+pz.hint, true)
	case actionGiveUp:
		if err := p.finish(ctx, game, database.GameGivenUp); err != nil {
			return err
		}
		if err := telegram.Answer(ctx, b, query, "", false); err != nil {
			return err
		}
		return telegram.EditText(ctx, b, msg.Chat.ID, msg.ID,
			pz.label+telegram.EscapeHTML(pz.answer)+"\n\nBetter luck next time!", nil)
	}
	return telegram.Answer(ctx, b, query, msgGameGone, true)
}

// handleAnswer checks free text against the sender's active riddle or word
// game. Wrong answers are ignored.
func (p *Plugin) handleAnswer(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	msg := update.Message
	game, err := p.deps.Store.GetActiveGameForPlayer(ctx, msg.Chat.ID, msg.From.ID)
	if database.IsNotFound(err) || (err == nil && game.GameType == TypeTrivia) {
		return nil
	}
	if err != nil {
		return err
	}

	pz, err := decodePuzzle(game)
	if err != nil {
		return err
	}
	if !strings.EqualFold(strings.TrimSpace(msg.Text), pz.answer) {
		return nil
	}
	if err := p.finish(ctx, game, database.GameCompleted); err != nil {
		if database.IsNotFound(err) {
			return nil
		}
		return err
	}

	taken := p.now().Sub(game.StartedAt)
	text := fmt.Sprintf("🎉 <b>Correct!</b>\n\n%s%s\n<b>Time:</b> %d seconds",
		pz.label, telegram.EscapeHTML(pz.answer), int(taken.Seconds()))
	if game.HintUsed {
		text += "\n💡 (Hint was used)"
	}
	_, err = telegram.Reply(ctx, b, msg, text, nil)
	return err
}

func (p *Plugin) expire(ctx context.Context) error {
	n, err := p.deps.Store.ExpireGames(ctx, p.now().Add(-MaxGameAge))
	if err != nil {
		return err
	}
	if n > 0 {
		p.deps.Logger.InfoContext(ctx, "Expired stale games", "count", n)
	}
	return nil
}

// parseDice reads "[count] [sides]" and clamps both to sane limits.
func parseDice(args []string) (count, sides int, err error) {
	count, sides = 1, 6
	if len(args) > 0 {
		if count, err = strconv.Atoi(args[0]); err != nil {
			return 0, 0, err
		}
	}
	if len(args) > 1 {
		if sides, err = strconv.Atoi(args[1]); err != nil {
			return 0, 0, err
		}
	}
	return min(max(count, 1), 10), min(max(sides, 2), 100), nil
}

func (p *Plugin) botUsername() string {
	if p.deps.BotInfo == nil {
		return ""
	}
	return p.deps.BotInfo.Username
}

func (p *Plugin) handleDice(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	cmd, _ := telegram.CommandFromUpdate(update, p.botUsername())
	count, sides, err := parseDice(cmd.Args)
	if err != nil {
		_, err = telegram.Reply(ctx, b, update.Message, msgDiceUsage, nil)
		return err
	}

	results := make([]string, count)
	total := 0
	for i := range results {
		roll := p.intn(sides) + 1
		total += roll
		results[i] = strconv.Itoa(roll)
	}
	text := fmt.Sprintf("🎲 <b>Dice Roll Results</b>\n\n<b>Dice:</b> %dd%d\n<b>Results:</b> %s\n<b>Total:</b> %d",
		count, sides, strings.Join(results, ", "), total)
	_, err = telegram.Reply(ctx, b, update.Message, text, nil)
	return err
}

func (p *Plugin) handleCoinFlip(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	text := "🪙 <b>Coin Flip Result:</b> Heads"
	if p.intn(2) == 1 {
		text = "🔄 <b>Coin Flip Result:</b> Tails"
	}
	_, err := telegram.Reply(ctx, b, update.Message, text, nil)
	return err
}

var rpsChoices = []string{"rock", "paper", "scissors"}

var rpsEmoji = map[string]string{"rock": "🪨", "paper": "📄", "scissors": "✂️"}

// rpsBeats maps each choice to the one it defeats.
var rpsBeats = map[string]string{"rock": "scissors", "paper": "rock", "scissors": "paper"}

func (p *Plugin) handleRPS(ctx context.Context, b *tgbot.Bot, update *models.Update) error {
	cmd, _ := telegram.CommandFromUpdate(update, p.botUsername())
	if len(cmd.Args) == 0 {
		_, err := telegram.Reply(ctx, b, update.Message, msgRPSUsage, nil)
		return err
	}
	user := strings.ToLower(cmd.Args[0])
	if _, ok := rpsBeats[user]; !ok {
		_, err := telegram.Reply(ctx, b, update.Message, msgRPSInvalid, nil)
		return err
	}
	own := rpsChoices[p.intn(len(rpsChoices))]

	result := "🤖 <b>I win!</b>"
	switch {
	case user == own:
		result = "🤝 <b>It's a tie!</b>"
	case rpsBeats[user] == own:
		result = "🎉 <b>You win!</b>"
	}
	text := fmt.Sprintf("✂️ <b>Rock Paper Scissors</b>\n\n<b>You:</b> %s %s\n<b>Me:</b> %s %s\n\n%s",
		rpsEmoji[user], title(user), rpsEmoji[own], title(own), result)
	_, err := telegram.Reply(ctx, b, update.Message, text, nil)
	return err
}

func title(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}
