// Package telegramtest provides a fake Telegram Bot API server for tests.
package telegramtest

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-telegram/bot"
	"github.com/go-telegram/bot/models"
)

// Token is the bot token accepted by the fake server.
const Token = "123456:TEST"

// BotUser is the account returned by getMe.
var BotUser = models.User{ID: 123456, IsBot: true, FirstName: "Luna", Username: "luna_bot"}

// Call is one recorded API request.
type Call struct {
	Method string
	Params map[string]string
	Files  map[string][]byte
}

// Int64 parses a numeric parameter, returning 0 when it is missing.
func (c Call) Int64(key string) int64 {
	n, _ := strconv.ParseInt(c.Params[key], 10, 64)
	return n
}

// JSON decodes a JSON encoded parameter into v.
func (c Call) JSON(key string, v any) error {
	raw, ok := c.Params[key]
	if !ok {
		return fmt.Errorf("parameter %q not sent", key)
	}
	return json.Unmarshal([]byte(raw), v)
}

// Server is a fake Bot API. Unknown methods succeed with result true;
// message sending methods echo a message with a fresh ID.
type Server struct {
	*httptest.Server

	mu        sync.Mutex
	calls     []Call
	results   map[string]any
	failures  map[string]string
	members   map[[2]int64]map[string]any
	nextMsgID int
}

// New starts a fake server that is closed when the test ends.
func New(t testing.TB) *Server {
	t.Helper()
	s := &Server{
		results:   make(map[string]any),
		failures:  make(map[string]string),
		members:   make(map[[2]int64]map[string]any),
		nextMsgID: 1000,
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.serve))
	t.Cleanup(s.Close)
	return s
}

// Bot creates a bot client talking to the fake server. Handlers run
// synchronously, so ProcessUpdate returns after the handler did.
func (s *Server) Bot(t testing.TB, opts ...bot.Option) *bot.Bot {
	t.Helper()
	opts = append([]bot.Option{bot.WithServerURL(s.URL), bot.WithNotAsyncHandlers()}, opts...)
	b, err := bot.New(Token, opts...)
	if err != nil {
		t.Fatalf("failed to create bot against fake server: %v", err)
	}
	return b
}

// SetResult overrides the result returned for method.
func (s *Server) SetResult(method string, result any) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results[method] = result
}

// Fail makes method answer with an API error.
func (s *Server) Fail(method, description string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures[method] = description
}

// SetMember sets the getChatMember answer for a user. status is one of
// "creator", "administrator", "member", "restricted", "left" or "kicked".
func (s *Server) SetMember(chatID, userID int64, status string, canRestrict bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	member := map[string]any{
		"status": status,
		"user":   map[string]any{"id": userID, "is_bot": userID == BotUser.ID, "first_name": "User"},
	}
	if status == "administrator" {
		member["can_restrict_members"] = canRestrict
		member["can_be_edited"] = false
		member["is_anonymous"] = false
		member["can_manage_chat"] = true
		member["can_delete_messages"] = true
	}
	if status == "restricted" || status == "kicked" {
		member["until_date"] = 0
	}
	s.members[[2]int64{chatID, userID}] = member
}

// Calls returns the recorded calls of method, or every call when method is empty.
func (s *Server) Calls(method string) []Call {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Call
	for _, c := range s.calls {
		if method == "" || c.Method == method {
			out = append(out, c)
		}
	}
	return out
}

// Last returns the most recent call of method.
func (s *Server) Last(method string) (Call, bool) {
	calls := s.Calls(method)
	if len(calls) == 0 {
		return Call{}, false
	}
	return calls[len(calls)-1], true
}

// Reset forgets the recorded calls.
func (s *Server) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = nil
}

func (s *Server) serve(w http.ResponseWriter, r *http.Request) {
	prefix := "/bot" + Token + "/"
	if !strings.HasPrefix(r.URL.Path, prefix) {
		http.NotFound(w, r)
		return
	}
	method := strings.TrimPrefix(r.URL.Path, prefix)

	call := Call{Method: method, Params: map[string]string{}, Files: map[string][]byte{}}
	if err := r.ParseMultipartForm(10 << 20); err == nil {
		for k, v := range r.MultipartForm.Value {
			if len(v) > 0 {
				call.Params[k] = v[0]
			}
		}
		for k, files := range r.MultipartForm.File {
			if len(files) > 0 {
				call.Files[k] = readFile(files[0])
			}
		}
	} else if !errors.Is(err, http.ErrNotMultipart) && !errors.Is(err, io.EOF) {
		slog.Debug("fake telegram server could not parse form", "method", method, "error", err)
	}

	s.mu.Lock()
	s.calls = append(s.calls, call)
	failure, failed := s.failures[method]
	result := s.resultFor(call)
	s.mu.Unlock()

	w.Header().Set("Content-Type", "application/json")
	if failed {
		w.WriteHeader(http.StatusBadRequest)
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": false, "error_code": 400, "description": failure})
		return
	}
	_ = json.NewEncoder(w).Encode(map[string]any{"ok": true, "result": result})
}

// resultFor must be called with s.mu held.
func (s *Server) resultFor(call Call) any {
	if r, ok := s.results[call.Method]; ok {
		return r
	}
	switch call.Method {
	case "getMe":
		return BotUser
	case "getChatMember":
		if m, ok := s.members[[2]int64{call.Int64("chat_id"), call.Int64("user_id")}]; ok {
			return m
		}
		return map[string]any{
			"status": "member",
			"user":   map[string]any{"id": call.Int64("user_id"), "is_bot": false, "first_name": "User"},
		}
	case "sendMessage", "sendSticker", "sendDocument", "sendDice", "editMessageText", "editMessageReplyMarkup":
		s.nextMsgID++
		id := s.nextMsgID
		if call.Method != "sendMessage" && call.Params["message_id"] != "" {
			id = int(call.Int64("message_id"))
		}
		return map[string]any{
			"message_id": id,
			"date":       time.Now().Unix(),
			"chat":       map[string]any{"id": call.Int64("chat_id"), "type": "supergroup"},
			"text":       call.Params["text"],
		}
	case "getUpdates":
		return []any{}
	case "getChatMemberCount":
		return 42
	default:
		return true
	}
}

func readFile(fh *multipart.FileHeader) []byte {
	f, err := fh.Open()
	if err != nil {
		return nil
	}
	defer f.Close()
	data, _ := io.ReadAll(f)
	return data
}
