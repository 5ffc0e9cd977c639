package logger

import (
	"context"
	"html/template"
	"log/slog"
	"strings"
	"sync"
	"time"
)

// MaxSupportMessage is the longest text forwarded to the support chat.
// Telegram rejects messages above 4096 characters.
const MaxSupportMessage = 4000

// Notifier delivers an HTML formatted text to the support chat.
type Notifier interface {
	Notify(ctx context.Context, html string) error
}

type supportKey struct{}

// WithoutSupport marks ctx so records logged with it stay local.
func WithoutSupport(ctx context.Context) context.Context {
	return context.WithValue(ctx, supportKey{}, true)
}

func supportSuppressed(ctx context.Context) bool {
	if ctx == nil {
		return false
	}
	v, _ := ctx.Value(supportKey{}).(bool)
	return v
}

// supportState is shared by every handler derived through WithAttrs/WithGroup,
// so a notifier attached after the logger was built reaches all of them.
type supportState struct {
	mu       sync.RWMutex
	notifier Notifier
	timeout  time.Duration
}

// SupportHandler wraps a slog.Handler and additionally forwards records at or
// above its level to the support chat. The notifier is attached late with
// SetNotifier because the bot client is built after the logger.
type SupportHandler struct {
	next   slog.Handler
	level  slog.Leveler
	state  *supportState
	attrs  []slog.Attr
	prefix string
}

// NewSupportHandler wraps next; records at level or above are forwarded.
func NewSupportHandler(next slog.Handler, level slog.Leveler) *SupportHandler {
	return &SupportHandler{
		next:  next,
		level: level,
		state: &supportState{timeout: 10 * time.Second},
	}
}

// SetNotifier attaches (or with nil, detaches) the support chat notifier.
func (h *SupportHandler) SetNotifier(n Notifier) {
	h.state.mu.Lock()
	defer h.state.mu.Unlock()
	h.state.notifier = n
}

func (h *SupportHandler) notifier() Notifier {
	h.state.mu.RLock()
	defer h.state.mu.RUnlock()
	return h.state.notifier
}

// Enabled implements slog.Handler.
func (h *SupportHandler) Enabled(ctx context.Context, level slog.Level) bool {
	return h.next.Enabled(ctx, level) || level >= h.level.Level()
}

// Handle implements slog.Handler.
func (h *SupportHandler) Handle(ctx context.Context, r slog.Record) error {
	var err error
	if h.next.Enabled(ctx, r.Level) {
		err = h.next.Handle(ctx, r)
	}

	if r.Level < h.level.Level() || supportSuppressed(ctx) {
		return err
	}
	n := h.notifier()
	if n == nil {
		return err
	}

	sendCtx, cancel := context.WithTimeout(WithoutSupport(context.Background()), h.state.timeout)
	defer cancel()
	if sendErr := n.Notify(sendCtx, h.format(r)); sendErr != nil {
		failure := slog.NewRecord(time.Now(), slog.LevelWarn, "Failed to forward log record to support chat", 0)
		failure.AddAttrs(slog.String("error", sendErr.Error()), slog.String("original_message", r.Message))
		_ = h.next.Handle(ctx, failure)
	}
	return err
}

// WithAttrs implements slog.Handler.
func (h *SupportHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	clone := *h
	clone.next = h.next.WithAttrs(attrs)
	clone.attrs = append(append([]slog.Attr{}, h.attrs...), h.qualify(attrs)...)
	return &clone
}

// WithGroup implements slog.Handler.
func (h *SupportHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	clone := *h
	clone.next = h.next.WithGroup(name)
	clone.prefix = h.prefix + name + "."
	return &clone
}

func (h *SupportHandler) qualify(attrs []slog.Attr) []slog.Attr {
	if h.prefix == "" {
		return attrs
	}
	out := make([]slog.Attr, 0, len(attrs))
	for _, a := range attrs {
		out = append(out, slog.Attr{Key: h.prefix + a.Key, Value: a.Value})
	}
	return out
}

type supportField struct {
	Key   string
	Value string
}

var supportMessageTmpl = template.Must(template.New("support").
	Funcs(template.FuncMap{"Upper": strings.ToUpper}).
	Parse(`<b>{{Upper .Level}}</b> {{.Message}}
<i>{{.Time}}</i>
<pre>{{range .Fields}}{{.Key}} = {{.Value}}
{{end}}</pre>`))

func (h *SupportHandler) format(r slog.Record) string {
	fields := make([]supportField, 0, len(h.attrs)+r.NumAttrs())
	for _, a := range h.attrs {
		fields = append(fields, supportField{Key: a.Key, Value: a.Value.Resolve().String()})
	}
	r.Attrs(func(a slog.Attr) bool {
		fields = append(fields, supportField{Key: h.prefix + a.Key, Value: a.Value.Resolve().String()})
		return true
	})

	var sb strings.Builder
	err := supportMessageTmpl.Execute(&sb, map[string]any{
		"Level":   r.Level.String(),
		"Message": r.Message,
		"Time":    r.Time.UTC().Format(time.RFC3339),
		"Fields":  fields,
	})
	if err != nil {
		return template.HTMLEscapeString(r.Level.String() + " " + r.Message)
	}
	return truncateHTML(sb.String(), MaxSupportMessage)
}

// truncateHTML cuts s to at most limit runes and re-closes the pre block
// when the cut fell inside it.
func truncateHTML(s string, limit int) string {
	r := []rune(s)
	if len(r) <= limit {
		return s
	}
	const tail = "…</pre>"
	cut := string(r[:limit-len([]rune(tail))])
	// Never leave a partial entity or tag behind.
	if i := strings.LastIndexAny(cut, "&<"); i > strings.LastIndexAny(cut, ";>") {
		cut = cut[:i]
	}
	if strings.Count(cut, "<pre>") > strings.Count(cut, "</pre>") {
		return cut + tail
	}
	return cut + "…"
}
