// Package console writes editorial log entries to a stream, either as
// key=value text lines or as JSON lines. It backs the default logging
// provider when go-logger is not configured.
package console

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"maps"
	"os"
	"slices"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/goliatone/go-editorial/pkg/interfaces"
)

// Level represents the severity attached to a log entry.
type Level uint8

const (
	LevelTrace Level = iota
	LevelDebug
	LevelInfo
	LevelWarn
	LevelError
	LevelFatal
)

var levelNames = [...]string{"TRACE", "DEBUG", "INFO", "WARN", "ERROR", "FATAL"}

func (l Level) String() string {
	if int(l) < len(levelNames) {
		return levelNames[l]
	}
	return "INFO"
}

// ParseLevel maps configuration level names onto console levels. Unknown or
// empty names report false so callers keep their default.
func ParseLevel(name string) (Level, bool) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "trace":
		return LevelTrace, true
	case "debug":
		return LevelDebug, true
	case "info":
		return LevelInfo, true
	case "warn", "warning":
		return LevelWarn, true
	case "error":
		return LevelError, true
	case "fatal":
		return LevelFatal, true
	}
	return LevelInfo, false
}

// Options configures the console logger provider.
type Options struct {
	Writer   io.Writer
	TimeFunc func() time.Time
	MinLevel *Level
	// JSON switches the output to one JSON object per line.
	JSON bool
	// Focus restricts output to loggers whose name starts with one of the
	// listed prefixes, e.g. "editorial.autosave".
	Focus []string
}

// Provider hands out loggers sharing one writer.
type Provider struct {
	writer   io.Writer
	clock    func() time.Time
	minLevel Level
	encode   func(entry) ([]byte, error)
	focus    []string
	mu       sync.Mutex
}

// NewProvider constructs a provider writing to stdout at DEBUG unless
// Options say otherwise.
func NewProvider(opts Options) *Provider {
	p := &Provider{
		writer:   opts.Writer,
		clock:    opts.TimeFunc,
		minLevel: LevelDebug,
		encode:   encodeText,
	}
	if p.writer == nil {
		p.writer = os.Stdout
	}
	if p.clock == nil {
		p.clock = time.Now
	}
	if opts.MinLevel != nil {
		p.minLevel = *opts.MinLevel
	}
	if opts.JSON {
		p.encode = encodeJSON
	}
	for _, prefix := range opts.Focus {
		if trimmed := strings.TrimSpace(prefix); trimmed != "" {
			p.focus = append(p.focus, trimmed)
		}
	}
	return p
}

var _ interfaces.LoggerProvider = (*Provider)(nil)

// GetLogger returns a logger tagged with name.
func (p *Provider) GetLogger(name string) interfaces.Logger {
	return &logger{
		provider: p,
		name:     name,
		muted:    !p.focused(name),
		fields:   map[string]any{"logger": name},
	}
}

func (p *Provider) focused(name string) bool {
	if len(p.focus) == 0 {
		return true
	}
	for _, prefix := range p.focus {
		if strings.HasPrefix(name, prefix) {
			return true
		}
	}
	return false
}

func (p *Provider) write(e entry) {
	line, err := p.encode(e)
	if err != nil {
		line = []byte(fmt.Sprintf("%s %s %s encode_error=%q", e.at.Format(time.RFC3339Nano), e.level, e.msg, err.Error()))
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	// Write failures are dropped; logging never fails the caller.
	_, _ = p.writer.Write(append(line, '\n'))
}

type logger struct {
	provider *Provider
	name     string
	muted    bool
	fields   map[string]any
}

var (
	_ interfaces.Logger       = (*logger)(nil)
	_ interfaces.FieldsLogger = (*logger)(nil)
)

func (l *logger) Trace(msg string, args ...any) { l.log(LevelTrace, msg, args) }
func (l *logger) Debug(msg string, args ...any) { l.log(LevelDebug, msg, args) }
func (l *logger) Info(msg string, args ...any)  { l.log(LevelInfo, msg, args) }
func (l *logger) Warn(msg string, args ...any)  { l.log(LevelWarn, msg, args) }
func (l *logger) Error(msg string, args ...any) { l.log(LevelError, msg, args) }
func (l *logger) Fatal(msg string, args ...any) { l.log(LevelFatal, msg, args) }

func (l *logger) WithFields(fields map[string]any) interfaces.Logger {
	if len(fields) == 0 {
		return l
	}
	next := *l
	next.fields = maps.Clone(l.fields)
	maps.Copy(next.fields, fields)
	return &next
}

// WithContext is accepted for interface compatibility; console entries carry
// no request scoped data.
func (l *logger) WithContext(context.Context) interfaces.Logger {
	return l
}

func (l *logger) log(level Level, msg string, args []any) {
	if l.muted || level < l.provider.minLevel {
		return
	}
	fields := maps.Clone(l.fields)
	mergeArgs(fields, args)
	l.provider.write(entry{
		at:     l.provider.clock().UTC(),
		level:  level,
		msg:    msg,
		fields: fields,
	})
}

// mergeArgs folds key/value pairs into fields. Keys that are not strings and
// a trailing unpaired value are kept under positional names.
func mergeArgs(fields map[string]any, args []any) {
	for i := 0; i < len(args); i += 2 {
		if i+1 == len(args) {
			fields["field_"+strconv.Itoa(i/2)] = args[i]
			return
		}
		key, ok := args[i].(string)
		if !ok || key == "" {
			key = "field_" + strconv.Itoa(i/2)
		}
		fields[key] = args[i+1]
	}
}

type entry struct {
	at     time.Time
	level  Level
	msg    string
	fields map[string]any
}

func encodeText(e entry) ([]byte, error) {
	var b strings.Builder
	b.WriteString(e.at.Format(time.RFC3339Nano))
	b.WriteByte(' ')
	b.WriteString(e.level.String())
	b.WriteByte(' ')
	b.WriteString(e.msg)
	for _, key := range slices.Sorted(maps.Keys(e.fields)) {
		b.WriteByte(' ')
		b.WriteString(key)
		b.WriteByte('=')
		b.WriteString(textValue(e.fields[key]))
	}
	return []byte(b.String()), nil
}

func encodeJSON(e entry) ([]byte, error) {
	doc := make(map[string]any, len(e.fields)+3)
	for key, value := range e.fields {
		doc[key] = jsonValue(value)
	}
	doc["time"] = e.at.Format(time.RFC3339Nano)
	doc["level"] = strings.ToLower(e.level.String())
	doc["msg"] = e.msg
	return json.Marshal(doc)
}

func jsonValue(value any) any {
	switch v := value.(type) {
	case error:
		return v.Error()
	case fmt.Stringer:
		return v.String()
	default:
		return v
	}
}

func textValue(value any) string {
	switch v := value.(type) {
	case nil:
		return "null"
	case string:
		return quote(v)
	case time.Time:
		return v.UTC().Format(time.RFC3339Nano)
	case *time.Time:
		if v == nil {
			return "null"
		}
		return v.UTC().Format(time.RFC3339Nano)
	case time.Duration:
		return v.String()
	case error:
		return quote(v.Error())
	case fmt.Stringer:
		return quote(v.String())
	case float32:
		return strconv.FormatFloat(float64(v), 'f', -1, 32)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return quote(fmt.Sprint(v))
	}
}

func quote(value string) string {
	if value == "" {
		return `""`
	}
	if strings.IndexFunc(value, func(r rune) bool { return r <= ' ' || r == '=' || r == '"' }) >= 0 {
		return strconv.Quote(value)
	}
	return value
}
