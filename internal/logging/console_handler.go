package logging

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"path/filepath"
	"strconv"
	"strings"
	"sync"
	"time"
)

const consoleTimeLayout = "2006-01-02 15:04:05.000"

// Keys lifted out of the field list into the console header.
const (
	headerRoute   = "route"
	headerSubject = "subject"
)

// consoleHandler renders one header line per record:
//
//	2026-10-17 09:12:03.118 INFO  [dispatcher] Doc 3f2a9c1e (dispatch) alert.pdf – message delivered → urgent "Priority Telegram"
//
// followed by the remaining fields, indented. Info records list a curated
// selection, debug records every field, and warnings and errors a bullet per
// field so hints and impact stay readable.
type consoleHandler struct {
	mu     *sync.Mutex
	w      io.Writer
	level  *slog.LevelVar
	attrs  []slog.Attr
	groups []string
	source bool
}

func newConsoleHandler(w io.Writer, lvl *slog.LevelVar, addSource bool) slog.Handler {
	return &consoleHandler{mu: &sync.Mutex{}, w: w, level: lvl, source: addSource}
}

func (h *consoleHandler) Enabled(_ context.Context, level slog.Level) bool {
	return level >= h.level.Level()
}

// consoleHeader holds the record fields that identify a document and where
// it went.
type consoleHeader struct {
	component string
	itemID    string
	stage     string
	file      string
	route     string
	subject   string
}

func (h *consoleHandler) Handle(_ context.Context, record slog.Record) error {
	if !h.Enabled(context.Background(), record.Level) {
		return nil
	}

	var fields fieldList
	fields.addAll(h.groups, h.attrs)
	record.Attrs(func(attr slog.Attr) bool {
		fields.add(h.groups, attr)
		return true
	})

	head := consoleHeader{
		component: fields.take(FieldComponent),
		itemID:    fields.take(FieldItemID),
		stage:     fields.take(FieldStage),
		route:     fields.take(headerRoute),
		subject:   fields.take(headerSubject),
	}
	if path := fields.peek(FieldPath); path != "" {
		head.file = filepath.Base(path)
		if record.Level < slog.LevelWarn {
			fields.take(FieldPath)
		}
	}

	var buf bytes.Buffer
	buf.Grow(160 + len(fields.items)*24)
	writeConsoleHeader(&buf, record, head)
	if h.source && record.Level < slog.LevelInfo {
		if src := record.Source(); src != nil && src.File != "" {
			buf.WriteString(" (")
			buf.WriteString(filepath.Base(src.File))
			buf.WriteByte(':')
			buf.WriteString(strconv.Itoa(src.Line))
			buf.WriteByte(')')
		}
	}
	buf.WriteByte('\n')

	switch {
	case record.Level >= slog.LevelWarn:
		writeBulletFields(&buf, fields.items)
	case record.Level >= slog.LevelInfo:
		writeInlineFields(&buf, fields.items)
	default:
		writeDebugFields(&buf, fields.items)
	}

	h.mu.Lock()
	defer h.mu.Unlock()
	_, err := h.w.Write(buf.Bytes())
	return err
}

func writeConsoleHeader(buf *bytes.Buffer, record slog.Record, head consoleHeader) {
	ts := record.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	buf.WriteString(ts.In(time.Local).Format(consoleTimeLayout))
	buf.WriteByte(' ')
	buf.WriteString(levelLabel(record.Level))
	if head.component != "" {
		buf.WriteString(" [")
		buf.WriteString(head.component)
		buf.WriteByte(']')
	}
	if subject := FormatSubject(head.itemID, head.stage); subject != "" {
		buf.WriteByte(' ')
		buf.WriteString(subject)
	}
	if head.file != "" {
		buf.WriteByte(' ')
		buf.WriteString(head.file)
	}
	message := strings.TrimSpace(record.Message)
	if message == "" {
		message = "(no message)"
	}
	buf.WriteString(" – ")
	buf.WriteString(message)
	if head.route != "" || head.subject != "" {
		buf.WriteString(" →")
		if head.route != "" {
			buf.WriteByte(' ')
			buf.WriteString(head.route)
		}
		if head.subject != "" {
			buf.WriteByte(' ')
			buf.WriteString(strconv.Quote(head.subject))
		}
	}
}

// writeInlineFields puts the selected info fields on one indented line.
func writeInlineFields(buf *bytes.Buffer, items []field) {
	selected, hidden := selectInfoFields(items)
	if len(selected) == 0 && hidden == 0 {
		return
	}
	buf.WriteString("    ")
	for i, f := range selected {
		if i > 0 {
			buf.WriteString(" · ")
		}
		buf.WriteString(f.label)
		buf.WriteString(": ")
		buf.WriteString(f.value)
	}
	if hidden > 0 {
		if len(selected) > 0 {
			buf.WriteString(" · ")
		}
		buf.WriteString("+")
		buf.WriteString(strconv.Itoa(hidden))
		buf.WriteString(" hidden")
	}
	buf.WriteByte('\n')
}

func writeBulletFields(buf *bytes.Buffer, items []field) {
	for _, f := range items {
		buf.WriteString("    - ")
		buf.WriteString(displayLabel(f.key))
		buf.WriteString(": ")
		buf.WriteString(formatValueForKey(f.key, f.value))
		buf.WriteByte('\n')
	}
}

func writeDebugFields(buf *bytes.Buffer, items []field) {
	for _, f := range items {
		buf.WriteString("    ")
		buf.WriteString(f.key)
		buf.WriteByte('=')
		buf.WriteString(formatValue(f.value))
		buf.WriteByte('\n')
	}
}

func (h *consoleHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

func (h *consoleHandler) WithGroup(name string) slog.Handler {
	if name == "" {
		return h
	}
	next := *h
	next.groups = append(append([]string(nil), h.groups...), name)
	return &next
}

// field is one flattened attribute; group members are keyed "group.key".
type field struct {
	key   string
	value slog.Value
}

// fieldList keeps fields in first-seen order. A repeated key overwrites the
// earlier value in place.
type fieldList struct {
	items []field
	index map[string]int
}

func (l *fieldList) addAll(groups []string, attrs []slog.Attr) {
	for _, attr := range attrs {
		l.add(groups, attr)
	}
}

func (l *fieldList) add(groups []string, attr slog.Attr) {
	if attr.Equal(slog.Attr{}) {
		return
	}
	value := attr.Value.Resolve()
	if value.Kind() == slog.KindGroup {
		if attr.Key != "" {
			groups = append(groups[:len(groups):len(groups)], attr.Key)
		}
		l.addAll(groups, value.Group())
		return
	}
	key := attr.Key
	if len(groups) > 0 {
		key = strings.Join(append(groups[:len(groups):len(groups)], key), ".")
	}
	if key == "" {
		return
	}
	if l.index == nil {
		l.index = make(map[string]int)
	}
	if pos, ok := l.index[key]; ok {
		l.items[pos].value = value
		return
	}
	l.index[key] = len(l.items)
	l.items = append(l.items, field{key: key, value: value})
}

func (l *fieldList) peek(key string) string {
	if pos, ok := l.index[key]; ok {
		return attrString(l.items[pos].value)
	}
	return ""
}

// take removes key and returns its value as plain text.
func (l *fieldList) take(key string) string {
	pos, ok := l.index[key]
	if !ok {
		return ""
	}
	value := attrString(l.items[pos].value)
	l.items = append(l.items[:pos], l.items[pos+1:]...)
	delete(l.index, key)
	for k, p := range l.index {
		if p > pos {
			l.index[k] = p - 1
		}
	}
	return value
}

func levelLabel(level slog.Level) string {
	switch {
	case level >= slog.LevelError:
		return "ERROR"
	case level >= slog.LevelWarn:
		return "WARN "
	case level >= slog.LevelInfo:
		return "INFO "
	default:
		return "DEBUG"
	}
}
