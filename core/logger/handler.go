package logger

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"
)

type logFormat int

const (
	formatJSON logFormat = iota
	formatKV
)

// defaultKeyOrder pins the leading keys of every record so lines are
// scannable and diffable across components.
var defaultKeyOrder = []string{
	"ts", "level", "component", "event", "msg", "status",
	"rid", "handler", "update_id", "chat_id", "user_id",
}

// lineWriter serializes whole log lines to one or more buffered sinks.
type lineWriter struct {
	mu    sync.Mutex
	sinks []*bufio.Writer
}

func newLineWriter(writers []io.Writer, bufSize int) *lineWriter {
	if bufSize <= 0 {
		bufSize = 64 * 1024
	}
	sinks := make([]*bufio.Writer, 0, len(writers))
	for _, w := range writers {
		if w == nil {
			continue
		}
		sinks = append(sinks, bufio.NewWriterSize(w, bufSize))
	}
	return &lineWriter{sinks: sinks}
}

// WriteLine writes one record plus trailing newline to every sink.
func (w *lineWriter) WriteLine(line []byte) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for _, s := range w.sinks {
		if _, err := s.Write(line); err != nil && firstErr == nil {
			firstErr = err
			continue
		}
		if err := s.WriteByte('\n'); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Flush forces buffered output to the underlying writers.
func (w *lineWriter) Flush() error {
	w.mu.Lock()
	defer w.mu.Unlock()
	var firstErr error
	for _, s := range w.sinks {
		if err := s.Flush(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}

// Close flushes remaining output. Closing the underlying files is the
// caller's responsibility.
func (w *lineWriter) Close() error {
	return w.Flush()
}

type handlerConfig struct {
	level    slog.Leveler
	writer   *lineWriter
	format   logFormat
	keyOrder []string
}

type pair struct {
	key string
	val slog.Value
}

// structuredHandler renders records with a deterministic key order in either
// KV or JSON format.
type structuredHandler struct {
	cfg   handlerConfig
	attrs []slog.Attr
}

func newStructuredHandler(cfg handlerConfig) *structuredHandler {
	if len(cfg.keyOrder) == 0 {
		cfg.keyOrder = append([]string(nil), defaultKeyOrder...)
	}
	return &structuredHandler{cfg: cfg}
}

// Enabled reports whether the record level passes the configured threshold.
func (h *structuredHandler) Enabled(_ context.Context, level slog.Level) bool {
	minLevel := slog.LevelInfo
	if h.cfg.level != nil {
		minLevel = h.cfg.level.Level()
	}
	return level >= minLevel
}

// WithAttrs returns a handler carrying the additional attributes.
func (h *structuredHandler) WithAttrs(attrs []slog.Attr) slog.Handler {
	next := *h
	next.attrs = append(append([]slog.Attr(nil), h.attrs...), attrs...)
	return &next
}

// WithGroup is accepted but flattening is intentional: the log schema is flat.
func (h *structuredHandler) WithGroup(string) slog.Handler {
	return h
}

// Handle renders and writes a single record.
func (h *structuredHandler) Handle(ctx context.Context, rec slog.Record) error {
	pairs := make([]pair, 0, rec.NumAttrs()+len(h.attrs)+8)
	index := make(map[string]int, rec.NumAttrs()+len(h.attrs)+8)

	set := func(key string, val slog.Value) {
		if key == "" {
			return
		}
		if i, ok := index[key]; ok {
			pairs[i].val = val
			return
		}
		index[key] = len(pairs)
		pairs = append(pairs, pair{key: key, val: val})
	}

	ts := rec.Time
	if ts.IsZero() {
		ts = time.Now()
	}
	set("ts", slog.TimeValue(ts))
	set("level", slog.StringValue(rec.Level.String()))

	for _, a := range h.attrs {
		set(a.Key, a.Value.Resolve())
	}
	rec.Attrs(func(a slog.Attr) bool {
		set(a.Key, a.Value.Resolve())
		return true
	})
	if rec.Message != "" {
		set("msg", slog.StringValue(rec.Message))
	}

	if _, ok := index["rid"]; !ok {
		if rid := RIDFrom(ctx); rid != "" {
			set("rid", slog.StringValue(rid))
		}
	}
	if _, ok := index["handler"]; !ok {
		if hn := HandlerFrom(ctx); hn != "" {
			set("handler", slog.StringValue(hn))
		}
	}
	if _, ok := index["update_id"]; !ok {
		if id := UpdateIDFrom(ctx); id != 0 {
			set("update_id", slog.IntValue(id))
		}
	}
	if _, ok := index["chat_id"]; !ok {
		if id := ChatIDFrom(ctx); id != 0 {
			set("chat_id", slog.Int64Value(id))
		}
	}
	if _, ok := index["user_id"]; !ok {
		if id := UserIDFrom(ctx); id != 0 {
			set("user_id", slog.Int64Value(id))
		}
	}

	ordered := h.order(pairs, index)

	var line []byte
	switch h.cfg.format {
	case formatKV:
		line = renderKV(ordered, ts)
	default:
		line = renderJSON(ordered, ts)
	}

	if h.cfg.writer == nil {
		return nil
	}
	return h.cfg.writer.WriteLine(line)
}

func (h *structuredHandler) order(pairs []pair, index map[string]int) []pair {
	ordered := make([]pair, 0, len(pairs))
	used := make(map[string]bool, len(pairs))
	for _, key := range h.cfg.keyOrder {
		if i, ok := index[key]; ok {
			ordered = append(ordered, pairs[i])
			used[key] = true
		}
	}
	for _, p := range pairs {
		if !used[p.key] {
			ordered = append(ordered, p)
		}
	}
	return ordered
}

func renderKV(pairs []pair, ts time.Time) []byte {
	buf := &bytes.Buffer{}
	for i, p := range pairs {
		if i > 0 {
			buf.WriteByte(' ')
		}
		buf.WriteString(p.key)
		buf.WriteByte('=')
		switch p.key {
		case "ts":
			buf.WriteString(ts.Format("2006-01-02T15:04:05.000Z07:00"))
		case "rid":
			buf.WriteString(kvString(CompactRID(p.val.String())))
		default:
			buf.WriteString(kvValue(p.val))
		}
	}
	return buf.Bytes()
}

func renderJSON(pairs []pair, ts time.Time) []byte {
	buf := &bytes.Buffer{}
	buf.WriteByte('{')
	first := true
	writeKey := func(key string) {
		if !first {
			buf.WriteByte(',')
		}
		first = false
		b, _ := json.Marshal(key)
		buf.Write(b)
		buf.WriteByte(':')
	}
	for _, p := range pairs {
		switch p.key {
		case "ts":
			writeKey("ts")
			b, _ := json.Marshal(ts.Format(time.RFC3339Nano))
			buf.Write(b)
		case "rid":
			rid := p.val.String()
			writeKey("rid")
			b, _ := json.Marshal(CompactRID(rid))
			buf.Write(b)
			if compact := CompactRID(rid); compact != rid {
				writeKey("rid_full")
				b, _ := json.Marshal(rid)
				buf.Write(b)
			}
		default:
			writeKey(p.key)
			buf.Write(jsonValue(p.val))
		}
	}
	writeKey("ts_unix_nano")
	buf.WriteString(strconv.FormatInt(ts.UnixNano(), 10))
	buf.WriteByte('}')
	return buf.Bytes()
}

func kvValue(v slog.Value) string {
	switch v.Kind() {
	case slog.KindString:
		return kvString(v.String())
	case slog.KindInt64:
		return strconv.FormatInt(v.Int64(), 10)
	case slog.KindUint64:
		return strconv.FormatUint(v.Uint64(), 10)
	case slog.KindBool:
		return strconv.FormatBool(v.Bool())
	case slog.KindFloat64:
		return strconv.FormatFloat(v.Float64(), 'f', -1, 64)
	case slog.KindDuration:
		return v.Duration().String()
	case slog.KindTime:
		return v.Time().Format(time.RFC3339)
	default:
		return kvString(fmt.Sprintf("%v", v.Any()))
	}
}

func kvString(s string) string {
	if s == "" {
		return `""`
	}
	if strings.ContainsAny(s, " \t\n\"=") {
		return strconv.Quote(s)
	}
	return s
}

func jsonValue(v slog.Value) []byte {
	var raw any
	switch v.Kind() {
	case slog.KindDuration:
		raw = v.Duration().String()
	case slog.KindTime:
		raw = v.Time().Format(time.RFC3339Nano)
	default:
		raw = v.Any()
	}
	b, err := json.Marshal(raw)
	if err != nil {
		b, _ = json.Marshal(fmt.Sprintf("%v", raw))
	}
	return b
}
