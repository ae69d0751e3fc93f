package logging

import (
	"fmt"
	"io"
	"log/slog"
	"path/filepath"
	"strings"
)

const jsonTimeFormat = "2006-01-02T15:04:05.000Z07:00"

// newJSONHandler writes one JSON object per record with ts, level and msg
// keys. Credentials are masked before encoding.
func newJSONHandler(w io.Writer, lvl slog.Leveler, addSource bool) slog.Handler {
	return slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level:     lvl,
		AddSource: addSource,
		ReplaceAttr: func(groups []string, attr slog.Attr) slog.Attr {
			if len(groups) > 0 {
				return redactAttr(attr)
			}
			switch attr.Key {
			case slog.TimeKey:
				attr.Key = "ts"
				if attr.Value.Kind() == slog.KindTime {
					attr.Value = slog.StringValue(attr.Value.Time().UTC().Format(jsonTimeFormat))
				}
				return attr
			case slog.LevelKey:
				return slog.String("level", strings.ToLower(attr.Value.String()))
			case slog.SourceKey:
				if src, ok := attr.Value.Any().(*slog.Source); ok && src != nil {
					return slog.String("caller", fmt.Sprintf("%s:%d", filepath.Base(src.File), src.Line))
				}
				return attr
			case slog.MessageKey:
				return attr
			}
			return redactAttr(attr)
		},
	})
}
