package logger

import (
	"context"

	joonix "github.com/joonix/log"
	log "github.com/sirupsen/logrus"
)

type contextKey struct{}

func Setup(level string) {
	log.SetFormatter(joonix.NewFormatter())
	lvl, err := log.ParseLevel(level)
	if err != nil {
		lvl = log.InfoLevel
	}
	log.SetLevel(lvl)
}

// NewContext returns a copy of ctx carrying the request scoped entry.
func NewContext(ctx context.Context, entry *log.Entry) context.Context {
	return context.WithValue(ctx, contextKey{}, entry)
}

// FromContext falls back to the standard logger when ctx has no entry.
func FromContext(ctx context.Context) *log.Entry {
	if ctx != nil {
		if entry, ok := ctx.Value(contextKey{}).(*log.Entry); ok && entry != nil {
			return entry
		}
	}
	return log.NewEntry(log.StandardLogger())
}
