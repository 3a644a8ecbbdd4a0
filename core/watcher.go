package core

import (
	"fmt"
	"os"
	"time"
)

// startWatcher polls the schema file for changes and hot-reloads the
// engine state on every detected change, mirroring the teacher's
// startDBWatcher polling loop (ticker + comparison, swap-on-change)
// adapted from database introspection to a schema file's size and mtime.
func (e *Engine) startWatcher() {
	ps := e.conf.SchemaPollDuration
	if ps < time.Second {
		return
	}

	go e.runWatcher(ps)
}

func (e *Engine) runWatcher(ps time.Duration) {
	ticker := time.NewTicker(ps)
	defer ticker.Stop()

	lastHash := e.schemaHash()

	for {
		select {
		case <-e.done:
			return
		case <-ticker.C:
			h := e.schemaHash()
			if h == lastHash {
				continue
			}
			e.log.Println("schema file changed, reloading")
			if err := e.Reload(); err != nil {
				e.log.Println("schema reload failed:", err)
				continue
			}
			lastHash = h
		}
	}
}

// schemaHash is a cheap change-detection signature: size + mtime. A full
// content hash is unnecessary since the watcher only gates whether to
// attempt Reload, which re-parses and re-validates for real.
func (e *Engine) schemaHash() string {
	fi, err := os.Stat(e.conf.SchemaPath)
	if err != nil {
		return ""
	}
	return fmt.Sprintf("%d:%d", fi.Size(), fi.ModTime().UnixNano())
}
