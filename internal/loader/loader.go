package loader

import (
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/fsnotify/fsnotify"

	"bopokit/internal/lm"
)

// Loader binds dictionary files to a facade and keeps the user tables
// fresh. Loads happen atomically from the facade's point of view: a
// whole table is parsed off to the side and swapped in at once.
type Loader struct {
	facade   *lm.Facade
	manifest *Manifest
	log      *slog.Logger

	mu      sync.Mutex
	watcher *fsnotify.Watcher
	done    chan struct{}
}

// New creates a loader for the manifest. log may be nil.
func New(facade *lm.Facade, manifest *Manifest, log *slog.Logger) *Loader {
	if log == nil {
		log = slog.Default()
	}
	return &Loader{facade: facade, manifest: manifest, log: log}
}

// Load parses every manifest file and binds the tables to the facade.
// The primary dictionary is required; the other tables are optional and
// load as empty when their file is absent.
func (l *Loader) Load() error {
	f, err := os.Open(l.manifest.Primary)
	if err != nil {
		return fmt.Errorf("open primary dictionary: %w", err)
	}
	primary, err := lm.ParseUnigramTable(f)
	f.Close()
	if err != nil {
		return fmt.Errorf("parse primary dictionary: %w", err)
	}
	l.facade.LoadLanguageModel(primary)
	l.log.Info("loaded primary dictionary", "path", l.manifest.Primary)

	if err := l.reloadUserTables(); err != nil {
		return err
	}

	if l.manifest.PhraseReplacement != "" {
		table, err := parsePhraseFile(l.manifest.PhraseReplacement, lm.ParseReplacementTable)
		if err != nil {
			return fmt.Errorf("load phrase replacement: %w", err)
		}
		l.facade.LoadPhraseReplacementMap(table)
		l.log.Info("loaded phrase replacement map", "path", l.manifest.PhraseReplacement)
	}
	return nil
}

// reloadUserTables re-parses the user and excluded phrase files and
// swaps both into the facade together.
func (l *Loader) reloadUserTables() error {
	user, err := parsePhraseFile(l.manifest.UserPhrases, lm.ParsePhraseTable)
	if err != nil {
		return fmt.Errorf("load user phrases: %w", err)
	}
	excluded, err := parsePhraseFile(l.manifest.ExcludedPhrases, lm.ParsePhraseTable)
	if err != nil {
		return fmt.Errorf("load excluded phrases: %w", err)
	}
	l.facade.LoadUserPhrases(user, excluded)
	return nil
}

// parsePhraseFile parses path with parse; a missing or empty path
// yields an empty table.
func parsePhraseFile[T any](path string, parse func(r io.Reader) (T, error)) (T, error) {
	var zero T
	if path == "" {
		return zero, nil
	}
	f, err := os.Open(path)
	if err != nil {
		if os.IsNotExist(err) {
			return zero, nil
		}
		return zero, err
	}
	defer f.Close()
	return parse(f)
}

// AddUserPhrase appends a learned (reading, value) pair to the user
// phrase file and reloads the user tables. Called on phrase-marking
// commit.
func (l *Loader) AddUserPhrase(reading, value string) error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.manifest.UserPhrases == "" {
		return fmt.Errorf("no user phrase file configured")
	}

	f, err := os.OpenFile(l.manifest.UserPhrases, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return fmt.Errorf("open user phrases: %w", err)
	}
	_, err = fmt.Fprintf(f, "%s %s\n", value, reading)
	if closeErr := f.Close(); err == nil {
		err = closeErr
	}
	if err != nil {
		return fmt.Errorf("append user phrase: %w", err)
	}

	l.log.Info("added user phrase", "value", value, "reading", reading)
	return l.reloadUserTables()
}

// Watch starts watching the user and excluded phrase files and reloads
// the user tables when either changes. Close stops the watcher.
func (l *Loader) Watch() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher != nil {
		return nil
	}

	paths := make(map[string]struct{})
	for _, p := range []string{l.manifest.UserPhrases, l.manifest.ExcludedPhrases} {
		if p != "" {
			paths[p] = struct{}{}
		}
	}
	if len(paths) == 0 {
		return nil
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("create watcher: %w", err)
	}
	for p := range paths {
		if err := watcher.Add(p); err != nil {
			watcher.Close()
			return fmt.Errorf("watch %s: %w", p, err)
		}
	}

	l.watcher = watcher
	l.done = make(chan struct{})
	go l.watchLoop(watcher, paths, l.done)
	return nil
}

func (l *Loader) watchLoop(watcher *fsnotify.Watcher, paths map[string]struct{}, done chan struct{}) {
	for {
		select {
		case <-done:
			return
		case event, ok := <-watcher.Events:
			if !ok {
				return
			}
			if _, watched := paths[event.Name]; !watched {
				continue
			}
			if event.Op&(fsnotify.Write|fsnotify.Create) == 0 {
				continue
			}
			l.mu.Lock()
			err := l.reloadUserTables()
			l.mu.Unlock()
			if err != nil {
				l.log.Warn("reload user tables", "path", event.Name, "error", err)
				continue
			}
			l.log.Info("reloaded user tables", "path", event.Name)
		case err, ok := <-watcher.Errors:
			if !ok {
				return
			}
			l.log.Warn("watcher error", "error", err)
		}
	}
}

// Close stops the watcher, if started.
func (l *Loader) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()

	if l.watcher == nil {
		return nil
	}
	close(l.done)
	err := l.watcher.Close()
	l.watcher = nil
	return err
}
