// bopokit is a line-driven driver for the decoding core: it loads the
// configured dictionaries, then reads keystroke lines from stdin and
// prints the resulting state transitions.
//
// Each character on a line is one key; angle-bracket tokens name the
// special keys: <enter> <esc> <bs> <del> <left> <right> <home> <end>
// and their shifted forms <s-left> <s-right> <s-home> <s-end>. While a
// candidate list is open, a line holding only a number selects that
// candidate and "!" cancels the list.
package main

import (
	"bufio"
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"bopokit/internal/config"
	"bopokit/internal/engine"
	"bopokit/internal/lm"
	"bopokit/internal/loader"
	"bopokit/internal/logging"
	"bopokit/internal/mandarin"
	"bopokit/internal/override"
	"bopokit/internal/store"
)

var configPath = flag.String("config", "", "path to config file")

func main() {
	flag.Parse()
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, "bopokit:", err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.DefaultConfig()
	if *configPath != "" {
		loaded, err := config.Load(*configPath)
		if err != nil {
			return err
		}
		cfg = loaded
	}

	logging.Init(logging.Config{
		Level:  logging.ParseLevel(cfg.Logging.Level),
		Format: logging.ParseFormat(cfg.Logging.Format),
	})
	log := logging.Component("bopokit")

	facade := lm.NewFacade()
	facade.SetPhraseReplacementEnabled(cfg.Features.PhraseReplacementEnabled)
	facade.SetExternalConverterEnabled(cfg.Features.ExternalConverterEnabled)

	var dictLoader *loader.Loader
	if cfg.Dictionaries.ManifestPath != "" {
		manifest, err := loader.LoadManifest(cfg.Dictionaries.ManifestPath)
		if err != nil {
			return err
		}
		dictLoader = loader.New(facade, manifest, logging.Component("loader"))
		if err := dictLoader.Load(); err != nil {
			return err
		}
		if err := dictLoader.Watch(); err != nil {
			return err
		}
		defer dictLoader.Close()
	}

	overrides := override.NewModel(override.DefaultCapacity, override.DefaultHalfLife)
	if cfg.Store.Enabled {
		s, err := store.Open(cfg.Store.Path)
		if err != nil {
			return err
		}
		defer func() {
			if err := s.SaveObservations(overrides.Export()); err != nil {
				log.Warn("save overrides", "error", err)
			}
			s.Close()
		}()

		records, err := s.LoadObservations()
		if err != nil {
			return err
		}
		overrides.Import(records)
		log.Info("loaded override observations", "count", len(records))
	}

	var phrases engine.PhraseAdder
	if dictLoader != nil {
		phrases = dictLoader
	}
	handler := engine.NewHandler(facade, phrases, overrides)
	handler.SetKeyboardLayout(mandarin.LayoutNamed(cfg.Keyboard.Layout))
	handler.SetSelectPhraseAfterCursorAsCandidate(cfg.SelectPhraseAfterCursor())
	handler.SetMoveCursorAfterSelection(cfg.Candidates.MoveCursorAfterSelection)
	handler.SetLogger(logging.Component("engine"))

	repl(handler)
	return nil
}

func repl(handler *engine.Handler) {
	var state engine.State = engine.Empty{}
	scanner := bufio.NewScanner(os.Stdin)
	for scanner.Scan() {
		line := scanner.Text()

		if choosing, ok := state.(engine.ChoosingCandidate); ok {
			if line == "!" {
				state = apply(handler.CandidatePanelCancelled(), state)
				continue
			}
			if idx, err := strconv.Atoi(strings.TrimSpace(line)); err == nil {
				if idx < 0 || idx >= len(choosing.Candidates) {
					fmt.Printf("no candidate %d\n", idx)
					continue
				}
				state = apply(handler.CandidateSelected(choosing.Candidates[idx]), state)
				continue
			}
		}

		for _, key := range parseKeys(line) {
			result := handler.Handle(key, state)
			if !result.Absorbed {
				fmt.Printf("passed through: %q\n", key.Char)
				continue
			}
			state = apply(result, state)
		}
	}
}

// apply prints each emitted state and returns the last one as the
// current state. Committing resets the session back to Empty.
func apply(result engine.Result, state engine.State) engine.State {
	if result.Error {
		fmt.Println("(error signal)")
	}
	for _, s := range result.States {
		state = s
		switch v := s.(type) {
		case engine.Empty:
			fmt.Println("[empty]")
		case engine.EmptyIgnoringPrevious:
			fmt.Println("[empty, cleared]")
		case engine.Committing:
			fmt.Printf("commit: %s\n", v.Text)
			state = engine.Empty{}
		case engine.Inputting:
			if v.EvictedText != "" {
				fmt.Printf("evicted: %s\n", v.EvictedText)
			}
			fmt.Printf("composing: %s (cursor %d)\n", v.ComposingBuffer, v.CursorIndex)
			if v.Tooltip != "" {
				fmt.Printf("  %s\n", v.Tooltip)
			}
		case engine.ChoosingCandidate:
			fmt.Printf("candidates for %s:\n", v.ComposingBuffer)
			for i, c := range v.Candidates {
				fmt.Printf("  %d: %s\n", i, c)
			}
		case engine.Marking:
			fmt.Printf("marking: %s [%s] %s\n", v.Head, v.MarkedText, v.Tail)
			fmt.Printf("  %s\n", v.Tooltip)
		}
	}
	return state
}

func parseKeys(line string) []engine.Key {
	named := map[string]engine.Key{
		"enter":   engine.NamedKey(engine.KeyEnter),
		"esc":     engine.NamedKey(engine.KeyEsc),
		"bs":      engine.NamedKey(engine.KeyBackspace),
		"del":     engine.NamedKey(engine.KeyDelete),
		"left":    engine.NamedKey(engine.KeyLeft),
		"right":   engine.NamedKey(engine.KeyRight),
		"home":    engine.NamedKey(engine.KeyHome),
		"end":     engine.NamedKey(engine.KeyEnd),
		"s-left":  engine.NamedKey(engine.KeyLeft).WithShift(),
		"s-right": engine.NamedKey(engine.KeyRight).WithShift(),
		"s-home":  engine.NamedKey(engine.KeyHome).WithShift(),
		"s-end":   engine.NamedKey(engine.KeyEnd).WithShift(),
	}

	var keys []engine.Key
	runes := []rune(line)
	for i := 0; i < len(runes); i++ {
		if runes[i] == '<' {
			if end := strings.IndexRune(string(runes[i:]), '>'); end > 0 {
				token := string(runes[i+1 : i+end])
				if key, ok := named[token]; ok {
					keys = append(keys, key)
					i += end
					continue
				}
			}
		}
		keys = append(keys, engine.CharKey(runes[i]))
	}
	return keys
}
