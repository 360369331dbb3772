package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/peterkuimelis/gomori/internal/game"
)

// Player kinds.
const (
	KindBuiltin   = "builtin"   // in-process strategy by name
	KindLua       = "lua"       // in-process Lua script
	KindCmd       = "cmd"       // child process speaking the protocol on stdio
	KindTCP       = "tcp"       // bot dialling in over TCP
	KindWebsocket = "websocket" // bot dialling in over a websocket
)

// File represents the top-level YAML structure.
type File struct {
	Seed    int64      `yaml:"seed"` // 0 for random
	Rules   game.Rules `yaml:"rules"`
	Players [2]Player  `yaml:"players"`
	Log     Log        `yaml:"log"`
}

// Player describes one side of the match. Which fields matter depends on
// Kind.
type Player struct {
	Nick         string   `yaml:"nick"`
	Kind         string   `yaml:"kind"`
	Strategy     string   `yaml:"strategy"`      // builtin
	Script       string   `yaml:"script"`        // lua
	CardCounting bool     `yaml:"card_counting"` // builtin, lua
	Cmd          []string `yaml:"cmd"`           // cmd: argv
	Addr         string   `yaml:"addr"`          // tcp, websocket: listen address
}

type Log struct {
	Level  string `yaml:"level"`  // zap level name
	Events string `yaml:"events"` // "text", "zap" or "off"
}

// Default returns the configuration used when no file is given: two
// built-in bots on the default rules.
func Default() File {
	return File{
		Rules: game.DefaultRules(),
		Players: [2]Player{
			{Nick: "greedy", Kind: KindBuiltin, Strategy: "greedy"},
			{Nick: "random", Kind: KindBuiltin, Strategy: "random"},
		},
		Log: Log{Level: "info", Events: "text"},
	}
}

// Load reads a YAML config file. Fields it leaves out keep their defaults.
func Load(path string) (File, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return File{}, err
	}
	return Parse(data)
}

func Parse(data []byte) (File, error) {
	f := Default()
	f.Players = [2]Player{}
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("parse config YAML: %w", err)
	}
	if err := f.Validate(); err != nil {
		return File{}, err
	}
	return f, nil
}

func (f File) Validate() error {
	errs := []error{f.Rules.Validate()}
	for i, p := range f.Players {
		if err := p.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("players[%d]: %w", i, err))
		}
	}
	switch f.Log.Events {
	case "text", "zap", "off":
	default:
		errs = append(errs, fmt.Errorf("log.events must be text, zap or off, got %q", f.Log.Events))
	}
	return errors.Join(errs...)
}

func (p Player) Validate() error {
	if p.Nick == "" {
		return errors.New("nick is required")
	}
	switch p.Kind {
	case KindBuiltin:
		if p.Strategy == "" {
			return errors.New("builtin player needs a strategy")
		}
	case KindLua:
		if p.Script == "" {
			return errors.New("lua player needs a script")
		}
	case KindCmd:
		if len(p.Cmd) == 0 {
			return errors.New("cmd player needs a non-empty cmd")
		}
	case KindTCP, KindWebsocket:
		if p.Addr == "" {
			return fmt.Errorf("%s player needs an addr to listen on", p.Kind)
		}
	case "":
		return errors.New("kind is required")
	default:
		return fmt.Errorf("unknown kind %q", p.Kind)
	}
	return nil
}
