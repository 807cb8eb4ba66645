package scripting

import (
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/illarion/server/internal/world"
)

// Host is the world surface scripts may change from inside a hook. Calls
// arrive on the simulation goroutine; the host buffers structural changes
// the same way the passes do.
type Host interface {
	SpawnMonster(race uint16, pos world.Position) (uint32, error)
	KillCharacter(id uint32) bool
	WarpCharacter(id uint32, pos world.Position) bool
	Say(id uint32, text string)
}

// Engine wraps a single gopher-lua VM. Single-goroutine access only (the
// simulation goroutine).
//
// Every .lua file under the scripts directory is a module returning a table
// of functions. A file's module name is its relative path with separators
// replaced by dots, so scripts/monster/rat.lua is "monster.rat".
type Engine struct {
	vm      *lua.LState
	log     *zap.Logger
	modules map[string]*lua.LTable
	host    Host
}

// NewEngine creates a Lua engine and loads every script below scriptsDir.
// A missing directory yields an empty engine.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	e := newEngine(log)
	if err := e.loadDir(scriptsDir); err != nil {
		e.vm.Close()
		return nil, fmt.Errorf("load scripts: %w", err)
	}
	return e, nil
}

func newEngine(log *zap.Logger) *Engine {
	vm := lua.NewState()
	vm.SetGlobal("API_VERSION", lua.LNumber(1))
	e := &Engine{vm: vm, log: log, modules: make(map[string]*lua.LTable)}
	registerCharacterType(vm)
	e.registerWorldAPI()
	return e
}

// loadDir loads all .lua files in a directory tree.
func (e *Engine) loadDir(dir string) error {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		return nil
	}
	return filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() || filepath.Ext(path) != ".lua" {
			return nil
		}
		rel, err := filepath.Rel(dir, path)
		if err != nil {
			return err
		}
		name := strings.ReplaceAll(strings.TrimSuffix(rel, ".lua"), string(filepath.Separator), ".")
		fn, err := e.vm.LoadFile(path)
		if err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		if err := e.install(name, fn); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("module", name), zap.String("file", path))
		return nil
	})
}

// LoadString installs a module from source.
func (e *Engine) LoadString(name, src string) error {
	fn, err := e.vm.LoadString(src)
	if err != nil {
		return fmt.Errorf("load %s: %w", name, err)
	}
	return e.install(name, fn)
}

func (e *Engine) install(name string, chunk *lua.LFunction) error {
	if err := e.vm.CallByParam(lua.P{Fn: chunk, NRet: 1, Protect: true}); err != nil {
		return err
	}
	ret := e.vm.Get(-1)
	e.vm.Pop(1)
	mod, ok := ret.(*lua.LTable)
	if !ok {
		return fmt.Errorf("module %s returned %s, want table", name, ret.Type())
	}
	e.modules[name] = mod
	return nil
}

// SetHost connects the world API exposed to scripts.
func (e *Engine) SetHost(h Host) { e.host = h }

// Has reports whether a module with the given name is loaded.
func (e *Engine) Has(name string) bool {
	_, ok := e.modules[name]
	return ok
}

func (e *Engine) Modules() int { return len(e.modules) }

func (e *Engine) script(name string) *Script {
	return &Script{e: e, name: name, mod: e.modules[name]}
}

// Monster returns the per-race monster script.
func (e *Engine) Monster(name string) (*MonsterScript, error) {
	if !e.Has(name) {
		return nil, fmt.Errorf("monster script %q not loaded", name)
	}
	return &MonsterScript{e.script(name)}, nil
}

// NPC returns the script driving one NPC.
func (e *Engine) NPC(name string) (*NPCScript, error) {
	if !e.Has(name) {
		return nil, fmt.Errorf("npc script %q not loaded", name)
	}
	return &NPCScript{e.script(name)}, nil
}

// Fighting, Learn and Logout return the global scripts. A missing module
// makes every hook a no-op.
func (e *Engine) Fighting() *FightingScript { return &FightingScript{e.script("fighting")} }
func (e *Engine) Learn() *LearnScript       { return &LearnScript{e.script("learn")} }
func (e *Engine) Logout() *LogoutScript     { return &LogoutScript{e.script("logout")} }

func (e *Engine) Close() {
	e.vm.Close()
}

func (e *Engine) registerWorldAPI() {
	api := e.vm.NewTable()
	e.vm.SetFuncs(api, map[string]lua.LGFunction{
		"spawn": func(L *lua.LState) int {
			if e.host == nil {
				L.Push(lua.LNil)
				return 1
			}
			race := uint16(L.CheckInt(1))
			pos := world.Position{X: int16(L.CheckInt(2)), Y: int16(L.CheckInt(3)), Z: int16(L.CheckInt(4))}
			id, err := e.host.SpawnMonster(race, pos)
			if err != nil {
				L.Push(lua.LNil)
				L.Push(lua.LString(err.Error()))
				return 2
			}
			L.Push(lua.LNumber(id))
			return 1
		},
		"kill": func(L *lua.LState) int {
			ok := e.host != nil && e.host.KillCharacter(uint32(L.CheckInt(1)))
			L.Push(lua.LBool(ok))
			return 1
		},
		"warp": func(L *lua.LState) int {
			pos := world.Position{X: int16(L.CheckInt(2)), Y: int16(L.CheckInt(3)), Z: int16(L.CheckInt(4))}
			ok := e.host != nil && e.host.WarpCharacter(uint32(L.CheckInt(1)), pos)
			L.Push(lua.LBool(ok))
			return 1
		},
		"say": func(L *lua.LState) int {
			if e.host != nil {
				e.host.Say(uint32(L.CheckInt(1)), L.CheckString(2))
			}
			return 0
		},
		"log": func(L *lua.LState) int {
			e.log.Info("script", zap.String("msg", L.CheckString(1)))
			return 0
		},
	})
	e.vm.SetGlobal("world", api)
}
