package scripting

import (
	"fmt"
	"os"
	"path/filepath"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/tim-ings/mmo/internal/core/event"
	"github.com/tim-ings/mmo/internal/entity"
)

// Engine wraps a single gopher-lua VM running UI scripts. Hooks are called
// from the event dispatch phase of the game loop only.
type Engine struct {
	vm    *lua.LState
	calls map[string]int
	log   *zap.Logger
}

// NewEngine creates a Lua engine and loads every script in dir, then in
// dir/ui.
func NewEngine(scriptsDir string, log *zap.Logger) (*Engine, error) {
	vm := lua.NewState(lua.Options{
		SkipOpenLibs: false,
	})
	vm.SetGlobal("API_VERSION", lua.LNumber(1))

	e := &Engine{vm: vm, calls: make(map[string]int), log: log}
	e.registerAPI()

	for _, dir := range []string{scriptsDir, filepath.Join(scriptsDir, "ui")} {
		if err := e.loadDir(dir); err != nil {
			vm.Close()
			return nil, fmt.Errorf("load scripts: %w", err)
		}
	}
	return e, nil
}

// loadDir loads all .lua files in a directory.
func (e *Engine) loadDir(dir string) error {
	entries, err := os.ReadDir(dir)
	if err != nil {
		if os.IsNotExist(err) {
			return nil // skip missing dirs
		}
		return err
	}
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".lua" {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		if err := e.vm.DoFile(path); err != nil {
			return fmt.Errorf("load %s: %w", path, err)
		}
		e.log.Debug("loaded lua script", zap.String("file", path))
	}
	return nil
}

// DoString runs a chunk of Lua, used by tests and the debug console.
func (e *Engine) DoString(src string) error {
	return e.vm.DoString(src)
}

func (e *Engine) registerAPI() {
	e.vm.SetGlobal("log_info", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Info("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
	e.vm.SetGlobal("log_warn", e.vm.NewFunction(func(L *lua.LState) int {
		e.log.Warn("lua", zap.String("msg", L.CheckString(1)))
		return 0
	}))
}

// Bind subscribes the script hooks to lifecycle events.
func (e *Engine) Bind(bus *event.Bus) {
	event.Subscribe(bus, func(ev event.EntityAdded) {
		e.call("on_entity_added", lua.LString(ev.Kind), lua.LString(ev.ID), e.describe(ev.Entity))
	})
	event.Subscribe(bus, func(ev event.EntityRemoved) {
		e.call("on_entity_removed", lua.LString(ev.Kind), lua.LString(ev.ID))
	})
	event.Subscribe(bus, func(ev event.GroundItemAdded) {
		e.call("on_ground_item_added", lua.LString(ev.ID), e.describe(ev.Item))
	})
	event.Subscribe(bus, func(ev event.GroundItemRemoved) {
		e.call("on_ground_item_removed", lua.LString(ev.ID))
	})
	event.Subscribe(bus, func(ev event.TickAdvanced) {
		e.call("on_tick", lua.LNumber(ev.Tick))
	})
	event.Subscribe(bus, func(ev event.ChunkLoaded) {
		e.call("on_chunk_loaded", lua.LNumber(ev.ID))
	})
	event.Subscribe(bus, func(ev event.ChunkEvicted) {
		e.call("on_chunk_evicted", lua.LNumber(ev.ID))
	})
}

// call invokes a global Lua function if the scripts define it. Script
// errors are logged, never propagated.
func (e *Engine) call(name string, args ...lua.LValue) {
	fn := e.vm.GetGlobal(name)
	if fn == lua.LNil {
		return
	}
	e.calls[name]++
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    0,
		Protect: true,
	}, args...); err != nil {
		e.log.Error("lua hook error", zap.String("hook", name), zap.Error(err))
	}
}

// Calls reports how many times a hook has been invoked.
func (e *Engine) Calls(name string) int { return e.calls[name] }

// describe packs the fields scripts care about into a table.
func (e *Engine) describe(v any) *lua.LTable {
	t := e.vm.NewTable()
	switch x := v.(type) {
	case *entity.Unit:
		d := x.Def()
		t.RawSetString("name", lua.LString(d.Name))
		t.RawSetString("level", lua.LNumber(d.Level))
		t.RawSetString("health", lua.LNumber(d.Health))
		t.RawSetString("max_health", lua.LNumber(d.MaxHealth))
		t.RawSetString("x", lua.LNumber(d.Position.X))
		t.RawSetString("y", lua.LNumber(d.Position.Y))
	case *entity.Player:
		d := x.Def()
		t.RawSetString("name", lua.LString(d.Name))
		t.RawSetString("level", lua.LNumber(d.Level))
		t.RawSetString("race", lua.LNumber(d.Race))
		t.RawSetString("health", lua.LNumber(d.Health))
		t.RawSetString("max_health", lua.LNumber(d.MaxHealth))
		t.RawSetString("x", lua.LNumber(d.Position.X))
		t.RawSetString("y", lua.LNumber(d.Position.Y))
	case *entity.GroundItem:
		d := x.Def()
		t.RawSetString("name", lua.LString(d.Name))
		t.RawSetString("item_id", lua.LNumber(d.ItemID))
		t.RawSetString("count", lua.LNumber(d.Count))
		t.RawSetString("x", lua.LNumber(d.Position.X))
		t.RawSetString("y", lua.LNumber(d.Position.Y))
	}
	return t
}

// Nameplate asks format_nameplate for an entity's label, falling back to
// "name (level)".
func (e *Engine) Nameplate(kind event.EntityKind, name string, level int) string {
	fallback := fmt.Sprintf("%s (%d)", name, level)
	fn := e.vm.GetGlobal("format_nameplate")
	if fn == lua.LNil {
		return fallback
	}
	if err := e.vm.CallByParam(lua.P{
		Fn:      fn,
		NRet:    1,
		Protect: true,
	}, lua.LString(kind), lua.LString(name), lua.LNumber(level)); err != nil {
		e.log.Error("lua format_nameplate error", zap.Error(err))
		return fallback
	}
	result := e.vm.Get(-1)
	e.vm.Pop(1)
	s, ok := result.(lua.LString)
	if !ok {
		return fallback
	}
	return string(s)
}

// GetGlobalNumber reads a numeric global, 0 if unset.
func (e *Engine) GetGlobalNumber(name string) float64 {
	return float64(lua.LVAsNumber(e.vm.GetGlobal(name)))
}

// Close shuts down the Lua VM.
func (e *Engine) Close() {
	e.vm.Close()
}
