package plugins

import (
	"context"
	"strings"

	"github.com/sirupsen/logrus"
	lua "github.com/yuin/gopher-lua"

	"github.com/platinummonkey/cornerstone/pkg/plugins/script"
)

// ScriptPlugin adapts a Lua object to the Plugin interface.
type ScriptPlugin struct {
	runtime *script.Runtime
	module  *script.Module
	object  *lua.LTable
}

var _ Plugin = (*ScriptPlugin)(nil)

// Module returns the module the entry point was loaded from
func (p *ScriptPlugin) Module() *script.Module {
	return p.module
}

// Object returns the Lua object backing the plugin
func (p *ScriptPlugin) Object() *lua.LTable {
	return p.object
}

func (p *ScriptPlugin) OnLoad() error    { return p.call("on_load") }
func (p *ScriptPlugin) OnEnable() error  { return p.call("on_enable") }
func (p *ScriptPlugin) OnDisable() error { return p.call("on_disable") }

// OnCommand calls self:on_command(sender, command, label, args)
func (p *ScriptPlugin) OnCommand(sender CommandSender, command Command, label string, args []string) (bool, error) {
	var handled bool
	err := p.runtime.Do(context.Background(), func(L *lua.LState) error {
		ret, err := script.CallMethod(L, p.object, "on_command",
			senderTable(L, sender),
			luaCommandTable(L, command),
			lua.LString(label),
			script.StringList(L, args),
		)
		if err != nil {
			return err
		}
		handled = lua.LVAsBool(ret)
		return nil
	})
	return handled, err
}

func (p *ScriptPlugin) call(method string) error {
	return p.runtime.Do(context.Background(), func(L *lua.LState) error {
		_, err := script.CallMethod(L, p.object, method)
		return err
	})
}

// bind exposes description, logger and server on the Lua object.
// Called by Instance.Bind with the instance lock held.
func (p *ScriptPlugin) bind(inst *Instance) error {
	desc, logger, server := inst.description, inst.logger, inst.server

	return p.runtime.Do(context.Background(), func(L *lua.LState) error {
		p.object.RawSetString("description", descriptionTable(L, desc))
		p.object.RawSetString("logger", loggerTable(L, logger))
		p.object.RawSetString("server", serverTable(L, server))
		return nil
	})
}

func descriptionTable(L *lua.LState, d *Description) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(d.Name()))
	t.RawSetString("version", lua.LString(d.Version()))
	t.RawSetString("main", lua.LString(d.Main()))
	t.RawSetString("full_name", lua.LString(d.FullName()))
	t.RawSetString("description", lua.LString(d.Description()))
	t.RawSetString("website", lua.LString(d.Website()))
	t.RawSetString("prefix", lua.LString(d.Prefix()))
	t.RawSetString("authors", script.StringList(L, d.Authors()))
	t.RawSetString("depend", script.StringList(L, d.Depend()))
	return t
}

// loggerTable supports both logger:info(...) and logger.info(...).
func loggerTable(L *lua.LState, entry *logrus.Entry) *lua.LTable {
	t := L.NewTable()
	levels := map[string]logrus.Level{
		"debug": logrus.DebugLevel,
		"info":  logrus.InfoLevel,
		"warn":  logrus.WarnLevel,
		"error": logrus.ErrorLevel,
	}
	for name, level := range levels {
		t.RawSetString(name, L.NewFunction(func(L *lua.LState) int {
			parts := make([]string, 0, L.GetTop())
			for i := firstArg(L, t); i <= L.GetTop(); i++ {
				parts = append(parts, L.Get(i).String())
			}
			entry.Log(level, strings.Join(parts, " "))
			return 0
		}))
	}
	return t
}

func serverTable(L *lua.LState, server Server) *lua.LTable {
	t := L.NewTable()
	if server == nil {
		return t
	}
	t.RawSetString("name", lua.LString(server.Name()))
	t.RawSetString("version", lua.LString(server.Version()))
	return t
}

func senderTable(L *lua.LState, sender CommandSender) *lua.LTable {
	t := L.NewTable()
	if sender == nil {
		return t
	}
	t.RawSetString("name", lua.LString(sender.Name()))
	t.RawSetString("send_message", L.NewFunction(func(L *lua.LState) int {
		sender.SendMessage(L.CheckString(firstArg(L, t)))
		return 0
	}))
	return t
}

func luaCommandTable(L *lua.LState, c Command) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("name", lua.LString(c.Name))
	t.RawSetString("description", lua.LString(c.Description))
	t.RawSetString("usages", script.StringList(L, c.Usages))
	t.RawSetString("aliases", script.StringList(L, c.Aliases))
	return t
}

// firstArg skips self when a table function was called with colon syntax.
func firstArg(L *lua.LState, self *lua.LTable) int {
	if L.GetTop() >= 1 && L.Get(1) == lua.LValue(self) {
		return 2
	}
	return 1
}
