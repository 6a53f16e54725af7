package host

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/sirupsen/logrus"

	"github.com/platinummonkey/cornerstone/pkg/plugins"
)

// Command dispatch outcomes reported to a CommandRecorder
const (
	CommandStatusOK        = "ok"
	CommandStatusUnhandled = "unhandled"
	CommandStatusError     = "error"
	CommandStatusUnknown   = "unknown"
	CommandStatusDisabled  = "disabled"
)

// CommandRecorder receives the outcome of every dispatched command
type CommandRecorder interface {
	RecordCommand(command, status string)
}

type commandEntry struct {
	owner   *plugins.Instance
	command plugins.Command
}

// CommandMap routes command lines to the plugins that declared them
type CommandMap struct {
	logger   *logrus.Entry
	recorder CommandRecorder

	mu     sync.RWMutex
	labels map[string]commandEntry
}

// NewCommandMap creates an empty command map. recorder may be nil.
func NewCommandMap(logger *logrus.Entry, recorder CommandRecorder) *CommandMap {
	if logger == nil {
		logger = logrus.NewEntry(logrus.StandardLogger())
	}
	return &CommandMap{
		logger:   logger,
		recorder: recorder,
		labels:   make(map[string]commandEntry),
	}
}

// Register adds every command declared by inst under its name, its aliases
// and "<plugin>:<name>". Labels are case-insensitive; the first plugin to
// claim a label keeps it.
func (c *CommandMap) Register(inst *plugins.Instance) {
	desc := inst.Description()
	prefix := strings.ToLower(desc.Name())

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, cmd := range desc.Commands() {
		labels := append([]string{cmd.Name, prefix + ":" + cmd.Name}, cmd.Aliases...)
		for _, label := range labels {
			label = strings.ToLower(label)
			if existing, ok := c.labels[label]; ok {
				if existing.owner != inst {
					c.logger.Warnf("Command /%s of %s is already registered by %s",
						label, desc.FullName(), existing.owner.Description().FullName())
				}
				continue
			}
			c.labels[label] = commandEntry{owner: inst, command: cmd}
		}
	}
}

// Unregister removes every label owned by inst
func (c *CommandMap) Unregister(inst *plugins.Instance) {
	c.mu.Lock()
	defer c.mu.Unlock()

	for label, e := range c.labels {
		if e.owner == inst {
			delete(c.labels, label)
		}
	}
}

// Lookup returns the owner and declaration for label
func (c *CommandMap) Lookup(label string) (*plugins.Instance, plugins.Command, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	e, ok := c.labels[strings.ToLower(label)]
	return e.owner, e.command, ok
}

// Labels returns every registered label, sorted
func (c *CommandMap) Labels() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	result := make([]string, 0, len(c.labels))
	for label := range c.labels {
		result = append(result, label)
	}
	sort.Strings(result)
	return result
}

// Dispatch runs a command line such as "/hello world" on behalf of sender.
// When the plugin reports the command unhandled its usages are sent back.
func (c *CommandMap) Dispatch(sender plugins.CommandSender, line string) error {
	fields := strings.Fields(strings.TrimPrefix(strings.TrimSpace(line), "/"))
	if len(fields) == 0 {
		return ErrEmptyCommand
	}
	label := strings.ToLower(fields[0])
	args := fields[1:]

	owner, cmd, ok := c.Lookup(label)
	if !ok {
		c.record(label, CommandStatusUnknown)
		return fmt.Errorf("%w: %s", ErrUnknownCommand, label)
	}
	if !owner.IsEnabled() {
		c.record(cmd.Name, CommandStatusDisabled)
		return fmt.Errorf("%w: %s", ErrPluginDisabled, owner.Description().FullName())
	}

	handled, err := owner.Command(sender, cmd, label, args)
	if err != nil {
		c.record(cmd.Name, CommandStatusError)
		c.logger.WithError(err).Errorf("Unhandled exception executing command '%s' in plugin %s",
			line, owner.Description().FullName())
		return fmt.Errorf("command %s: %w", label, err)
	}

	if !handled {
		c.record(cmd.Name, CommandStatusUnhandled)
		usages := cmd.Usages
		if len(usages) == 0 {
			usages = []string{"/" + cmd.Name}
		}
		for _, usage := range usages {
			sender.SendMessage("Usage: " + usage)
		}
		return nil
	}

	c.record(cmd.Name, CommandStatusOK)
	return nil
}

func (c *CommandMap) record(command, status string) {
	if c.recorder != nil {
		c.recorder.RecordCommand(command, status)
	}
}
