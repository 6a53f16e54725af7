package plugins

// EnablePlugin marks inst enabled and runs its OnEnable hook.
// Enabling an enabled plugin does nothing.
func (l *baseLoader) EnablePlugin(inst *Instance) {
	changed := inst.setEnabled(true, func() {
		inst.Logger().Infof("Enabling %s", inst.Description().FullName())
	})
	if changed && l.observer != nil {
		l.observer.PluginTransitioned(inst.Name(), true)
	}
}

// DisablePlugin marks inst disabled and runs its OnDisable hook.
// Disabling a disabled plugin does nothing.
func (l *baseLoader) DisablePlugin(inst *Instance) {
	changed := inst.setEnabled(false, func() {
		inst.Logger().Infof("Disabling %s", inst.Description().FullName())
	})
	if changed && l.observer != nil {
		l.observer.PluginTransitioned(inst.Name(), false)
	}
}
