package config

import "reflect"

// ConfigDiff describes what changed between two configs.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	// AssessmentChanged is set when assessment defaults changed. They apply
	// to sessions started after the reload.
	AssessmentChanged bool

	// ContentChanged is set when content scorer tuning changed.
	ContentChanged bool

	// RestartRequired lists changed sections that only take effect after a
	// restart.
	RestartRequired []string
}

// Empty reports whether nothing changed.
func (d ConfigDiff) Empty() bool {
	return !d.LogLevelChanged && !d.AssessmentChanged && !d.ContentChanged && len(d.RestartRequired) == 0
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	d.AssessmentChanged = !assessmentEqual(old.Assessment, new.Assessment)
	d.ContentChanged = old.Content != new.Content

	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.RestartRequired = append(d.RestartRequired, "server.listen_addr")
	}
	if !reflect.DeepEqual(old.Providers, new.Providers) {
		d.RestartRequired = append(d.RestartRequired, "providers")
	}
	if old.Store != new.Store {
		d.RestartRequired = append(d.RestartRequired, "store")
	}
	if old.Telemetry != new.Telemetry {
		d.RestartRequired = append(d.RestartRequired, "telemetry")
	}
	return d
}

func assessmentEqual(a, b AssessmentConfig) bool {
	return a.Language == b.Language &&
		a.MiscueEnabled() == b.MiscueEnabled() &&
		a.Differ == b.Differ &&
		a.HintsEnabled() == b.HintsEnabled() &&
		a.PhoneticThreshold == b.PhoneticThreshold &&
		a.Concurrency == b.Concurrency
}
