package config

import "reflect"

// ConfigDiff describes what changed between two configs. The log level can be
// hot-reloaded; every other change needs a restart to take effect, so the
// watcher only warns about them.
type ConfigDiff struct {
	LogLevelChanged bool
	NewLogLevel     LogLevel

	ListenAddrChanged bool
	StoreChanged      bool
	GeneratorChanged  bool
	PracticeChanged   bool
	BridgesChanged    bool

	LanguagesChanged bool
	LanguageChanges  []LanguageDiff // per-language diffs
}

// LanguageDiff describes what changed for a single language between two
// configs.
type LanguageDiff struct {
	Code     string
	Added    bool
	Removed  bool
	Modified bool
}

// Changed reports whether the diff contains any change at all.
func (d ConfigDiff) Changed() bool {
	return d.LogLevelChanged || d.ListenAddrChanged || d.StoreChanged ||
		d.GeneratorChanged || d.PracticeChanged || d.BridgesChanged ||
		d.LanguagesChanged
}

// Fields lists the names of the changed config sections, for logging.
func (d ConfigDiff) Fields() []string {
	var out []string
	if d.LogLevelChanged {
		out = append(out, "server.log_level")
	}
	if d.ListenAddrChanged {
		out = append(out, "server.listen_addr")
	}
	if d.StoreChanged {
		out = append(out, "store")
	}
	if d.GeneratorChanged {
		out = append(out, "generator")
	}
	if d.PracticeChanged {
		out = append(out, "practice")
	}
	if d.BridgesChanged {
		out = append(out, "bridges")
	}
	if d.LanguagesChanged {
		out = append(out, "languages")
	}
	return out
}

// Diff compares old and new configs and returns what changed.
func Diff(old, new *Config) ConfigDiff {
	d := ConfigDiff{}

	if old.Server.LogLevel != new.Server.LogLevel {
		d.LogLevelChanged = true
		d.NewLogLevel = new.Server.LogLevel
	}
	if old.Server.ListenAddr != new.Server.ListenAddr {
		d.ListenAddrChanged = true
	}
	if old.Store != new.Store {
		d.StoreChanged = true
	}
	if !reflect.DeepEqual(old.Generator, new.Generator) {
		d.GeneratorChanged = true
	}
	if !reflect.DeepEqual(old.Practice, new.Practice) {
		d.PracticeChanged = true
	}
	if !reflect.DeepEqual(old.Bridges, new.Bridges) {
		d.BridgesChanged = true
	}

	// Build language lookup maps keyed by code.
	oldLangs := make(map[string]*Language, len(old.Languages))
	for i := range old.Languages {
		oldLangs[old.Languages[i].Code] = &old.Languages[i]
	}
	newLangs := make(map[string]*Language, len(new.Languages))
	for i := range new.Languages {
		newLangs[new.Languages[i].Code] = &new.Languages[i]
	}

	// Detect modified and removed languages.
	for code, oldLang := range oldLangs {
		newLang, exists := newLangs[code]
		if !exists {
			d.LanguageChanges = append(d.LanguageChanges, LanguageDiff{Code: code, Removed: true})
			d.LanguagesChanged = true
			continue
		}
		if !reflect.DeepEqual(*oldLang, *newLang) {
			d.LanguageChanges = append(d.LanguageChanges, LanguageDiff{Code: code, Modified: true})
			d.LanguagesChanged = true
		}
	}

	// Detect added languages.
	for code := range newLangs {
		if _, exists := oldLangs[code]; !exists {
			d.LanguageChanges = append(d.LanguageChanges, LanguageDiff{Code: code, Added: true})
			d.LanguagesChanged = true
		}
	}

	return d
}
