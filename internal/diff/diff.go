// Package diff compares the two newest maintenance snapshots of a site.
package diff

import "go-maintdash/internal/models"

type PluginChange struct {
	Name string `json:"name"`
	From string `json:"from"`
	To   string `json:"to"`
}

// Plugins lists version changes of plugins present in both lists, in the order
// of current. Each current plugin is matched against the first previous entry
// with the same name; additions and removals are not reported.
func Plugins(current, previous []models.Plugin) []PluginChange {
	changes := []PluginChange{}
	if len(previous) == 0 {
		return changes
	}
	for _, cur := range current {
		prev, ok := find(previous, cur.Name)
		if ok && prev.Version != cur.Version {
			changes = append(changes, PluginChange{Name: cur.Name, From: prev.Version, To: cur.Version})
		}
	}
	return changes
}

// Added lists plugins of current that previous does not contain. Without a
// previous snapshot nothing counts as added.
func Added(current, previous []models.Plugin) []models.Plugin {
	added := []models.Plugin{}
	if len(previous) == 0 {
		return added
	}
	for _, cur := range current {
		if _, ok := find(previous, cur.Name); !ok {
			added = append(added, cur)
		}
	}
	return added
}

func find(list []models.Plugin, name string) (models.Plugin, bool) {
	for _, p := range list {
		if p.Name == name {
			return p, true
		}
	}
	return models.Plugin{}, false
}

// Version is a scalar field shown either plain or as "previous → current".
type Version struct {
	Current  string `json:"current"`
	Previous string `json:"previous,omitempty"`
	Changed  bool   `json:"changed"`
}

// CompareVersion treats an empty previous as absent.
func CompareVersion(current, previous string) Version {
	if previous == "" || previous == current {
		return Version{Current: current}
	}
	return Version{Current: current, Previous: previous, Changed: true}
}

func (v Version) String() string {
	if !v.Changed {
		return v.Current
	}
	return v.Previous + " → " + v.Current
}

type LogDiff struct {
	AppVersion   Version         `json:"appVersion"`
	PHPVersion   Version         `json:"phpVersion"`
	DBVersion    Version         `json:"dbVersion"`
	NginxVersion Version         `json:"nginxVersion"`
	Plugins      []PluginChange  `json:"plugins"`
	Added        []models.Plugin `json:"added"`
}

func Compare(current, previous *models.MaintenanceLog) LogDiff {
	if current == nil {
		return LogDiff{Plugins: []PluginChange{}, Added: []models.Plugin{}}
	}
	var prev models.MaintenanceLog
	if previous != nil {
		prev = *previous
	}
	return LogDiff{
		AppVersion:   CompareVersion(current.AppVersion, prev.AppVersion),
		PHPVersion:   CompareVersion(current.PHPVersion, prev.PHPVersion),
		DBVersion:    CompareVersion(current.DBVersion, prev.DBVersion),
		NginxVersion: CompareVersion(current.NginxVersion, prev.NginxVersion),
		Plugins:      Plugins(current.Plugins, prev.Plugins),
		Added:        Added(current.Plugins, prev.Plugins),
	}
}
