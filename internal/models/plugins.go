package models

import (
	"encoding/json"
	"strings"
)

type Plugin struct {
	Name    string `json:"name"`
	Version string `json:"version"`
}

// ParsePlugins decodes the serialized plugin column. Empty text and the "-"
// placeholder mean no plugins; legacy free text becomes a single unversioned entry.
func ParsePlugins(text string) []Plugin {
	t := strings.TrimSpace(text)
	if t == "" || t == "-" {
		return nil
	}
	if !strings.HasPrefix(t, "[") {
		return []Plugin{{Name: t, Version: "-"}}
	}
	var out []Plugin
	if err := json.Unmarshal([]byte(t), &out); err != nil {
		return nil
	}
	return out
}

func EncodePlugins(list []Plugin) string {
	if len(list) == 0 {
		return "[]"
	}
	b, err := json.Marshal(list)
	if err != nil {
		return "[]"
	}
	return string(b)
}
