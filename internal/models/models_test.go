package models

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestParsePlugins(t *testing.T) {
	tests := []struct {
		name string
		text string
		want []Plugin
	}{
		{"empty", "", nil},
		{"placeholder", "-", nil},
		{"json", `[{"name":"akismet","version":"5.3"},{"name":"yoast","version":"22.1"}]`,
			[]Plugin{{Name: "akismet", Version: "5.3"}, {Name: "yoast", Version: "22.1"}}},
		{"legacy text", "Elementor", []Plugin{{Name: "Elementor", Version: "-"}}},
		{"broken json", "[{", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ParsePlugins(tt.text))
		})
	}
}

func TestEncodePluginsKeepsOrder(t *testing.T) {
	list := []Plugin{{Name: "b", Version: "2"}, {Name: "a", Version: "1"}}
	assert.Equal(t, list, ParsePlugins(EncodePlugins(list)))
	assert.Equal(t, "[]", EncodePlugins(nil))
}

func TestNormalizeURL(t *testing.T) {
	assert.Equal(t, "https://example.com", NormalizeURL("example.com"))
	assert.Equal(t, "http://example.com", NormalizeURL("http://example.com"))
	assert.Equal(t, "", NormalizeURL("  "))
}

func TestSiteLatestAndPrevious(t *testing.T) {
	var s Site
	assert.Nil(t, s.Latest())
	assert.Nil(t, s.Previous())

	s.Logs = []MaintenanceLog{{ID: "new"}, {ID: "old"}}
	assert.Equal(t, "new", s.Latest().ID)
	assert.Equal(t, "old", s.Previous().ID)
}
