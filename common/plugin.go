package common

import (
	"sync"

	"github.com/sirupsen/logrus"
)

type PluginCategory struct {
	Name  string
	Order int
}

var (
	PluginCategoryCore = &PluginCategory{Name: "Core", Order: 0}
	PluginCategoryMisc = &PluginCategory{Name: "Misc", Order: 100}
)

type PluginInfo struct {
	Name     string // Human readable name of the plugin
	SysName  string // snake_case version of the name in lower case
	Category *PluginCategory
}

// Plugin represents a plugin, all plugins needs to implement this at a bare minimum
type Plugin interface {
	PluginInfo() *PluginInfo
}

var (
	plugins   []Plugin
	pluginsMu sync.RWMutex
)

// RegisterPlugin registers a plugin, should be called when the bot is starting up
func RegisterPlugin(p Plugin) {
	pluginsMu.Lock()
	plugins = append(plugins, p)
	pluginsMu.Unlock()

	GetPluginLogger(p).Info("Registered plugin")
}

// Plugins returns a copy of the currently registered plugins
func Plugins() []Plugin {
	pluginsMu.RLock()
	defer pluginsMu.RUnlock()

	out := make([]Plugin, len(plugins))
	copy(out, plugins)
	return out
}

// GetPluginLogger returns a logger entry tagged with the plugins sysname
func GetPluginLogger(p Plugin) *logrus.Entry {
	info := p.PluginInfo()
	return logrus.WithField("p", info.SysName)
}
