package app

import "github.com/thushan/tabkeeper/internal/config"

func (a *Application) setConfig(cfg *config.Config) {
	a.configMu.Lock()
	defer a.configMu.Unlock()
	a.config = cfg
}

// Config returns the configuration currently in effect
func (a *Application) Config() *config.Config {
	a.configMu.RLock()
	defer a.configMu.RUnlock()
	return a.config
}
