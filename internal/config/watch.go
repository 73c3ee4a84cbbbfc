package config

import (
	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"
)

// Watch reloads the configuration whenever the config file changes and
// passes each valid result to onChange. Invalid edits are reported to onError
// and otherwise ignored, so the last good configuration stays in effect.
// Watch does nothing if no config file was read.
func Watch(onChange func(*Config), onError func(error)) {
	watch(viper.GetViper(), onChange, onError)
}

func watch(v *viper.Viper, onChange func(*Config), onError func(error)) {
	if v.ConfigFileUsed() == "" {
		return
	}
	v.OnConfigChange(func(e fsnotify.Event) {
		if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
			return
		}
		cfg, err := loadFrom(v)
		if err != nil {
			if onError != nil {
				onError(err)
			}
			return
		}
		if onChange != nil {
			onChange(cfg)
		}
	})
	v.WatchConfig()
}
