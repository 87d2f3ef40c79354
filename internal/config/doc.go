// Package config defines the settings shared by alarm-scheduler and
// alarm-ctl and provides helpers to load, validate and save them in YAML
// format. Flags and ALARM_SCHEDULER_* environment variables are layered on
// top through viper with Overlay.
package config
