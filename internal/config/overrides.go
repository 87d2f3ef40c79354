package config

import (
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// EnvPrefix prefixes environment overrides, e.g. ALARM_SCHEDULER_GRPC_ADDR.
const EnvPrefix = "ALARM_SCHEDULER"

// NewOverrides returns a viper instance that reads ALARM_SCHEDULER_* variables
// and the named flags. A flag "grpc-addr" binds to the key "grpc_addr".
// Flags left at their defaults do not count as set.
func NewOverrides(flags *pflag.FlagSet, names ...string) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	for _, name := range names {
		flag := flags.Lookup(name)
		if flag == nil {
			return nil, fmt.Errorf("unknown flag %q", name)
		}

		if err := v.BindPFlag(strings.ReplaceAll(name, "-", "_"), flag); err != nil {
			return nil, fmt.Errorf("bind flag %q: %w", name, err)
		}
	}

	return v, nil
}
