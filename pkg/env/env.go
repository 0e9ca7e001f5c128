// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

// Package env reports the deployment environment the binary runs in.
package env

import (
	"github.com/spf13/viper"
)

const (
	Local      = "local"
	Production = "production"
	Testing    = "testing"
)

// Current reads ENV through viper, so it honours both the config file and
// the process environment. It must be called after configuration is loaded.
func Current() string {
	if e := viper.GetString("env"); e != "" {
		return e
	}
	return Local
}

func IsLocal() bool {
	return Current() == Local
}

func IsProduction() bool {
	return Current() == Production
}

func IsTesting() bool {
	return Current() == Testing
}
