// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"os"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"
	"github.com/LeeDigitalWorks/zapup/pkg/utils"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var rootCmd = &cobra.Command{
	Use:   "zapup",
	Short: "ZapUp - upload credentials and temporary object lifecycle",
	Long: `ZapUp issues short-lived presigned upload credentials for an S3-compatible
bucket, promotes uploaded temporary objects to permanent keys and sweeps
temporary objects that were never finalized.`,
	PersistentPreRun: initializeConfig,
	SilenceUsage:     true,
	Run: func(cmd *cobra.Command, args []string) {
		cmd.Help()
	},
}

func init() {
	f := rootCmd.PersistentFlags()
	f.StringVar(&utils.ConfigurationFileDirectory, "config_dir", ".", "Directory for configuration files")
	f.String("log_level", "info", "Log level (debug, info, warn, error)")
	f.Bool("log_pretty", false, "Human readable console logs")

	registerStackFlags(f)

	viper.BindPFlags(f)
}

// initializeConfig loads zapup.{yaml,toml,json} and .env, then configures
// logging. Flags, env and config file are resolved through FlagLoader.
func initializeConfig(cmd *cobra.Command, args []string) {
	utils.LoadConfiguration("zapup", false)

	fl := NewFlagLoader(cmd)
	logger.Configure(fl.String("log_level"), fl.Bool("log_pretty"))
}

func Execute() {
	err := rootCmd.Execute()
	if err != nil {
		os.Exit(1)
	}
}
