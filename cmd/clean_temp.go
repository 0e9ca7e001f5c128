// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"
)

var cleanTempCmd = &cobra.Command{
	Use:     "clean-temp",
	Aliases: []string{"clean-temp-files"},
	Short:   "Delete temporary objects older than the retention period",
	Long: `Delete every object under the temporary prefix whose last modification
is older than --temp_retention. Failures on individual objects are logged
and do not change the exit status.`,
	RunE: runCleanTemp,
}

func init() {
	rootCmd.AddCommand(cleanTempCmd)
}

func runCleanTemp(cmd *cobra.Command, args []string) error {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext(fl.Duration("timeout"))
	defer cancel()

	s, err := buildStack(ctx, fl)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.manager.CleanupExpired(ctx, time.Now())
	fmt.Fprintf(cmd.OutOrStdout(), "Did delete %d temporary files.\n", count)
	return err
}
