// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/spf13/cobra"
)

var setupCmd = &cobra.Command{
	Use:   "setup",
	Short: "Create the bucket with a public-read policy if it is missing",
	RunE:  runSetup,
}

func init() {
	rootCmd.AddCommand(setupCmd)
}

func runSetup(cmd *cobra.Command, args []string) error {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext(fl.Duration("timeout"))
	defer cancel()

	s, err := buildStack(ctx, fl)
	if err != nil {
		return err
	}
	defer s.Close()

	created, err := s.manager.EnsureBucket(ctx)
	if err != nil {
		return err
	}
	if created {
		fmt.Fprintln(cmd.OutOrStdout(), "Did create bucket.")
	}
	fmt.Fprintln(cmd.OutOrStdout(), "Did finished S3 bucket setup.")
	return nil
}
