// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var clearBucketCmd = &cobra.Command{
	Use:   "clear-bucket",
	Short: "Delete every object in the bucket",
	RunE:  runClearBucket,
}

func init() {
	rootCmd.AddCommand(clearBucketCmd)
	clearBucketCmd.Flags().Bool("yes", false, "Confirm deletion of all objects")
}

func runClearBucket(cmd *cobra.Command, args []string) error {
	if yes, _ := cmd.Flags().GetBool("yes"); !yes {
		return errors.New("refusing to clear the bucket without --yes")
	}

	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext(fl.Duration("timeout"))
	defer cancel()

	s, err := buildStack(ctx, fl)
	if err != nil {
		return err
	}
	defer s.Close()

	count, err := s.manager.ClearBucket(ctx)
	fmt.Fprintf(cmd.OutOrStdout(), "Did delete %d files from %s.\n", count, s.settings.Bucket)
	return err
}
