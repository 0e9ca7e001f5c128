// Copyright 2025 ZapFS Authors
// SPDX-License-Identifier: Apache-2.0

package cmd

import (
	"fmt"

	"github.com/LeeDigitalWorks/zapup/pkg/logger"

	"github.com/spf13/cobra"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest URL...",
	Short: "Download remote files and store them as permanent objects",
	Args:  cobra.MinimumNArgs(1),
	RunE:  runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	fl := NewFlagLoader(cmd)
	ctx, cancel := commandContext(fl.Duration("timeout"))
	defer cancel()

	s, err := buildStack(ctx, fl)
	if err != nil {
		return err
	}
	defer s.Close()

	failed := 0
	for _, u := range args {
		key, err := s.manager.IngestFromURL(ctx, u)
		if err != nil {
			failed++
			logger.Error().Err(err).Str("url", u).Msg("Ingest failed")
			continue
		}
		fmt.Fprintf(cmd.OutOrStdout(), "%s -> %s\n", u, key)
	}
	if failed > 0 {
		return fmt.Errorf("%d of %d ingests failed", failed, len(args))
	}
	return nil
}
