// Package main provides the CLI entry point for vcompress.
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/five82/vcompress/internal/ffprobe"
)

const (
	appName    = "vcompress"
	appVersion = "0.1.0"
)

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:          appName,
		Short:        "Batch video compression with VMAF-targeted CRF search",
		SilenceUsage: true,
	}
	root.AddCommand(newCompressCmd(), newProbeCmd(), newVersionCmd())
	return root
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Args:  cobra.NoArgs,
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintf(cmd.OutOrStdout(), "%s version %s\n", appName, appVersion)
		},
	}
}

func newProbeCmd() *cobra.Command {
	var ffmpegPath string
	cmd := &cobra.Command{
		Use:   "probe <file>",
		Short: "Print stream information for a video file as JSON",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			info, err := ffprobe.GetVideoInfo(cmd.Context(), ffprobe.ToolPath(ffmpegPath), args[0])
			if err != nil {
				return err
			}
			enc := json.NewEncoder(cmd.OutOrStdout())
			enc.SetIndent("", "  ")
			return enc.Encode(info)
		},
	}
	cmd.Flags().StringVar(&ffmpegPath, "ffmpeg", "ffmpeg", "Path to the ffmpeg binary; ffprobe is looked up next to it")
	return cmd
}
