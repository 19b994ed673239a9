package cmd

import (
	"bufio"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/Aman-CERP/ancestry/internal/logging"
)

func newLogsCmd() *cobra.Command {
	var (
		file     string
		lines    int
		pathOnly bool
	)

	cmd := &cobra.Command{
		Use:   "logs",
		Short: "Show the most recent log records",
		Long: `Print the tail of the ancestry log file.

Logs are written by 'ancestry serve' and by any command run with --debug.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path, err := logging.FindLogFile(file)
			if err != nil {
				return err
			}
			if pathOnly {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), path)
				return err
			}
			return tailFile(cmd.OutOrStdout(), path, lines)
		},
	}

	cmd.Flags().StringVarP(&file, "file", "f", "", "Log file to read (default ~/.ancestry/logs/ancestry.log)")
	cmd.Flags().IntVarP(&lines, "lines", "n", 50, "Number of lines to show")
	cmd.Flags().BoolVar(&pathOnly, "path", false, "Print the log file path and exit")

	return cmd
}

// tailFile writes the last n lines of path to w.
func tailFile(w io.Writer, path string, n int) error {
	if n <= 0 {
		return nil
	}
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer func() { _ = f.Close() }()

	ring := make([]string, 0, n)
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		if len(ring) == n {
			ring = ring[1:]
		}
		ring = append(ring, scanner.Text())
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	for _, line := range ring {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
