package commands

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/p4lang/pi4go/internal/config"
	"github.com/spf13/cobra"
)

var (
	logsConfigFile string
	logsFollow     bool
	logsLines      int
	logsSince      string
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "Show or follow a pidevmgrd instance's log file",
	Long: `logs reads the log file a pidevmgrd instance was configured to write to
(logging.output in its config file) and prints it, optionally following new
lines as they are appended.

pidevmgrctl has no running pidevmgrd to talk to (there is no control
connection between the two binaries), so this command only works when
logging.output in the targeted config names a real file rather than stdout
or stderr.`,
	RunE: runLogs,
}

func init() {
	logsCmd.Flags().StringVar(&logsConfigFile, "config", "", "Path to the pidevmgrd config file (default: $XDG_CONFIG_HOME/pi4go/config.yaml)")
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "Follow the log file for new lines")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 20, "Number of lines to show from the end of the log")
	logsCmd.Flags().StringVar(&logsSince, "since", "", "Only show log lines at or after this RFC3339 timestamp")
	rootCmd.AddCommand(logsCmd)
}

func runLogs(cmd *cobra.Command, _ []string) error {
	cfg, err := config.Load(logsConfigFile)
	if err != nil {
		return fmt.Errorf("failed to load configuration: %w", err)
	}

	logFile := cfg.Logging.Output
	if logFile == "" || logFile == "stdout" || logFile == "stderr" {
		return fmt.Errorf("logging.output is %q, not a file path; nothing to read", logFile)
	}
	if _, err := os.Stat(logFile); err != nil {
		return fmt.Errorf("log file %s: %w", logFile, err)
	}

	var since time.Time
	if logsSince != "" {
		since, err = time.Parse(time.RFC3339, logsSince)
		if err != nil {
			return fmt.Errorf("invalid --since value %q: %w", logsSince, err)
		}
	}

	if err := showLogs(cmd, logFile, since); err != nil {
		return err
	}
	if !logsFollow {
		return nil
	}
	return followLogs(cmd, logFile)
}

func showLogs(cmd *cobra.Command, logFile string, since time.Time) error {
	f, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()

	var lines []string
	scanner := bufio.NewScanner(f)
	scanner.Buffer(make([]byte, 64*1024), 1024*1024)
	for scanner.Scan() {
		line := scanner.Text()
		if !since.IsZero() {
			if ts, ok := extractTimestamp(line); ok && ts.Before(since) {
				continue
			}
		}
		lines = append(lines, line)
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to read log file: %w", err)
	}

	if len(lines) > logsLines {
		lines = lines[len(lines)-logsLines:]
	}
	for _, line := range lines {
		fmt.Fprintln(cmd.OutOrStdout(), line)
	}
	return nil
}

// followLogs tails logFile for appended lines using fsnotify, until SIGINT
// or SIGTERM is received.
func followLogs(cmd *cobra.Command, logFile string) error {
	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create file watcher: %w", err)
	}
	defer watcher.Close()

	if err := watcher.Add(logFile); err != nil {
		return fmt.Errorf("failed to watch log file: %w", err)
	}

	f, err := os.Open(logFile)
	if err != nil {
		return fmt.Errorf("failed to open log file: %w", err)
	}
	defer f.Close()
	if _, err := f.Seek(0, io.SeekEnd); err != nil {
		return fmt.Errorf("failed to seek log file: %w", err)
	}
	reader := bufio.NewReader(f)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		select {
		case <-sigChan:
			cancel()
		case <-ctx.Done():
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-watcher.Events:
			if !ok {
				return nil
			}
			if event.Op&fsnotify.Write != fsnotify.Write {
				continue
			}
			for {
				line, err := reader.ReadString('\n')
				if line != "" {
					fmt.Fprint(cmd.OutOrStdout(), line)
				}
				if err != nil {
					break
				}
			}
		case err, ok := <-watcher.Errors:
			if !ok {
				return nil
			}
			return fmt.Errorf("watcher error: %w", err)
		}
	}
}

// extractTimestamp pulls a leading RFC3339 timestamp, or a JSON "time" field,
// out of one log line.
func extractTimestamp(line string) (time.Time, bool) {
	if len(line) >= 20 {
		if ts, err := time.Parse(time.RFC3339, line[:20]); err == nil {
			return ts, true
		}
	}
	if len(line) >= 25 {
		if ts, err := time.Parse(time.RFC3339, line[:25]); err == nil {
			return ts, true
		}
	}
	const key = `"time":"`
	if idx := strings.Index(line, key); idx >= 0 {
		rest := line[idx+len(key):]
		if end := strings.IndexByte(rest, '"'); end >= 0 {
			if ts, err := time.Parse(time.RFC3339, rest[:end]); err == nil {
				return ts, true
			}
		}
	}
	return time.Time{}, false
}
