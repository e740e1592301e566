package cmd

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/config"
)

var logsCmd = &cobra.Command{
	Use:   "logs",
	Short: "View daemon log file",
	Example: `  erldoc logs -n 100
  erldoc logs -f --level warn`,
	Run: runLogs,
}

var (
	logsFollow bool
	logsLines  int
	logsLevel  string
)

func init() {
	logsCmd.Flags().BoolVarP(&logsFollow, "follow", "f", false, "follow log output")
	logsCmd.Flags().IntVarP(&logsLines, "lines", "n", 50, "number of lines to show")
	logsCmd.Flags().StringVar(&logsLevel, "level", "", "only show records at this level or above (debug, info, warn, error)")
}

func runLogs(cmd *cobra.Command, args []string) {
	logPath := config.LogPath()
	f, err := os.Open(logPath)
	if os.IsNotExist(err) {
		fmt.Println("no log file found (daemon may not have run yet)")
		return
	}
	if err != nil {
		log.Fatalf("opening log: %v", err)
	}
	defer f.Close()

	keep := levelFilter(logsLevel)
	lines, err := lastLines(f, logsLines, keep)
	if err != nil {
		log.Fatalf("reading log: %v", err)
	}
	for _, l := range lines {
		fmt.Println(l)
	}
	if !logsFollow {
		return
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	if err := follow(ctx, f, logPath, keep); err != nil {
		log.Fatalf("following log: %v", err)
	}
}

var logLevels = []string{"DEBUG", "INFO", "WARN", "ERROR"}

// levelFilter matches slog text records at min or a more severe level.
// Lines without a level attribute always match.
func levelFilter(min string) func(string) bool {
	min = strings.ToUpper(min)
	start := 0
	for i, l := range logLevels {
		if l == min {
			start = i
		}
	}
	return func(line string) bool {
		i := strings.Index(line, "level=")
		if i < 0 {
			return true
		}
		lvl, _, _ := strings.Cut(line[i+len("level="):], " ")
		for _, l := range logLevels[start:] {
			if lvl == l {
				return true
			}
		}
		return false
	}
}

// lastLines returns the last n lines of r that keep accepts. r is left at
// its end.
func lastLines(r io.Reader, n int, keep func(string) bool) ([]string, error) {
	if n <= 0 {
		_, err := io.Copy(io.Discard, r)
		return nil, err
	}
	ring := make([]string, 0, n)
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 64*1024), 1024*1024)
	for sc.Scan() {
		line := sc.Text()
		if !keep(line) {
			continue
		}
		if len(ring) == n {
			ring = append(ring[:0], ring[1:]...)
		}
		ring = append(ring, line)
	}
	return ring, sc.Err()
}

// follow prints lines appended to f until ctx is done.
func follow(ctx context.Context, f *os.File, path string, keep func(string) bool) error {
	w, err := fsnotify.NewWatcher()
	if err != nil {
		return err
	}
	defer w.Close()
	if err := w.Add(path); err != nil {
		return err
	}

	br := bufio.NewReader(f)
	var partial string
	for {
		for {
			chunk, err := br.ReadString('\n')
			partial += chunk
			if err != nil {
				break
			}
			if line := strings.TrimRight(partial, "\n"); keep(line) {
				fmt.Println(line)
			}
			partial = ""
		}
		select {
		case <-ctx.Done():
			return nil
		case err, ok := <-w.Errors:
			if !ok {
				return nil
			}
			return err
		case ev, ok := <-w.Events:
			if !ok {
				return nil
			}
			if ev.Has(fsnotify.Remove) || ev.Has(fsnotify.Rename) {
				return nil
			}
		}
	}
}
