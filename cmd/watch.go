package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/jj1bdx/erldoc/internal/config"
	"github.com/jj1bdx/erldoc/internal/watch"
)

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Rebuild the documentation tree whenever a source changes",
	Args:  cobra.MaximumNArgs(1),
	Run:   runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) {
	dir := sourceDir(args)
	cfg, err := config.LoadFrom(dir)
	if err != nil {
		log.Fatalf("loading config: %v", err)
	}

	client, err := connectDaemon()
	if err != nil {
		log.Fatalf("failed to connect to daemon: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if _, err := buildOnce(ctx, client, dir, false, false); err != nil {
		log.Fatalf("build failed: %v", err)
	}

	skip := []string{}
	if out := cfg.Output.Dir; !filepath.IsAbs(out) {
		skip = append(skip, out)
	} else if rel, err := filepath.Rel(dir, out); err == nil {
		skip = append(skip, rel)
	}
	w, err := watch.New(dir, time.Duration(cfg.Watch.DebounceMillis)*time.Millisecond, nil, skip)
	if err != nil {
		log.Fatalf("watching %s: %v", dir, err)
	}
	defer w.Close()

	fmt.Printf("watching %s (ctrl-c to stop)\n", dir)
	err = w.Run(ctx, func(ctx context.Context, changes []watch.Change) {
		for _, c := range changes {
			fmt.Printf("%s %s\n", c.Op, c.Path)
		}
		// Keep watching after a failed build; the next edit may fix it.
		if _, err := buildOnce(ctx, client, dir, false, false); err != nil {
			fmt.Fprintf(os.Stderr, "build failed: %v\n", err)
		}
	})
	if err != nil && ctx.Err() == nil {
		log.Fatalf("watch failed: %v", err)
	}
}
