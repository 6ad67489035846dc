package main

import (
	"context"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"strangerly/backend/internal/config"
	"strangerly/backend/internal/logger"
	"strangerly/backend/internal/storage"
)

const usage = `Usage: admin <command> [args]

Commands:
  reports [limit]          list the most recent abuse reports
  history <room> [limit]   print the stored messages of a room
  purge <room>             delete the stored messages of a room`

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}

	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	logger.Init(logger.Config{Level: "warn", Pretty: true, ServiceName: "strangerly-admin"})

	store, err := storage.OpenDatabase(cfg)
	if err != nil {
		logger.L().Fatal().Err(err).Msg("failed to connect database")
	}
	defer store.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	args := os.Args[2:]
	switch os.Args[1] {
	case "reports":
		err = listReports(ctx, store, intArg(args, 0, 20))
	case "history":
		if len(args) < 1 {
			fmt.Println("Usage: admin history <room> [limit]")
			os.Exit(1)
		}
		err = printHistory(ctx, store, args[0], intArg(args, 1, cfg.History.Limit))
	case "purge":
		if len(args) != 1 {
			fmt.Println("Usage: admin purge <room>")
			os.Exit(1)
		}
		var n int64
		n, err = store.PurgeRoom(ctx, args[0])
		if err == nil {
			fmt.Printf("Deleted %d messages from %s.\n", n, args[0])
		}
	default:
		fmt.Println(usage)
		os.Exit(1)
	}

	if err != nil {
		logger.L().Fatal().Err(err).Str("command", os.Args[1]).Msg("command failed")
	}
}

func listReports(ctx context.Context, s *storage.GormStore, limit int) error {
	reports, err := s.ListReports(ctx, limit)
	if err != nil {
		return err
	}
	if len(reports) == 0 {
		fmt.Println("No reports.")
		return nil
	}
	for _, r := range reports {
		fmt.Printf("%s  %s  reported=%s reporter=%s room=%s [%s/%d] %q\n",
			r.CreatedAt.Format(time.RFC3339), r.ID, r.ReportedID, orDash(r.ReporterID),
			orDash(r.RoomID), r.Category, r.Severity, r.Reason)
		for _, line := range r.Evidence {
			fmt.Printf("    > %s\n", line)
		}
	}
	return nil
}

func printHistory(ctx context.Context, s *storage.GormStore, room string, limit int) error {
	msgs, err := s.RecentMessages(ctx, room, limit)
	if err != nil {
		return err
	}
	for _, m := range msgs {
		ts := time.UnixMilli(m.Timestamp).Format(time.RFC3339)
		fmt.Printf("%s  %s: %s\n", ts, m.SenderID, m.Text)
	}
	return nil
}

func intArg(args []string, i, def int) int {
	if len(args) <= i {
		return def
	}
	n, err := strconv.Atoi(args[i])
	if err != nil || n <= 0 {
		fmt.Printf("Invalid number %q, using %d.\n", args[i], def)
		return def
	}
	return n
}

func orDash(s string) string {
	if strings.TrimSpace(s) == "" {
		return "-"
	}
	return s
}
