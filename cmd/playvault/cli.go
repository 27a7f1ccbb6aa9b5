package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/coachcore/playvault/internal/codec"
	"github.com/coachcore/playvault/internal/playstore"
	"github.com/coachcore/playvault/internal/store"
)

// cliArgs holds the parsed command line.
type cliArgs struct {
	Command   string // run (default), sync, list, export, import
	ConfigDir string
	File      string // export target / import source, "-" = stdout/stdin
	Filter    store.Filter
}

// parseArgs reads the subcommand and flags. Unknown flags are ignored
// rather than fatal so stale wrapper scripts keep working.
func parseArgs(args []string) cliArgs {
	cli := cliArgs{Command: "run", ConfigDir: ".", File: "-"}

	if len(args) > 0 && !strings.HasPrefix(args[0], "-") {
		cli.Command = strings.ToLower(args[0])
		args = args[1:]
	}

	for i := 0; i < len(args); i++ {
		key := args[i]
		var value string
		if eq := strings.IndexByte(key, '='); eq >= 0 {
			key, value = key[:eq], key[eq+1:]
		} else if i+1 < len(args) && !strings.HasPrefix(args[i+1], "-") {
			value = args[i+1]
			i++
		}

		switch key {
		case "-config", "--config":
			cli.ConfigDir = value
		case "-file", "--file":
			cli.File = value
		case "-coach", "--coach":
			cli.Filter.CoachID = value
		case "-team", "--team":
			cli.Filter.TeamID = value
		case "-category", "--category":
			cli.Filter.Category = value
		case "-formation", "--formation":
			cli.Filter.Formation = value
		case "-limit", "--limit":
			if n, err := strconv.Atoi(value); err == nil {
				cli.Filter.Limit = n
			}
		}
	}

	return cli
}

// runSync performs one manual flush and prints the result.
func runSync(svc *playstore.Service, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	result, err := svc.SyncPending(ctx)
	if err != nil {
		return fmt.Errorf("sync failed: %w", err)
	}

	fmt.Printf("synced: %d, still pending: %d\n", len(result.Succeeded), len(result.Failed))
	for _, id := range result.Succeeded {
		fmt.Printf("  ok      %s\n", id)
	}
	for _, f := range result.Failed {
		fmt.Printf("  pending %s (%s, attempt %d): %s\n", f.PlayID, f.Op, f.Attempts, f.Err)
	}
	return nil
}

// runList prints plays matching the filter flags.
func runList(svc *playstore.Service, cli cliArgs, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	plays, err := svc.List(ctx, cli.Filter)
	if err != nil {
		return fmt.Errorf("list failed: %w", err)
	}

	if len(plays) == 0 {
		fmt.Println("no plays found")
		return nil
	}
	for _, p := range plays {
		fmt.Fprintf(os.Stdout, "%-36s  %-24s  %-10s  %-12s  v%d  %s\n",
			p.ID, p.Name, p.FieldType, p.Category, p.Version, p.UpdatedAt.Format(time.RFC3339))
	}
	return nil
}

// runExport writes plays matching the filter flags as a compact JSON array.
func runExport(svc *playstore.Service, cli cliArgs, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	plays, err := svc.List(ctx, cli.Filter)
	if err != nil {
		return fmt.Errorf("export failed: %w", err)
	}

	compact := make([]codec.CompactPlay, len(plays))
	for i := range plays {
		compact[i] = codec.Encode(&plays[i])
	}

	out := os.Stdout
	if cli.File != "-" {
		f, err := os.Create(cli.File)
		if err != nil {
			return fmt.Errorf("export failed: %w", err)
		}
		defer f.Close()
		out = f
	}

	enc := json.NewEncoder(out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(compact); err != nil {
		return fmt.Errorf("export failed: %w", err)
	}
	logger.Info().Int("plays", len(compact)).Str("file", cli.File).Msg("Export complete")
	return nil
}

// runImport reads a compact JSON array and saves each play. A record that
// does not decode is reported and skipped; it never aborts the batch.
func runImport(svc *playstore.Service, cli cliArgs, logger zerolog.Logger) error {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
	defer cancel()

	in := os.Stdin
	if cli.File != "-" {
		f, err := os.Open(cli.File)
		if err != nil {
			return fmt.Errorf("import failed: %w", err)
		}
		defer f.Close()
		in = f
	}

	var raw []json.RawMessage
	if err := json.NewDecoder(in).Decode(&raw); err != nil {
		return fmt.Errorf("import failed: not a compact play array: %w", err)
	}

	var imported, skipped int
	for i, record := range raw {
		play, err := codec.DecodeJSON(record)
		if err != nil {
			logger.Warn().Err(err).Int("index", i).Msg("Skipping undecodable record")
			skipped++
			continue
		}
		if _, err := svc.Save(ctx, play); err != nil {
			return fmt.Errorf("import failed at record %d (%s): %w", i, play.ID, err)
		}
		imported++
	}

	fmt.Printf("imported: %d, skipped: %d\n", imported, skipped)
	return nil
}
