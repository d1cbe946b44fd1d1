package commands

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/chzyer/readline"
	"github.com/spf13/cobra"

	"github.com/leapstack-labs/sqlrunner/internal/cli/output"
)

const (
	replPrompt     = "sqlrunner> "
	replContPrompt = "      ...> "
)

func runQueryREPL(cmd *cobra.Command, r *output.Renderer, statePath string) error {
	ctx := cmd.Context()

	db, err := openStateDBReadOnly(statePath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer func() { _ = db.Close() }()

	rl, err := readline.NewEx(&readline.Config{
		Prompt:          replPrompt,
		HistoryFile:     filepath.Join(filepath.Dir(statePath), "query_history"),
		AutoComplete:    newTableCompleter(ctx, db),
		InterruptPrompt: "^C",
		EOFPrompt:       ".quit",
	})
	if err != nil {
		return fmt.Errorf("failed to initialize REPL: %w", err)
	}
	defer func() { _ = rl.Close() }()

	r.Printf("sqlrunner query REPL (state: %s)\n", statePath)
	r.Println("Type .help for commands, .quit to exit")
	r.Println("")

	var buf strings.Builder
	for {
		line, err := rl.Readline()
		if errors.Is(err, readline.ErrInterrupt) {
			buf.Reset()
			rl.SetPrompt(replPrompt)
			continue
		}
		if errors.Is(err, io.EOF) {
			return nil
		}

		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		if buf.Len() == 0 && strings.HasPrefix(line, ".") {
			if quit := handleDotCommand(ctx, r, db, line); quit {
				return nil
			}
			continue
		}

		// Statements end with a semicolon.
		buf.WriteString(line)
		if !strings.HasSuffix(line, ";") {
			buf.WriteString(" ")
			rl.SetPrompt(replContPrompt)
			continue
		}
		rl.SetPrompt(replPrompt)

		query := strings.TrimSuffix(buf.String(), ";")
		buf.Reset()
		if err := queryAndRender(ctx, r, db, query); err != nil {
			r.Error(fmt.Sprintf("Error: %v", err))
		}
		r.Println("")
	}
}

// handleDotCommand runs a REPL command and reports whether to quit.
func handleDotCommand(ctx context.Context, r *output.Renderer, db *sql.DB, line string) bool {
	parts := strings.Fields(line)
	switch strings.ToLower(parts[0]) {
	case ".quit", ".exit":
		return true
	case ".help":
		printREPLHelp(r.Writer())
	case ".tables":
		names, err := stateTables(ctx, db)
		if err != nil {
			r.Error(fmt.Sprintf("Error: %v", err))
			break
		}
		for _, n := range names {
			r.Println(n)
		}
	case ".schema":
		if len(parts) < 2 {
			r.Error("Usage: .schema <table>")
			break
		}
		if err := queryAndRender(ctx, r, db, fmt.Sprintf("SELECT name, type, \"notnull\", pk FROM pragma_table_info('%s')", strings.ReplaceAll(parts[1], "'", "''"))); err != nil {
			r.Error(fmt.Sprintf("Error: %v", err))
		}
	default:
		r.Error(fmt.Sprintf("Unknown command: %s (type .help for commands)", parts[0]))
	}
	return false
}

func printREPLHelp(w io.Writer) {
	_, _ = fmt.Fprint(w, `
Commands:
  .help           Show this help message
  .tables         List the tables of the state database
  .schema <name>  Show the columns of a table
  .quit / .exit   Exit the REPL

SQL statements end with a semicolon (;). Tab completes table names.

`)
}

// newTableCompleter creates a readline completer for table names.
func newTableCompleter(ctx context.Context, db *sql.DB) *readline.PrefixCompleter {
	var items []readline.PrefixCompleterInterface
	if names, err := stateTables(ctx, db); err == nil {
		for _, n := range names {
			items = append(items, readline.PcItem(n))
		}
	}
	for _, c := range []string{".help", ".tables", ".schema", ".quit", ".exit"} {
		items = append(items, readline.PcItem(c))
	}
	return readline.NewPrefixCompleter(items...)
}
