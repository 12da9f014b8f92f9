package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/joseph-ayodele/leases-tracker/internal/common"
)

const usage = `usage: leasectl <command> [flags]

commands:
  extract      read a contract document and print the extracted fields
  import       import a contract document and schedule its charges
  pay          apply a payment to a contract or charge
  pay-receipt  read a payment receipt and apply it
  batch        import every contract listed in a YAML manifest (or -dir)
  export       write the ledger of one or more contracts to XLSX
  migrate      create the database tables

global flags (accepted by every command):
  -config   YAML config file (default $CONFIG_FILE)
  -sqlite   use a SQLite database file instead of DB_URL
`

type command func(ctx context.Context, args []string) error

var commands = map[string]command{
	"extract":     runExtract,
	"import":      runImport,
	"pay":         runPay,
	"pay-receipt": runPayReceipt,
	"batch":       runBatch,
	"export":      runExport,
	"migrate":     runMigrate,
}

// printError prints an error message to stderr, falling back to stdout if stderr fails
func printError(format string, args ...any) {
	if _, err := fmt.Fprintf(os.Stderr, format, args...); err != nil {
		fmt.Printf(format, args...)
	}
}

func main() {
	if len(os.Args) < 2 {
		printError(usage)
		os.Exit(2)
	}
	name := os.Args[1]
	if name == "-h" || name == "--help" || name == "help" {
		fmt.Print(usage)
		return
	}
	cmd, ok := commands[name]
	if !ok {
		printError("unknown command %q\n\n%s", name, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := cmd(ctx, os.Args[2:]); err != nil {
		printError("Error: %v\n", err)
		os.Exit(common.ExitCode(err))
	}
}

func printJSON(v any) error {
	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}
