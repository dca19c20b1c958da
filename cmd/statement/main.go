package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"text/tabwriter"
	"time"

	"trip-ledger/internal/export"
	"trip-ledger/internal/ledger"
	"trip-ledger/internal/storage"
)

const defaultDBPath = "ledger.db"

func main() {
	if err := run(os.Args[1:], os.Stdout, os.Stderr); err != nil {
		if errors.Is(err, flag.ErrHelp) {
			os.Exit(0)
		}
		fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		os.Exit(1)
	}
}

func run(args []string, stdout, stderr io.Writer) error {
	fs := flag.NewFlagSet("statement", flag.ContinueOnError)
	fs.SetOutput(stderr)

	email := fs.String("email", "", "E-mail of the user whose statement is printed")
	start := fs.String("start", "", "First day, YYYY-MM-DD (default: first day of this month)")
	end := fs.String("end", "", "Last day, YYYY-MM-DD (default: today)")
	all := fs.Bool("all", false, "Whole history, ignoring -start and -end")
	rej := fs.Bool("rej", false, "Include rejected expenses")
	asCSV := fs.Bool("csv", false, "Write CSV instead of a table")
	dbPath := fs.String("db", defaultDBPath, "Path to database file")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *email == "" {
		fmt.Fprintln(stdout, "Usage: statement -email <email> [-start YYYY-MM-DD] [-end YYYY-MM-DD] [-all] [-rej] [-csv] [-db <db_path>]")
		fs.PrintDefaults()
		return fmt.Errorf("missing required flags: email")
	}

	scope := ""
	if *all {
		scope = "all"
	}
	period, err := ledger.ResolvePeriod(scope, *start, *end, time.Now())
	if err != nil {
		return err
	}

	if path := os.Getenv("DB_PATH"); path != "" && *dbPath == defaultDBPath {
		*dbPath = path
	}
	db, err := storage.NewDB(*dbPath)
	if err != nil {
		return fmt.Errorf("failed to open database: %w", err)
	}
	defer db.Close()

	ctx := context.Background()
	user, err := db.GetUserByEmail(ctx, *email)
	if err != nil {
		return err
	}

	entries, err := ledger.New(db).BuildStatement(ctx, ledger.Filter{UserID: user.ID, Period: period, IncludeRejected: *rej})
	if err != nil {
		return err
	}

	if *asCSV {
		return export.WriteStatementCSV(stdout, entries)
	}
	return printStatement(stdout, user.Name, entries)
}

func printStatement(w io.Writer, name string, entries []ledger.Entry) error {
	fmt.Fprintf(w, "Extrato de %s\n\n", name)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "Data\tTipo\tDescrição\tViagem\tStatus\tValor\t")
	for _, e := range entries {
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t\n",
			e.Date.Format(time.DateOnly), export.KindLabel(e.Kind), e.Description, e.TripLabel, e.Status, e.Amount.StringFixed(2))
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	t := ledger.Summarize(entries)
	fmt.Fprintf(w, "\nDepósitos: %s\nDespesas:  %s\nSaldo:     %s\n",
		t.Deposits.StringFixed(2), t.Expenses.StringFixed(2), t.Balance.StringFixed(2))
	return nil
}
