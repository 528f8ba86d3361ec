package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"text/tabwriter"
	"time"

	"cashflow/internal/client"
	"cashflow/internal/dates"
	"cashflow/internal/logger"
)

const usage = `usage: cashflow <command> [flags]

commands:
  health                          check the API is reachable
  list    [-preset P] [-type T]   print transactions, newest first
  export  -format csv|json -o F   download transactions to a file
  import  -file F                 upload a CSV or JSON file
  summary [-preset P]             print totals and category breakdown

environment:
  CASHFLOW_API_URL  API base URL (default http://localhost:8080)
  CASHFLOW_TOKEN    access token for protected commands`

func main() {
	logger.Init(os.Getenv("ENV"))
	defer logger.Sync()

	if len(os.Args) < 2 {
		fmt.Fprintln(os.Stderr, usage)
		os.Exit(2)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	baseURL := os.Getenv("CASHFLOW_API_URL")
	if baseURL == "" {
		baseURL = "http://localhost:8080"
	}
	c := client.NewCashFlowClient(baseURL, os.Getenv("CASHFLOW_TOKEN"), &http.Client{Timeout: 60 * time.Second})

	if err := run(ctx, c, os.Args[1], os.Args[2:], os.Stdout); err != nil {
		var apiErr *client.APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized {
			logger.Get().Errorw("request rejected, check CASHFLOW_TOKEN", "error", err)
		} else {
			logger.Get().Errorw("command failed", "command", os.Args[1], "error", err)
		}
		os.Exit(1)
	}
}

func run(ctx context.Context, c *client.CashFlowClient, command string, args []string, out io.Writer) error {
	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	var opts client.ListOptions
	addFilters := func() {
		fs.StringVar(&opts.Preset, "preset", "", "named range: last-7-days, last-30-days, last-3-months, last-6-months, this-year")
		fs.StringVar(&opts.StartDate, "from", "", "inclusive start day")
		fs.StringVar(&opts.EndDate, "to", "", "inclusive end day")
		fs.StringVar(&opts.Type, "type", "", "income or expense")
		fs.StringVar(&opts.Category, "category", "", "category")
	}

	switch command {
	case "health":
		h, err := c.Health(ctx)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%s (%s)\n", h.Message, h.Timestamp)
		return nil

	case "list":
		addFilters()
		if err := fs.Parse(args); err != nil {
			return err
		}
		txs, err := c.ListTransactions(ctx, opts)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "DATE\tTYPE\tAMOUNT\tCATEGORY\tTITLE")
		for i := range txs {
			tx := &txs[i]
			fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\n",
				dates.DayKey(tx.EffectiveDate()), tx.Type, tx.Amount.StringFixed(2), tx.CategoryOrDefault(), tx.Title)
		}
		return tw.Flush()

	case "export":
		addFilters()
		format := fs.String("format", "csv", "csv or json")
		output := fs.String("o", "", "output file (default stdout)")
		if err := fs.Parse(args); err != nil {
			return err
		}
		w := out
		if *output != "" {
			f, err := os.Create(*output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", *output, err)
			}
			defer f.Close()
			w = f
		}
		return c.Export(ctx, *format, opts, w)

	case "import":
		file := fs.String("file", "", "CSV or JSON file to upload")
		if err := fs.Parse(args); err != nil {
			return err
		}
		if *file == "" {
			return fmt.Errorf("import: -file is required")
		}
		f, err := os.Open(*file)
		if err != nil {
			return fmt.Errorf("opening %s: %w", *file, err)
		}
		defer f.Close()
		result, err := c.Import(ctx, *file, f)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, result.Message)
		for _, e := range result.Errors {
			fmt.Fprintln(out, "  "+e)
		}
		return nil

	case "summary":
		addFilters()
		if err := fs.Parse(args); err != nil {
			return err
		}
		s, err := c.Summary(ctx, opts)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintf(tw, "Range\t%s\n", s.Preset)
		fmt.Fprintf(tw, "Transactions\t%d\n", s.Count)
		fmt.Fprintf(tw, "Income\t%s\n", s.Totals.TotalIncome.StringFixed(2))
		fmt.Fprintf(tw, "Expense\t%s\n", s.Totals.TotalExpense.StringFixed(2))
		fmt.Fprintf(tw, "Net\t%s\n", s.Net.StringFixed(2))
		for _, b := range s.Breakdown {
			fmt.Fprintf(tw, "  %s\t%s\n", b.Category, b.Total.StringFixed(2))
		}
		return tw.Flush()

	case "help", "-h", "--help":
		fmt.Fprintln(out, usage)
		return nil
	}
	return fmt.Errorf("unknown command %q\n%s", command, usage)
}
