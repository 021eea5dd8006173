package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"samplebook/internal/book"
	"samplebook/internal/email"
	"samplebook/internal/platform/sheets"
	"samplebook/internal/request"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"
)

type rootOptions struct {
	url     string
	rps     float64
	timeout time.Duration
}

func (o *rootOptions) client() (*sheets.Client, error) {
	if o.url == "" {
		return nil, fmt.Errorf("no sheet script URL: set --url or SHEETS_URL")
	}
	return sheets.NewClient(o.url, o.rps, o.timeout), nil
}

func newRootCmd() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "seed",
		Short: "Seed and inspect the sample request sheets",
		Long: `Administrative commands for the spreadsheet backend.

Available subcommands:
  books    - Append the built-in catalog to the catalog sheet
  emails   - Register addresses on the verified-email allow-list
  dump     - Print the rows of a sheet
  requests - List audited sample requests for one requester`,
		SilenceUsage: true,
	}
	root.PersistentFlags().StringVar(&opts.url, "url", os.Getenv("SHEETS_URL"), "sheet script URL")
	root.PersistentFlags().Float64Var(&opts.rps, "rps", 2, "maximum sheet calls per second")
	root.PersistentFlags().DurationVar(&opts.timeout, "timeout", 10*time.Second, "per-call timeout")

	root.AddCommand(
		newBooksCmd(opts),
		newEmailsCmd(opts),
		newDumpCmd(opts),
		newRequestsCmd(),
	)
	return root
}

func newBooksCmd(opts *rootOptions) *cobra.Command {
	var dryRun bool
	cmd := &cobra.Command{
		Use:   "books",
		Short: "Append the built-in catalog to the catalog sheet",
		RunE: func(cmd *cobra.Command, args []string) error {
			books := book.Fallback()
			if dryRun {
				return yaml.NewEncoder(cmd.OutOrStdout()).Encode(books)
			}
			client, err := opts.client()
			if err != nil {
				return err
			}
			for _, b := range books {
				if err := client.Append(cmd.Context(), sheets.CatalogSheet, book.ToRow(b)); err != nil {
					return fmt.Errorf("append %q: %w", b.Title, err)
				}
				log.Info().Int("id", b.ID).Str("title", b.Title).Msg("book appended")
			}
			fmt.Fprintf(cmd.OutOrStdout(), "appended %d books\n", len(books))
			return nil
		},
	}
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the catalog instead of writing it")
	return cmd
}

func newEmailsCmd(opts *rootOptions) *cobra.Command {
	var (
		rec      email.Record
		fallback bool
	)
	cmd := &cobra.Command{
		Use:   "emails [address...]",
		Short: "Register addresses on the verified-email allow-list",
		RunE: func(cmd *cobra.Command, args []string) error {
			var records []email.Record
			if fallback {
				records = append(records, email.Fallback()...)
			}
			for _, addr := range args {
				r := rec
				r.Email = addr
				records = append(records, r)
			}
			if len(records) == 0 {
				return fmt.Errorf("no addresses given")
			}

			client, err := opts.client()
			if err != nil {
				return err
			}
			svc := email.NewService(email.NewSheetRepo(client))
			for _, r := range records {
				if err := svc.Register(cmd.Context(), r); err != nil {
					return err
				}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "registered %d addresses\n", len(records))
			return nil
		},
	}
	cmd.Flags().StringVar(&rec.Name, "name", "", "name stored with the addresses")
	cmd.Flags().StringVar(&rec.Institution, "institution", "", "institution stored with the addresses")
	cmd.Flags().StringVar(&rec.Department, "department", "", "department stored with the addresses")
	cmd.Flags().BoolVar(&fallback, "fallback", false, "also register the built-in fallback list")
	return cmd
}

func newDumpCmd(opts *rootOptions) *cobra.Command {
	var format string
	cmd := &cobra.Command{
		Use:       "dump SHEET",
		Short:     "Print the rows of a sheet",
		Args:      cobra.ExactArgs(1),
		ValidArgs: []string{sheets.CatalogSheet, sheets.RequestSheet, sheets.EmailSheet},
		RunE: func(cmd *cobra.Command, args []string) error {
			client, err := opts.client()
			if err != nil {
				return err
			}
			rows, err := client.Rows(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			return encode(cmd.OutOrStdout(), format, rows)
		},
	}
	cmd.Flags().StringVarP(&format, "output", "o", "yaml", "output format: yaml or json")
	return cmd
}

func newRequestsCmd() *cobra.Command {
	var (
		dsn   string
		limit int
	)
	cmd := &cobra.Command{
		Use:   "requests EMAIL",
		Short: "List audited sample requests for one requester",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if dsn == "" {
				return fmt.Errorf("no database: set --dsn or DB_DSN")
			}
			pool, err := pgxpool.New(cmd.Context(), dsn)
			if err != nil {
				return err
			}
			defer pool.Close()

			reqs, err := request.NewPostgresAudit(pool, 10*time.Second).ListByEmail(cmd.Context(), args[0], limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			for _, r := range reqs {
				fmt.Fprintf(out, "%s\t%d\t%s\t%s\n", request.FormatDate(r.RequestDate), r.BookID, r.BookTitle, r.Status)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&dsn, "dsn", os.Getenv("DB_DSN"), "Postgres DSN of the audit log")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func encode(w io.Writer, format string, v any) error {
	switch format {
	case "json":
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	case "yaml":
		return yaml.NewEncoder(w).Encode(v)
	default:
		return fmt.Errorf("unknown output format %q", format)
	}
}
