// Command companyctl fetches company records from the OpenAPI Company
// service and saves them to a file. It authenticates with either an
// existing token or account credentials.
package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	"github.com/jessevdk/go-flags"

	"github.com/mbertoni/openapi-company/company"
	"github.com/mbertoni/openapi-company/core"
)

type options struct {
	Email  string `long:"email" description:"OpenAPI account email"`
	APIKey string `long:"api-key" description:"OpenAPI account API key"`
	Token  string `long:"token" description:"Use an existing token instead of generating one"`

	Endpoint      string `long:"endpoint" default:"IT" description:"Dataset to query (e.g. IT, IT-marketing, IT-full)"`
	VAT           string `long:"vat" description:"VAT number to search for"`
	FiscalCode    string `long:"fiscal-code" description:"Fiscal code to search for"`
	CompanyNumber string `long:"company-number" description:"Company registration number to search for"`

	Output string `long:"output" default:"company_data.json" description:"Output file name"`
	Format string `long:"format" default:"json" choice:"json" choice:"txt" description:"Output file format"`

	Env      string   `long:"env" default:"production" choice:"production" choice:"sandbox" description:"Deployment to use"`
	Scopes   []string `long:"scope" description:"Scope for generated tokens (repeatable)"`
	TTLHours int      `long:"ttl-hours" default:"24" description:"Lifetime of generated tokens in hours"`

	Verbose bool `short:"v" long:"verbose" description:"Enable debug logging"`
}

func main() {
	if err := run(os.Args[1:]); err != nil {
		var flagsErr *flags.Error
		if errors.As(err, &flagsErr) && flagsErr.Type == flags.ErrHelp {
			return
		}
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}

func run(args []string) error {
	opts := &options{}
	if _, err := flags.ParseArgs(opts, args); err != nil {
		return err
	}

	level := slog.LevelWarn
	if opts.Verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level}))

	if opts.Token == "" && (opts.Email == "" || opts.APIKey == "") {
		return fmt.Errorf("provide either --token or both --email and --api-key")
	}

	params := company.SearchParams{
		VAT:           opts.VAT,
		FiscalCode:    opts.FiscalCode,
		CompanyNumber: opts.CompanyNumber,
	}
	if params == (company.SearchParams{}) {
		return fmt.Errorf("provide at least one search parameter (--vat, --fiscal-code or --company-number)")
	}

	if opts.VAT != "" && !company.VATChecksumOK(opts.VAT) {
		logger.Warn("vat code check digit does not match, the search may return nothing",
			slog.String("vat", opts.VAT),
		)
	}

	comp, err := company.New(&company.Config{
		Email:       opts.Email,
		APIKey:      opts.APIKey,
		StaticToken: opts.Token,
		Environment: company.Environment(opts.Env),
		Scopes:      opts.Scopes,
		TokenTTL:    time.Duration(opts.TTLHours) * time.Hour,
		Logger:      logger,
	})
	if err != nil {
		return err
	}

	ctx := context.Background()

	token, err := comp.TokenManager().Token(ctx)
	if err != nil {
		return fmt.Errorf("authentication failed: %w", err)
	}
	logger.Info("authenticated", slog.String("token", core.RedactToken(token)))

	resp, err := comp.Search(ctx, opts.Endpoint, params)
	if err != nil {
		return fmt.Errorf("search on %s failed: %w", opts.Endpoint, err)
	}

	if err := save(resp, opts.Output, opts.Format); err != nil {
		return err
	}

	fmt.Printf("data saved to %s\n", opts.Output)
	return nil
}

func save(resp *company.Response, filename, format string) error {
	var data []byte
	if format == "json" {
		data = resp.PrettyJSON()
	} else {
		data = []byte(resp.String())
	}

	if err := os.WriteFile(filename, data, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filename, err)
	}
	return nil
}
