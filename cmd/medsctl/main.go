// Command medsctl exports, lists and purges adherence reports kept in object storage.
//
//	medsctl export -user 1
//	medsctl list   -user 1
//	medsctl purge  -user 1
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"
	"time"

	"github.com/sirupsen/logrus"

	"medsbuddy/internal/app"
	"medsbuddy/internal/config"
	"medsbuddy/internal/report"
	"medsbuddy/internal/storage"
)

const usage = `usage: medsctl <command> -user <id>

commands:
  export   upload the user's current adherence report
  list     list the user's exported reports
  purge    delete all of the user's exported reports
`

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, "medsctl:", err)
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		fmt.Fprint(out, usage)
		return errors.New("missing command")
	}
	command := args[0]

	fs := flag.NewFlagSet(command, flag.ContinueOnError)
	userID := fs.Int64("user", 0, "user id")
	if err := fs.Parse(args[1:]); err != nil {
		return err
	}
	if *userID <= 0 {
		return errors.New("-user is required")
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if cfg.Storage.Bucket == "" {
		return storage.ErrBucketRequired
	}
	logger, err := app.NewLogger(cfg)
	if err != nil {
		return err
	}

	exporter, cleanup, err := newExporter(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	switch command {
	case "export":
		url, err := exporter.Export(ctx, *userID)
		if err != nil {
			return err
		}
		fmt.Fprintln(out, url)
	case "list":
		objects, err := exporter.List(ctx, *userID)
		if err != nil {
			return err
		}
		tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
		fmt.Fprintln(tw, "KEY\tSIZE\tMODIFIED")
		for _, obj := range objects {
			modified := "-"
			if obj.LastModified != nil {
				modified = obj.LastModified.UTC().Format(time.RFC3339)
			}
			fmt.Fprintf(tw, "%s\t%d\t%s\n", obj.Key, obj.Size, modified)
		}
		return tw.Flush()
	case "purge":
		n, err := exporter.Purge(ctx, *userID)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "deleted %d report(s)\n", n)
	default:
		fmt.Fprint(out, usage)
		return fmt.Errorf("unknown command %q", command)
	}
	return nil
}

func newExporter(ctx context.Context, cfg config.Config, logger *logrus.Logger) (*report.Exporter, func(), error) {
	client, err := storage.NewS3Client(ctx, storage.ClientOptions{
		Region:   cfg.Storage.Region,
		Endpoint: cfg.Storage.Endpoint,
		Profile:  cfg.AWS.Profile,
	})
	if err != nil {
		return nil, nil, err
	}

	repos, err := app.OpenRepositories(ctx, cfg, logger)
	if err != nil {
		return nil, nil, err
	}

	// exports always recompute; the server's cache is left alone
	services := app.NewServices(cfg, repos, nil, logger)
	exporter := report.NewExporter(services.Users, services.Medications, storage.NewS3Service(client), report.Config{
		Bucket:    cfg.Storage.Bucket,
		KeyPrefix: cfg.Storage.KeyPrefix,
		Logger:    logger,
	})
	logger.Debugf("using s3 bucket %s (region %s)", cfg.Storage.Bucket, cfg.Storage.Region)

	return exporter, func() { _ = repos.Close() }, nil
}
