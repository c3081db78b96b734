// Command dbinspect prints the state of the database schema and can reset it
// in development.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"strings"
	"text/tabwriter"

	"inkwell/internal/config"
	"inkwell/internal/database"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func usage() error {
	return fmt.Errorf("usage: go run ./cmd/dbinspect <schema|constraints|reset -yes>")
}

func run() error {
	flag.Parse()
	if flag.NArg() < 1 {
		return usage()
	}

	cfg, err := config.LoadConfig()
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	db, err := database.Connect(cfg)
	if err != nil {
		return fmt.Errorf("connect database: %w", err)
	}

	ctx := context.Background()
	switch strings.ToLower(flag.Arg(0)) {
	case "schema":
		tables, err := database.InspectSchema(ctx, db)
		if err != nil {
			return err
		}
		w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
		for _, t := range tables {
			if !t.Exists {
				fmt.Fprintf(w, "%s\t(missing)\n", t.Name)
				continue
			}
			fmt.Fprintf(w, "%s\t%d rows\tindexes: %s\n", t.Name, t.Rows, strings.Join(t.Indexes, ", "))
			for _, c := range t.Columns {
				var flags []string
				if c.Primary {
					flags = append(flags, "pk")
				}
				if c.Nullable {
					flags = append(flags, "null")
				}
				fmt.Fprintf(w, "  %s\t%s\t%s\n", c.Name, c.Type, strings.Join(flags, ","))
			}
		}
		return w.Flush()
	case "constraints":
		constraints, err := database.ListConstraints(ctx, db)
		if err != nil {
			return err
		}
		for _, c := range constraints {
			fmt.Printf(" - %s on %s: %s\n", c.Name, c.Table, c.Definition)
		}
	case "reset":
		fs := flag.NewFlagSet("reset", flag.ExitOnError)
		yes := fs.Bool("yes", false, "confirm dropping every table")
		_ = fs.Parse(flag.Args()[1:])
		if !*yes {
			return fmt.Errorf("reset drops all data; rerun with -yes")
		}
		if err := database.ResetSchema(ctx, db, cfg); err != nil {
			return err
		}
		log.Println("schema reset; run ./cmd/migrate up to recreate it")
	default:
		return usage()
	}
	return nil
}
