package main

import (
	"fmt"
	"io"
	"strings"
	"unicode/utf8"

	"github.com/pkg/errors"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"golang.org/x/text/encoding/ianaindex"

	"github.com/go-data-exporter/cursor"
	"github.com/go-data-exporter/cursor/codec"
	"github.com/go-data-exporter/cursor/executor"
	"github.com/go-data-exporter/cursor/model"
	"github.com/go-data-exporter/cursor/source"
)

type outputFlags struct {
	Format string
	Out    string
}

func (f *outputFlags) register(cmd *cobra.Command) {
	flags := cmd.Flags()
	flags.StringVarP(&f.Format, "format", "f", "tsv", "Output format: tsv, csv, json or ndjson")
	flags.StringVarP(&f.Out, "out", "o", "", "Output file. Default writes to stdout")
}

// export writes c in the selected format.
func (f *outputFlags) export(c cursor.Cursor[cursor.Row], stdout io.Writer) error {
	cd, err := codec.ByName(f.Format)
	if err != nil {
		return err
	}
	e := cursor.NewExporter(cursor.RowsOf(c), cd)
	if f.Out == "" {
		return e.Write(stdout)
	}
	if err := e.WriteFile(f.Out); err != nil {
		return err
	}
	log.Info().Str("file", f.Out).Msg("export written")
	return nil
}

func rootCommand() *cobra.Command {
	var verbose bool
	cmd := &cobra.Command{
		Use:           "cursorctl",
		Short:         "Enumerate, count and export data through cursors",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, args []string) {
			level := zerolog.InfoLevel
			if verbose {
				level = zerolog.DebugLevel
			}
			zerolog.SetGlobalLevel(level)
		},
	}
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Log debug events")
	cmd.AddCommand(fileCommand(), queryCommand(), pageCommand())
	return cmd
}

type fileFlags struct {
	Header    bool
	Delimiter string
	Enclosure string
	NoTrim    bool
	Fields    int
	Encoding  string
	Start     int
	Count     bool
	output    outputFlags
}

func singleRune(name, s string) (rune, error) {
	if s == `\t` {
		return '\t', nil
	}
	r, size := utf8.DecodeRuneInString(s)
	if size == 0 || size != len(s) {
		return 0, errors.Errorf("--%s must be a single character, got %q", name, s)
	}
	return r, nil
}

func (f *fileFlags) options() ([]source.Option, error) {
	delimiter, err := singleRune("delimiter", f.Delimiter)
	if err != nil {
		return nil, err
	}
	enclosure, err := singleRune("enclosure", f.Enclosure)
	if err != nil {
		return nil, err
	}
	opts := []source.Option{
		source.WithLogger(log.Logger),
		source.WithHeaderRow(f.Header),
		source.WithDelimiter(delimiter),
		source.WithEnclosure(enclosure),
		source.WithTrim(!f.NoTrim),
		source.WithFieldCount(f.Fields),
	}
	if f.Encoding != "" {
		enc, err := ianaindex.IANA.Encoding(f.Encoding)
		if err != nil || enc == nil {
			return nil, errors.Errorf("unsupported encoding %q", f.Encoding)
		}
		opts = append(opts, source.WithEncoding(enc))
	}
	return opts, nil
}

func fileCommand() *cobra.Command {
	var f fileFlags
	cmd := &cobra.Command{
		Use:   "file PATH",
		Short: "Count or export the records of a delimited text file",
		Example: `
		$ cursorctl file people.csv --header --count
		$ cursorctl file people.csv.gz --header -f json --start 10`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			opts, err := f.options()
			if err != nil {
				return err
			}
			src, err := source.NewTextFileSource[cursor.Row](args[0], nil, opts...)
			if err != nil {
				return err
			}
			defer src.Close()
			if f.Count {
				n, err := src.Count()
				if err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), n)
				return nil
			}
			if err := src.Start(f.Start); err != nil {
				return err
			}
			return f.output.export(src, cmd.OutOrStdout())
		},
	}
	flags := cmd.Flags()
	flags.BoolVar(&f.Header, "header", false, "The first record names the columns")
	flags.StringVarP(&f.Delimiter, "delimiter", "d", ",", `Field delimiter, \t for tab`)
	flags.StringVar(&f.Enclosure, "enclosure", `"`, "Field enclosure")
	flags.BoolVar(&f.NoTrim, "no-trim", false, "Keep surrounding white space of fields")
	flags.IntVar(&f.Fields, "fields", 0, "Required number of fields per record")
	flags.StringVar(&f.Encoding, "encoding", "", "Character set of the file, e.g. ISO-8859-1")
	flags.IntVar(&f.Start, "start", 0, "Skip this many records")
	flags.BoolVar(&f.Count, "count", false, "Print the number of records instead of exporting")
	f.output.register(cmd)
	return cmd
}

func queryCommand() *cobra.Command {
	var f outputFlags
	cmd := &cobra.Command{
		Use:   "query DATABASE SQL [PARAM]...",
		Short: "Export the result of a query on a sqlite database",
		Example: `
		$ cursorctl query app.db "SELECT * FROM items WHERE kind = ?" fruit -f csv -o items.csv`,
		Args: cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := executor.OpenSQLite(args[0])
			if err != nil {
				return err
			}
			params := make([]any, 0, len(args)-2)
			for _, p := range args[2:] {
				params = append(params, p)
			}
			q, err := source.NewRowQuery(executor.NewGorm(db), args[1], params,
				source.WithLogger(log.Logger), source.WithContext(cmd.Context()))
			if err != nil {
				return err
			}
			defer q.Close()
			switch {
			case f.Out != "" && f.Format == "tsv":
				_, err = q.ToTSV(f.Out)
				return err
			case f.Out != "" && f.Format == "csv":
				_, err = q.ToCSV(f.Out)
				return err
			}
			return f.export(q, cmd.OutOrStdout())
		},
	}
	f.register(cmd)
	return cmd
}

type pageFlags struct {
	Page    int
	PerPage int
	OrderBy string
	Where   []string
	output  outputFlags
}

func (f *pageFlags) criteria() (source.Criteria, error) {
	criteria := make(source.Criteria, len(f.Where))
	for _, w := range f.Where {
		k, v, ok := strings.Cut(w, "=")
		if !ok {
			return nil, errors.Errorf("--where must be column=value, got %q", w)
		}
		criteria[k] = v
	}
	return criteria, nil
}

func pageCommand() *cobra.Command {
	var f pageFlags
	cmd := &cobra.Command{
		Use:   "page DATABASE TABLE",
		Short: "Export one page of a sqlite table",
		Example: `
		$ cursorctl page app.db items --page 2 --per-page 20 --order "name ASC" -w kind=fruit`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := executor.OpenSQLite(args[0])
			if err != nil {
				return err
			}
			table, err := model.NewTable(args[1])
			if err != nil {
				return err
			}
			criteria, err := f.criteria()
			if err != nil {
				return err
			}
			view, err := source.NewPagedView[cursor.Row](executor.NewGorm(db), table, criteria, f.Page, f.PerPage, f.OrderBy,
				source.WithLogger(log.Logger), source.WithContext(cmd.Context()))
			if err != nil {
				return err
			}
			defer view.Close()
			if err := f.output.export(view, cmd.OutOrStdout()); err != nil {
				return err
			}
			page, _ := view.Page()
			pages, _ := view.PageCount()
			first, _ := view.First()
			last, _ := view.Last()
			total, _ := view.Total()
			log.Info().
				Int("page", page).
				Int("pages", pages).
				Msgf("records %d-%d of %d", first, last, total)
			return nil
		},
	}
	flags := cmd.Flags()
	flags.IntVarP(&f.Page, "page", "p", 1, "Page number")
	flags.IntVarP(&f.PerPage, "per-page", "n", 20, "Records per page, 0 for all")
	flags.StringVar(&f.OrderBy, "order", "", "Order by columns, e.g. \"name DESC\"")
	flags.StringArrayVarP(&f.Where, "where", "w", []string{}, "Filter column=value")
	f.output.register(cmd)
	return cmd
}
