// Command byfl-dump renders a byfl binary-output stream (spec.md §4.8) as
// plain text, one line per table/column/row event. It is the minimal
// illustrative consumer of internal/binout's streaming parser: a real
// reporting tool would instead accumulate the rows into summary tables, but
// the callback sequence it drives is identical.
package main

import (
	"fmt"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/lanl/byflgo/internal/binout"
)

type textHandler struct {
	out *os.File
}

func (h *textHandler) TableBegin(name string) error {
	_, err := fmt.Fprintf(h.out, "table %q\n", name)
	return err
}

func (h *textHandler) ColumnBegin(name string, typ binout.ColumnTag) error {
	_, err := fmt.Fprintf(h.out, "  column %q\n", name)
	return err
}

func (h *textHandler) ColumnEnd() error { return nil }

func (h *textHandler) RowBegin() error {
	_, err := fmt.Fprint(h.out, "  row")
	return err
}

func (h *textHandler) DataUint64(v uint64) error {
	_, err := fmt.Fprintf(h.out, " %d", v)
	return err
}

func (h *textHandler) DataString(v string) error {
	_, err := fmt.Fprintf(h.out, " %q", v)
	return err
}

func (h *textHandler) DataBool(v bool) error {
	_, err := fmt.Fprintf(h.out, " %t", v)
	return err
}

func (h *textHandler) RowEnd() error {
	_, err := fmt.Fprintln(h.out)
	return err
}

func (h *textHandler) TableEnd() error { return nil }

func main() {
	var liveTail bool

	root := &cobra.Command{
		Use:   "byfl-dump <file>",
		Short: "dump a byfl binary-output stream as text",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := logrus.New()

			f, err := os.Open(args[0])
			if err != nil {
				log.WithError(err).Error("opening binary-output stream")
				return err
			}
			defer f.Close()

			p := binout.NewParser(f, binout.Options{LiveTail: liveTail})
			if err := p.CheckMagic(); err != nil {
				log.WithError(err).Error("bad magic")
				return err
			}
			if err := p.Run(&textHandler{out: os.Stdout}); err != nil {
				log.WithError(err).Error("parsing binary-output stream")
				return err
			}
			return nil
		},
	}
	root.Flags().BoolVar(&liveTail, "follow", false, "tail a still-growing file, retrying on EOF with exponential backoff")

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}
