// Package report renders trial results and chain statistics as aligned
// text tables.
package report

import (
	"fmt"
	"io"
	"slices"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/theflywheel/rehash"
	"github.com/theflywheel/rehash/internal/trial"
)

var (
	Primary = lipgloss.Color("#5D5FEF")
	Feint   = lipgloss.Color("#999999")

	TitleStyle  = lipgloss.NewStyle().Bold(true).Foreground(Primary)
	HeaderStyle = lipgloss.NewStyle().Bold(true)
	NoteStyle   = lipgloss.NewStyle().Foreground(Feint)
)

// Writer writes tables to an io.Writer. Styling is applied only when
// Styled is set, so piped output stays plain.
type Writer struct {
	out    io.Writer
	Styled bool
}

func New(out io.Writer, styled bool) *Writer {
	return &Writer{out: out, Styled: styled}
}

func (w *Writer) style(s lipgloss.Style, text string) string {
	if !w.Styled {
		return text
	}
	return s.Render(text)
}

func (w *Writer) table(title string, header []string, rows [][]string) error {
	if title != "" {
		if _, err := fmt.Fprintln(w.out, w.style(TitleStyle, title)); err != nil {
			return err
		}
	}
	tw := tabwriter.NewWriter(w.out, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintln(tw, strings.Join(header, "\t")); err != nil {
		return err
	}
	for _, row := range rows {
		if _, err := fmt.Fprintln(tw, strings.Join(row, "\t")); err != nil {
			return err
		}
	}
	return tw.Flush()
}

func micros(d time.Duration) string {
	return fmt.Sprintf("%.2f", float64(d)/float64(time.Microsecond))
}

// Results writes one row per trial with its latency summary in
// microseconds.
func (w *Writer) Results(results []trial.Result) error {
	header := []string{"Table", "Puts", "Entries", "Buckets", "Resizes", "Avg(us)", "P50(us)", "P99(us)", "Max(us)", "StdDev(us)"}
	rows := make([][]string, 0, len(results))
	for _, r := range results {
		bk, rs := "-", "-"
		if r.Stats != nil {
			bk = fmt.Sprint(r.Stats.Buckets)
			rs = fmt.Sprint(r.Stats.Resizes)
		}
		rows = append(rows, []string{
			r.Name,
			fmt.Sprint(r.Puts),
			fmt.Sprint(r.Entries),
			bk,
			rs,
			micros(r.Average),
			micros(r.P50),
			micros(r.P99),
			micros(r.Max),
			micros(r.StdDev),
		})
	}
	return w.table("Put latency", header, rows)
}

// Records writes the latency records of one trial: every Put slower than
// all Puts before it, with the bucket count around it.
func (w *Writer) Records(r trial.Result) error {
	header := []string{"Index", "Word", "Latency(us)", "Old", "New"}
	rows := make([][]string, 0, len(r.Records))
	for _, rec := range r.Records {
		rows = append(rows, []string{
			fmt.Sprint(rec.Index),
			rec.Word,
			micros(rec.Latency),
			fmt.Sprint(rec.OldBuckets),
			fmt.Sprint(rec.NewBuckets),
		})
	}
	return w.table("Latency records: "+r.Name, header, rows)
}

// Chains writes the chain length histogram followed by a summary line.
func (w *Writer) Chains(name string, cs rehash.ChainStats) error {
	lengths := make([]int, 0, len(cs.Lengths))
	for l := range cs.Lengths {
		lengths = append(lengths, l)
	}
	slices.Sort(lengths)

	rows := make([][]string, 0, len(lengths))
	for _, l := range lengths {
		rows = append(rows, []string{fmt.Sprint(l), fmt.Sprint(cs.Lengths[l])})
	}
	if err := w.table("Chain lengths: "+name, []string{"Length", "Buckets"}, rows); err != nil {
		return err
	}

	summary := fmt.Sprintf("%d entries in %d buckets, max chain %d, average search %.2f",
		cs.Entries, cs.Buckets, cs.MaxLength, cs.AverageSearch)
	_, err := fmt.Fprintln(w.out, w.style(NoteStyle, summary))
	return err
}
