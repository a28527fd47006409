package stats

import (
	"fmt"
	"io"
	"math"
	"os"
	"strings"

	"golang.org/x/term"
)

const (
	sparkChars          = " .:-=+*#%@"
	terminalWidthBackup = 80
	minNameWidth        = 12
	colorReset          = "\x1b[0m"
)

var rarityColors = map[int]string{
	5: "\x1b[33m",
	4: "\x1b[35m",
}

// RenderOptions controls plain-text output.
type RenderOptions struct {
	// Width is the total line width; 0 means the terminal width.
	Width int
	// HistoryLimit caps the number of history rows; 0 prints all of them.
	HistoryLimit int
	Color        bool
}

// Sparkline renders a single-line ASCII sparkline for the values.
func Sparkline(values []float64) string {
	if len(values) == 0 {
		return ""
	}
	minVal := values[0]
	maxVal := values[0]
	for _, v := range values[1:] {
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}
	}
	if math.Abs(maxVal-minVal) < 1e-9 {
		return strings.Repeat(string(sparkChars[len(sparkChars)/2]), len(values))
	}
	var b strings.Builder
	for _, v := range values {
		pos := (v - minVal) / (maxVal - minVal)
		idx := int(math.Round(pos * float64(len(sparkChars)-1)))
		if idx < 0 {
			idx = 0
		}
		if idx >= len(sparkChars) {
			idx = len(sparkChars) - 1
		}
		b.WriteByte(sparkChars[idx])
	}
	return b.String()
}

// RenderReport prints every section for one owner.
func RenderReport(w io.Writer, s Summary, opts RenderOptions) error {
	if opts.Width <= 0 {
		opts.Width = TerminalWidth()
	}
	if _, err := fmt.Fprintf(w, "UID %d\n\n", s.UID); err != nil {
		return err
	}
	if err := RenderSummary(w, s); err != nil {
		return err
	}
	if err := RenderPity(w, s.Pity); err != nil {
		return err
	}
	if err := RenderLowPity(w, s.LowPity); err != nil {
		return err
	}
	return RenderHistory(w, s.History, opts)
}

// RenderSummary prints totals and average pity per category.
func RenderSummary(w io.Writer, s Summary) error {
	if s.TotalWishes == 0 {
		_, err := fmt.Fprintln(w, "No wishes found.")
		return err
	}
	if _, err := fmt.Fprintln(w, "Summary"); err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "Total wishes: %d\n", s.TotalWishes); err != nil {
		return err
	}
	st := s.Statistics
	headers := []string{"Category", "Total", "Avg Pity"}
	rows := [][]string{
		{"5★ Characters", fmt.Sprintf("%d", st.Characters5.Total), fmt.Sprintf("%.2f", st.Characters5.AveragePity)},
		{"5★ Weapons", fmt.Sprintf("%d", st.Weapons5.Total), fmt.Sprintf("%.2f", st.Weapons5.AveragePity)},
		{"4★ Characters", fmt.Sprintf("%d", st.Characters4.Total), fmt.Sprintf("%.2f", st.Characters4.AveragePity)},
		{"4★ Weapons", fmt.Sprintf("%d", st.Weapons4.Total), fmt.Sprintf("%.2f", st.Weapons4.AveragePity)},
		{"3★ Weapons", fmt.Sprintf("%d", st.Weapons3), "-"},
	}
	if err := writeLines(w, formatTable(headers, rows, map[int]bool{1: true, 2: true})); err != nil {
		return err
	}
	if line := Sparkline(s.FivestarPities()); line != "" {
		if _, err := fmt.Fprintf(w, "5★ pity trend: %s\n", line); err != nil {
			return err
		}
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderPity prints the current pity of every banner.
func RenderPity(w io.Writer, pity []BannerPity) error {
	if len(pity) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Current Pity"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(pity))
	for _, p := range pity {
		rows = append(rows, []string{p.Name, fmt.Sprintf("%d", p.Pity4), fmt.Sprintf("%d", p.Pity5)})
	}
	if err := writeLines(w, formatTable([]string{"Banner", "4★", "5★"}, rows, map[int]bool{1: true, 2: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderLowPity prints the luckiest 5-star pulls.
func RenderLowPity(w io.Writer, low []LowPity) error {
	if len(low) == 0 {
		return nil
	}
	if _, err := fmt.Fprintln(w, "Lowest 5★ Pity"); err != nil {
		return err
	}
	rows := make([][]string, 0, len(low))
	for _, l := range low {
		rows = append(rows, []string{l.Name, fmt.Sprintf("%d", l.Pity)})
	}
	if err := writeLines(w, formatTable([]string{"Name", "Pity"}, rows, map[int]bool{1: true})); err != nil {
		return err
	}
	_, err := fmt.Fprintln(w, "")
	return err
}

// RenderHistory prints history entries, newest first as given.
func RenderHistory(w io.Writer, history []Entry, opts RenderOptions) error {
	if len(history) == 0 {
		_, err := fmt.Fprintln(w, "No history found.")
		return err
	}
	if opts.HistoryLimit > 0 && len(history) > opts.HistoryLimit {
		history = history[:opts.HistoryLimit]
	}
	if _, err := fmt.Fprintln(w, "History"); err != nil {
		return err
	}
	nameWidth := 0
	if opts.Width > 0 {
		// time(19) + type(9) + rarity(5) + pity(4) + banner(24) + separators
		nameWidth = max(opts.Width-19-9-5-4-24-10, minNameWidth)
	}
	rows := make([][]string, 0, len(history))
	for _, e := range history {
		pity := ""
		if e.HasPity {
			pity = fmt.Sprintf("%d", e.Pity)
		}
		rows = append(rows, []string{
			e.Time,
			truncate(e.Name, nameWidth),
			e.Category.Label(),
			e.RarityText,
			pity,
			e.BannerName,
		})
	}
	lines := formatTable([]string{"Time", "Name", "Type", "Rarity", "Pity", "Banner"}, rows, map[int]bool{4: true})
	if opts.Color && len(lines) > 0 {
		for i, e := range history {
			if code, ok := rarityColors[e.Rarity]; ok {
				lines[i+1] = code + lines[i+1] + colorReset
			}
		}
	}
	return writeLines(w, lines)
}

// TerminalWidth returns the stdout width, or 80 when it is not a terminal.
func TerminalWidth() int {
	width, _, err := term.GetSize(int(os.Stdout.Fd()))
	if err != nil || width <= 0 {
		return terminalWidthBackup
	}
	return width
}

// ShouldUseColor reports whether w is a terminal and NO_COLOR is unset.
func ShouldUseColor(w io.Writer) bool {
	if os.Getenv("NO_COLOR") != "" {
		return false
	}
	file, ok := w.(*os.File)
	if !ok {
		return false
	}
	return term.IsTerminal(int(file.Fd()))
}

func writeLines(w io.Writer, lines []string) error {
	for _, line := range lines {
		if _, err := fmt.Fprintln(w, line); err != nil {
			return err
		}
	}
	return nil
}
