package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"text/tabwriter"

	"github.com/charmbracelet/lipgloss"
	"github.com/mattn/go-isatty"

	"rastreo/internal/carriers"
	"rastreo/internal/database"
)

// OutputFormatter renders API results for the terminal
type OutputFormatter struct {
	format string
	quiet  bool
	color  bool

	headerStyle    lipgloss.Style
	deliveredStyle lipgloss.Style
	transitStyle   lipgloss.Style
	errorStyle     lipgloss.Style
	dimStyle       lipgloss.Style
}

// NewOutputFormatter creates a new output formatter. Color is dropped when
// stdout is not a terminal or when disabled explicitly.
func NewOutputFormatter(format string, quiet, noColor bool) *OutputFormatter {
	color := !noColor && isatty.IsTerminal(os.Stdout.Fd())
	f := &OutputFormatter{format: format, quiet: quiet, color: color}
	if color {
		f.headerStyle = lipgloss.NewStyle().Bold(true)
		f.deliveredStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("10")) // Green
		f.transitStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("12"))   // Blue
		f.errorStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))      // Red
		f.dimStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("8"))        // Gray
	}
	return f
}

// PrintResult prints one tracking result envelope.
func (f *OutputFormatter) PrintResult(result *carriers.ScraperResult) error {
	if f.format == "json" {
		return json.NewEncoder(os.Stdout).Encode(result)
	}
	if !result.Success {
		fmt.Println(f.errorStyle.Render("✗ " + result.Error))
		return nil
	}

	info := result.Data
	if f.quiet {
		fmt.Println(info.CurrentStatus)
		return nil
	}

	fmt.Println(f.headerStyle.Render(info.Carrier + " " + info.TrackingNumber))
	fmt.Printf("  Estado:   %s\n", f.statusStyle(info.CurrentStatus).Render(info.CurrentStatus))
	fmt.Printf("  Origen:   %s\n", info.Origin)
	fmt.Printf("  Destino:  %s\n", info.Destination)
	fmt.Printf("  Piezas:   %s\n", info.Pieces)
	fmt.Printf("  Peso:     %s\n", info.Weight)
	if info.SignedBy != "" {
		fmt.Printf("  Recibió:  %s\n", info.SignedBy)
	}
	if info.Incidents != "" {
		fmt.Printf("  Incidencias: %s\n", info.Incidents)
	}

	if len(info.Timeline) > 0 {
		fmt.Println()
		fmt.Println(f.headerStyle.Render("  Historial"))
		for _, ev := range info.Timeline {
			line := fmt.Sprintf("  %s  %s", ev.Datetime, ev.Status)
			if ev.Location != "" && ev.Location != "N/A" {
				line += f.dimStyle.Render("  (" + ev.Location + ")")
			}
			fmt.Println(line)
		}
	}
	return nil
}

// PrintHistory prints history entries.
func (f *OutputFormatter) PrintHistory(entries []database.HistoryEntry) error {
	if f.quiet {
		for _, e := range entries {
			fmt.Println(e.ID)
		}
		return nil
	}
	if f.format == "json" {
		return json.NewEncoder(os.Stdout).Encode(entries)
	}
	if len(entries) == 0 {
		fmt.Println("No hay consultas guardadas.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tCARRIER\tNÚMERO\tESTADO\tACTUALIZADO")
	for _, e := range entries {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
			e.ID,
			e.Carrier.DisplayName(),
			e.TrackingNumber,
			truncate(e.LastStatus, 40),
			e.Timestamp.Local().Format("2006-01-02 15:04"))
	}
	return nil
}

// PrintCarriers prints the carrier registry.
func (f *OutputFormatter) PrintCarriers(infos []carriers.CarrierInfo) error {
	if f.format == "json" {
		return json.NewEncoder(os.Stdout).Encode(infos)
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 0, 2, ' ', 0)
	defer w.Flush()

	fmt.Fprintln(w, "ID\tNOMBRE\tIDENTIFICADOR")
	for _, info := range infos {
		example := info.Placeholder["trackingNumber"]
		if info.Composite {
			example = info.Placeholder["letra"] + " / " + info.Placeholder["boca"] + " / " + info.Placeholder["numero"]
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", info.ID, info.DisplayName, example)
	}
	return nil
}

// PrintSuccess prints a success message
func (f *OutputFormatter) PrintSuccess(message string) {
	if !f.quiet {
		fmt.Println(f.deliveredStyle.Render("✓ " + message))
	}
}

// PrintError prints an error message
func (f *OutputFormatter) PrintError(err error) {
	fmt.Fprintln(os.Stderr, f.errorStyle.Render("✗ Error: "+err.Error()))
}

func (f *OutputFormatter) statusStyle(status string) lipgloss.Style {
	if strings.Contains(strings.ToLower(status), "entregado") {
		return f.deliveredStyle
	}
	return f.transitStyle
}

// truncate shortens s to at most n runes. Status text is Spanish, so the
// cut must not split a multibyte rune.
func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-3]) + "..."
}
