package main

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"

	"github.com/Cody0002/QBO-Automation-Bot/pkg/models"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/rawadapter"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/rawfile"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/resolver"
	"github.com/Cody0002/QBO-Automation-Bot/pkg/transform"
)

var previewCmd = &cobra.Command{
	Use:   "preview [flags] <input_path>",
	Short: "Dry-run a transform over a local workbook and print the documents",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		logger := newLogger()

		country, _ := cmd.Flags().GetString("country")
		month, _ := cmd.Flags().GetString("month")
		client, _ := cmd.Flags().GetString("client")

		header, rows, err := rawfile.Read(args[0])
		if err != nil {
			return err
		}

		raw := rawadapter.Standardize(header, rows, client, month)
		if len(raw) == 0 {
			fmt.Println("no rows found")
			return nil
		}
		logger.Debug("standardized raw rows", "rows", len(raw))

		// Name lookups all pass offline; validation against a live
		// mapping set happens during a real ingestion run.
		engine := transform.New(logger, resolver.AllowAll())
		result := engine.Transform(transform.Input{Rows: raw, Country: country})

		printPreview(result)
		return nil
	},
}

func init() {
	previewCmd.Flags().String("country", "PH", "Country code for document numbers")
	previewCmd.Flags().String("month", "", "Month context for yearless dates (e.g. 'Feb 2025')")
	previewCmd.Flags().String("client", "", "Client name, used to pick the raw layout")
}

func printPreview(result transform.Result) {
	headerStyle := lipgloss.NewStyle().Bold(true)
	okStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("10"))  // green
	errStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("9"))  // red
	noteStyle := lipgloss.NewStyle().Foreground(lipgloss.Color("8")) // gray

	styled := func(remarks string) string {
		if models.IsError(remarks) {
			return errStyle.Render(remarks)
		}
		return okStyle.Render(remarks)
	}

	if len(result.Journals) > 0 {
		fmt.Println(headerStyle.Render("Journals"))
		for _, l := range result.Journals {
			line := fmt.Sprintf("%s | %s | %-40s | %10.2f | %s", l.JournalNo, l.Date.Format("2006-01-02"), l.Account, l.Amount, styled(l.Remarks))
			fmt.Println(line)
		}
	}
	if len(result.Expenses) > 0 {
		fmt.Println(headerStyle.Render("Expenses"))
		for _, e := range result.Expenses {
			line := fmt.Sprintf("%s | %s | %-40s | %10.2f | %s", e.RefNo, e.PaymentDate.Format("2006-01-02"), e.ExpenseAccount, e.Amount, styled(e.Remarks))
			fmt.Println(line)
		}
	}
	if len(result.Transfers) > 0 {
		fmt.Println(headerStyle.Render("Transfers"))
		for _, t := range result.Transfers {
			line := fmt.Sprintf("%s | %s | %s -> %s | %10.2f | %s", t.RefNo, t.Date.Format("2006-01-02"), t.FromAccount, t.ToAccount, t.Amount, styled(t.Remarks))
			fmt.Println(line)
		}
	}

	fmt.Println(noteStyle.Render(fmt.Sprintf("\n%d journal line(s), %d expense(s), %d transfer(s), last source row %d",
		len(result.Journals), len(result.Expenses), len(result.Transfers), result.MaxRowProcessed)))
}
