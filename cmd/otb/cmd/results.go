package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/results"
	"github.com/spf13/cobra"
)

var (
	resultsDB     string
	resultsLog    string
	resultsSuite  string
	resultsTarget string
	resultsOut    string
)

var resultsCmd = &cobra.Command{
	Use:   "results",
	Short: "Import and report greentea run logs",
	Long: `Results keeps per-run test outcomes in a SQLite database so CI history
survives individual runs.

Examples:
  otb results import --db ci.db --log run.log --suite i2c --target DISCO_L475VG_IOT01A
  otb results report --db ci.db --out report.html`,
}

var resultsImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Parse a run log and store its case results",
	RunE:  runResultsImport,
}

var resultsReportCmd = &cobra.Command{
	Use:   "report",
	Short: "Render an HTML report of all stored runs",
	RunE:  runResultsReport,
}

func init() {
	rootCmd.AddCommand(resultsCmd)
	resultsCmd.AddCommand(resultsImportCmd, resultsReportCmd)

	resultsCmd.PersistentFlags().StringVar(&resultsDB, "db", "otb-results.db", "results database file")

	resultsImportCmd.Flags().StringVar(&resultsLog, "log", "", "greentea run log to import")
	resultsImportCmd.Flags().StringVar(&resultsSuite, "suite", "", "test suite name")
	resultsImportCmd.Flags().StringVar(&resultsTarget, "target", "", "DUT target name")
	resultsImportCmd.MarkFlagRequired("log")
	resultsImportCmd.MarkFlagRequired("suite")
	resultsImportCmd.MarkFlagRequired("target")

	resultsReportCmd.Flags().StringVarP(&resultsOut, "out", "o", "", "output file (default: stdout)")
}

func runResultsImport(cmd *cobra.Command, args []string) error {
	f, err := os.Open(resultsLog)
	if err != nil {
		return fmt.Errorf("opening run log: %w", err)
	}
	defer f.Close()

	cases, err := results.ParseRunLog(f)
	if err != nil {
		return fmt.Errorf("parsing run log: %w", err)
	}

	store, err := results.Open(resultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	runID, err := store.ImportRun(resultsTarget, resultsSuite, cases)
	if err != nil {
		return err
	}

	fmt.Printf("imported run %d: %d case(s)\n", runID, len(cases))
	return nil
}

func runResultsReport(cmd *cobra.Command, args []string) error {
	store, err := results.Open(resultsDB)
	if err != nil {
		return err
	}
	defer store.Close()

	out := os.Stdout
	if resultsOut != "" {
		f, err := os.Create(resultsOut)
		if err != nil {
			return fmt.Errorf("creating report: %w", err)
		}
		defer f.Close()
		out = f
	}

	if err := store.Report(out); err != nil {
		return fmt.Errorf("rendering report: %w", err)
	}
	if verbose && resultsOut != "" {
		fmt.Printf("Report written to %s\n", resultsOut)
	}
	return nil
}
