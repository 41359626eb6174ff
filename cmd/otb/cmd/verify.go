package cmd

import (
	"fmt"
	"os"

	"github.com/OpenTraceLab/OpenTraceBench/pkg/busevent"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/seqfile"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/sigrok"
	"github.com/OpenTraceLab/OpenTraceBench/pkg/verify"
	"github.com/spf13/cobra"
)

var (
	verifySeqPath   string
	verifyName      string
	verifyInput     string
	verifyCS        bool
	verifyMOSIFirst bool
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check a saved capture against an expected sequence",
	Long: `Verify decodes saved capture tool output and compares it element by
element against a named sequence from a .seq file. The full comparison
report is printed either way; a mismatch makes the command exit
non-zero so CI picks it up.

Examples:
  otb verify i2c --seq seqs --name write_2_to_0x1 --input capture.txt
  otb verify spi --seq seqs/spi.seq --name standard_word --input capture.txt --cs`,
}

var verifyI2CCmd = &cobra.Command{
	Use:   "i2c",
	Short: "Verify an I2C capture",
	RunE:  runVerifyI2C,
}

var verifySPICmd = &cobra.Command{
	Use:   "spi",
	Short: "Verify an SPI capture",
	RunE:  runVerifySPI,
}

func init() {
	rootCmd.AddCommand(verifyCmd)
	verifyCmd.AddCommand(verifyI2CCmd, verifySPICmd)

	verifyCmd.PersistentFlags().StringVar(&verifySeqPath, "seq", "",
		"sequence file or directory of .seq files")
	verifyCmd.PersistentFlags().StringVarP(&verifyName, "name", "n", "",
		"name of the expected sequence")
	verifyCmd.PersistentFlags().StringVarP(&verifyInput, "input", "i", "",
		"file holding saved capture tool output")
	verifySPICmd.Flags().BoolVar(&verifyCS, "cs", false,
		"capture was recorded with a chip select channel")
	verifySPICmd.Flags().BoolVar(&verifyMOSIFirst, "mosi-first", false,
		"decoder prints the MOSI line before MISO")

	verifyCmd.MarkPersistentFlagRequired("seq")
	verifyCmd.MarkPersistentFlagRequired("name")
	verifyCmd.MarkPersistentFlagRequired("input")
}

func runVerifyI2C(cmd *cobra.Command, args []string) error {
	seq, err := lookupSequence("i2c")
	if err != nil {
		return err
	}
	expected, err := seq.Events()
	if err != nil {
		return err
	}

	lines, err := readCaptureLines(verifyInput)
	if err != nil {
		return err
	}
	actual, warnings := sigrok.DecodeI2C(lines)
	printWarnings(warnings)

	report := verify.Sequences(expected, actual)
	fmt.Println(report)
	if !report.Match {
		return fmt.Errorf("trace does not match sequence %q", verifyName)
	}
	return nil
}

func runVerifySPI(cmd *cobra.Command, args []string) error {
	seq, err := lookupSequence("spi")
	if err != nil {
		return err
	}
	want, err := seq.Transaction()
	if err != nil {
		return err
	}

	lines, err := readCaptureLines(verifyInput)
	if err != nil {
		return err
	}
	actual, warnings, err := sigrok.DecodeSPI(lines, sigrok.SPIDecodeOptions{
		ChipSelect: verifyCS,
		MOSIFirst:  verifyMOSIFirst,
	})
	printWarnings(warnings)
	if err != nil {
		return fmt.Errorf("decoding failed: %w", err)
	}

	report := verify.SequencesFunc([]busevent.SPITransaction{want}, actual, busevent.SPITransaction.Equal)
	fmt.Println(report)
	if !report.Match {
		return fmt.Errorf("trace does not match sequence %q", verifyName)
	}
	return nil
}

// lookupSequence loads the named sequence from --seq, which may be a
// single .seq file or a directory of them.
func lookupSequence(proto string) (*seqfile.Sequence, error) {
	info, err := os.Stat(verifySeqPath)
	if err != nil {
		return nil, fmt.Errorf("reading sequences: %w", err)
	}

	var seq *seqfile.Sequence
	if info.IsDir() {
		repo, err := seqfile.LoadDir(verifySeqPath)
		if err != nil {
			return nil, err
		}
		found, ok := repo.Lookup(verifyName)
		if !ok {
			return nil, fmt.Errorf("no sequence %q in %s (have %v)", verifyName, verifySeqPath, repo.Names())
		}
		seq = found
	} else {
		parser, err := seqfile.NewParser()
		if err != nil {
			return nil, err
		}
		file, err := parser.ParseFile(verifySeqPath)
		if err != nil {
			return nil, err
		}
		for _, s := range file.Sequences {
			if s.Name == verifyName {
				seq = s
				break
			}
		}
		if seq == nil {
			return nil, fmt.Errorf("no sequence %q in %s", verifyName, verifySeqPath)
		}
	}

	if seq.Proto != proto {
		return nil, fmt.Errorf("sequence %q is %s, not %s", verifyName, seq.Proto, proto)
	}
	return seq, nil
}
