package main

import (
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/cwbudde/algo-bss/measure/separation"
)

func report(w io.Writer, estimates, images [][]float64) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	if _, err := fmt.Fprintf(tw, "Estimate\tSource\tCorrelation\tSDR [dB]\tLevel [dB]\n"); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	if _, err := fmt.Fprintf(tw, "--------\t------\t-----------\t--------\t----------\n"); err != nil {
		return fmt.Errorf("failed to write report header: %w", err)
	}
	for _, s := range separation.Match(estimates, images) {
		if _, err := fmt.Fprintf(tw, "%d\t%d\t%.4f\t%.2f\t%.2f\n",
			s.Estimate, s.Source, s.Correlation, s.SDR_dB, s.Level_dB); err != nil {
			return fmt.Errorf("failed to write report row: %w", err)
		}
	}
	return tw.Flush()
}
