package commands

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/Makoq/evalsmith/pkg/domain"
)

func newDatasetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "datasets",
		Short: "Inspect platform datasets",
	}
	cmd.AddCommand(newExamplesCommand())
	return cmd
}

func newExamplesCommand() *cobra.Command {
	var (
		datasetRef string
		splits     []string
		asOf       string
		limit      int
	)

	cmd := &cobra.Command{
		Use:   "examples",
		Short: "List a dataset's examples",
		RunE: func(cmd *cobra.Command, args []string) error {
			if datasetRef == "" {
				return fmt.Errorf("--dataset is required")
			}

			store, err := newPlatformClient()
			if err != nil {
				return err
			}

			ref := parseDatasetRef(datasetRef)
			ds, err := store.GetDataset(cmd.Context(), ref)
			if err != nil {
				return err
			}

			var filter *domain.ExampleFilter
			if len(splits) > 0 || asOf != "" {
				filter = &domain.ExampleFilter{Splits: splits, AsOfVersion: asOf}
			}
			examples, err := store.ListExamples(cmd.Context(), ref, filter)
			if err != nil {
				return err
			}

			w := cmd.OutOrStdout()
			fmt.Fprintln(w, titleStyle.Render(ds.Name))
			fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("dataset %s, %d examples", ds.ID, len(examples))))
			for i, ex := range examples {
				if limit > 0 && i == limit {
					fmt.Fprintln(w, dimStyle.Render(fmt.Sprintf("... and %d more", len(examples)-limit)))
					break
				}
				line := ex.ID
				if len(ex.Splits) > 0 {
					line += "  " + dimStyle.Render("["+strings.Join(ex.Splits, ",")+"]")
				}
				fmt.Fprintf(w, "%s  %s\n", line, compactJSON(ex.Inputs, 80))
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&datasetRef, "dataset", "", "dataset name, or id:<dataset-id>")
	cmd.Flags().StringSliceVar(&splits, "split", nil, "filter to examples in the named split (repeatable)")
	cmd.Flags().StringVar(&asOf, "as-of", "", "dataset version tag to read as of")
	cmd.Flags().IntVar(&limit, "limit", 0, "show at most this many examples (0 = all)")

	return cmd
}

// compactJSON renders a payload on one line, truncated to max runes.
func compactJSON(v map[string]any, max int) string {
	data, err := json.Marshal(v)
	if err != nil {
		return fmt.Sprintf("%v", v)
	}
	s := string(data)
	if runes := []rune(s); len(runes) > max {
		s = string(runes[:max-3]) + "..."
	}
	return s
}
