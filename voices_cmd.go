package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
	"github.com/t2s-studio/t2s/internal/synth"
)

var voicesCmd = &cobra.Command{
	Use:     "voices [QUERY]",
	Short:   "List the prebuilt voices",
	Long:    paragraph(fmt.Sprintf("\nList the prebuilt voices, %s by name or style.", keyword("fuzzy filtered"))),
	Example: paragraph("t2s voices\nt2s voices bright"),
	Args:    cobra.ArbitraryArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		voices := synth.Voices()
		if q := strings.Join(args, " "); q != "" {
			voices = synth.SearchVoices(q)
			if len(voices) == 0 {
				return fmt.Errorf("no voice matches %q", q)
			}
		}
		for _, v := range voices {
			fmt.Fprintf(cmd.OutOrStdout(), "%s %s\n", keyword(fmt.Sprintf("%-16s", v.Name)), v.Style) //nolint:errcheck
		}
		return nil
	},
}
