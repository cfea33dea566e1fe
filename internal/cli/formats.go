package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/cryguy/mermaid"
)

func (c *CLI) formatsCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "formats",
		Short: "List supported output formats",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			w := cmd.OutOrStdout()
			fmt.Fprintln(w, styleTitle.Render("Output formats"))
			for _, tok := range mermaid.Formats() {
				f, _ := mermaid.ParseFormat(tok)
				fmt.Fprintf(w, "  %-5s %s %s\n", tok, styleDim.Render(f.MIMEType()), styleDim.Render(f.Ext()))
			}
			return nil
		},
	}
}
