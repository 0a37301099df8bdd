package cmd

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/shunichi-ikebuchi/cash-forecast/pkg/forecast"
)

// groupsCmd represents the groups command.
var groupsCmd = &cobra.Command{
	Use:   "groups",
	Short: "Show the configured payee groups",
	Long: `Validate and print the payee group definitions.

Example:
  cash-forecast groups`,
	Run: func(cmd *cobra.Command, args []string) {
		_, pathResolver := loadPaths()

		defs, err := forecast.LoadGroups(pathResolver.GetGroupsFile())
		exitOnError(err, "failed to load group definitions")

		fmt.Printf("\nGroups file:  %s\n", pathResolver.GetGroupsFile())
		fmt.Printf("Insert after: %s\n\n", defs.InsertAfter)
		for _, g := range defs.Groups {
			fmt.Printf("%s (%d payees)\n", g.Name, len(g.Members))
			fmt.Printf("  %s\n", strings.Join(g.Members, ", "))
		}
		fmt.Println()
	},
}
