package client

import (
	"github.com/spf13/cobra"
)

// NewRoot constructs a root Cobra command for the utubettl client.
// It registers the space and task command groups.
func NewRoot(baseURL BaseURLFunc) *cobra.Command {
	root := &cobra.Command{
		Use:   "utubettlctl",
		Short: "utubettl client commands",
	}
	root.AddCommand(NewSpaceCommand(baseURL))
	root.AddCommand(NewTaskCommand(baseURL))
	return root
}
