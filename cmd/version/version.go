package version

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sidkik/studymirror/pkg/catalog"
	"github.com/sidkik/studymirror/pkg/version"
)

// Mocked for unit testing.
var stdout io.Writer = os.Stdout

// New creates a new `version` command.
func New() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version of studymirror.",
		Long: "Print the version of studymirror, and the catalog API versions\n" +
			"that it supports.",
		Run: func(_ *cobra.Command, _ []string) {
			fmt.Fprintf(stdout, "version:              %s\n", version.Version)
			fmt.Fprintf(stdout, "catalog API versions: %s\n", catalog.SupportedAPIVersions)
		},
	}
}
