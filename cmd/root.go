package cmd

import (
	"os"

	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	configCmd "github.com/sidkik/studymirror/cmd/config"
	"github.com/sidkik/studymirror/cmd/status"
	syncCmd "github.com/sidkik/studymirror/cmd/sync"
	"github.com/sidkik/studymirror/cmd/util"
	"github.com/sidkik/studymirror/cmd/version"
)

// verboseLogKey is the environment variable used to enable verbose logging.
// When it's set to `true`, Debug events are logged, rather than just Info and
// above.
const verboseLogKey = "STUDYMIRROR_LOG_VERBOSE"

// Execute runs the main CLI process.
func Execute() {
	if os.Getenv(verboseLogKey) == "true" {
		log.SetLevel(log.DebugLevel)
	}

	rootCmd := &cobra.Command{
		Use:   "studymirror",
		Short: "Mirror the studies in a remote survey catalog to local storage.",
		Long: "studymirror downloads the data and metadata of every study in a\n" +
			"remote catalog. Studies that are already mirrored, and haven't\n" +
			"changed since, are skipped.",
		SilenceUsage: true,

		// The call to rootCmd.Execute prints the error, so we silence errors
		// here to avoid double printing.
		SilenceErrors: true,
	}
	rootCmd.AddCommand(
		configCmd.New(),
		status.New(),
		syncCmd.New(),
		version.New(),
	)

	if err := rootCmd.Execute(); err != nil {
		util.HandleFatalError(err)
	}
}
