package status

import (
	"fmt"
	"io"
	"os"
	"time"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/studymirror/cmd/util"
	"github.com/sidkik/studymirror/pkg/config"
	"github.com/sidkik/studymirror/pkg/errors"
	"github.com/sidkik/studymirror/pkg/metadata"
	"github.com/sidkik/studymirror/pkg/mirror"
)

// displayLayout is how times are shown in the status table.
const displayLayout = "2006-01-02 15:04:05"

// Mocked for unit testing.
var (
	stdout     io.Writer = os.Stdout
	fs                   = afero.NewOsFs()
	loadConfig           = config.Load
)

// New creates a new `status` command.
func New() *cobra.Command {
	var configPath, output string
	cmd := &cobra.Command{
		Use:   "status",
		Short: "List the studies in the local mirror",
		Long: "List the studies that have been mirrored into the output " +
			"directory. The catalog isn't contacted.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := Main(configPath, output); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath,
		"Path to the config file.")
	cmd.Flags().StringVar(&output, "output", "",
		"Directory to inspect. Defaults to the configured output directory.")
	return cmd
}

// Main prints the mirror status of the output directory.
func Main(configPath, output string) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return errors.WithContext(err, "load config")
	}
	cfg.Merge(config.Config{Output: output})

	store, err := openStore(cfg)
	if err != nil {
		return err
	}

	entries, err := store.Scan()
	if err != nil {
		return errors.WithContext(err, "scan mirror")
	}

	if len(entries) == 0 {
		fmt.Fprintf(stdout, "No studies have been mirrored into %s.\n", store.Root())
		return nil
	}

	table := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintln(table, "STUDY\tLABEL\tSNAPSHOT\tMIRRORED\tSTATUS")
	var incomplete int
	for _, entry := range entries {
		label, snapshot := readMetadata(entry)

		var mirrored, state string
		switch {
		case entry.HasData && entry.HasMetadata:
			mirrored = oldest(entry).Format(displayLayout)
			state = goterm.Color("Complete", goterm.GREEN)
		case entry.HasData:
			mirrored = entry.DataModTime.Format(displayLayout)
			state = goterm.Color("Missing metadata", goterm.YELLOW)
			incomplete++
		default:
			mirrored = entry.MetadataModTime.Format(displayLayout)
			state = goterm.Color("Missing data", goterm.YELLOW)
			incomplete++
		}

		fmt.Fprintf(table, "%s\t%s\t%s\t%s\t%s\n",
			entry.StudyID, label, snapshot, mirrored, state)
	}

	fmt.Fprint(stdout, table.String())
	fmt.Fprintf(stdout, "\n%d studies in %s (%d incomplete)\n", len(entries), store.Root(), incomplete)
	return nil
}

// readMetadata returns the label and remote timestamp recorded in the
// entry's metadata document, if it can be read.
func readMetadata(entry mirror.Entry) (label, snapshot string) {
	if !entry.HasMetadata {
		return "", ""
	}

	docBytes, err := afero.ReadFile(fs, entry.MetadataPath)
	if err != nil {
		log.WithError(err).WithField("path", entry.MetadataPath).Debug("Failed to read metadata")
		return "", ""
	}

	doc, err := metadata.Parse(docBytes)
	if err != nil {
		log.WithError(err).WithField("path", entry.MetadataPath).Debug("Failed to parse metadata")
		return "", "invalid"
	}
	ts, err := metadata.ParseTimestamp(doc.Timestamp)
	if err != nil {
		return doc.Label, doc.Timestamp
	}
	return doc.Label, ts.Format(displayLayout)
}

func openStore(cfg config.Config) (*mirror.Store, error) {
	dir, err := cfg.OutputDir()
	if err != nil {
		return nil, errors.WithContext(err, "expand output directory")
	}
	return mirror.NewStore(fs, dir), nil
}

func oldest(entry mirror.Entry) time.Time {
	if entry.DataModTime.Before(entry.MetadataModTime) {
		return entry.DataModTime
	}
	return entry.MetadataModTime
}
