package sync

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"

	"github.com/buger/goterm"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/afero"
	"github.com/spf13/cobra"

	"github.com/sidkik/studymirror/cmd/util"
	"github.com/sidkik/studymirror/pkg/catalog"
	"github.com/sidkik/studymirror/pkg/config"
	"github.com/sidkik/studymirror/pkg/errors"
	"github.com/sidkik/studymirror/pkg/mirror"
	engine "github.com/sidkik/studymirror/pkg/sync"
)

// Mocked for unit testing.
var (
	stdout         io.Writer = os.Stdout
	fs                       = afero.NewOsFs()
	promptPassword           = util.PromptPassword
	newClient                = newHTTPClient
	getenv                   = os.Getenv
)

// catalogClient is a catalog.Client that can also check the server's API
// version.
type catalogClient interface {
	catalog.Client
	CheckVersion(context.Context) error
}

// New creates a new `sync` command.
func New() *cobra.Command {
	var configPath string
	var cliOpts config.Config
	cmd := &cobra.Command{
		Use:   "sync",
		Short: "Mirror the studies in the catalog",
		Long: "Download every study in the catalog that changed since it was " +
			"last mirrored.\n" +
			"If --study is set, only that study is downloaded, even if it's " +
			"already up to date.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := Main(configPath, cliOpts); err != nil {
				util.HandleFatalError(err)
			}
		},
	}
	cmd.Flags().StringVar(&configPath, "config", config.DefaultPath,
		"Path to the config file.")
	cmd.Flags().StringVar(&cliOpts.Server, "server", "",
		"URI of the remote catalog. Required if it's not in the config file.")
	cmd.Flags().StringVar(&cliOpts.Username, "username", "",
		"Username for the catalog. The session is anonymous if not set.")
	cmd.Flags().StringVar(&cliOpts.Password, "password", "",
		"Password for the catalog. Prompted for if a username is set without one. "+
			"Can also be set with "+config.PasswordEnvKey+".")
	cmd.Flags().StringVar(&cliOpts.Output, "output", "",
		fmt.Sprintf("Directory to mirror the studies into. (default %q)", config.DefaultOutput))
	cmd.Flags().StringVar(&cliOpts.Study, "study", "",
		"Only sync the study with this identifier.")
	cmd.Flags().StringVar(&cliOpts.Backoff, "backoff", "",
		fmt.Sprintf("How long to pause after a study fails. (default %q)", config.DefaultBackoff))
	cmd.Flags().StringVar(&cliOpts.Timeout, "timeout", "",
		fmt.Sprintf("Timeout for each request to the catalog. (default %q)", config.DefaultTimeout))
	return cmd
}

// Main runs a sync according to the config file at `configPath`, overridden
// by `cliOpts`.
func Main(configPath string, cliOpts config.Config) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return errors.WithContext(err, "load config")
	}
	cfg.Merge(cliOpts)
	cfg.ApplyEnv(getenv)

	if err := cfg.Validate(); err != nil {
		return err
	}

	if cfg.Username != "" && cfg.Password == "" {
		cfg.Password, err = promptPassword(fmt.Sprintf("Password for %s: ", cfg.Username))
		if err != nil {
			return errors.WithContext(err, "get password")
		}
	}

	ctx := context.Background()
	pp := util.NewProgressPrinter(stdout, connectMessage(cfg))
	go pp.Run()
	client, err := connect(ctx, cfg)
	pp.Stop()
	if err != nil {
		return err
	}

	outputDir, err := cfg.OutputDir()
	if err != nil {
		return errors.WithContext(err, "expand output directory")
	}

	backoff, err := cfg.BackoffDuration()
	if err != nil {
		return err
	}

	syncer := engine.New(engine.Options{
		Catalog: client,
		Store:   mirror.NewStore(fs, outputDir),
		Log:     log.StandardLogger(),
		Backoff: backoff,
	})

	var report engine.Report
	if cfg.Study == "" {
		report, err = syncer.SyncAll(ctx)
	} else {
		report, err = syncer.SyncOne(ctx, cfg.Study)
	}
	printSummary(stdout, report)
	if err != nil {
		return err
	}

	if cfg.Study != "" && report.Failed() != 0 {
		return errors.NewFriendlyError("Failed to download study %q. "+
			"Run with %s=true for more information.", cfg.Study, "STUDYMIRROR_LOG_VERBOSE")
	}
	return nil
}

// connect opens a session with the catalog.
func connect(ctx context.Context, cfg config.Config) (catalog.Client, error) {
	timeout, err := cfg.TimeoutDuration()
	if err != nil {
		return nil, err
	}

	client, err := newClient(cfg.Server, &http.Client{Timeout: timeout})
	if err != nil {
		return nil, err
	}

	if err := client.CheckVersion(ctx); err != nil {
		return nil, errors.WithContext(err, "check catalog version")
	}

	creds := catalog.Credentials{Username: cfg.Username, Password: cfg.Password}
	if creds.Anonymous() {
		log.Debug("No credentials configured. Using an anonymous session.")
		return client, nil
	}

	log.WithField("username", creds.Username).Debug("Logging in")
	if err := client.Authenticate(ctx, creds); err != nil {
		return nil, errors.WithContext(err, "log in")
	}
	return client, nil
}

func connectMessage(cfg config.Config) string {
	if cfg.Username == "" {
		return fmt.Sprintf("Connecting to %s", cfg.Server)
	}
	return fmt.Sprintf("Connecting to %s as %s", cfg.Server, cfg.Username)
}

func newHTTPClient(endpoint string, httpClient *http.Client) (catalogClient, error) {
	return catalog.NewHTTPClient(endpoint, httpClient)
}

func printSummary(out io.Writer, report engine.Report) {
	if len(report.Results) == 0 {
		return
	}

	table := goterm.NewTable(0, 10, 3, ' ', 0)
	fmt.Fprintln(table, "STUDY\tLABEL\tRESULT")
	for _, res := range report.Results {
		fmt.Fprintf(table, "%s\t%s\t%s\n", res.Study.ID, res.Study.Label, stateString(res))
	}

	fmt.Fprintln(out)
	fmt.Fprint(out, table.String())
	fmt.Fprintf(out, "\n%d mirrored, %d already up to date, %d failed\n",
		report.Mirrored(), report.Skipped(), report.Failed())
}

func stateString(res engine.StudyResult) string {
	switch res.State {
	case engine.StateMirrored:
		return goterm.Color(string(res.State), goterm.GREEN)
	case engine.StateSkipped:
		return string(res.State)
	case engine.StateFailed:
		msg := string(res.State)
		if res.Err != nil {
			msg += ": " + res.Err.Error()
		}
		return goterm.Color(msg, goterm.RED)
	default:
		return goterm.Color(string(res.State), goterm.YELLOW)
	}
}
