package config

import (
	"bufio"
	"fmt"
	"io"
	"net/url"
	"os"
	"strconv"
	"strings"

	homedir "github.com/mitchellh/go-homedir"
	log "github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/sidkik/studymirror/cmd/util"
	"github.com/sidkik/studymirror/pkg/config"
	"github.com/sidkik/studymirror/pkg/errors"
)

// Mocked for unit testing.
var (
	stdout        io.Writer = os.Stdout
	stdin         io.Reader = os.Stdin
	loadConfig              = config.Load
	writeConfig             = config.Write
	stat                    = os.Stat
	expandPath              = homedir.Expand
	promptYesOrNo           = util.PromptYesOrNo
)

// New creates a new `config` command.
func New() *cobra.Command {
	var configPath string
	var force bool
	var cliOpts config.Config
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Setup the studymirror configuration",
		Long: "Write the config file used by `studymirror sync`.\n" +
			"Fields that aren't set with flags are prompted for. " +
			"Passwords are never written. Use " + config.PasswordEnvKey +
			" or `sync --password` instead.",
		Run: func(_ *cobra.Command, _ []string) {
			if err := SetupConfig(configPath, cliOpts, force); err != nil {
				err = errors.NewFriendlyError("Failed to setup configuration:\n%s",
					errors.GetPrintableMessage(err))
				util.HandleFatalError(err)
			}
		},
	}
	cmd.PersistentFlags().StringVar(&configPath, "config", config.DefaultPath,
		"Path to the config file.")
	cmd.Flags().BoolVarP(&force, "force", "f", false,
		"Overwrite the config file without asking.")
	cmd.Flags().StringVar(&cliOpts.Server, "server", "",
		"Set the catalog URI in the config. "+
			"Optional: If not set, `studymirror config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Output, "output", "",
		"Set the output directory in the config. "+
			"Optional: If not set, `studymirror config` will interactively prompt.")
	cmd.Flags().StringVar(&cliOpts.Username, "username", "",
		"Set the username in the config.")
	cmd.Flags().StringVar(&cliOpts.Backoff, "backoff", "",
		"Set the pause after a failed study in the config.")
	cmd.Flags().StringVar(&cliOpts.Timeout, "timeout", "",
		"Set the request timeout in the config.")

	// Setup the commands for querying the contents of the config.
	type getterSpec struct {
		use, short string
		fn         func(config.Config) string
	}

	getters := []getterSpec{
		{
			use:   "get-server",
			short: "Get the currently configured catalog URI",
			fn:    func(cfg config.Config) string { return cfg.Server },
		},
		{
			use:   "get-output",
			short: "Get the currently configured output directory",
			fn:    func(cfg config.Config) string { return cfg.Output },
		},
		{
			use:   "get-username",
			short: "Get the currently configured username",
			fn:    func(cfg config.Config) string { return cfg.Username },
		},
	}
	for _, getter := range getters {
		getter := getter
		cmd.AddCommand(&cobra.Command{
			Use:   getter.use,
			Short: getter.short,
			Run: func(_ *cobra.Command, _ []string) {
				cfg, err := loadConfig(configPath)
				if err != nil {
					err = errors.WithContext(err, "read config")
					util.HandleFatalError(err)
				}

				fmt.Fprintln(stdout, getter.fn(cfg))
			},
		})
	}

	return cmd
}

// SetupConfig writes the config file at `path`. Fields missing from `cliOpts`
// are prompted for.
func SetupConfig(path string, cliOpts config.Config, force bool) error {
	expanded, err := expandPath(path)
	if err != nil {
		return errors.WithContext(err, "expand config path")
	}

	if _, err := stat(expanded); err == nil && !force {
		overwrite, err := promptYesOrNo(fmt.Sprintf("%s already exists. Overwrite it?", expanded))
		if err != nil {
			return errors.WithContext(err, "prompt")
		}
		if !overwrite {
			fmt.Fprintln(stdout, "Aborted. The config was not changed.")
			return nil
		}
	}

	cfg, err := generateConfig(path, cliOpts)
	if err != nil {
		return errors.WithContext(err, "generate config")
	}

	if err := cfg.Validate(); err != nil {
		return err
	}

	if err := writeConfig(path, cfg); err != nil {
		return errors.WithContext(err, "write config")
	}

	fmt.Fprintf(stdout, "Wrote config to %s\n", expanded)
	return nil
}

func serverValidationFn(server string) (string, bool) {
	u, err := url.Parse(server)
	if err != nil || !u.IsAbs() || u.Host == "" {
		return "The catalog URI must be absolute, " +
			"for example https://catalog.example.com.", false
	}

	if u.Scheme != "http" && u.Scheme != "https" {
		return "The catalog URI must use http or https.", false
	}
	return "", true
}

type prompt struct {
	helpString, prompt, defaultAnswer, currAnswer string
	field                                         *string
	validationFn                                  func(string) (string, bool)
}

// generateConfig interacts with the user to decide what the user's desired
// configuration is. The current config file, if any, is offered as an answer.
func generateConfig(path string, cliOpts config.Config) (config.Config, error) {
	currConfig, err := loadConfig(path)
	if err != nil {
		currConfig = config.Config{}
		log.WithError(err).Debug("Failed to read current config")
	}

	cfg := currConfig
	cfg.Password = ""
	cfg.Study = ""
	cfg.Merge(cliOpts)

	var prompts []prompt
	if cliOpts.Server == "" {
		prompts = append(prompts, prompt{
			helpString:   "Enter the URI of the study catalog to mirror.",
			prompt:       "Catalog URI",
			currAnswer:   currConfig.Server,
			field:        &cfg.Server,
			validationFn: serverValidationFn,
		})
	}

	if cliOpts.Output == "" {
		prompts = append(prompts, prompt{
			helpString: "Enter the directory to mirror the studies into.\n" +
				"It's created if it doesn't exist.",
			prompt:        "Output directory",
			defaultAnswer: config.DefaultOutput,
			currAnswer:    currConfig.Output,
			field:         &cfg.Output,
		})
	}

	for _, prompt := range prompts {
		var resp string
		for {
			resp, err = promptUser(prompt.helpString, prompt.prompt,
				prompt.defaultAnswer, prompt.currAnswer)
			if err != nil {
				return config.Config{}, errors.WithContext(err, "read response")
			}

			if prompt.validationFn == nil {
				break
			}

			validationErr, ok := prompt.validationFn(resp)
			if ok {
				break
			}

			fmt.Fprintln(stdout, validationErr)
		}

		*prompt.field = resp
	}

	return cfg, nil
}

func promptUser(helpString, prompt, defaultAnswer, currAnswer string) (string, error) {
	// Separate the fields with a blank line.
	defer fmt.Fprintln(stdout)

	options := []string{}
	if defaultAnswer != "" {
		options = append(options, defaultAnswer)
	}
	if currAnswer != "" && currAnswer != defaultAnswer {
		options = append(options, currAnswer)
	}
	options = append(options, "(Enter manually)")

	fmt.Fprintln(stdout, helpString+"\n"+prompt+":")

	stdinReader := bufio.NewReader(stdin)

	if nOptions := len(options); nOptions > 1 {
		fmt.Fprintln(stdout)
		for i, option := range options {
			if i == 0 {
				option = fmt.Sprintf("%s (recommended)", option)
			}
			fmt.Fprintf(stdout, "\t%d. %s\n", i+1, option)
		}
		fmt.Fprintln(stdout)

		for {
			fmt.Fprintf(stdout, "Please choose one [1-%d]: ", nOptions)
			choiceStr, err := stdinReader.ReadString('\n')
			if err != nil {
				return "", err
			}

			var choice int
			choiceStr = strings.TrimRight(choiceStr, "\n")

			// An empty answer picks the recommended option.
			if choiceStr == "" {
				choice = 1
			} else {
				choice, err = strconv.Atoi(choiceStr)
				if err != nil || choice < 1 || choice > nOptions {
					continue
				}
			}

			if choice == nOptions {
				break
			}

			return options[choice-1], nil
		}
	}

	fmt.Fprint(stdout, "Please enter manually: ")
	resp, err := stdinReader.ReadString('\n')
	if err != nil {
		return "", err
	}

	return strings.TrimRight(resp, "\n"), nil
}
