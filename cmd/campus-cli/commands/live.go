package commands

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"campusdual-backend/internal/components/chrono"
	"campusdual-backend/internal/components/telemetry"
	"campusdual-backend/internal/config"
	"campusdual-backend/internal/extract"
	"campusdual-backend/internal/portal"
	"campusdual-backend/pkg/configutil"
	"campusdual-backend/pkg/fsoutput"

	"github.com/spf13/cobra"
)

type Config struct {
	Username string         `json:"username"`
	Password string         `json:"password"`
	Session  config.Session `json:"session"`
	Portal   config.Portal  `json:"portal"`
}

var (
	configPath *string
	username   *string
	password   *string
	capture    *string
)

func init() {
	configPath = rootCmd.PersistentFlags().String("config", "cli.json5", "The config file to read credentials and keys from.")
	username = rootCmd.PersistentFlags().String("username", "", "Overrides the username of the config.")
	password = rootCmd.PersistentFlags().String("password", "", "Overrides the password of the config.")
	capture = rootCmd.PersistentFlags().String("capture", "", "Saves every fetched page into this directory, for use with parse.")

	examsDeregistration = examsCmd.Flags().Bool("deregistration", false, "List booked exams that can be cancelled instead.")

	rootCmd.AddCommand(gradesCmd)
	rootCmd.AddCommand(examsCmd)
}

// readConfig reads the cli config, a missing file is fine as long as flags fill the gaps.
// Relative paths are looked up in the working directory and its parents.
func readConfig() (Config, error) {
	read := configutil.ReadConfig[Config]
	if !filepath.IsAbs(*configPath) && filepath.Base(*configPath) == *configPath {
		read = configutil.ReadRecursively[Config]
	}
	cfg, err := read(*configPath)
	if err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, err
	}
	if *username != "" {
		cfg.Username = *username
	}
	if *password != "" {
		cfg.Password = *password
	}
	return cfg, nil
}

func login(ctx context.Context) (*portal.Client, portal.AuthState, error) {
	cfg, err := readConfig()
	if err != nil {
		return nil, portal.AuthState{}, err
	}
	if cfg.Username == "" || cfg.Password == "" {
		return nil, portal.AuthState{}, fmt.Errorf("no credentials, set them in %s or pass --username and --password", *configPath)
	}
	opts, err := cfg.Portal.Options()
	if err != nil {
		return nil, portal.AuthState{}, err
	}
	if *capture != "" {
		output, err := fsoutput.New(*capture)
		if err != nil {
			return nil, portal.AuthState{}, err
		}
		opts.PageOutput = output
	}

	client, err := portal.NewClient(opts, chrono.NewStandardTime(), telemetry.SlogAPI{})
	if err != nil {
		return nil, portal.AuthState{}, err
	}
	state, profile, err := client.Login(ctx, cfg.Username, cfg.Password)
	if err != nil {
		return nil, portal.AuthState{}, err
	}
	slog.Info("logged in", "user", profile.User, "name", profile.FirstName+" "+profile.LastName, "group", profile.SeminarGroup)
	return client, state, nil
}

var gradesCmd = &cobra.Command{
	Use:   "grades [--config <cli.json5>]",
	Short: "Logs in and prints the grades of the student.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		client, state, err := login(ctx)
		if err != nil {
			return err
		}
		page, err := client.GradesPage(ctx, state)
		if err != nil {
			return err
		}
		records, err := extract.Grades(page)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), records)
	},
}

var examsDeregistration *bool

var examsCmd = &cobra.Command{
	Use:   "exams [--deregistration] [--config <cli.json5>]",
	Short: "Logs in and prints the exams open for registration.",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, cancel := context.WithTimeout(cmd.Context(), time.Minute)
		defer cancel()

		client, state, err := login(ctx)
		if err != nil {
			return err
		}

		fetch := client.ExamSignupPage
		kind := extract.KindExamSignup
		if *examsDeregistration {
			fetch = client.ExamDeregistrationPage
			kind = extract.KindExamDeregistration
		}
		page, err := fetch(ctx, state)
		if err != nil {
			return err
		}
		options, err := extract.ExamOptions(page, kind)
		if err != nil {
			return err
		}
		return render(cmd.OutOrStdout(), options)
	},
}
