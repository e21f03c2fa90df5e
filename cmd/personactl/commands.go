package main

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/bytedance/sonic"
	"github.com/spf13/cobra"

	"github.com/granada-os/personalization/external/geoip"
	"github.com/granada-os/personalization/internal/domain/engagement"
	"github.com/granada-os/personalization/internal/domain/location"
	"github.com/granada-os/personalization/internal/domain/onboarding"
	"github.com/granada-os/personalization/internal/infrastructure/latencyprobe"
	"github.com/granada-os/personalization/internal/platform/logging"
	"github.com/granada-os/personalization/internal/usecase"
)

type rootOptions struct {
	verbose bool
}

func newRootCommand() *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "personactl",
		Short: "Inspect location detection, step selection and engagement scoring",
		Long: `personactl drives the same detectors and rules as the API from a terminal.

Examples:
  personactl detect --tz Africa/Nairobi --lang sw-KE
  personactl step --current LAST_NAME --first-name Amani --continent Africa
  personactl score --steps 6 --backtracks 1 --elapsed 4m`,
		SilenceUsage: true,
	}
	root.PersistentFlags().BoolVarP(&opts.verbose, "verbose", "v", false, "log detector failures to stderr")

	root.AddCommand(
		newDetectCommand(opts),
		newStepCommand(opts),
		newScoreCommand(),
	)
	return root
}

func (o *rootOptions) logger() *logging.Logger {
	if !o.verbose {
		return logging.NewNop()
	}
	return logging.NewConsole(logging.LevelDebug)
}

type signalFlags struct {
	timezone string
	offset   int
	lang     string
	ip       string
}

func (f *signalFlags) register(cmd *cobra.Command) {
	cmd.Flags().StringVar(&f.timezone, "tz", "", "IANA time zone, e.g. Africa/Lagos")
	cmd.Flags().IntVar(&f.offset, "offset", 0, "UTC offset in minutes, east positive")
	cmd.Flags().StringVar(&f.lang, "lang", "", "browser language tag, e.g. fr-SN")
	cmd.Flags().StringVar(&f.ip, "ip", "", "client IP; empty looks up this machine's public address")
}

func (f *signalFlags) signals(cmd *cobra.Command) location.Signals {
	signals := location.Signals{
		ClientIP: strings.TrimSpace(f.ip),
		TimeZone: strings.TrimSpace(f.timezone),
		Language: strings.TrimSpace(f.lang),
	}
	if cmd.Flags().Changed("offset") {
		offset := f.offset
		signals.UTCOffsetMinutes = &offset
	}
	return signals
}

func newDetectCommand(opts *rootOptions) *cobra.Command {
	var (
		flags   signalFlags
		probe   bool
		noGeoIP bool
		budget  time.Duration
	)

	cmd := &cobra.Command{
		Use:   "detect",
		Short: "Run every detector and print the winning location guess",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			logger := opts.logger()

			detectors := make([]location.Detector, 0, 4)
			if !noGeoIP {
				detectors = append(detectors, geoip.NewClient(geoip.ClientConfig{
					AllowSelfLookup: true,
					Logger:          logger,
				}))
			}
			detectors = append(detectors, usecase.NewTimezoneDetector(), usecase.NewLanguageDetector())

			var prober usecase.LatencyProber
			if probe {
				prober = latencyprobe.New(latencyprobe.Config{Logger: logger})
			}
			detectors = append(detectors, usecase.NewLatencyDetector(prober))

			service := usecase.NewLocationService(detectors, nil, logger, usecase.LocationServiceConfig{DetectBudget: budget})
			return writeJSON(cmd.OutOrStdout(), service.Detect(cmd.Context(), flags.signals(cmd)))
		},
	}
	flags.register(cmd)
	cmd.Flags().BoolVar(&probe, "probe", false, "time HEAD requests to the probe targets from this machine")
	cmd.Flags().BoolVar(&noGeoIP, "no-geoip", false, "skip the public IP geolocation providers")
	cmd.Flags().DurationVar(&budget, "budget", usecase.DefaultLocationDetectBudget, "time allowed for all detectors")
	return cmd
}

func newStepCommand(opts *rootOptions) *cobra.Command {
	var (
		flags     signalFlags
		current   string
		profile   onboarding.Profile
		userType  string
		continent string
		country   string
	)

	cmd := &cobra.Command{
		Use:   "step",
		Short: "Print the copy and validation rule for a step",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if userType != "" {
				parsed, err := onboarding.ParseUserType(userType)
				if err != nil {
					return err
				}
				profile.UserType = parsed
			}

			input := usecase.SelectStepInput{
				CurrentStep: current,
				Profile:     profile,
				Signals:     flags.signals(cmd),
			}
			if continent != "" || country != "" {
				guess := location.Guess{Country: country, Continent: continent}
				if guess.Continent == "" {
					guess.Continent = location.ContinentOf(country)
				}
				input.Location = &guess
			}

			locator := usecase.NewLocationService(
				[]location.Detector{usecase.NewTimezoneDetector(), usecase.NewLanguageDetector()},
				nil, opts.logger(), usecase.LocationServiceConfig{},
			)
			step, err := usecase.NewStepService(locator).Select(cmd.Context(), input)
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), struct {
				onboarding.Step
				Validation string `json:"validation"`
			}{Step: step, Validation: step.Rule.Name})
		},
	}
	flags.register(cmd)
	cmd.Flags().StringVar(&current, "current", string(onboarding.StepFirstName), "step id, e.g. LAST_NAME")
	cmd.Flags().StringVar(&profile.FirstName, "first-name", "", "answer already given for FIRST_NAME")
	cmd.Flags().StringVar(&profile.LastName, "last-name", "", "answer already given for LAST_NAME")
	cmd.Flags().StringVar(&profile.Email, "email", "", "answer already given for EMAIL")
	cmd.Flags().StringVar(&profile.Country, "profile-country", "", "country the user picked")
	cmd.Flags().StringVar(&userType, "user-type", "", "student, professional, entrepreneur or investor")
	cmd.Flags().StringVar(&continent, "continent", "", "use this continent instead of detecting one")
	cmd.Flags().StringVar(&country, "country", "", "use this country instead of detecting one")
	return cmd
}

func newScoreCommand() *cobra.Command {
	var (
		steps      int
		backtracks int
		elapsed    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "score",
		Short: "Score an onboarding session's pacing",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if steps < 0 || backtracks < 0 || elapsed < 0 {
				return fmt.Errorf("steps, backtracks and elapsed must not be negative")
			}
			now := time.Now()
			metrics := engagement.Metrics{StartedAt: now.Add(-elapsed), StepsCompleted: steps, BacktrackCount: backtracks}
			return writeJSON(cmd.OutOrStdout(), struct {
				engagement.Insights
				StepsPerMinute float64 `json:"stepsPerMinute"`
			}{
				Insights:       engagement.InsightsFor(metrics, now),
				StepsPerMinute: engagement.StepsPerMinute(metrics, now),
			})
		},
	}
	cmd.Flags().IntVar(&steps, "steps", 0, "steps completed")
	cmd.Flags().IntVar(&backtracks, "backtracks", 0, "times the user went back")
	cmd.Flags().DurationVar(&elapsed, "elapsed", time.Minute, "time since the session started")
	return cmd
}

func writeJSON(w io.Writer, v any) error {
	out, err := sonic.ConfigStd.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode output: %w", err)
	}
	_, err = fmt.Fprintf(w, "%s\n", out)
	return err
}
