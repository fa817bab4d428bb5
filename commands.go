package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/kartoza/home-advisor/internal/climate"
	"github.com/kartoza/home-advisor/internal/forest"
	"github.com/kartoza/home-advisor/internal/history"
	"github.com/kartoza/home-advisor/internal/housing"
	"github.com/kartoza/home-advisor/internal/server"
)

var setpointCmd = &cobra.Command{
	Use:   "setpoint",
	Short: "Recommend a thermostat setpoint",
	Example: `  home-advisor setpoint --temperature 22 --hour 14
  home-advisor setpoint --temperature 29 --hour 21 --rules`,
	Args: cobra.NoArgs,
	RunE: runSetpoint,
}

var predictCmd = &cobra.Command{
	Use:   "predict",
	Short: "Estimate a house price with the configured model",
	Example: `  home-advisor predict --area 2400 --bedrooms 4 --furnishing semi-furnished
  home-advisor predict --area 900 --basement no --prefarea no`,
	Args: cobra.NoArgs,
	RunE: runPredict,
}

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Show version and exit",
	Args:  cobra.NoArgs,
	// No config or logging needed.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	Run: func(cmd *cobra.Command, args []string) {
		fmt.Fprintf(cmd.OutOrStdout(), "Home Advisor v%s\n", version)
	},
}

func init() {
	setpointCmd.Flags().Float64("temperature", climate.DefaultTemperature, "Current room temperature in °C (16-30)")
	setpointCmd.Flags().Float64("hour", climate.DefaultHour, "Hour of day (0-23)")
	setpointCmd.Flags().Bool("rules", false, "Also print the activation of every rule")

	def := housing.DefaultListing()
	predictCmd.Flags().Float64("area", def.Area, "Area in square feet")
	predictCmd.Flags().Int("bedrooms", def.Bedrooms, "Number of bedrooms (1-5)")
	predictCmd.Flags().Int("bathrooms", def.Bathrooms, "Number of bathrooms (1-3)")
	predictCmd.Flags().Int("stories", def.Stories, "Number of stories (1-3)")
	predictCmd.Flags().Int("parking", def.Parking, "Parking spaces (0-5)")
	binary := def.Binary()
	for _, f := range housing.BinaryFields {
		predictCmd.Flags().String(f, housing.YesNo(binary[f]), "yes or no")
	}
	predictCmd.Flags().String("furnishing", def.Furnishing, "furnished, semi-furnished or unfurnished")
}

func runSetpoint(cmd *cobra.Command, args []string) error {
	temperature, _ := cmd.Flags().GetFloat64("temperature")
	hour, _ := cmd.Flags().GetFloat64("hour")
	showRules, _ := cmd.Flags().GetBool("rules")

	if err := climate.ValidateInputs(temperature, hour); err != nil {
		return err
	}
	controller, err := climate.NewController()
	if err != nil {
		return err
	}
	rec, err := controller.Recommend(temperature, hour)
	if err != nil {
		return fmt.Errorf("setpoint: %w", err)
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Recommended Temperature Setpoint: %.1f°C\n", rec.Setpoint)
	fmt.Fprintf(out, "Predicted Preference Based on Time: %s\n", rec.Preference)
	if showRules {
		for _, r := range rec.Rules {
			fmt.Fprintf(out, "  %-60s %.3f\n", r.Rule, r.Strength)
		}
	}
	return nil
}

// listingFromFlags builds a listing from the predict flags
func listingFromFlags(cmd *cobra.Command) (housing.Listing, error) {
	flags := cmd.Flags()
	l := housing.DefaultListing()
	l.Area, _ = flags.GetFloat64("area")
	l.Bedrooms, _ = flags.GetInt("bedrooms")
	l.Bathrooms, _ = flags.GetInt("bathrooms")
	l.Stories, _ = flags.GetInt("stories")
	l.Parking, _ = flags.GetInt("parking")
	for _, f := range housing.BinaryFields {
		raw, _ := flags.GetString(f)
		v, err := housing.ParseYesNo(raw)
		if err != nil {
			return l, fmt.Errorf("--%s: %w", f, err)
		}
		if err := l.SetBinary(f, v); err != nil {
			return l, err
		}
	}
	l.Furnishing, _ = flags.GetString("furnishing")
	return l, l.Validate()
}

func runPredict(cmd *cobra.Command, args []string) error {
	listing, err := listingFromFlags(cmd)
	if err != nil {
		return err
	}

	model, err := forest.Load(cfg.Model.Path)
	if err != nil {
		return err
	}
	opts := housing.Options{
		Encoding:   housing.Encoding(cfg.Price.Encoding),
		Columns:    housing.ColumnSource(cfg.Price.Columns),
		ErrorGuard: cfg.Price.ErrorGuard,
	}
	if cfg.Price.FeatureOrderFile != "" {
		if opts.Order, err = housing.LoadFeatureOrder(cfg.Price.FeatureOrderFile); err != nil {
			return err
		}
	}

	store := history.NewMemoryStore()
	defer store.Close()
	predictor, err := housing.NewPredictor(opts, forest.NewHolder(model), store)
	if err != nil {
		return err
	}

	outcome, err := predictor.Predict("cli", listing)
	if err != nil {
		return err
	}
	if outcome.Failed() {
		fmt.Fprintln(cmd.OutOrStdout(), outcome.Message)
		return nil
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Estimated Price: %s\n", server.FormatPrice(outcome.Prediction))
	return nil
}
