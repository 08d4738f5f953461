package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/garagescan/internal/tracker"
	"github.com/platinummonkey/garagescan/internal/types"
)

// fuelCmd represents the fuel command
var fuelCmd = &cobra.Command{
	Use:   "fuel",
	Short: "Read a fill-up from a pump photo and an odometer photo",
	Long: `Read the odometer, fuel quantity and total cost of a fill-up.

The pump photo and the odometer photo are sent together to the first
configured provider; when it fails the next one is tried.

Examples:
  # Print the extracted values as JSON
  garagescan fuel --pump pump.jpg --odometer dash.jpg

  # Watch the raw provider traffic
  garagescan fuel --pump pump.jpg --odometer dash.jpg --debug

  # Submit the fill-up to the tracker for vehicle 3
  garagescan fuel --pump pump.jpg --odometer dash.jpg --submit --vehicle 3`,
	RunE: runFuel,
}

func init() {
	rootCmd.AddCommand(fuelCmd)

	fuelCmd.Flags().String("pump", "", "photo of the pump display (required)")
	fuelCmd.Flags().String("odometer", "", "photo of the odometer (required)")
	fuelCmd.Flags().String("model", "", "model to use when the provider entry has none")
	fuelCmd.Flags().Bool("submit", false, "submit the fill-up to the tracker")
	fuelCmd.Flags().Int("vehicle", 0, "tracker vehicle id (required with --submit)")
	fuelCmd.Flags().String("date", "", "fill-up date for submission (default today)")
	fuelCmd.Flags().Bool("partial", false, "mark the fill-up as not filled to full")
	_ = fuelCmd.MarkFlagRequired("pump")
	_ = fuelCmd.MarkFlagRequired("odometer")
}

func runFuel(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	pumpPath, _ := flags.GetString("pump")
	odometerPath, _ := flags.GetString("odometer")
	model, _ := flags.GetString("model")
	submit, _ := flags.GetBool("submit")
	vehicleID, _ := flags.GetInt("vehicle")

	if submit && vehicleID <= 0 {
		return fmt.Errorf("--vehicle is required with --submit")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	pump, err := loadImage(pumpPath)
	if err != nil {
		return err
	}
	odometer, err := loadImage(odometerPath)
	if err != nil {
		return err
	}

	ctx, cancel := a.callContext(cmd.Context())
	defer cancel()

	result, report, err := a.extractor.ExtractFuelPhotosWithReport(ctx, a.cfg.ActiveProviders(), types.FuelRequest{
		Pump:     pump,
		Odometer: odometer,
		Model:    model,
	}, a.observer())
	a.printReport(cmd, report)
	if err != nil {
		return fmt.Errorf("fuel extraction failed: %w", err)
	}

	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	if !result.Useful() {
		a.log.Warn("No values could be read from the photos")
	}

	if !submit {
		return nil
	}
	if !result.Useful() {
		return fmt.Errorf("nothing to submit")
	}

	client, err := a.trackerClient()
	if err != nil {
		return err
	}
	date, _ := flags.GetString("date")
	partial, _ := flags.GetBool("partial")

	notes := ""
	if result.Explanation != nil {
		notes = *result.Explanation
	}

	return client.AddFuelRecord(cmd.Context(), tracker.FuelRecord{
		VehicleID:    vehicleID,
		Date:         date,
		Odometer:     result.Odometer,
		FuelConsumed: result.FuelQuantity,
		Cost:         result.TotalCost,
		IsFillToFull: !partial,
		Notes:        notes,
	})
}
