package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/garagescan/internal/garage"
)

// vehiclesCmd represents the vehicles command
var vehiclesCmd = &cobra.Command{
	Use:   "vehicles",
	Short: "List the vehicle menu offered to the model",
	Long: `List the vehicles and extra fields used for service extraction.

They come from the tracker when tracker-url is configured, otherwise from
the garage file. With --save the tracker's directory is written to the
garage file so extraction keeps working offline.`,
	RunE: runVehicles,
}

func init() {
	rootCmd.AddCommand(vehiclesCmd)
	vehiclesCmd.Flags().Bool("save", false, "write the tracker's directory to the garage file")
}

func runVehicles(cmd *cobra.Command, _ []string) error {
	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	g, err := a.directory(cmd.Context())
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	if len(g.Vehicles) == 0 {
		fmt.Fprintln(out, "No vehicles configured")
	}
	for _, v := range g.Vehicles {
		fmt.Fprintf(out, "%4d  %s\n", v.ID, v.Name)
	}

	for _, label := range g.Labels() {
		fmt.Fprintf(out, "extra fields (%s): %v\n", label, g.ExtraFields[label])
	}

	save, _ := cmd.Flags().GetBool("save")
	if !save {
		return nil
	}
	if !a.cfg.TrackerEnabled() {
		return fmt.Errorf("--save needs tracker-url; the list above already comes from %s", a.cfg.GarageFile)
	}
	if err := garage.Save(g, a.cfg.GarageFile); err != nil {
		return err
	}
	a.log.WithFields("path", a.cfg.GarageFile, "vehicles", len(g.Vehicles)).Info("Garage file saved")
	return nil
}
