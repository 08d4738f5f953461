package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/platinummonkey/garagescan/internal/garage"
	"github.com/platinummonkey/garagescan/internal/types"
)

// serviceCmd represents the service command
var serviceCmd = &cobra.Command{
	Use:   "service",
	Short: "Read service, repair and upgrade records from an invoice",
	Long: `Read one or more maintenance records from an invoice or receipt.

Up to three page images and the document's extracted text are sent with the
vehicle menu and the configured extra fields. Records come back classified
as service, repair or upgrade with a vehicle guess and review warnings.

Examples:
  # Extract from a photographed receipt
  garagescan service --image receipt.jpg

  # Extract from rendered PDF pages plus their text layer
  garagescan service --image page1.png --image page2.png --text-file invoice.txt

  # Follow the model's reasoning and submit the records
  garagescan service --image receipt.jpg --progress --submit`,
	RunE: runService,
}

func init() {
	rootCmd.AddCommand(serviceCmd)

	serviceCmd.Flags().StringSlice("image", nil, "document page image (repeatable)")
	serviceCmd.Flags().String("text-file", "", "file holding the document's extracted text")
	serviceCmd.Flags().String("model", "", "model to use when the provider entry has none")
	serviceCmd.Flags().Bool("submit", false, "submit the records to the tracker")
	serviceCmd.Flags().Int("vehicle", 0, "vehicle id for records the model could not match")
}

func runService(cmd *cobra.Command, _ []string) error {
	flags := cmd.Flags()
	imagePaths, _ := flags.GetStringSlice("image")
	textFile, _ := flags.GetString("text-file")
	model, _ := flags.GetString("model")
	submit, _ := flags.GetBool("submit")
	fallbackVehicle, _ := flags.GetInt("vehicle")

	if len(imagePaths) == 0 && textFile == "" {
		return fmt.Errorf("provide at least one --image or a --text-file")
	}

	a, err := newApp(cmd)
	if err != nil {
		return err
	}
	defer a.Close()

	req := types.ServiceRequest{Model: model}
	for _, path := range imagePaths {
		img, err := loadImage(path)
		if err != nil {
			return err
		}
		req.Images = append(req.Images, img)
	}
	if len(req.Images) > types.MaxServiceImages {
		a.log.Warnf("Only the first %d of %d images are sent", types.MaxServiceImages, len(req.Images))
	}

	if textFile != "" {
		data, err := os.ReadFile(textFile)
		if err != nil {
			return fmt.Errorf("failed to read text file: %w", err)
		}
		req.DocumentText = string(data)
	}

	g, err := a.directory(cmd.Context())
	if err != nil {
		return fmt.Errorf("failed to load vehicle directory: %w", err)
	}
	req.Vehicles, req.ExtraFields = g.Vehicles, g.ServiceExtraFields()

	ctx, cancel := a.callContext(cmd.Context())
	defer cancel()

	result, report, err := a.extractor.ExtractServiceDocumentWithReport(ctx, a.cfg.ActiveProviders(), req, a.observer())
	a.printReport(cmd, report)
	if err != nil {
		return fmt.Errorf("service extraction failed: %w", err)
	}

	if err := printJSON(cmd.OutOrStdout(), result); err != nil {
		return err
	}

	for _, w := range result.Warnings {
		msg := ""
		if w.Message != nil {
			msg = ": " + *w.Message
		}
		fmt.Fprintf(cmd.ErrOrStderr(), "review %s (%s)%s\n", w.Path, w.Reason, msg)
	}

	if !submit {
		return nil
	}
	return submitRecords(cmd, a, g, result, fallbackVehicle)
}

// submitRecords sends every typed record; records that cannot be submitted are reported and skipped
func submitRecords(cmd *cobra.Command, a *app, g *garage.Garage, result *types.ServiceExtraction, fallbackVehicle int) error {
	client, err := a.trackerClient()
	if err != nil {
		return err
	}

	submitted := 0
	for i, rec := range result.Records {
		if rec.VehicleID != nil {
			if _, ok := g.Vehicle(*rec.VehicleID); !ok {
				a.log.WithFields("record", i, "vehicle", *rec.VehicleID).Warn("Model picked an unknown vehicle")
				rec.VehicleID = nil
			}
		}
		if rec.VehicleID == nil && fallbackVehicle > 0 {
			id := fallbackVehicle
			rec.VehicleID = &id
		}
		if err := client.AddServiceRecord(cmd.Context(), rec); err != nil {
			a.log.WithFields("record", i).WithError(err).Warn("Record not submitted")
			continue
		}
		submitted++
	}

	if submitted == 0 && len(result.Records) > 0 {
		return fmt.Errorf("no records were submitted")
	}
	fmt.Fprintf(cmd.ErrOrStderr(), "submitted %d of %d records\n", submitted, len(result.Records))
	return nil
}
