package cli

import (
	"fmt"
	"strings"

	"github.com/fatih/color"
	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/buraco/pkg/domain/geo"
)

var lookupOutput string

var lookupCmd = &cobra.Command{
	Use:   "lookup",
	Short: "Resolve CEPs and addresses",
}

var lookupCEPCmd = &cobra.Command{
	Use:   "cep CODE",
	Short: "Look up the address of a CEP",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(lookupOutput); err != nil {
			return err
		}
		services, err := loadServices(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer services.Close()

		addr, err := services.Addresses.LookupAddress(cmd.Context(), args[0])
		if err != nil {
			return err
		}
		switch lookupOutput {
		case "json":
			return writeJSON(cmd.OutOrStdout(), addr)
		case "yaml":
			return writeYAML(cmd.OutOrStdout(), addr)
		}
		w := cmd.OutOrStdout()
		color.New(color.Bold).Fprintf(w, "CEP %s\n", geo.FormatCEP(addr.CEP))
		fmt.Fprintf(w, "  %s\n", addr.Line(""))
		return nil
	},
}

var lookupGeocodeCmd = &cobra.Command{
	Use:   "geocode ADDRESS",
	Short: "Find the coordinates of an address",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := validateOutput(lookupOutput); err != nil {
			return err
		}
		services, err := loadServices(cmd.Context(), true)
		if err != nil {
			return err
		}
		defer services.Close()

		coords, err := services.Geocoder.Geocode(cmd.Context(), strings.Join(args, " "), services.Credentials.MapsKey)
		if err != nil {
			return err
		}
		switch lookupOutput {
		case "json":
			return writeJSON(cmd.OutOrStdout(), coords)
		case "yaml":
			return writeYAML(cmd.OutOrStdout(), coords)
		}
		fmt.Fprintln(cmd.OutOrStdout(), coords.String())
		return nil
	},
}

func init() {
	lookupCmd.PersistentFlags().StringVarP(&lookupOutput, "output", "o", "human", "Output format: human, json, yaml")
	lookupCmd.AddCommand(lookupCEPCmd, lookupGeocodeCmd)
	RootCmd.AddCommand(lookupCmd)
}
