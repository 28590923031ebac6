package cli

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/andrescamacho/dispatch-go/internal/adapters/api"
)

var (
	geocodeAddress string
	geocodeStreet  string
	geocodeNumber  string
	geocodeCorner1 string
	geocodeCorner2 string
	geocodeCity    string

	reverseLat float64
	reverseLon float64

	streetsQuery string
	streetsLimit int
)

// NewGeocodeCommand creates the geocode command
func NewGeocodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "geocode",
		Short: "Resolve an address to coordinates",
		Long: `Resolve an address to coordinates through the daemon's cascade:
cache, exact query, street corner fallbacks.

Examples:
  dispatch geocode --address "Av. 18 de Julio 1234, Montevideo"
  dispatch geocode --street "Av. 18 de Julio" --number 1234
  dispatch geocode --corner1 "Av. 18 de Julio" --corner2 "Ejido"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if geocodeAddress == "" && geocodeStreet == "" && geocodeCorner1 == "" {
				return fmt.Errorf("--address, --street or --corner1 flag is required")
			}

			req := &api.GeocodeRequest{
				Address: api.AddressDTO{
					FreeText: geocodeAddress,
					Street:   geocodeStreet,
					Number:   geocodeNumber,
					Corner1:  geocodeCorner1,
					Corner2:  geocodeCorner2,
					City:     geocodeCity,
				},
			}

			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res, err := client.Geocode(ctx, req)
			if err != nil {
				return fmt.Errorf("geocoding failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}

			if !res.Found {
				fmt.Println("✗ Address not found")
				return nil
			}

			fmt.Println("✓ Address resolved")
			fmt.Printf("  Latitude:     %.6f\n", res.Latitude)
			fmt.Printf("  Longitude:    %.6f\n", res.Longitude)
			fmt.Printf("  Confidence:   %.2f\n", res.Confidence)
			if res.DisplayName != "" {
				fmt.Printf("  Display name: %s\n", res.DisplayName)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&geocodeAddress, "address", "a", "", "Free-text address")
	cmd.Flags().StringVar(&geocodeStreet, "street", "", "Street name")
	cmd.Flags().StringVar(&geocodeNumber, "number", "", "Door number")
	cmd.Flags().StringVar(&geocodeCorner1, "corner1", "", "First street of an intersection")
	cmd.Flags().StringVar(&geocodeCorner2, "corner2", "", "Second street of an intersection")
	cmd.Flags().StringVar(&geocodeCity, "city", "", "City (default: daemon's configured city)")

	return cmd
}

// NewReverseGeocodeCommand creates the reverse-geocode command
func NewReverseGeocodeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reverse-geocode",
		Short: "Resolve coordinates to the closest known address",
		Long: `Resolve coordinates to the closest known address.

Example:
  dispatch reverse-geocode --lat -34.9056 --lon -56.1913`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !cmd.Flags().Changed("lat") || !cmd.Flags().Changed("lon") {
				return fmt.Errorf("--lat and --lon flags are required")
			}

			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res, err := client.ReverseGeocode(ctx, &api.ReverseGeocodeRequest{
				Latitude:  reverseLat,
				Longitude: reverseLon,
			})
			if err != nil {
				return fmt.Errorf("reverse geocoding failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}

			if !res.Found || res.Address == nil {
				fmt.Println("✗ No address found at that location")
				return nil
			}

			fmt.Println("✓ Address found")
			if res.Address.Street != "" {
				fmt.Printf("  Street:       %s %s\n", res.Address.Street, res.Address.Number)
			}
			if res.Address.FreeText != "" {
				fmt.Printf("  Address:      %s\n", res.Address.FreeText)
			}
			if res.Address.City != "" {
				fmt.Printf("  City:         %s\n", res.Address.City)
			}
			return nil
		},
	}

	cmd.Flags().Float64Var(&reverseLat, "lat", 0, "Latitude (required)")
	cmd.Flags().Float64Var(&reverseLon, "lon", 0, "Longitude (required)")

	return cmd
}

// NewStreetsCommand creates the streets command
func NewStreetsCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "streets",
		Short: "Search street names known to the road network",
		Long: `Search street names known to the loaded road network.

Useful for finding the canonical spelling before geocoding corners.

Example:
  dispatch streets --query "18 de julio"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			if streetsQuery == "" {
				return fmt.Errorf("--query flag is required")
			}

			client, err := connect()
			if err != nil {
				return err
			}

			ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
			defer cancel()

			res, err := client.SearchStreets(ctx, streetsQuery, streetsLimit)
			if err != nil {
				return fmt.Errorf("street search failed: %w", err)
			}

			if jsonOutput() {
				return printJSON(res)
			}

			if res.Count == 0 {
				fmt.Println("No matching streets")
				return nil
			}

			fmt.Printf("✓ %d matching streets\n", res.Count)
			for _, street := range res.Streets {
				fmt.Printf("  %s\n", street)
			}
			return nil
		},
	}

	cmd.Flags().StringVarP(&streetsQuery, "query", "q", "", "Substring to match (required)")
	cmd.Flags().IntVar(&streetsLimit, "limit", 0, "Maximum results (default: daemon's limit)")

	return cmd
}
