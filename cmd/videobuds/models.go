package main

import (
	"fmt"
	"net/url"

	"github.com/spf13/cobra"
)

var modelsType string

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "List available generation models and their prices",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := "/api/v1/models"
		if modelsType != "" {
			path += "?type=" + url.QueryEscape(modelsType)
		}

		result, body, _, err := apiRequest("GET", path, nil)
		if err != nil {
			return err
		}

		if output == "json" {
			fmt.Println(string(body))
			return nil
		}

		models, _ := result["models"].([]interface{})
		fmt.Printf("\n🎬 Model Catalog (%d models)\n", len(models))
		fmt.Printf("━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━━\n")
		for _, m := range models {
			info, ok := m.(map[string]interface{})
			if !ok {
				continue
			}
			fmt.Printf("%-22s %-7s %s\n", info["slug"], info["type"], info["display_name"])
			providers, _ := info["providers"].([]interface{})
			for _, p := range providers {
				prov, ok := p.(map[string]interface{})
				if !ok {
					continue
				}
				price := "free tier"
				if retail, ok := prov["retail"].(float64); ok && retail > 0 {
					price = fmt.Sprintf("$%.2f", retail)
				}
				fmt.Printf("    %-18s %s\n", prov["name"], price)
			}
		}
		fmt.Printf("\n")
		return nil
	},
}

func init() {
	modelsCmd.Flags().StringVar(&modelsType, "type", "", "Filter by type: image, video, tts, talking-head")
}
