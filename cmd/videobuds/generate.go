package main

import (
	"fmt"
	"net/http"
	"time"

	"github.com/spf13/cobra"
)

var (
	genModel    string
	genProvider string
	genRatio    string
	genDuration int
	genVoice    string
	genImageURL string
	genWait     bool
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate images, videos and speech",
}

var generateImageCmd = &cobra.Command{
	Use:   "image <prompt>",
	Short: "Generate an image from a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate("/api/v1/generate/image", args[0])
	},
}

var generateVideoCmd = &cobra.Command{
	Use:   "video <prompt>",
	Short: "Generate a video from a prompt",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate("/api/v1/generate/video", args[0])
	},
}

var generateSpeechCmd = &cobra.Command{
	Use:   "speech <text>",
	Short: "Generate spoken audio from text",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return runGenerate("/api/v1/generate/speech", args[0])
	},
}

func init() {
	generateCmd.PersistentFlags().StringVar(&genModel, "model", "", "Model slug (defaults per media type)")
	generateCmd.PersistentFlags().StringVar(&genProvider, "provider", "", "Provider name (defaults to the model's default)")
	generateCmd.PersistentFlags().StringVar(&genRatio, "ratio", "", "Aspect ratio, e.g. 9:16")
	generateCmd.PersistentFlags().IntVar(&genDuration, "duration", 0, "Video duration in seconds")
	generateCmd.PersistentFlags().StringVar(&genVoice, "voice", "", "TTS voice name")
	generateCmd.PersistentFlags().StringVar(&genImageURL, "image-url", "", "Source image URL for image-to-video")
	generateCmd.PersistentFlags().BoolVar(&genWait, "wait", false, "Poll async jobs until they finish")

	generateCmd.AddCommand(generateImageCmd)
	generateCmd.AddCommand(generateVideoCmd)
	generateCmd.AddCommand(generateSpeechCmd)
}

func runGenerate(path, prompt string) error {
	payload := map[string]interface{}{"prompt": prompt}
	if genModel != "" {
		payload["model"] = genModel
	}
	if genProvider != "" {
		payload["provider"] = genProvider
	}
	if genRatio != "" {
		payload["aspect_ratio"] = genRatio
	}
	if genDuration > 0 {
		payload["duration"] = genDuration
	}
	if genVoice != "" {
		payload["voice"] = genVoice
	}
	if genImageURL != "" {
		payload["image_url"] = genImageURL
	}

	result, body, status, err := apiRequest("POST", path, payload)
	if err != nil {
		return err
	}

	if output == "json" {
		fmt.Println(string(body))
		return nil
	}

	// Sync models answer immediately with the finished generation
	if status == http.StatusOK {
		printGeneration(result["generation"])
		return nil
	}

	job, _ := result["job"].(map[string]interface{})
	jobID, _ := job["id"].(string)
	fmt.Printf("⏳ Queued job %s\n", jobID)

	if !genWait {
		fmt.Printf("   Poll with: videobuds job %s\n", jobID)
		return nil
	}
	return pollJob(jobID)
}

func pollJob(jobID string) error {
	for {
		time.Sleep(3 * time.Second)
		result, body, _, err := apiRequest("GET", "/api/v1/jobs/"+jobID, nil)
		if err != nil {
			return err
		}
		job, _ := result["job"].(map[string]interface{})
		jobStatus, _ := job["status"].(string)

		switch jobStatus {
		case "completed":
			if output == "json" {
				fmt.Println(string(body))
				return nil
			}
			fmt.Printf("✓ Job %s completed\n", jobID)
			if res, ok := job["result"].(map[string]interface{}); ok {
				fmt.Printf("  succeeded: %.0f  failed: %.0f  cost: $%.2f\n",
					res["succeeded"], res["failed"], res["retail_cost"])
			}
			return nil
		case "failed":
			if msg, ok := job["error_message"].(string); ok {
				return fmt.Errorf("job failed: %s", msg)
			}
			return fmt.Errorf("job %s failed", jobID)
		default:
			fmt.Printf("  … %s\n", jobStatus)
		}
	}
}

func printGeneration(v interface{}) {
	gen, ok := v.(map[string]interface{})
	if !ok {
		fmt.Println("✓ Generation finished")
		return
	}
	fmt.Printf("✓ Generation finished\n")
	if url, ok := gen["result_url"].(string); ok && url != "" {
		fmt.Printf("  URL: %s\n", url)
	}
	if cost, ok := gen["retail_cost"].(float64); ok {
		fmt.Printf("  Cost: $%.2f\n", cost)
	}
}

var jobCmd = &cobra.Command{
	Use:   "job <id>",
	Short: "Show the status of a queued generation job",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		result, body, _, err := apiRequest("GET", "/api/v1/jobs/"+args[0], nil)
		if err != nil {
			return err
		}
		if output == "json" {
			fmt.Println(string(body))
			return nil
		}
		job, _ := result["job"].(map[string]interface{})
		fmt.Printf("Job %v: %v\n", job["id"], job["status"])
		if res, ok := job["result"].(map[string]interface{}); ok {
			fmt.Printf("  succeeded: %.0f  failed: %.0f  cost: $%.2f\n",
				res["succeeded"], res["failed"], res["retail_cost"])
		}
		return nil
	},
}
