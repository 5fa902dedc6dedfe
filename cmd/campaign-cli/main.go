package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"

	"github.com/fpang/campaign-engine/internal/config"
	"github.com/fpang/campaign-engine/internal/logging"
	"github.com/fpang/campaign-engine/internal/workflow"
)

// CLI flags
var (
	descriptionFlag string
	objectiveFlag   string
	audienceFlag    string
	urlsFlag        []string
	platformFlag    string
	textPostsFlag   int
	imagePostsFlag  int
	videoPostsFlag  int
	creativityFlag  int
	outputFlag      string
)

// rootCmd is the main Cobra command for the CLI.
var rootCmd = &cobra.Command{
	Use:   "campaign-cli",
	Short: "AI-powered marketing campaign content generation",
	Long: `Campaign CLI generates a complete social media campaign from a business
description and optional website URLs.

The tool scrapes the given URLs, extracts structured business context with AI,
generates the requested mix of text, image, and video posts, and validates
every visual asset against the brand before accepting it. Without a Gemini
API key it still produces a deterministic placeholder campaign.

Examples:
  campaign-cli -d "Artisanal coffee roastery in Portland" -u https://example.coffee
  campaign-cli -d "B2B logistics SaaS" --text-posts 5 --image-posts 2 -c 8
  campaign-cli -d "Yoga studio" --audience "young professionals" -o campaign.json`,
	Run: runMain,
}

func init() {
	rootCmd.Flags().StringVarP(&descriptionFlag, "description", "d", "", "Business description (required)")
	rootCmd.Flags().StringVar(&objectiveFlag, "objective", "", "Campaign objective (e.g., 'drive holiday sales')")
	rootCmd.Flags().StringVar(&audienceFlag, "audience", "", "Target audience override")
	rootCmd.Flags().StringSliceVarP(&urlsFlag, "url", "u", nil, "Website URL to analyze (repeatable)")
	rootCmd.Flags().StringVar(&platformFlag, "platform", "", "Target platform label attached to every post")
	rootCmd.Flags().IntVar(&textPostsFlag, "text-posts", 3, "Number of text+URL posts to generate")
	rootCmd.Flags().IntVar(&imagePostsFlag, "image-posts", 0, "Number of image posts to generate")
	rootCmd.Flags().IntVar(&videoPostsFlag, "video-posts", 0, "Number of video posts to generate")
	rootCmd.Flags().IntVarP(&creativityFlag, "creativity", "c", 5, "Creativity level 1-10")
	rootCmd.Flags().StringVarP(&outputFlag, "output", "o", "", "Write the campaign JSON to this file instead of stdout")
	_ = rootCmd.MarkFlagRequired("description")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// runMain is the main execution logic called by Cobra.
func runMain(cmd *cobra.Command, args []string) {
	startTime := time.Now()

	// Local development convenience; a missing .env is not an error.
	_ = godotenv.Load()
	logging.Init()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	ctx := context.Background()
	engine, err := workflow.Build(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to build workflow engine")
	}

	logging.NewStartupLogger("campaign-cli").
		Feature("gemini", cfg.Gemini.Configured()).
		Config("env", cfg.Env).
		Config("text_model", cfg.Gemini.TextModel).
		Config("asset_store", cfg.Assets.Mode).
		InitDuration(time.Since(startTime)).
		Log()

	result, err := engine.Run(ctx, workflow.Request{
		Description:     descriptionFlag,
		Objective:       objectiveFlag,
		TargetAudience:  audienceFlag,
		URLs:            urlsFlag,
		Platform:        platformFlag,
		TextURLPosts:    textPostsFlag,
		ImagePosts:      imagePostsFlag,
		VideoPosts:      videoPostsFlag,
		CreativityLevel: creativityFlag,
	})
	if err != nil {
		log.Fatal().Err(err).Msg("Invalid campaign request")
	}

	out, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to serialize campaign result")
	}

	if outputFlag != "" {
		if err := os.WriteFile(outputFlag, out, 0o644); err != nil {
			log.Fatal().Err(err).Str("path", outputFlag).Msg("Failed to write output file")
		}
		log.Info().Str("path", outputFlag).Int("posts", len(result.Posts)).Msg("Campaign written")
		return
	}

	fmt.Println(string(out))
}
