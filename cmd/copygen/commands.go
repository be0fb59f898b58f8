package main

import (
	"encoding/json"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/adcraft-io/copygen/internal/ingest"
	"github.com/adcraft-io/copygen/internal/pipeline"
	"github.com/adcraft-io/copygen/internal/storage"
)

// --- generate ---

var generateCmd = &cobra.Command{
	Use:   "generate <topic>",
	Short: "Generate marketing copy candidates for a topic",
	Long: `Generate marketing copy candidates for a topic.

Examples:
  copygen generate "가을 세일" --channel RCS --count 5
  copygen generate "신상품 오픈" --channel APP_PUSH --team 6 --tone "발랄한"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		topic := strings.Join(args, " ")
		channel, _ := cmd.Flags().GetString("channel")
		teamID, _ := cmd.Flags().GetInt("team")
		count, _ := cmd.Flags().GetInt("count")
		tone, _ := cmd.Flags().GetString("tone")
		audience, _ := cmd.Flags().GetString("audience")
		temperature, _ := cmd.Flags().GetFloat64("temperature")
		brand, _ := cmd.Flags().GetString("brand")
		event, _ := cmd.Flags().GetString("event")
		discount, _ := cmd.Flags().GetString("discount")
		appeal, _ := cmd.Flags().GetString("appeal")
		reference, _ := cmd.Flags().GetString("reference")
		useEmoji, _ := cmd.Flags().GetBool("emoji")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := pipeline.Request{
			Topic:          topic,
			Channel:        channel,
			TeamID:         pipeline.TeamID(teamID),
			Count:          count,
			Tone:           tone,
			TargetAudience: audience,
			Temperature:    temperature,
			Brand:          brand,
			EventName:      event,
			DiscountType:   discount,
			AppealPoint:    appeal,
			ReferenceText:  reference,
			UseEmoji:       strconv.FormatBool(useEmoji),
		}
		resp, err := client.post(cmd.Context(), "/api/generate", req)
		if err != nil {
			return err
		}

		var result pipeline.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Copies) == 0 {
			printWarning("No usable copy came back, try again")
			return nil
		}

		for i, c := range result.Copies {
			fmt.Printf("\n%s\n", colorize(colorBold, fmt.Sprintf("Copy %d", i+1)))
			if c.Title != "" {
				fmt.Printf("  %s %s\n", colorize(colorCyan, "타이틀:"), c.Title)
			}
			if c.Button != "" {
				fmt.Printf("  %s %s\n", colorize(colorCyan, "버튼:"), c.Button)
			}
			fmt.Printf("  %s\n", strings.ReplaceAll(c.Message, "\n", "\n  "))
		}
		if len(result.ReferencedPhrases) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, "참고한 과거 문구"))
			for _, p := range result.ReferencedPhrases {
				fmt.Printf("  [%.2f] %s (CTR %.2f%%)\n", p.Similarity, p.Message, p.CTR*100)
			}
		}
		if len(result.SavedCopyIDs) > 0 {
			printSuccess("Saved %d copies", len(result.SavedCopyIDs))
		}
		return nil
	},
}

func init() {
	generateCmd.Flags().String("channel", "", "delivery channel: RCS or APP_PUSH (default RCS)")
	generateCmd.Flags().Int("team", 0, "team ID; when set, results are saved for that team")
	generateCmd.Flags().Int("count", 0, "number of candidates (default 5)")
	generateCmd.Flags().String("tone", "", "tone of voice")
	generateCmd.Flags().String("audience", "", "target audience")
	generateCmd.Flags().Float64("temperature", 0, "sampling temperature (default 2.0)")
	generateCmd.Flags().String("brand", "", "brand name to feature")
	generateCmd.Flags().String("event", "", "event name to feature")
	generateCmd.Flags().String("discount", "", "discount offer, e.g. \"30% 할인\"")
	generateCmd.Flags().String("appeal", "", "appeal point to emphasize")
	generateCmd.Flags().String("reference", "", "reference text to draw on")
	generateCmd.Flags().Bool("emoji", true, "allow emoji in the copy")
}

// --- ingest ---

var ingestCmd = &cobra.Command{
	Use:   "ingest <file>",
	Short: "Bulk-load historical copies from a JSON or CSV file",
	Long: `Bulk-load historical copies from a JSON or CSV file.

CSV files use a header row; both the canonical column names and the legacy
Korean spreadsheet headers (팀, 채널, 버튼명, 발송일자, ...) are recognized.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		records, skipped, err := ingest.DecodeFile(args[0], data)
		if err != nil {
			return err
		}
		if skipped > 0 {
			printWarning("%d malformed rows skipped while decoding", skipped)
		}
		if len(records) == 0 {
			return fmt.Errorf("no rows found in %s", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Uploading %d rows...", len(records))
		resp, err := client.post(cmd.Context(), "/api/copies/bulk", map[string]any{"records": records})
		if err != nil {
			return err
		}

		var result ingest.Result
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if result.ErrorCount > 0 {
			printWarning("%d rows rejected, see server log", result.ErrorCount)
		}
		printSuccess("Ingested %d copies", result.SuccessCount)
		return nil
	},
}

// --- trends ---

var trendsCmd = &cobra.Command{
	Use:   "trends",
	Short: "Inspect and archive trend keywords",
}

var trendsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List recent trend keywords",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/api/trends?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []storage.TrendRecord
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No trends archived yet.")
			return nil
		}
		for _, r := range records {
			fmt.Printf("%s  %-12s score %.1f  (%s)\n",
				colorize(colorCyan, r.CollectedAt.Format("2006-01-02")),
				r.Keyword,
				r.TrendScore,
				r.Category,
			)
		}
		return nil
	},
}

var trendsArchiveCmd = &cobra.Command{
	Use:   "archive <file>",
	Short: "Archive trend keywords from a JSON file",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		data, err := os.ReadFile(args[0])
		if err != nil {
			return fmt.Errorf("reading file: %w", err)
		}

		var records []storage.TrendRecord
		if err := json.Unmarshal(data, &records); err != nil {
			return fmt.Errorf("invalid JSON: %w", err)
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/trends/archive", records)
		if err != nil {
			return err
		}

		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Archived trends: %d created, %d updated, %d failed",
			result["created"], result["updated"], result["failed"])
		return nil
	},
}

var trendsAnalyzeCmd = &cobra.Command{
	Use:   "analyze <raw text>",
	Short: "Extract and archive trend keywords from raw text via the LLM",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		raw := strings.Join(args, " ")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.post(cmd.Context(), "/api/trends/analyze", map[string]string{"raw": raw})
		if err != nil {
			return err
		}

		var result struct {
			Keywords []struct {
				Keyword    string  `json:"keyword"`
				Category   string  `json:"category"`
				TrendScore float64 `json:"trend_score"`
			} `json:"keywords"`
			Archived int `json:"archived"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		if len(result.Keywords) == 0 {
			printWarning("No keywords extracted")
			return nil
		}
		for _, k := range result.Keywords {
			fmt.Printf("  %-12s score %.1f  (%s)\n", k.Keyword, k.TrendScore, k.Category)
		}
		printSuccess("Archived %d keywords", result.Archived)
		return nil
	},
}

func init() {
	trendsListCmd.Flags().Int("limit", 10, "maximum number of trends to list")
	trendsCmd.AddCommand(trendsListCmd)
	trendsCmd.AddCommand(trendsArchiveCmd)
	trendsCmd.AddCommand(trendsAnalyzeCmd)
}

// --- reindex ---

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the phrase vector index from the relational store",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Rebuilding vector index...")
		resp, err := client.post(cmd.Context(), "/api/reindex", nil)
		if err != nil {
			return err
		}

		var result map[string]int
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Indexed %d copies", result["indexed"])
		return nil
	},
}
