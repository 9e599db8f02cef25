package main

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/mindmate/mindmate/internal/config"
	"github.com/mindmate/mindmate/internal/problem"
	"github.com/mindmate/mindmate/internal/session"
)

// --- solve ---

var solveCmd = &cobra.Command{
	Use:   "solve [problem text]",
	Short: "Submit a problem and print the reasoning report",
	Long: `Submit a problem and print the reasoning report.

Examples:
  mindmate solve "What is the integral of x^2?"
  mindmate solve --file ./homework.pdf
  mindmate solve --url https://example.com/puzzle.html`,
	RunE: func(cmd *cobra.Command, args []string) error {
		file, _ := cmd.Flags().GetString("file")
		url, _ := cmd.Flags().GetString("url")

		var text string
		switch {
		case len(args) > 0:
			text = strings.Join(args, " ")
		case file != "":
			extracted, err := problem.FromFile(file)
			if err != nil {
				return fmt.Errorf("reading problem file: %w", err)
			}
			text = extracted
		case url != "":
			extracted, err := problem.FromURL(cmd.Context(), &http.Client{Timeout: 30 * time.Second}, url)
			if err != nil {
				return fmt.Errorf("fetching problem URL: %w", err)
			}
			text = extracted
		default:
			return fmt.Errorf("provide problem text, --file, or --url")
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Submitting problem...")
		resp, err := client.post(cmd.Context(), "/solve", map[string]string{"problem": text})
		if err != nil {
			return err
		}

		var outcome session.Outcome
		if err := decodeJSON(resp, &outcome); err != nil {
			return err
		}

		fmt.Println(outcome.Report)
		return nil
	},
}

func init() {
	solveCmd.Flags().String("file", "", "read the problem from a text or PDF file")
	solveCmd.Flags().String("url", "", "fetch the problem from a URL")
}

// --- history ---

var historyCmd = &cobra.Command{
	Use:   "history",
	Short: "Inspect this session's submissions",
}

var historyListCmd = &cobra.Command{
	Use:   "list",
	Short: "List submissions in chronological order",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/history")
		if err != nil {
			return err
		}

		var entries []session.Entry
		if err := decodeJSON(resp, &entries); err != nil {
			return err
		}

		if len(entries) == 0 {
			fmt.Println("No submissions yet.")
			return nil
		}

		for i, e := range entries {
			text := e.Request.Text
			if len(text) > 80 {
				text = text[:80] + "..."
			}
			status := colorize(colorGreen, "solved")
			if e.Failed() {
				status = colorize(colorRed, string(e.ErrorKind))
			}
			fmt.Printf("%s  %s  %s  %s\n",
				colorize(colorCyan, fmt.Sprintf("[%d]", i)),
				e.Request.SubmittedAt.Format(time.RFC3339),
				status,
				text,
			)
		}
		return nil
	},
}

var historyShowCmd = &cobra.Command{
	Use:   "show <index>",
	Short: "Show one submission as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history/%d", index))
		if err != nil {
			return err
		}

		var entry any
		if err := decodeJSON(resp, &entry); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(entry)
	},
}

var historyReportCmd = &cobra.Command{
	Use:   "report <index>",
	Short: "Download the text report for a submission",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		index, err := strconv.Atoi(args[0])
		if err != nil {
			return fmt.Errorf("invalid index %q", args[0])
		}
		output, _ := cmd.Flags().GetString("output")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/history/%d/report", index))
		if err != nil {
			return err
		}
		defer resp.Body.Close()

		if resp.StatusCode >= 400 {
			return fmt.Errorf("server returned %d", resp.StatusCode)
		}

		if output == "" {
			_, err := io.Copy(os.Stdout, resp.Body)
			return err
		}

		f, err := os.Create(output)
		if err != nil {
			return fmt.Errorf("creating output file: %w", err)
		}
		defer f.Close()
		if _, err := io.Copy(f, resp.Body); err != nil {
			return err
		}
		printSuccess("Report saved to %s", output)
		return nil
	},
}

var historyClearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Clear the in-memory session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.delete(cmd.Context(), "/history")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("History cleared")
		return nil
	},
}

func init() {
	historyReportCmd.Flags().String("output", "", "write the report to a file (default: stdout)")
	historyCmd.AddCommand(historyListCmd)
	historyCmd.AddCommand(historyShowCmd)
	historyCmd.AddCommand(historyReportCmd)
	historyCmd.AddCommand(historyClearCmd)
}

// --- archive ---

var archiveCmd = &cobra.Command{
	Use:   "archive",
	Short: "Inspect the durable problem archive",
}

var archiveListCmd = &cobra.Command{
	Use:   "list",
	Short: "List archived problems, most recent first",
	RunE: func(cmd *cobra.Command, args []string) error {
		limit, _ := cmd.Flags().GetInt("limit")

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), fmt.Sprintf("/archive?limit=%d", limit))
		if err != nil {
			return err
		}

		var records []struct {
			ID        string `json:"id"`
			CreatedAt string `json:"created_at"`
			Problem   string `json:"problem"`
			Status    string `json:"status"`
		}
		if err := decodeJSON(resp, &records); err != nil {
			return err
		}

		if len(records) == 0 {
			fmt.Println("No archived problems.")
			return nil
		}

		for _, r := range records {
			text := r.Problem
			if len(text) > 80 {
				text = text[:80] + "..."
			}
			fmt.Printf("%s  %s  %s  %s\n",
				colorize(colorCyan, r.ID[:8]),
				r.CreatedAt,
				r.Status,
				text,
			)
		}
		return nil
	},
}

var archiveShowCmd = &cobra.Command{
	Use:   "show <id>",
	Short: "Show one archived problem as JSON",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/archive/"+args[0])
		if err != nil {
			return err
		}

		var record any
		if err := decodeJSON(resp, &record); err != nil {
			return err
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	},
}

var archivePurgeCmd = &cobra.Command{
	Use:   "purge",
	Short: "Delete all archived problems",
	RunE: func(cmd *cobra.Command, args []string) error {
		confirm, _ := cmd.Flags().GetBool("confirm")
		if !confirm {
			printWarning("This will delete ALL archived problems. Use --confirm to proceed.")
			return nil
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		printStep("Purging archive...")
		resp, err := client.delete(cmd.Context(), "/archive")
		if err != nil {
			return err
		}

		var result map[string]string
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		printSuccess("Archive purged")
		return nil
	},
}

func init() {
	archiveListCmd.Flags().Int("limit", 20, "maximum number of records to list")
	archivePurgeCmd.Flags().Bool("confirm", false, "confirm archive purge")
	archiveCmd.AddCommand(archiveListCmd)
	archiveCmd.AddCommand(archiveShowCmd)
	archiveCmd.AddCommand(archivePurgeCmd)
}

// --- config ---

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or update configuration",
}

var configShowCmd = &cobra.Command{
	Use:   "show",
	Short: "Show current configuration",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := config.Load()
		if err != nil {
			return err
		}

		keys := config.ShowAll(cfg)
		for _, k := range keys {
			fmt.Printf("  %s = %s\n", colorize(colorBold, k.Key), k.Value)
		}
		return nil
	},
}

var configSetCmd = &cobra.Command{
	Use:   "set <key> <value>",
	Short: "Set a configuration value",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		key, value := args[0], args[1]

		if err := config.SetKey(key, value); err != nil {
			return err
		}

		printSuccess("Set %s = %s", key, value)
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
}
