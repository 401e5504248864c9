package main

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/omnidoc/omnidoc/internal/config"
)

// documentView mirrors the server's document representation.
type documentView struct {
	ID         string `json:"id"`
	Filename   string `json:"filename"`
	FileType   string `json:"fileType"`
	FileSize   int64  `json:"fileSize"`
	UploadedAt string `json:"uploadedAt"`
	Status     string `json:"status"`
	Error      string `json:"error"`
	ChunkCount int    `json:"chunkCount"`
}

// --- upload ---

var uploadCmd = &cobra.Command{
	Use:   "upload <file>...",
	Short: "Upload documents for indexing",
	Long: `Upload one or more documents for indexing.

Supported formats: plain text, Markdown, CSV, PDF, HTML, and DOCX.
Processing happens in the background; use "omnidoc docs" to watch status.

Examples:
  omnidoc upload report.pdf
  omnidoc upload notes.md meeting-minutes.docx`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		for _, path := range args {
			resp, err := client.postFile(cmd.Context(), "/api/upload", path)
			if err != nil {
				return err
			}

			var doc documentView
			if err := decodeJSON(resp, &doc); err != nil {
				printError("%s: %v", path, err)
				continue
			}
			printSuccess("Uploaded %s (%s), processing queued", doc.Filename, doc.ID[:8])
		}
		return nil
	},
}

// --- ask ---

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question about your documents",
	Long: `Ask a question about your documents.

The answer is backed by the most relevant passages across the collection,
with sources cited.

Examples:
  omnidoc ask "What were the Q3 revenue figures?"
  omnidoc ask --docs 1a2b3c4d "Summarize the conclusion"`,
	Args: cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		docsStr, _ := cmd.Flags().GetString("docs")
		topK, _ := cmd.Flags().GetInt("top-k")

		var docIDs []string
		if docsStr != "" {
			docIDs = strings.Split(docsStr, ",")
			for i := range docIDs {
				docIDs[i] = strings.TrimSpace(docIDs[i])
			}
		}

		client, err := newAPIClient()
		if err != nil {
			return err
		}

		req := map[string]any{"query": query}
		if docIDs != nil {
			req["documentIds"] = docIDs
		}
		if topK > 0 {
			req["topK"] = topK
		}

		resp, err := client.post(cmd.Context(), "/api/chat", req)
		if err != nil {
			return err
		}

		var result struct {
			Response string `json:"response"`
			Sources  []struct {
				Filename   string `json:"filename"`
				ChunkIndex int    `json:"chunkIndex"`
				Preview    string `json:"preview"`
			} `json:"sources"`
			ContextUsed int `json:"contextUsed"`
		}
		if err := decodeJSON(resp, &result); err != nil {
			return err
		}

		fmt.Println(result.Response)

		if len(result.Sources) > 0 {
			fmt.Printf("\n%s\n", colorize(colorBold, "Sources:"))
			for _, s := range result.Sources {
				fmt.Printf("  %s (chunk %d)\n", colorize(colorCyan, s.Filename), s.ChunkIndex)
			}
		}
		return nil
	},
}

func init() {
	askCmd.Flags().String("docs", "", "comma-separated document IDs to restrict the answer to")
	askCmd.Flags().Int("top-k", 0, "maximum number of context chunks to use")
}

// --- docs ---

var docsCmd = &cobra.Command{
	Use:   "docs",
	Short: "List uploaded documents",
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		resp, err := client.get(cmd.Context(), "/api/documents")
		if err != nil {
			return err
		}

		var docs []documentView
		if err := decodeJSON(resp, &docs); err != nil {
			return err
		}

		if len(docs) == 0 {
			fmt.Println("No documents uploaded.")
			return nil
		}

		for _, d := range docs {
			status := d.Status
			switch d.Status {
			case "processed":
				status = colorize(colorGreen, d.Status)
			case "failed":
				status = colorize(colorRed, d.Status)
			case "pending":
				status = colorize(colorYellow, d.Status)
			}
			fmt.Printf("%s  %-10s  %4d chunks  %s\n",
				colorize(colorCyan, d.ID[:8]),
				status,
				d.ChunkCount,
				d.Filename,
			)
			if d.Error != "" {
				fmt.Printf("          %s\n", colorize(colorRed, d.Error))
			}
		}
		return nil
	},
}

// --- rm ---

var rmCmd = &cobra.Command{
	Use:   "rm <id>...",
	Short: "Delete documents and their index data",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := newAPIClient()
		if err != nil {
			return err
		}

		for _, id := range args {
			resp, err := client.delete(cmd.Context(), "/api/documents/"+id)
			if err != nil {
				return err
			}

			var result map[string]string
			if err := decodeJSON(resp, &result); err != nil {
				printError("%s: %v", id, err)
				continue
			}
			printSuccess("Deleted %s", id)
		}
		return nil
	},
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

var configUnsetCmd = &cobra.Command{
	Use:   "unset <key>",
	Short: "Reset a configuration value to its default",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if err := config.UnsetKey(args[0]); err != nil {
			return err
		}

		printSuccess("Unset %s", args[0])
		return nil
	},
}

func init() {
	configCmd.AddCommand(configShowCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configUnsetCmd)
}
