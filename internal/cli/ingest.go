package cli

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/ppiankov/trackrecord/internal/ingest"
)

var (
	ingestPlatform string
	ingestAuthor   string
	ingestURL      string
)

// ingestCmd processes one post from a file or stdin without running the
// server.
var ingestCmd = &cobra.Command{
	Use:   "ingest [file]",
	Short: "Extract and store opinions from one post",
	Long: `Read post content from a file (or stdin when no file is given), run
extraction and validation, and store the resulting opinions. Prints the
ingestion report as JSON.`,
	Args: cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		a, err := newApp(cfg)
		if err != nil {
			return err
		}
		defer a.close()

		pipeline, err := a.pipeline()
		if err != nil {
			return err
		}

		var content []byte
		if len(args) == 1 {
			content, err = os.ReadFile(args[0])
		} else {
			content, err = io.ReadAll(os.Stdin)
		}
		if err != nil {
			return fmt.Errorf("read post content: %w", err)
		}

		report, err := pipeline.Ingest(context.Background(), ingest.Submission{
			Platform:   ingestPlatform,
			AuthorName: ingestAuthor,
			Content:    string(content),
			SourceURL:  ingestURL,
		})
		if err != nil {
			return err
		}

		out, err := json.MarshalIndent(report, "", "  ")
		if err != nil {
			return err
		}
		fmt.Println(string(out))
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestPlatform, "platform", "", "source platform (required)")
	ingestCmd.Flags().StringVar(&ingestAuthor, "author", "", "author display name (required)")
	ingestCmd.Flags().StringVar(&ingestURL, "url", "", "source URL of the post")
	_ = ingestCmd.MarkFlagRequired("platform")
	_ = ingestCmd.MarkFlagRequired("author")
	rootCmd.AddCommand(ingestCmd)
}
