package cli

import (
	"fmt"
	"os"
	"path"
	"strconv"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"
	"github.com/spf13/cobra"

	"github.com/sdejongh/reorgnorris/pkg/classify"
	"github.com/sdejongh/reorgnorris/pkg/models"
	"github.com/sdejongh/reorgnorris/pkg/scan"
)

// ScanFlags holds scan command flags
type ScanFlags struct {
	projectFlags
	Encoding bool
	NonASCII bool
	Summary  bool
}

var scanFlags ScanFlags

// NewScanCommand creates the scan command
func NewScanCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "scan",
		Short: "Show how the project would be classified",
		Long: `Scan the project tree and print every file with its category and the
directory a reorganization would move it to. Nothing is modified.`,
		RunE: runScan,
	}

	scanFlags.register(cmd)
	cmd.Flags().BoolVar(&scanFlags.Encoding, "encoding", false, "detect and show the text encoding of every file")
	cmd.Flags().BoolVar(&scanFlags.NonASCII, "non-ascii", false, "only list files with non-ASCII names")
	cmd.Flags().BoolVar(&scanFlags.Summary, "summary", false, "print the per-category summary instead of the file table")

	return cmd
}

func runScan(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()

	cfg, rc, err := loadReorgConfig(scanFlags.projectFlags)
	if err != nil {
		return err
	}

	logger, err := createLogger(cfg, rc.ProjectRoot)
	if err != nil {
		return fmt.Errorf("failed to create logger: %w", err)
	}
	defer logger.Close()

	scanner, err := scan.New(rc.ProjectRoot, rc.ExcludePatterns, logger)
	if err != nil {
		return err
	}

	var files []models.FileInfo
	if scanFlags.NonASCII {
		files, err = scanner.FindNonASCIIFiles(ctx)
	} else {
		files, err = scanner.Scan(ctx, "")
	}
	if err != nil {
		return err
	}

	classifier := classify.New(rc.SimilarityThreshold, logger)
	classified := classifier.ClassifyBatch(scan.WithoutSymlinks(files))

	if scanFlags.Summary {
		fmt.Fprint(stdout(), classify.Report(classified))
		return nil
	}

	categoryOf := make(map[string]models.FileCategory, len(files))
	for category, group := range classified {
		for _, f := range group {
			categoryOf[f.Path] = category
		}
	}

	table := tablewriter.NewWriter(stdout())
	headers := []string{"Path", "Category", "Target", "Size"}
	if scanFlags.Encoding {
		headers = append(headers, "Encoding")
	}
	table.Header(headers)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for _, f := range files {
		category := categoryOf[f.Path]
		target := "(stays)"
		if category != models.CategoryUnknown {
			target = path.Join(classify.CategoryDir(category), f.Name)
		}

		row := []string{f.Path, string(category), target, strconv.FormatInt(f.Size, 10)}
		if scanFlags.Encoding {
			row = append(row, scanner.DetectEncoding(f.Path))
		}
		data = append(data, row)
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	if err := table.Render(); err != nil {
		return err
	}

	var total int64
	for _, f := range files {
		total += f.Size
	}
	fmt.Fprintf(stdout(), "%d files, %d bytes, %d categories\n", len(files), total, len(classified))

	if groups := classifier.DetectDuplicates(files); len(groups) > 0 {
		fmt.Fprintf(os.Stderr, "%d groups of similarly named files detected; extra members are classified as %s\n",
			len(groups), models.CategoryDuplicate)
	}
	return nil
}
