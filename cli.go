package main

import (
	"errors"
	"fmt"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"badger/directory"
	"badger/label"
	"badger/store"
	"badger/tag"
)

var tagCmd = &cobra.Command{
	Use:   "tag",
	Short: "Manage the tag database",
}

var tagListCmd = &cobra.Command{
	Use:   "list",
	Short: "List tag records",
	Args:  cobra.NoArgs,
	RunE:  runTagList,
}

var tagSetCmd = &cobra.Command{
	Use:   "set [tag] [name] [comment]",
	Short: "Create or update a tag record",
	Args:  cobra.RangeArgs(2, 3),
	RunE:  runTagSet,
}

var tagRmCmd = &cobra.Command{
	Use:   "rm [tag]",
	Short: "Delete a tag record",
	Args:  cobra.ExactArgs(1),
	RunE:  runTagRm,
}

var tagImportCmd = &cobra.Command{
	Use:   "import",
	Short: "Import badge records from the membership server",
	Args:  cobra.NoArgs,
	RunE:  runTagImport,
}

var labelCmd = &cobra.Command{
	Use:   "label [badge|storage|general] [name] [comment]",
	Short: "Render one label to a PNG file",
	Long: `Render one label without a reader. For general labels the remaining
arguments are joined into the label text.`,
	Args: cobra.MinimumNArgs(2),
	RunE: runLabel,
}

var labelOut string

func init() {
	tagCmd.AddCommand(tagListCmd, tagSetCmd, tagRmCmd, tagImportCmd)
	labelCmd.Flags().StringVarP(&labelOut, "out", "o", "label.png", "Output PNG file")
}

func openStore() (store.Store, error) {
	s, err := store.New(cfg.Store)
	if err != nil {
		return nil, err
	}
	if s == nil {
		return nil, errors.New("no store path configured")
	}
	return s, nil
}

func runTagList(cmd *cobra.Command, args []string) error {
	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	recs, err := s.List()
	if err != nil {
		return err
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "TAG\tNAME\tCOMMENT\tUPDATED")
	for _, r := range recs {
		updated := ""
		if !r.Updated.IsZero() {
			updated = r.Updated.Local().Format(time.DateTime)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", r.Tag, r.Name, r.Comment, updated)
	}
	return w.Flush()
}

func runTagSet(cmd *cobra.Command, args []string) error {
	t, err := parseTag(args[0])
	if err != nil {
		return err
	}
	rec := store.Record{Tag: t, Name: args[1]}
	if len(args) > 2 {
		rec.Comment = args[2]
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Upsert(rec); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "saved %s\n", t)
	return nil
}

func runTagRm(cmd *cobra.Command, args []string) error {
	t, err := tag.Parse(args[0])
	if err != nil {
		return err
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	if err := s.Delete(t); err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return fmt.Errorf("tag %s: %w", t, err)
		}
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "deleted %s\n", t)
	return nil
}

func runTagImport(cmd *cobra.Command, args []string) error {
	c, err := directory.New(cfg.Directory)
	if err != nil {
		return err
	}
	if c == nil {
		return errors.New("no directory url configured")
	}

	s, err := openStore()
	if err != nil {
		return err
	}
	defer s.Close()

	n, err := c.Sync(cmd.Context(), s)
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d records\n", n)
	return nil
}

func runLabel(cmd *cobra.Command, args []string) error {
	kind, err := label.ParseKind(args[0])
	if err != nil {
		return err
	}

	var c label.Content
	if kind == label.General {
		c.Text = strings.Join(args[1:], " ")
	} else {
		c.Name = args[1]
		if len(args) > 2 {
			c.Comment = strings.Join(args[2:], " ")
		}
	}

	img, err := label.NewRenderer(cfg.Label).Render(kind, c)
	if err != nil {
		return err
	}
	if err := label.WritePNG(labelOut, img); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s\n", labelOut)
	return nil
}
