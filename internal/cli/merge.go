package cli

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"slices"
	"strconv"
	"strings"

	"go-pdfmerger/internal/client"

	"github.com/spf13/cobra"
	"go.uber.org/zap"
)

func (a *app) mergeCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "merge FILE...",
		Short: "Merge PDF files into one document",
		Long: `Merge concatenates the pages of every FILE in the order given.

The order can be adjusted before submitting with --move FROM:TO, which takes
the file at position FROM (0-based) and reinserts it at TO. Moves are applied
left to right. With --local the files are merged in-process instead of by
the service.`,
		Args: cobra.MinimumNArgs(1),
		RunE: a.runMerge,
	}
	flags := cmd.Flags()
	flags.StringP("output", "o", defaultOutput, "where to write the merged PDF")
	flags.Bool("local", false, "merge without contacting the service")
	flags.StringArray("move", nil, "reorder before merging, as FROM:TO (repeatable)")
	flags.IntSlice("remove", nil, "drop files by position before reordering")
	cobra.CheckErr(a.v.BindPFlag("output", flags.Lookup("output")))
	return cmd
}

func (a *app) runMerge(cmd *cobra.Command, args []string) error {
	var sel client.Selection
	files := make([]client.File, len(args))
	for i, path := range args {
		files[i] = client.NewFile(path)
	}
	if err := sel.Add(cmd.Context(), files...); err != nil {
		return err
	}
	for _, e := range sel.Entries() {
		if e.Err != nil {
			a.log.Warn("preview failed", zap.String("file", e.File.Name), zap.Error(e.Err))
		}
	}

	remove, _ := cmd.Flags().GetIntSlice("remove")
	if err := removeAll(&sel, remove); err != nil {
		return err
	}
	moves, _ := cmd.Flags().GetStringArray("move")
	for _, m := range moves {
		from, to, err := parseMove(m)
		if err != nil {
			return err
		}
		if err := sel.Move(from, to); err != nil {
			return err
		}
	}
	if sel.Len() == 0 {
		return client.ErrNoFiles
	}

	var (
		data  []byte
		pages int
	)
	if local, _ := cmd.Flags().GetBool("local"); local {
		var buf bytes.Buffer
		n, err := client.MergeLocal(sel.Files(), &buf)
		if err != nil {
			return err
		}
		data, pages = buf.Bytes(), n
	} else {
		res, err := a.client().Merge(cmd.Context(), sel.Files())
		if err != nil {
			return err
		}
		data, pages = res.Data, res.Pages
	}

	output := a.v.GetString("output")
	if err := writeOutput(output, data); err != nil {
		return err
	}
	a.log.Info("merged", zap.Int("files", sel.Len()), zap.Int("pages", pages), zap.String("output", output))
	fmt.Fprintf(cmd.OutOrStdout(), "wrote %s (%d files, %d pages)\n", output, sel.Len(), pages)
	return nil
}

// removeAll drops positions from the highest down so earlier removals do
// not shift later ones.
func removeAll(sel *client.Selection, positions []int) error {
	sorted := slices.Clone(positions)
	slices.Sort(sorted)
	sorted = slices.Compact(sorted)
	slices.Reverse(sorted)
	for _, p := range sorted {
		if err := sel.Remove(p); err != nil {
			return err
		}
	}
	return nil
}

func parseMove(s string) (int, int, error) {
	fromStr, toStr, ok := strings.Cut(s, ":")
	if !ok {
		return 0, 0, fmt.Errorf("invalid move %q: want FROM:TO", s)
	}
	from, err := strconv.Atoi(fromStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid move %q: %w", s, err)
	}
	to, err := strconv.Atoi(toStr)
	if err != nil {
		return 0, 0, fmt.Errorf("invalid move %q: %w", s, err)
	}
	return from, to, nil
}

// writeOutput replaces path only once the whole document is on disk.
func writeOutput(path string, data []byte) error {
	tmp, err := os.CreateTemp(filepath.Dir(path), ".pdfmerge-*")
	if err != nil {
		return err
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	return os.Rename(tmp.Name(), path)
}
