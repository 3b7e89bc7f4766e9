package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"text/tabwriter"

	"go-pdfmerger/internal/client"
	"go-pdfmerger/internal/handlers"

	"github.com/spf13/cobra"
)

func (a *app) inspectCommand() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "inspect FILE...",
		Short: "Show page counts and first-page sizes",
		Args:  cobra.MinimumNArgs(1),
		RunE:  a.runInspect,
	}
	cmd.Flags().Bool("remote", false, "ask the service instead of reading the files locally")
	cmd.Flags().String("extract-dir", "", "also write each file's first page to this directory")
	return cmd
}

func (a *app) runInspect(cmd *cobra.Command, args []string) error {
	files := make([]client.File, len(args))
	for i, path := range args {
		files[i] = client.NewFile(path)
	}

	if remote, _ := cmd.Flags().GetBool("remote"); remote {
		resp, err := a.client().Inspect(cmd.Context(), files)
		if err != nil {
			return err
		}
		return printInspect(cmd.OutOrStdout(), resp)
	}

	entries, err := client.LoadPreviews(cmd.Context(), files)
	if err != nil {
		return err
	}
	resp := &handlers.InspectResponse{Files: make([]handlers.FileInfo, 0, len(entries))}
	var failed []string
	for i, e := range entries {
		if e.Err != nil {
			failed = append(failed, fmt.Sprintf("%s: %v", e.File.Name, e.Err))
			continue
		}
		info := handlers.FileInfo{
			Index:  i,
			Name:   e.File.Name,
			Pages:  e.Preview.Pages,
			Width:  e.Preview.Width,
			Height: e.Preview.Height,
		}
		if st, err := os.Stat(e.File.Path); err == nil {
			info.Size = st.Size()
		}
		resp.Files = append(resp.Files, info)
		resp.TotalPages += info.Pages
	}
	if err := printInspect(cmd.OutOrStdout(), resp); err != nil {
		return err
	}

	if dir, _ := cmd.Flags().GetString("extract-dir"); dir != "" {
		if err := extractFirstPages(dir, entries); err != nil {
			return err
		}
	}
	if len(failed) > 0 {
		return fmt.Errorf("could not read %d file(s):\n  %s", len(failed), strings.Join(failed, "\n  "))
	}
	return nil
}

func printInspect(out io.Writer, resp *handlers.InspectResponse) error {
	tw := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(tw, "#\tNAME\tPAGES\tSIZE (pt)\tBYTES")
	for _, f := range resp.Files {
		fmt.Fprintf(tw, "%d\t%s\t%d\t%.0fx%.0f\t%d\n", f.Index, f.Name, f.Pages, f.Width, f.Height, f.Size)
	}
	fmt.Fprintf(tw, "\ttotal\t%d\t\t\n", resp.TotalPages)
	return tw.Flush()
}

func extractFirstPages(dir string, entries []client.Entry) error {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}
	for i, e := range entries {
		if e.Preview == nil {
			continue
		}
		name := fmt.Sprintf("%02d-%s", i, e.File.Name)
		if err := os.WriteFile(filepath.Join(dir, name), e.Preview.FirstPage, 0644); err != nil {
			return err
		}
	}
	return nil
}
