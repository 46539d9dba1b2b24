package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"hpsgateway/internal/manager"
	"hpsgateway/pkg/types"
)

func newRestructureCmd(a *app) *cobra.Command {
	var (
		noMerge, noRelevel, concat bool
		outPath                    string
	)
	cmd := &cobra.Command{
		Use:   "restructure <file|->",
		Short: "Restructure saved layout-parsing pages offline",
		Long: "Reads a /layout-parsing response, a /restructure-pages request body or a bare page array\n" +
			"and writes the restructured result as JSON.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			data, err := readInput(args[0], cmd.InOrStdin())
			if err != nil {
				return err
			}
			req, err := decodePages(data)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("no-merge-tables") {
				v := !noMerge
				req.MergeTables = &v
			}
			if cmd.Flags().Changed("no-relevel") {
				v := !noRelevel
				req.RelevelTitles = &v
			}
			if cmd.Flags().Changed("concatenate") {
				req.ConcatenatePages = &concat
			}
			m := manager.NewWithConfig(manager.ManagerConfig{Logger: &a.log})
			res, err := m.Restructure(req, manager.NewLogID())
			if err != nil {
				return err
			}
			if outPath == "" || outPath == "-" {
				return encodeIndented(cmd.OutOrStdout(), res)
			}
			return writeFileJSON(outPath, res)
		},
	}
	cmd.Flags().BoolVar(&noMerge, "no-merge-tables", false, "Do not merge tables continued across pages")
	cmd.Flags().BoolVar(&noRelevel, "no-relevel", false, "Keep the backend's title levels")
	cmd.Flags().BoolVar(&concat, "concatenate", false, "Also emit a single concatenated document")
	cmd.Flags().StringVarP(&outPath, "out", "o", "", "Write output to file instead of stdout")
	return cmd
}

// createFile opens the --out destination.
var createFile = func(path string) (io.WriteCloser, error) { return os.Create(path) }

func encodeIndented(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// writeFileJSON writes v to path. A failed Close is returned as an error.
func writeFileJSON(path string, v any) (err error) {
	f, err := createFile(path)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := f.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("close %s: %w", path, cerr)
		}
	}()
	return encodeIndented(f, v)
}

func readInput(path string, stdin io.Reader) ([]byte, error) {
	if path == "-" {
		return io.ReadAll(stdin)
	}
	return os.ReadFile(path)
}

// decodePages accepts a full /layout-parsing response envelope, its result
// object, a /restructure-pages request or a JSON array of pages.
func decodePages(data []byte) (types.RestructureRequest, error) {
	var req types.RestructureRequest
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "[") {
		if err := json.Unmarshal(data, &req.Pages); err != nil {
			return req, fmt.Errorf("decode pages: %w", err)
		}
		return req, nil
	}
	var probe struct {
		Pages                []types.LayoutPage `json:"pages"`
		LayoutParsingResults []types.LayoutPage `json:"layoutParsingResults"`
		Result               *struct {
			LayoutParsingResults []types.LayoutPage `json:"layoutParsingResults"`
		} `json:"result"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return req, fmt.Errorf("decode input: %w", err)
	}
	switch {
	case probe.Pages != nil:
		if err := json.Unmarshal(data, &req); err != nil {
			return req, fmt.Errorf("decode request: %w", err)
		}
	case probe.LayoutParsingResults != nil:
		req.Pages = probe.LayoutParsingResults
	case probe.Result != nil && probe.Result.LayoutParsingResults != nil:
		req.Pages = probe.Result.LayoutParsingResults
	default:
		return req, fmt.Errorf("no pages found: expected pages, layoutParsingResults or result.layoutParsingResults")
	}
	return req, nil
}
