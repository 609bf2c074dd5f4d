package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/kube-rca/alert-analyzer/internal/tool"
	"github.com/spf13/cobra"
)

var toolsJSON bool

var toolsCmd = &cobra.Command{
	Use:   "tools",
	Short: "List the registered diagnostic tools",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg := loadConfig()
		// 목록 조회는 DB/임베딩 연결 없이 수행
		registry, err := buildRegistry(cfg, &resources{})
		if err != nil {
			return err
		}
		return printTools(cmd, registry.Specs())
	},
}

func init() {
	rootCmd.AddCommand(toolsCmd)
	toolsCmd.Flags().BoolVar(&toolsJSON, "json", false, "print specs as JSON")
}

func printTools(cmd *cobra.Command, specs []tool.Spec) error {
	if toolsJSON {
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(specs)
	}

	w := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "NAME\tPARAMS\tDESCRIPTION")
	for _, spec := range specs {
		params := make([]string, 0, len(spec.Params))
		for _, p := range spec.Params {
			name := p.Name
			if p.Required {
				name += "*"
			}
			params = append(params, name)
		}
		fmt.Fprintf(w, "%s\t%s\t%s\n", spec.Name, strings.Join(params, ","), spec.Description)
	}
	return w.Flush()
}
