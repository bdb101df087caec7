package commands

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/skillgate/skillgate/internal/policy"
	"github.com/skillgate/skillgate/internal/scan"
)

func newPolicyCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "policy",
		Short: "Inspect and validate scan policies",
	}
	cmd.AddCommand(newPolicyValidateCmd(), newPolicyShowCmd())
	return cmd
}

func newPolicyValidateCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <file>",
		Short: "Load a policy and report schema violations",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			_, err := policy.NewLoader().Load(args[0])
			if err == nil {
				fmt.Printf("%s: ok\n", args[0])
				return nil
			}

			var verr *policy.ValidationError
			if errors.As(err, &verr) {
				fmt.Fprintf(os.Stderr, "%s: invalid policy\n", args[0])
				for _, p := range verr.Problems {
					fmt.Fprintf(os.Stderr, "  %s\n", p)
				}
				os.Exit(1)
			}
			return err
		},
	}
}

func newPolicyShowCmd() *cobra.Command {
	var jsonOutput bool

	cmd := &cobra.Command{
		Use:   "show [file]",
		Short: "Print a policy after inheritance resolution",
		Long:  "Resolves extends chains and prints the merged policy. Without an argument the built-in default policy is shown.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			path := ""
			if len(args) == 1 {
				path = args[0]
			}
			pol, err := scan.LoadPolicy(path)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(os.Stdout)
				enc.SetIndent("", "  ")
				return enc.Encode(pol)
			}
			data, err := yaml.Marshal(pol)
			if err != nil {
				return fmt.Errorf("marshaling policy: %w", err)
			}
			_, err = os.Stdout.Write(data)
			return err
		},
	}

	cmd.Flags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	return cmd
}
