package main

import (
	"fmt"
	"strings"

	createplan "versailles-assistant/internal/workers/assistant/create-plan"
	"versailles-assistant/pkg/registry"

	"github.com/spf13/cobra"
)

var (
	askTools bool
	askJSON  bool

	registryPath string
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Answer one question with the full pipeline",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := strings.Join(args, " ")
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		out := cmd.OutOrStdout()
		if askTools {
			result, err := app.Service.ToolPlan(cmd.Context(), query)
			if err != nil {
				return err
			}
			if askJSON {
				return printJSON(out, result)
			}
			fmt.Fprintln(out, result.Answer)
			return nil
		}

		resp, err := app.Service.Respond(cmd.Context(), query, nil)
		if err != nil {
			return err
		}
		if askJSON {
			return printJSON(out, resp)
		}
		fmt.Fprintln(out, resp.Answer)
		return nil
	},
}

var routeCmd = &cobra.Command{
	Use:   "route [question]",
	Short: "Show the routing decision and any decomposition",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		routed, err := app.Service.Route(cmd.Context(), strings.Join(args, " "), nil)
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), routed)
	},
}

var selectCmd = &cobra.Command{
	Use:   "select [question]",
	Short: "Show which tools the LLM selector would call",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := buildApp(cmd.Context())
		if err != nil {
			return err
		}
		defer app.Close()

		selected, err := app.Service.SelectTools(cmd.Context(), strings.Join(args, " "))
		if err != nil {
			return err
		}
		return printJSON(cmd.OutOrStdout(), selected)
	},
}

var planCmd = &cobra.Command{
	Use:   "plan [question]",
	Short: "Print the visit plan for a question without calling any service",
	Args:  cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		return printJSON(cmd.OutOrStdout(), createplan.CreatePlan(strings.Join(args, " ")))
	},
}

var registryCmd = &cobra.Command{
	Use:   "registry",
	Short: "Inspect the activity registry",
}

var registryValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate the activity registry file",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		reg, err := registry.LoadRegistry(registryPath)
		if err != nil {
			return fmt.Errorf("failed to load registry: %w", err)
		}
		if err := reg.Validate(); err != nil {
			return fmt.Errorf("registry validation failed: %w", err)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Registry validation passed. Found %d activities.\n", len(reg.Activities))
		return nil
	},
}

func init() {
	askCmd.Flags().BoolVar(&askTools, "tools", false, "use the tool planner instead of the router")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "print the full result as JSON")

	registryValidateCmd.Flags().StringVar(&registryPath, "path", "configs/activity-registry.json", "path to the registry file")
	registryCmd.AddCommand(registryValidateCmd)
}
