package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/cirocosta/todos/internal/api"
)

func newOpenAPIGenCmd(a *app) *cobra.Command {
	var (
		output            string
		serverURL         string
		serverDescription string
	)

	cmd := &cobra.Command{
		Use:   "openapi-gen",
		Short: "Generate OpenAPI documentation",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var opts []api.Option
			if serverURL != "" {
				opts = append(opts, api.WithServer(serverURL, serverDescription))
			}

			// the nop service is enough, only the route table is needed
			nop := api.NewNopTodoService()
			data, err := api.NewRouter(nop, nop, opts...).OpenAPIJSON()
			if err != nil {
				return fmt.Errorf("marshal openapi spec: %w", err)
			}

			if output == "-" {
				_, err := fmt.Fprintln(cmd.OutOrStdout(), string(data))
				return err
			}

			if err := os.WriteFile(output, data, 0o644); err != nil {
				return fmt.Errorf("write openapi spec to file '%s': %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "OpenAPI spec generated at %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "openapi.json", `output file path, "-" for stdout`)
	cmd.Flags().StringVar(&serverURL, "server", "", "server URL to list in the document")
	cmd.Flags().StringVar(&serverDescription, "server-description", "", "description of --server")

	return cmd
}
