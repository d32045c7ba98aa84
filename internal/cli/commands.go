package cli

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"github.com/vk/slurmcodec/internal/app"
	"github.com/vk/slurmcodec/internal/parser"
)

func newTypesCommand(opts *options) *cobra.Command {
	var model string
	cmd := &cobra.Command{
		Use:   "types [PATTERN]",
		Short: "List the registered types",
		Example: `  # Every QOS related type
  slurmcodec types qos

  # Only flag arrays
  slurmcodec types --model FLAG_ARRAY`,
		Args: cobra.MaximumNArgs(1),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			pattern := ""
			if len(args) > 0 {
				pattern = strings.ToUpper(args[0])
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "TYPE\tMODEL\tDESCRIPTION")
			for _, p := range a.Registry().All() {
				if !strings.Contains(string(p.Type), pattern) {
					continue
				}
				if model != "" && !strings.EqualFold(p.Model.Kind().String(), model) {
					continue
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", p.Type, p.Model.Kind(), p.Description)
			}
			return tw.Flush()
		}),
	}
	cmd.Flags().StringVar(&model, "model", "", "Only list types of this model, e.g. ARRAY or FLAG_ARRAY.")
	return cmd
}

func newValidateCommand(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "validate",
		Short: "Check the type descriptors and load the catalogs",
		Long: `Validate builds the descriptor registry, checks it for consistency and loads
every catalog file. It fails on the first broken catalog block.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			set := a.Catalogs()
			fmt.Fprintf(cmd.OutOrStdout(), "registry: %d types valid\n", a.Registry().Len())
			fmt.Fprintf(cmd.OutOrStdout(), "catalogs: %d tres, %d qos, %d assoc\n", len(set.TRES), len(set.QOS), len(set.Assocs))
			return nil
		}),
	}
}

func newParseCommand(opts *options) *cobra.Command {
	var (
		inputFormat string
		strict      bool
	)
	cmd := &cobra.Command{
		Use:   "parse TYPE [FILE]",
		Short: "Check that a document converts to a record",
		Long: `Parse reads a JSON or YAML document, "-" or no FILE meaning standard input,
and converts it into a record of TYPE. Warnings are printed to standard error.`,
		Example: `  slurmcodec parse -c catalogs/ QOS qos.yaml
  echo '{"user": "alice"}' | slurmcodec parse -c catalogs/ ASSOC`,
		Args: cobra.RangeArgs(1, 2),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			id, path := documentArgs(args)
			doc, err := readDocument(cmd, path, inputFormat)
			if err != nil {
				return err
			}

			_, diags, err := a.Parse(a.Context(), id, doc)
			if werr := writeDiagnostics(cmd.ErrOrStderr(), diags.Warnings()); werr != nil {
				return werr
			}
			if err != nil {
				return &ExitError{Code: exitFailure, Message: err.Error()}
			}
			warnings := len(diags.Warnings())
			if strict && warnings > 0 {
				return &ExitError{Code: exitFailure, Message: fmt.Sprintf("%s: %d warnings in strict mode", id, warnings)}
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s: ok (%d warnings)\n", id, warnings)
			return nil
		}),
	}
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Document format, 'json' or 'yaml'. Defaults to the file extension.")
	cmd.Flags().BoolVar(&strict, "strict", false, "Fail when the conversion reports warnings.")
	return cmd
}

func newDumpCommand(opts *options) *cobra.Command {
	var inputFormat, output string
	cmd := &cobra.Command{
		Use:   "dump TYPE [FILE]",
		Short: "Round trip a document through a record",
		Long: `Dump parses a document into a record of TYPE and dumps the record back. The
output shows how the controller stores the document: names resolved, flags
normalized, defaults filled in and unknown keys dropped.`,
		Example: `  slurmcodec dump -c catalogs/ --mode verbose --output yaml QOS qos.json`,
		Args:    cobra.RangeArgs(1, 2),
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			id, path := documentArgs(args)
			doc, err := readDocument(cmd, path, inputFormat)
			if err != nil {
				return err
			}

			out, diags, err := a.RoundTrip(a.Context(), id, doc)
			if werr := writeDiagnostics(cmd.ErrOrStderr(), diags.Warnings()); werr != nil {
				return werr
			}
			if err != nil {
				return &ExitError{Code: exitFailure, Message: err.Error()}
			}
			return writeValue(cmd.OutOrStdout(), out, output)
		}),
	}
	cmd.Flags().StringVar(&inputFormat, "input-format", "", "Document format, 'json' or 'yaml'. Defaults to the file extension.")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format, 'json' or 'yaml'.")
	return cmd
}

func newOpenAPICommand(opts *options) *cobra.Command {
	var title, output string
	cmd := &cobra.Command{
		Use:   "openapi",
		Short: "Print the OpenAPI schemas of every registered type",
		Long: `OpenAPI prints a document whose components hold one schema per type. With
--api-version, fields deprecated in that version or earlier are left out.`,
		Args: cobra.NoArgs,
		RunE: withApp(opts, func(cmd *cobra.Command, a *app.App, args []string) error {
			doc, err := a.OpenAPI(a.Context(), title)
			if err != nil {
				return &ExitError{Code: exitFailure, Message: err.Error()}
			}
			return writeValue(cmd.OutOrStdout(), doc, output)
		}),
	}
	cmd.Flags().StringVar(&title, "title", "slurmcodec", "Title of the generated document.")
	cmd.Flags().StringVarP(&output, "output", "o", "json", "Output format, 'json' or 'yaml'.")
	return cmd
}

// documentArgs splits TYPE [FILE]. Type ids are matched upper-case.
func documentArgs(args []string) (parser.TypeID, string) {
	id := parser.TypeID(strings.ToUpper(args[0]))
	if len(args) < 2 {
		return id, stdinPath
	}
	return id, args[1]
}
