package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/hashicorp/hcl/v2"
	"github.com/spf13/cobra"
	"github.com/vk/slurmcodec/internal/diag"
	"github.com/vk/slurmcodec/internal/serializer"
	"github.com/zclconf/go-cty/cty"
)

// stdinPath names standard input as a document argument.
const stdinPath = "-"

// formatOf picks the document format: the explicit one, else the file
// extension, else JSON.
func formatOf(path, format string) string {
	if format != "" {
		return format
	}
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return serializer.MimeYAML
	default:
		return serializer.MimeJSON
	}
}

func serializerFor(format string) (serializer.Serializer, error) {
	s, err := serializer.ForMime(format)
	if err != nil {
		return nil, &ExitError{Code: exitUsage, Message: fmt.Sprintf("unsupported format %q: choose one of %s", format, strings.Join(serializer.Mimes(), ", "))}
	}
	if j, ok := s.(serializer.JSON); ok {
		j.Indent = "  "
		s = j
	}
	return s, nil
}

// readDocument decodes the document at path, "-" meaning standard input.
func readDocument(cmd *cobra.Command, path, format string) (cty.Value, error) {
	s, err := serializerFor(formatOf(path, format))
	if err != nil {
		return cty.NilVal, err
	}

	var raw []byte
	if path == stdinPath {
		raw, err = io.ReadAll(cmd.InOrStdin())
	} else {
		raw, err = os.ReadFile(path)
	}
	if err != nil {
		return cty.NilVal, &ExitError{Code: exitFailure, Message: fmt.Sprintf("failed to read document: %s", err)}
	}

	v, err := s.Decode(raw)
	if err != nil {
		return cty.NilVal, &ExitError{Code: exitFailure, Message: fmt.Sprintf("%s: %s", path, err)}
	}
	return v, nil
}

// writeValue encodes v in format, JSON when empty, followed by a newline.
func writeValue(w io.Writer, v cty.Value, format string) error {
	if format == "" {
		format = serializer.MimeJSON
	}
	s, err := serializerFor(format)
	if err != nil {
		return err
	}
	out, err := s.Encode(v)
	if err != nil {
		return &ExitError{Code: exitFailure, Message: fmt.Sprintf("failed to encode output: %s", err)}
	}
	if _, err := w.Write(out); err != nil {
		return err
	}
	if len(out) > 0 && out[len(out)-1] != '\n' {
		_, err = io.WriteString(w, "\n")
	}
	return err
}

// writeDiagnostics renders the diagnostics with hcl's text writer.
func writeDiagnostics(w io.Writer, diags diag.Diagnostics) error {
	if len(diags) == 0 {
		return nil
	}
	return hcl.NewDiagnosticTextWriter(w, nil, 0, false).WriteDiagnostics(diags.HCL())
}
