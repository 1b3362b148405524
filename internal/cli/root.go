package cli

import (
	"bufio"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"reflect"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/cobra/doc"
	"gopkg.in/yaml.v3"

	"github.com/rpki-toolkit/rfc3779/resource"
	"github.com/rpki-toolkit/rfc3779/rfc3779"
)

type outputFormat string

const (
	outHuman outputFormat = "human"
	outJSON  outputFormat = "json"
	outYAML  outputFormat = "yaml"
)

// Set implements pflag.Value for validation.
func (o *outputFormat) Set(v string) error {
	switch v {
	case string(outHuman), string(outJSON), string(outYAML):
		*o = outputFormat(v)
		return nil
	default:
		return fmt.Errorf("invalid output format: %s", v)
	}
}
func (o *outputFormat) String() string { return string(*o) }
func (o *outputFormat) Type() string   { return "outputFormat" }

// Version gets overridden via -ldflags at build time
// (e.g. -X github.com/rpki-toolkit/rfc3779/internal/cli.Version=v1.2.3).
var Version = "dev"

// Commit and BuildDate can also be injected (optional).
var (
	Commit    = ""
	BuildDate = ""
)

// Exit codes for different error classes.
const (
	exitCodeInvalidInput = 2
	exitCodeUnnested     = 3
)

// NewRootCmd constructs a new *cobra.Command tree with isolated state.
func NewRootCmd(out io.Writer) *cobra.Command {
	var format = outHuman

	rootCmd := &cobra.Command{
		Use:   "rfc3779",
		Short: "RFC 3779 IP address and AS number delegation toolkit",
		Long:  "rfc3779 parses, encodes, decodes, and validates the IPAddrBlocks and ASIdentifiers X.509v3 certificate extensions.",
	}
	rootCmd.PersistentPreRunE = func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("output") {
			if envFmt := os.Getenv("RFC3779_FORMAT"); envFmt != "" {
				_ = format.Set(envFmt) // ignore invalid env value (explicit)
			}
		}
		return nil
	}
	rootCmd.SetOut(out)
	rootCmd.PersistentFlags().VarP(&format, "output", "o", "output format: human|json|yaml")

	render := func(v any) error {
		w := rootCmd.OutOrStdout()
		schemaWrap := func(obj any) any {
			if format == outJSON || format == outYAML {
				if m, ok := obj.(map[string]any); ok {
					merged := make(map[string]any, len(m)+1)
					for k, v := range m {
						merged[k] = v
					}
					merged["schema"] = "rfc3779/v1"
					return merged
				}
				return map[string]any{"schema": "rfc3779/v1", "data": obj}
			}
			return obj
		}
		switch format {
		case outHuman, "":
			rv := reflect.ValueOf(v)
			if rv.Kind() == reflect.Slice && rv.Type().Elem().Kind() == reflect.String {
				for i := 0; i < rv.Len(); i++ {
					if _, err := fmt.Fprintln(w, rv.Index(i).Interface()); err != nil {
						return err
					}
				}
				return nil
			}
			_, _ = fmt.Fprintln(w, v)
		case outJSON:
			enc := json.NewEncoder(w)
			enc.SetIndent("", "  ")
			return enc.Encode(schemaWrap(v))
		case outYAML:
			enc := yaml.NewEncoder(w)
			if err := enc.Encode(schemaWrap(v)); err != nil {
				_ = enc.Close()
				return err
			}
			if err := enc.Close(); err != nil {
				return err
			}
		default:
			return errors.New("unknown output format")
		}
		return nil
	}

	readLines := func(args []string) ([]string, error) {
		if len(args) > 0 {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return nil, err
			}
			return strings.Split(string(data), "\n"), nil
		}
		info, err := os.Stdin.Stat()
		if err != nil {
			return nil, err
		}
		if (info.Mode() & os.ModeCharDevice) != 0 {
			return nil, errors.New("no input: pass a file argument or pipe config lines on stdin")
		}
		scanner := bufio.NewScanner(os.Stdin)
		var lines []string
		for scanner.Scan() {
			lines = append(lines, scanner.Text())
		}
		return lines, scanner.Err()
	}

	readConfig := func(args []string) ([]rfc3779.ConfigLine, error) {
		raw, err := readLines(args)
		if err != nil {
			return nil, err
		}
		var out []rfc3779.ConfigLine
		for _, line := range raw {
			line = strings.TrimSpace(line)
			if line == "" || strings.HasPrefix(line, "#") || strings.HasPrefix(line, "[") {
				continue
			}
			idx := strings.IndexByte(line, '=')
			if idx < 0 {
				return nil, fmt.Errorf("malformed config line %q: expected name = value", line)
			}
			out = append(out, rfc3779.ConfigLine{
				Name:  strings.TrimSpace(line[:idx]),
				Value: strings.TrimSpace(line[idx+1:]),
			})
		}
		return out, nil
	}

	// ---- Commands ----

	parseCmd := &cobra.Command{
		Use:   "parse [config-file]",
		Short: "Parse an extension config into canonical resource sets",
		Args:  cobra.MaximumNArgs(1),
		Example: "  rfc3779 parse certprofile.cnf\n" +
			"  echo 'IPv4 = 10.0.0.0/8' | rfc3779 parse",
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readConfig(args)
			if err != nil {
				return err
			}
			blocks, asids, err := rfc3779.ParseConfig(lines)
			if err != nil {
				return err
			}
			if format == outHuman || format == "" {
				var sb strings.Builder
				if err := rfc3779.PrintIPAddrBlocks(&sb, blocks); err != nil {
					return err
				}
				if err := rfc3779.PrintASIdentifiers(&sb, asids); err != nil {
					return err
				}
				_, err := fmt.Fprint(rootCmd.OutOrStdout(), sb.String())
				return err
			}
			return render(map[string]any{
				"ip_address_blocks": blocks,
				"as_identifiers":    asids,
			})
		},
	}

	encodeCmd := &cobra.Command{
		Use:   "encode [config-file]",
		Short: "Parse a config and emit base64 DER for each present extension",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			lines, err := readConfig(args)
			if err != nil {
				return err
			}
			blocks, asids, err := rfc3779.ParseConfig(lines)
			if err != nil {
				return err
			}
			out := map[string]any{}
			if len(blocks.Families) > 0 {
				der, err := rfc3779.MarshalIPAddrBlocks(blocks)
				if err != nil {
					return err
				}
				out["ip_addr_blocks_der"] = base64.StdEncoding.EncodeToString(der)
			}
			if asids.AsNum != nil || asids.RDI != nil {
				der, err := rfc3779.MarshalASIdentifiers(asids)
				if err != nil {
					return err
				}
				out["as_identifiers_der"] = base64.StdEncoding.EncodeToString(der)
			}
			return render(out)
		},
	}

	var dumpKind string
	var dumpRanges bool
	dumpCmd := &cobra.Command{
		Use:   "dump <base64-der>",
		Short: "Decode a base64 DER extension value and render it",
		Args:  cobra.ExactArgs(1),
		Example: "  rfc3779 dump --kind ip <base64>\n" +
			"  rfc3779 dump --kind as -o json <base64>\n" +
			"  rfc3779 dump --kind ip --ranges <base64>",
		RunE: func(cmd *cobra.Command, args []string) error {
			der, err := base64.StdEncoding.DecodeString(args[0])
			if err != nil {
				return fmt.Errorf("invalid base64: %w", err)
			}
			switch dumpKind {
			case "ip":
				blocks, err := rfc3779.ParseIPAddrBlocks(der)
				if err != nil {
					return err
				}
				if dumpRanges {
					var out []string
					for _, f := range blocks.Families {
						label := rfc3779.FamilyLabel(f.Key)
						for i := 0; ; i++ {
							min, max, ok := f.GetRange(i)
							if !ok {
								break
							}
							out = append(out, fmt.Sprintf("%s: %s-%s", label, rfc3779.FormatAddr(min), rfc3779.FormatAddr(max)))
						}
					}
					return render(out)
				}
				if format == outHuman || format == "" {
					var sb strings.Builder
					if err := rfc3779.PrintIPAddrBlocks(&sb, blocks); err != nil {
						return err
					}
					_, werr := fmt.Fprint(rootCmd.OutOrStdout(), sb.String())
					return werr
				}
				return render(blocks)
			case "as":
				asids, err := rfc3779.ParseASIdentifiers(der)
				if err != nil {
					return err
				}
				if format == outHuman || format == "" {
					var sb strings.Builder
					if err := rfc3779.PrintASIdentifiers(&sb, asids); err != nil {
						return err
					}
					_, werr := fmt.Fprint(rootCmd.OutOrStdout(), sb.String())
					return werr
				}
				return render(asids)
			default:
				return fmt.Errorf("--kind must be ip or as, got %q", dumpKind)
			}
		},
	}
	dumpCmd.Flags().StringVar(&dumpKind, "kind", "ip", "which extension the DER encodes: ip|as")
	dumpCmd.Flags().BoolVar(&dumpRanges, "ranges", false, "render each family's elements as expanded [min,max] ranges instead of prefix notation (kind=ip only)")

	var validateFamily string
	validateCmd := &cobra.Command{
		Use:   "validate <leaf-config> [issuer-config...] <root-config>",
		Short: "Check that a chain's resources nest from leaf to root",
		Args:  cobra.MinimumNArgs(2),
		Example: "  rfc3779 validate --family asnum leaf.cnf issuer.cnf root.cnf\n" +
			"  rfc3779 validate --family ipv4 leaf.cnf root.cnf",
		RunE: func(cmd *cobra.Command, args []string) error {
			chain := make([]*rfc3779.ResourceCertificate, 0, len(args))
			for _, path := range args {
				lines, err := readConfig([]string{path})
				if err != nil {
					return err
				}
				blocks, asids, err := rfc3779.ParseConfig(lines)
				if err != nil {
					return err
				}
				chain = append(chain, &rfc3779.ResourceCertificate{IPAddrBlocks: blocks, ASIdentifiers: asids})
			}

			var violations []string
			cb := func(depth int, err error) bool {
				violations = append(violations, fmt.Sprintf("depth %d: %v", depth, err))
				return true
			}

			var verr error
			switch validateFamily {
			case "ipv4":
				verr = rfc3779.ValidateIP(chain, resource.AFIIPv4, nil, cb)
			case "ipv6":
				verr = rfc3779.ValidateIP(chain, resource.AFIIPv6, nil, cb)
			case "asnum":
				verr = rfc3779.ValidateAS(chain, cb)
			case "rdi":
				verr = rfc3779.ValidateRDI(chain, cb)
			default:
				return fmt.Errorf("--family must be one of ipv4|ipv6|asnum|rdi, got %q", validateFamily)
			}
			if verr != nil {
				return verr
			}
			if len(violations) == 0 {
				return render("chain validates: every certificate's resources nest inside its issuer's")
			}
			return render(violations)
		},
	}
	validateCmd.Flags().StringVar(&validateFamily, "family", "asnum", "resource family to validate: ipv4|ipv6|asnum|rdi")

	versionCmd := &cobra.Command{Use: "version", Short: "Print version information", RunE: func(cmd *cobra.Command, args []string) error {
		return render(map[string]string{"version": Version, "commit": Commit, "build_date": BuildDate})
	}}

	completionCmd := &cobra.Command{Use: "completion [bash|zsh|fish|powershell]", Short: "Generate shell completion script", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		w := rootCmd.OutOrStdout()
		switch args[0] {
		case "bash":
			return rootCmd.GenBashCompletion(w)
		case "zsh":
			return rootCmd.GenZshCompletion(w)
		case "fish":
			return rootCmd.GenFishCompletion(w, true)
		case "powershell":
			return rootCmd.GenPowerShellCompletionWithDesc(w)
		default:
			return fmt.Errorf("unsupported shell: %s", args[0])
		}
	}}

	docsCmd := &cobra.Command{Use: "docs <directory>", Short: "Generate Markdown documentation for commands", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		root := cmd.Root()
		root.DisableAutoGenTag = true
		return doc.GenMarkdownTree(root, dir)
	}}

	manCmd := &cobra.Command{Use: "man <directory>", Short: "Generate man pages", Args: cobra.ExactArgs(1), RunE: func(cmd *cobra.Command, args []string) error {
		dir := args[0]
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
		root := cmd.Root()
		root.DisableAutoGenTag = true
		header := &doc.GenManHeader{Title: "RFC3779", Section: "1"}
		return doc.GenManTree(root, header, dir)
	}}

	rootCmd.AddCommand(parseCmd, encodeCmd, dumpCmd, validateCmd, versionCmd, completionCmd, docsCmd, manCmd)
	return rootCmd
}

// Execute builds and runs the CLI using os.Stdout.
func Execute() {
	cmd := NewRootCmd(os.Stdout)
	if err := cmd.Execute(); err != nil {
		code := 1
		switch {
		case errors.Is(err, rfc3779.ErrExtensionName), errors.Is(err, rfc3779.ErrExtensionValue),
			errors.Is(err, resource.ErrInvalidInheritance), errors.Is(err, resource.ErrInvalidAsNumber),
			errors.Is(err, resource.ErrInvalidAsRange):
			code = exitCodeInvalidInput
		case errors.Is(err, rfc3779.ErrUnnestedResource):
			code = exitCodeUnnested
		}
		fmt.Fprintf(os.Stderr, "rfc3779: %v\n", err)
		os.Exit(code)
	}
}
