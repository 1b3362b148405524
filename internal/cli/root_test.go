package cli

import (
	"bytes"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.cnf")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatal(err)
	}
	return path
}

func TestParseHumanOutput(t *testing.T) {
	path := writeConfig(t, "IPv4 = 10.0.0.0/24\nAS = 64496-64510\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"parse", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	out := buf.String()
	if !strings.Contains(out, "10.0.0.0/24") || !strings.Contains(out, "64496-64510") {
		t.Fatalf("unexpected output: %s", out)
	}
}

func TestParseJSONOutput(t *testing.T) {
	path := writeConfig(t, "IPv6 = inherit\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"-o", "json", "parse", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	if !strings.Contains(buf.String(), "schema") {
		t.Fatalf("expected schema-wrapped json, got %s", buf.String())
	}
}

func TestEncodeAndDumpRoundTrip(t *testing.T) {
	path := writeConfig(t, "IPv4 = 10.0.0.0/24\nAS = 64496-64510\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"-o", "json", "encode", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal encode output: %v", err)
	}
	ipDER, ok := m["ip_addr_blocks_der"].(string)
	if !ok || ipDER == "" {
		t.Fatalf("missing ip_addr_blocks_der in %v", m)
	}
	asDER, ok := m["as_identifiers_der"].(string)
	if !ok || asDER == "" {
		t.Fatalf("missing as_identifiers_der in %v", m)
	}

	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"dump", "--kind", "ip", ipDER})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump ip failed: %v", err)
	}
	if !strings.Contains(buf.String(), "10.0.0.0/24") {
		t.Fatalf("dumped ip output missing prefix: %s", buf.String())
	}

	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"dump", "--kind", "as", asDER})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump as failed: %v", err)
	}
	if !strings.Contains(buf.String(), "64496-64510") {
		t.Fatalf("dumped as output missing range: %s", buf.String())
	}
}

func TestDumpRespectsOutputFormat(t *testing.T) {
	path := writeConfig(t, "IPv4 = 10.0.0.0/24\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"-o", "json", "encode", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal encode output: %v", err)
	}
	ipDER := m["ip_addr_blocks_der"].(string)

	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"-o", "json", "dump", "--kind", "ip", ipDER})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump json failed: %v", err)
	}
	if !strings.Contains(buf.String(), "schema") || !strings.Contains(buf.String(), "\"Families\"") {
		t.Fatalf("expected structured json dump, got %s", buf.String())
	}
}

func TestDumpRangesFlag(t *testing.T) {
	path := writeConfig(t, "IPv4 = 10.0.0.0/24\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"-o", "json", "encode", path})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("encode failed: %v", err)
	}
	var m map[string]any
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("unmarshal encode output: %v", err)
	}
	ipDER := m["ip_addr_blocks_der"].(string)

	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"dump", "--kind", "ip", "--ranges", ipDER})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("dump --ranges failed: %v", err)
	}
	if !strings.Contains(buf.String(), "IPv4: 10.0.0.0-10.0.0.255") {
		t.Fatalf("expected expanded range output, got %s", buf.String())
	}
}

func TestValidateChainSuccess(t *testing.T) {
	leaf := writeConfig(t, "AS = 64496-64500\n")
	root := writeConfig(t, "AS = 64496-64510\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"validate", "--family", "asnum", leaf, root})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate failed: %v", err)
	}
	if !strings.Contains(buf.String(), "validates") {
		t.Fatalf("expected success message, got %s", buf.String())
	}
}

func TestValidateChainReportsViolation(t *testing.T) {
	leaf := writeConfig(t, "AS = 64600\n")
	root := writeConfig(t, "AS = 64496-64510\n")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"validate", "--family", "asnum", leaf, root})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("validate should not abort when callback elects to continue: %v", err)
	}
	if !strings.Contains(buf.String(), "depth 1") {
		t.Fatalf("expected reported violation, got %s", buf.String())
	}
}

func TestVersionCompletionDocsMan(t *testing.T) {
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"version"})
	if err := cmd.Execute(); err != nil || !strings.Contains(buf.String(), "version") {
		t.Fatalf("version failed: %v", err)
	}

	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"completion", "bash"})
	if err := cmd.Execute(); err != nil || !strings.Contains(buf.String(), "complete") {
		t.Fatalf("completion failed: %v", err)
	}

	tmp := t.TempDir()
	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"docs", tmp})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("docs failed: %v", err)
	}
	entries, err := os.ReadDir(tmp)
	if err != nil || len(entries) == 0 {
		t.Fatalf("expected docs files: %v", err)
	}

	buf.Reset()
	cmd = NewRootCmd(buf)
	cmd.SetArgs([]string{"man", tmp})
	if err := cmd.Execute(); err != nil {
		t.Fatalf("man failed: %v", err)
	}
	found := false
	if err := filepath.WalkDir(tmp, func(path string, d os.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if strings.HasSuffix(d.Name(), ".1") {
			found = true
		}
		return nil
	}); err != nil {
		t.Fatalf("walk dir failed: %v", err)
	}
	if !found {
		t.Fatal("no man pages found")
	}
}

func TestInvalidExtensionNameErrors(t *testing.T) {
	path := writeConfig(t, "Bogus = 1\n")
	cmd := NewRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"parse", path})
	if err := cmd.Execute(); err == nil {
		t.Fatal("expected error for unrecognized configuration name")
	}
}

func TestDumpUnknownKindErrors(t *testing.T) {
	cmd := NewRootCmd(&bytes.Buffer{})
	cmd.SetArgs([]string{"dump", "--kind", "bogus", "AAAA"})
	if err := cmd.Execute(); err == nil || !strings.Contains(err.Error(), "--kind") {
		t.Fatalf("expected kind validation error, got %v", err)
	}
}

func TestEnvFormatOverride(t *testing.T) {
	path := writeConfig(t, "AS = 64500\n")
	if err := os.Setenv("RFC3779_FORMAT", "json"); err != nil {
		t.Fatalf("failed to set env: %v", err)
	}
	defer os.Unsetenv("RFC3779_FORMAT")
	buf := &bytes.Buffer{}
	cmd := NewRootCmd(buf)
	cmd.SetArgs([]string{"parse", path})
	if err := cmd.Execute(); err != nil || !strings.Contains(buf.String(), "schema") {
		t.Fatalf("env format failed: %v output=%s", err, buf.String())
	}
}
