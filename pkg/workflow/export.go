package workflow

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sort"
	"strings"

	"github.com/tidwall/gjson"
	"gopkg.in/yaml.v3"
)

// SecretRefPrefix marks a config value that names a keyring secret instead of
// holding the secret itself.
const SecretRefPrefix = "secret:"

// RequiredFields are the top-level keys every imported workflow document must carry
var RequiredFields = []string{"id", "name", "nodes", "connections"}

// Export serializes a workflow as pretty-printed JSON with two-space indentation
func Export(wf *Workflow) ([]byte, error) {
	if wf == nil {
		return nil, errors.New("cannot export nil workflow")
	}
	data, err := json.MarshalIndent(wf, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow: %w", err)
	}
	return data, nil
}

// ExportYAML serializes a workflow as YAML
func ExportYAML(wf *Workflow) ([]byte, error) {
	if wf == nil {
		return nil, errors.New("cannot export nil workflow")
	}
	data, err := yaml.Marshal(wf)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal workflow to YAML: %w", err)
	}
	return data, nil
}

// Parse decodes a workflow JSON document.
// It checks that every required field is present, validates the document
// against the workflow schema and then unmarshals it.
func Parse(data []byte) (*Workflow, error) {
	if !gjson.ValidBytes(data) {
		return nil, errors.New("invalid JSON")
	}

	doc := gjson.ParseBytes(data)
	if !doc.IsObject() {
		return nil, errors.New("workflow document must be a JSON object")
	}
	var missing []string
	for _, field := range RequiredFields {
		if !doc.Get(field).Exists() {
			missing = append(missing, field)
		}
	}
	if len(missing) > 0 {
		return nil, fmt.Errorf("missing required fields: %s", strings.Join(missing, ", "))
	}

	if err := ValidateDocument(data); err != nil {
		return nil, err
	}

	var wf Workflow
	if err := json.Unmarshal(data, &wf); err != nil {
		return nil, fmt.Errorf("failed to parse workflow JSON: %w", err)
	}
	if wf.Nodes == nil {
		wf.Nodes = make([]*Node, 0)
	}
	if wf.Connections == nil {
		wf.Connections = make([]*Connection, 0)
	}
	for _, node := range wf.Nodes {
		if node.Data.Config == nil {
			node.Data.Config = make(map[string]any)
		}
	}
	for _, conn := range wf.Connections {
		if conn.ID == "" {
			conn.ID = NewConnectionID()
		}
	}

	return &wf, nil
}

// sensitiveKeyPatterns are config key fragments that indicate a credential
var sensitiveKeyPatterns = []string{
	"KEY",
	"SECRET",
	"TOKEN",
	"PASSWORD",
	"CREDENTIAL",
	"AUTH",
	"BEARER",
	"PRIVATE",
}

// credentialPatterns detect values that look like live credentials
var credentialPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)AKIA[0-9A-Z]{16}`),
	regexp.MustCompile(`sk-[A-Za-z0-9_-]{20,}`),
	regexp.MustCompile(`(?i)gh[pousr]_[A-Za-z0-9_]{36,}`),
	regexp.MustCompile(`(?i)Bearer\s+[A-Za-z0-9\-_=]+\.[A-Za-z0-9\-_=]+\.?[A-Za-z0-9\-_.+/=]*`),
	regexp.MustCompile(`(?i)-----BEGIN\s+(RSA|DSA|EC|OPENSSH)\s+PRIVATE\s+KEY-----`),
	regexp.MustCompile(`(?i)(postgres|mysql|mongodb)://[^:]+:[^@]+@`),
}

// CredentialWarning describes a config value that may leak a secret on export
type CredentialWarning struct {
	Location string
	Severity string
	Message  string
}

// ScanForCredentials scans node configs for values that look like secrets.
// Values written as secret references are ignored.
func ScanForCredentials(wf *Workflow) []CredentialWarning {
	if wf == nil {
		return nil
	}

	var warnings []CredentialWarning
	for i, node := range wf.Nodes {
		if node == nil {
			continue
		}
		location := fmt.Sprintf("nodes[%d].%s.config", i, node.ID)
		warnings = append(warnings, scanConfig(node.Data.Config, location)...)
	}
	return warnings
}

func scanConfig(config map[string]any, location string) []CredentialWarning {
	keys := make([]string, 0, len(config))
	for k := range config {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var warnings []CredentialWarning
	for _, key := range keys {
		loc := location + "." + key
		switch v := config[key].(type) {
		case string:
			if v == "" || strings.HasPrefix(v, SecretRefPrefix) {
				continue
			}
			if isSensitiveKey(key) {
				warnings = append(warnings, CredentialWarning{
					Location: loc,
					Severity: "high",
					Message:  fmt.Sprintf("config key %q holds a literal value; use a %s reference", key, SecretRefPrefix),
				})
				continue
			}
			for _, pattern := range credentialPatterns {
				if pattern.MatchString(v) {
					warnings = append(warnings, CredentialWarning{
						Location: loc,
						Severity: "medium",
						Message:  "value matches a known credential format",
					})
					break
				}
			}
		case map[string]any:
			warnings = append(warnings, scanConfig(v, loc)...)
		}
	}
	return warnings
}

func isSensitiveKey(key string) bool {
	upper := strings.ToUpper(key)
	for _, pattern := range sensitiveKeyPatterns {
		if strings.Contains(upper, pattern) {
			return true
		}
	}
	return false
}
