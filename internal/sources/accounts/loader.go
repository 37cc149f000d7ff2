// Package accounts reads the Lemmy accounts lemcache may act as.
package accounts

import (
	"fmt"
	"os"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

var templateVar = regexp.MustCompile(`\{\{\s*([A-Za-z_][A-Za-z0-9_]*)\s*\}\}`)

// Loader reads and parses an accounts.yaml file.
type Loader struct {
	filePath string
	lookup   func(string) (string, bool)
}

// NewLoader creates a loader resolving {{VAR}} placeholders from the environment.
func NewLoader(filePath string) *Loader {
	return &Loader{
		filePath: filePath,
		lookup:   os.LookupEnv,
	}
}

func (l *Loader) Path() string { return l.filePath }

// Load reads the file, expands template variables and parses it.
func (l *Loader) Load() (File, error) {
	data, err := os.ReadFile(l.filePath)
	if err != nil {
		return File{}, fmt.Errorf("failed to read accounts file: %w", err)
	}

	data, err = expandTemplateVariables(data, l.lookup)
	if err != nil {
		return File{}, err
	}

	var f File
	if err := yaml.Unmarshal(data, &f); err != nil {
		return File{}, fmt.Errorf("failed to parse accounts yaml: %w", err)
	}

	return f, nil
}

// expandTemplateVariables replaces {{VAR}} with the value of VAR.
// Unset variables are an error: a silently empty JWT would log the account out.
func expandTemplateVariables(data []byte, lookup func(string) (string, bool)) ([]byte, error) {
	var missing []string

	out := templateVar.ReplaceAllFunc(data, func(m []byte) []byte {
		name := string(templateVar.FindSubmatch(m)[1])
		v, ok := lookup(name)
		if !ok {
			missing = append(missing, name)
			return nil
		}
		return []byte(v)
	})

	if len(missing) > 0 {
		return nil, fmt.Errorf("accounts file references unset variables: %s", strings.Join(missing, ", "))
	}
	return out, nil
}
