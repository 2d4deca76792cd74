package config

import (
	"errors"
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/nholik/stackpilot/internal/cfn"
)

// LoadParameterFile reads stack parameter values from path. Two layouts are
// accepted, both in JSON or YAML: a list of ParameterKey/ParameterValue
// entries, or a plain key to value mapping.
func LoadParameterFile(path string) (map[string]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read parameter file: %w", err)
	}

	var root yaml.Node
	if err := yaml.Unmarshal(data, &root); err != nil {
		return nil, fmt.Errorf("parse parameter file: %w", err)
	}
	if len(root.Content) == 0 {
		return map[string]string{}, nil
	}
	doc := root.Content[0]

	switch doc.Kind {
	case yaml.SequenceNode:
		var list []cfn.Parameter
		if err := doc.Decode(&list); err != nil {
			return nil, fmt.Errorf("parse parameter file: %w", err)
		}
		params := make(map[string]string, len(list))
		for i, p := range list {
			if p.Key == "" {
				return nil, fmt.Errorf("parameter file %s: entry %d has no ParameterKey", path, i)
			}
			if _, dup := params[p.Key]; dup {
				return nil, fmt.Errorf("parameter file %s: duplicate parameter %q", path, p.Key)
			}
			params[p.Key] = p.Value
		}
		return params, nil
	case yaml.MappingNode:
		var params map[string]string
		if err := doc.Decode(&params); err != nil {
			return nil, fmt.Errorf("parse parameter file: %w", err)
		}
		if _, ok := params[""]; ok {
			return nil, fmt.Errorf("parameter file %s: empty parameter name", path)
		}
		return params, nil
	default:
		return nil, fmt.Errorf("parameter file %s: expected a list or a mapping", path)
	}
}

// LoadResourceImportFile reads the resources an IMPORT changeset brings under
// management. The file is a JSON or YAML list of ResourceType,
// LogicalResourceId and ResourceIdentifier entries.
func LoadResourceImportFile(path string) ([]cfn.ResourceToImport, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resource import file: %w", err)
	}

	var resources []cfn.ResourceToImport
	if err := yaml.Unmarshal(data, &resources); err != nil {
		return nil, fmt.Errorf("parse resource import file: %w", err)
	}
	if len(resources) == 0 {
		return nil, fmt.Errorf("resource import file %s contains no resources", path)
	}

	var errs []error
	for i, r := range resources {
		if r.ResourceType == "" {
			errs = append(errs, fmt.Errorf("resource %d: ResourceType is required", i))
		}
		if r.LogicalResourceID == "" {
			errs = append(errs, fmt.Errorf("resource %d: LogicalResourceId is required", i))
		}
		if len(r.ResourceIdentifier) == 0 {
			errs = append(errs, fmt.Errorf("resource %d: ResourceIdentifier is required", i))
		}
	}
	if err := errors.Join(errs...); err != nil {
		return nil, fmt.Errorf("resource import file %s: %w", path, err)
	}
	return resources, nil
}
