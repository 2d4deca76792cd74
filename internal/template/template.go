// Package template extracts the few template properties the orchestrator
// needs for display: description, parameters and resources.
package template

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

// NestedStackPadWidth accounts for the random suffix appended to nested stack names.
const NestedStackPadWidth = 14

const nestedStackType = "AWS::CloudFormation::Stack"

// Document is the parsed subset of a template.
type Document struct {
	Description string
	Parameters  []Parameter
	Resources   []Resource
}

// Parameter is a declared template parameter.
type Parameter struct {
	Name    string
	Type    string
	Default string
	NoEcho  bool
}

// Resource is a declared template resource.
type Resource struct {
	Name string
	Type string
}

// Parser parses template bodies. The zero value is ready to use.
type Parser struct{}

// Parse implements the orchestrator's document parser contract.
func (Parser) Parse(body string) (*Document, error) {
	return Parse(body)
}

// Parse reads a JSON or YAML template.
func Parse(body string) (*Document, error) {
	trimmed := strings.TrimSpace(body)
	if trimmed == "" {
		return nil, errors.New("template body is empty")
	}
	if strings.HasPrefix(trimmed, "{") {
		return parseJSON(trimmed)
	}
	return parseYAML(trimmed)
}

type jsonTemplate struct {
	Description string `json:"Description"`
	Parameters  map[string]struct {
		Type    string `json:"Type"`
		Default any    `json:"Default"`
		NoEcho  any    `json:"NoEcho"`
	} `json:"Parameters"`
	Resources map[string]struct {
		Type string `json:"Type"`
	} `json:"Resources"`
}

func parseJSON(body string) (*Document, error) {
	var raw jsonTemplate
	if err := json.Unmarshal([]byte(body), &raw); err != nil {
		return nil, fmt.Errorf("parse json template: %w", err)
	}

	doc := &Document{Description: raw.Description}
	for name, p := range raw.Parameters {
		doc.Parameters = append(doc.Parameters, Parameter{
			Name:    name,
			Type:    p.Type,
			Default: scalarString(p.Default),
			NoEcho:  truthy(scalarString(p.NoEcho)),
		})
	}
	for name, r := range raw.Resources {
		doc.Resources = append(doc.Resources, Resource{Name: name, Type: r.Type})
	}
	sort.Slice(doc.Parameters, func(i, j int) bool { return doc.Parameters[i].Name < doc.Parameters[j].Name })
	sort.Slice(doc.Resources, func(i, j int) bool { return doc.Resources[i].Name < doc.Resources[j].Name })
	return doc, nil
}

func scalarString(v any) string {
	switch value := v.(type) {
	case nil:
		return ""
	case string:
		return value
	case bool:
		return strconv.FormatBool(value)
	case float64:
		return strconv.FormatFloat(value, 'f', -1, 64)
	default:
		return ""
	}
}

func truthy(v string) bool {
	b, err := strconv.ParseBool(strings.TrimSpace(v))
	return err == nil && b
}

// parseYAML walks nodes rather than decoding into structs so intrinsic
// function tags such as !Ref and !Sub never cause decode errors.
func parseYAML(body string) (*Document, error) {
	var root yaml.Node
	if err := yaml.Unmarshal([]byte(body), &root); err != nil {
		return nil, fmt.Errorf("parse yaml template: %w", err)
	}
	if root.Kind != yaml.DocumentNode || len(root.Content) == 0 {
		return nil, errors.New("template has no document")
	}
	top := root.Content[0]
	if top.Kind != yaml.MappingNode {
		return nil, errors.New("template root must be a mapping")
	}

	doc := &Document{}
	if node := mappingValue(top, "Description"); node != nil && node.Kind == yaml.ScalarNode {
		doc.Description = node.Value
	}
	if params := mappingValue(top, "Parameters"); params != nil && params.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(params.Content); i += 2 {
			name, decl := params.Content[i].Value, params.Content[i+1]
			doc.Parameters = append(doc.Parameters, Parameter{
				Name:    name,
				Type:    scalarValue(mappingValue(decl, "Type")),
				Default: scalarValue(mappingValue(decl, "Default")),
				NoEcho:  truthy(scalarValue(mappingValue(decl, "NoEcho"))),
			})
		}
	}
	if resources := mappingValue(top, "Resources"); resources != nil && resources.Kind == yaml.MappingNode {
		for i := 0; i+1 < len(resources.Content); i += 2 {
			doc.Resources = append(doc.Resources, Resource{
				Name: resources.Content[i].Value,
				Type: scalarValue(mappingValue(resources.Content[i+1], "Type")),
			})
		}
	}
	return doc, nil
}

func mappingValue(node *yaml.Node, key string) *yaml.Node {
	if node == nil || node.Kind != yaml.MappingNode {
		return nil
	}
	for i := 0; i+1 < len(node.Content); i += 2 {
		if node.Content[i].Value == key {
			return node.Content[i+1]
		}
	}
	return nil
}

func scalarValue(node *yaml.Node) string {
	if node == nil || node.Kind != yaml.ScalarNode {
		return ""
	}
	return node.Value
}

// NoEchoParameters returns the names of parameters declared NoEcho.
func (d *Document) NoEchoParameters() []string {
	var names []string
	for _, p := range d.Parameters {
		if p.NoEcho {
			names = append(names, p.Name)
		}
	}
	return names
}

// ParameterNames returns declared parameter names in template order.
func (d *Document) ParameterNames() []string {
	names := make([]string, 0, len(d.Parameters))
	for _, p := range d.Parameters {
		names = append(names, p.Name)
	}
	return names
}

func nestedName(stackName, resource string) string {
	return stackName + "-" + resource + strings.Repeat(" ", NestedStackPadWidth)
}

// NestedStackNames returns the display names nested stacks will receive.
func (d *Document) NestedStackNames(stackName string) []string {
	var names []string
	for _, r := range d.Resources {
		if r.Type == nestedStackType {
			names = append(names, nestedName(stackName, r.Name))
		}
	}
	return names
}

// LogicalResourceNames returns the stack itself followed by every resource,
// with nested stacks expanded to their display names.
func (d *Document) LogicalResourceNames(stackName string) []string {
	names := []string{stackName}
	for _, r := range d.Resources {
		if r.Type == nestedStackType {
			names = append(names, nestedName(stackName, r.Name))
			continue
		}
		names = append(names, r.Name)
	}
	return names
}

// ColumnWidths returns the widest stack name and resource name for display.
func (d *Document) ColumnWidths(stackName string) (stackWidth, resourceWidth int) {
	stackWidth = len(stackName)
	for _, name := range d.NestedStackNames(stackName) {
		if len(name) > stackWidth {
			stackWidth = len(name)
		}
	}
	for _, name := range d.LogicalResourceNames(stackName) {
		if len(name) > resourceWidth {
			resourceWidth = len(name)
		}
	}
	return stackWidth, resourceWidth
}
