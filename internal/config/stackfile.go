package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/stack"
)

var resourceNamePattern = regexp.MustCompile(`^[a-zA-Z][-a-zA-Z0-9]*$`)

// StackFile is the YAML definition of a single stack.
//
//	name: web
//	template: templates/web.yaml
//	parameters:
//	  Env: prod
//	capabilities: [CAPABILITY_IAM]
type StackFile struct {
	Name                    string                     `yaml:"name" validate:"required,max=128,resourcename"`
	Template                string                     `yaml:"template"`
	UsePreviousTemplate     bool                       `yaml:"use_previous_template"`
	Parameters              map[string]string          `yaml:"parameters"`
	ParameterFile           string                     `yaml:"parameter_file"`
	Capabilities            []string                   `yaml:"capabilities" validate:"dive,oneof=CAPABILITY_IAM CAPABILITY_NAMED_IAM CAPABILITY_AUTO_EXPAND"`
	Tags                    map[string]string          `yaml:"tags" validate:"max=50,dive,keys,required,max=128,endkeys,max=256"`
	RoleARN                 string                     `yaml:"role_arn" validate:"omitempty,startswith=arn:"`
	ClientToken             string                     `yaml:"client_token" validate:"max=128"`
	NotificationARNs        []string                   `yaml:"notification_arns" validate:"max=5,dive,startswith=arn:"`
	RollbackConfiguration   *cfn.RollbackConfiguration `yaml:"rollback_configuration"`
	ResourceTypes           []string                   `yaml:"resource_types"`
	StackPolicy             string                     `yaml:"stack_policy"`
	StackPolicyDuringUpdate string                     `yaml:"stack_policy_during_update"`
	TerminationProtection   bool                       `yaml:"termination_protection"`
	TimeoutInMinutes        int32                      `yaml:"timeout_in_minutes" validate:"gte=0"`
	OnFailure               string                     `yaml:"on_failure" validate:"omitempty,oneof=DO_NOTHING ROLLBACK DELETE,excluded_with=DisableRollback"`
	DisableRollback         bool                       `yaml:"disable_rollback"`
	RetainResources         []string                   `yaml:"retain_resources" validate:"dive,required"`
	ResourceImportFile      string                     `yaml:"resource_import_file"`
	ForceS3                 bool                       `yaml:"force_s3"`
	IncludeNestedStacks     bool                       `yaml:"include_nested_stacks"`
	ChangesetOnly           bool                       `yaml:"changeset_only"`
	KeepNoopChangeset       bool                       `yaml:"keep_noop_changeset"`
	WaitForInProgress       bool                       `yaml:"wait_for_in_progress"`
	Follow                  *bool                      `yaml:"follow"`
	NoChangeMessages        []string                   `yaml:"no_change_messages" validate:"dive,required"`
	ChangeSetPrefix         string                     `yaml:"changeset_prefix" validate:"omitempty,max=64,resourcename"`

	// dir is the directory relative paths are resolved against.
	dir string
}

type stackFileValidator struct {
	validate *validator.Validate
}

func newStackFileValidator() *stackFileValidator {
	v := validator.New()
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		name := strings.SplitN(f.Tag.Get("yaml"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("resourcename", func(fl validator.FieldLevel) bool {
		return resourceNamePattern.MatchString(fl.Field().String())
	})
	return &stackFileValidator{validate: v}
}

func (s *stackFileValidator) check(sf *StackFile) error {
	err := s.validate.Struct(sf)
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return err
	}
	errs := make([]error, 0, len(verrs))
	for _, fe := range verrs {
		errs = append(errs, fieldError(fe))
	}
	return errors.Join(errs...)
}

func fieldError(fe validator.FieldError) error {
	field := strings.TrimPrefix(fe.Namespace(), "StackFile.")
	switch fe.Tag() {
	case "required":
		return fmt.Errorf("%s is required", field)
	case "resourcename":
		return fmt.Errorf("%s must start with a letter and contain only letters, digits and hyphens", field)
	case "oneof":
		return fmt.Errorf("%s must be one of [%s]", field, fe.Param())
	case "excluded_with":
		return fmt.Errorf("%s cannot be combined with disable_rollback", field)
	default:
		if fe.Param() != "" {
			return fmt.Errorf("%s failed %s=%s", field, fe.Tag(), fe.Param())
		}
		return fmt.Errorf("%s failed %s", field, fe.Tag())
	}
}

// LoadStackFile parses and validates the stack definition at path.
func LoadStackFile(path string) (*StackFile, error) {
	if path == "" {
		return nil, errors.New("stack file path is required")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read stack file: %w", err)
	}

	var sf StackFile
	if err := yaml.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("parse stack file: %w", err)
	}

	if err := newStackFileValidator().check(&sf); err != nil {
		return nil, fmt.Errorf("stack file %s: %w", path, err)
	}

	sf.dir = filepath.Dir(path)
	return &sf, nil
}

// ToStackConfig converts the definition into an orchestrator configuration.
// Parameter and import files are read here; inline parameters override
// values from the parameter file.
func (sf *StackFile) ToStackConfig(pollInterval time.Duration) (stack.Config, error) {
	params := map[string]string{}
	if sf.ParameterFile != "" {
		fromFile, err := LoadParameterFile(sf.resolve(sf.ParameterFile))
		if err != nil {
			return stack.Config{}, err
		}
		for k, v := range fromFile {
			params[k] = v
		}
	}
	for k, v := range sf.Parameters {
		params[k] = v
	}

	var imports []cfn.ResourceToImport
	if sf.ResourceImportFile != "" {
		var err error
		imports, err = LoadResourceImportFile(sf.resolve(sf.ResourceImportFile))
		if err != nil {
			return stack.Config{}, err
		}
	}

	follow := true
	if sf.Follow != nil {
		follow = *sf.Follow
	}

	cfg := stack.Config{
		StackName:                       sf.Name,
		TemplateLocation:                sf.resolve(sf.Template),
		UsePreviousTemplate:             sf.UsePreviousTemplate,
		Parameters:                      params,
		Capabilities:                    sf.Capabilities,
		Tags:                            sortedTags(sf.Tags),
		RoleARN:                         sf.RoleARN,
		ClientToken:                     sf.ClientToken,
		NotificationARNs:                sf.NotificationARNs,
		RollbackConfiguration:           sf.RollbackConfiguration,
		ResourceTypes:                   sf.ResourceTypes,
		StackPolicyLocation:             sf.resolve(sf.StackPolicy),
		StackPolicyDuringUpdateLocation: sf.resolve(sf.StackPolicyDuringUpdate),
		TerminationProtection:           sf.TerminationProtection,
		TimeoutInMinutes:                sf.TimeoutInMinutes,
		OnFailure:                       sf.OnFailure,
		DisableRollback:                 sf.DisableRollback,
		RetainResources:                 sf.RetainResources,
		ResourcesToImport:               imports,
		ForceS3:                         sf.ForceS3,
		IncludeNestedStacks:             sf.IncludeNestedStacks,
		ChangesetOnly:                   sf.ChangesetOnly,
		KeepNoopChangeset:               sf.KeepNoopChangeset,
		WaitForInProgress:               sf.WaitForInProgress,
		Follow:                          follow,
		PollInterval:                    pollInterval,
		NoChangeMessages:                sf.NoChangeMessages,
		ChangeSetPrefix:                 sf.ChangeSetPrefix,
	}
	if len(cfg.Parameters) == 0 {
		cfg.Parameters = nil
	}
	return cfg, cfg.Validate()
}

// resolve makes a relative file reference relative to the stack file when
// such a file exists. URLs, inline documents and unknown paths pass through.
func (sf *StackFile) resolve(location string) string {
	if location == "" || sf.dir == "" || filepath.IsAbs(location) {
		return location
	}
	if strings.Contains(location, "://") || strings.ContainsAny(location, "\n{") {
		return location
	}
	candidate := filepath.Join(sf.dir, location)
	if _, err := os.Stat(candidate); err == nil {
		return candidate
	}
	return location
}

func sortedTags(tags map[string]string) []cfn.Tag {
	if len(tags) == 0 {
		return nil
	}
	keys := make([]string, 0, len(tags))
	for k := range tags {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	out := make([]cfn.Tag, 0, len(keys))
	for _, k := range keys {
		out = append(out, cfn.Tag{Key: k, Value: tags[k]})
	}
	return out
}
