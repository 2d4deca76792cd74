package template

import (
	"strings"
	"testing"
)

const yamlTemplateBody = `AWSTemplateFormatVersion: "2010-09-09"
Description: Web tier
Parameters:
  Env:
    Type: String
    Default: dev
  DbPassword:
    Type: String
    NoEcho: true
Resources:
  Bucket:
    Type: AWS::S3::Bucket
    Properties:
      BucketName: !Sub "${Env}-assets"
  Network:
    Type: AWS::CloudFormation::Stack
    Properties:
      TemplateURL: !Ref NetworkTemplate
`

const jsonTemplateBody = `{
	"Description": "Json tier",
	"Parameters": {
		"Secret": {"Type": "String", "NoEcho": "true"},
		"Count": {"Type": "Number", "Default": 3}
	},
	"Resources": {
		"Queue": {"Type": "AWS::SQS::Queue"},
		"Child": {"Type": "AWS::CloudFormation::Stack"}
	}
}`

func TestParseYAML(t *testing.T) {
	doc, err := Parse(yamlTemplateBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Description != "Web tier" {
		t.Fatalf("unexpected description %q", doc.Description)
	}
	if got := strings.Join(doc.ParameterNames(), ","); got != "Env,DbPassword" {
		t.Fatalf("unexpected parameters %q", got)
	}
	if doc.Parameters[0].Default != "dev" {
		t.Fatalf("unexpected default %q", doc.Parameters[0].Default)
	}
	noEcho := doc.NoEchoParameters()
	if len(noEcho) != 1 || noEcho[0] != "DbPassword" {
		t.Fatalf("unexpected NoEcho parameters %v", noEcho)
	}
	if len(doc.Resources) != 2 || doc.Resources[1].Type != "AWS::CloudFormation::Stack" {
		t.Fatalf("unexpected resources %+v", doc.Resources)
	}
}

func TestParseJSON(t *testing.T) {
	doc, err := Parse(jsonTemplateBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if doc.Description != "Json tier" {
		t.Fatalf("unexpected description %q", doc.Description)
	}
	if got := strings.Join(doc.ParameterNames(), ","); got != "Count,Secret" {
		t.Fatalf("unexpected parameters %q", got)
	}
	if doc.Parameters[0].Default != "3" {
		t.Fatalf("unexpected default %q", doc.Parameters[0].Default)
	}
	if !doc.Parameters[1].NoEcho {
		t.Fatal("expected string NoEcho to be honoured")
	}
}

func TestParseErrors(t *testing.T) {
	cases := []string{"", "   ", "{not json", "- a\n- b\n"}
	for _, body := range cases {
		if _, err := Parse(body); err == nil {
			t.Errorf("expected error for %q", body)
		}
	}
}

func TestNestedStackNames(t *testing.T) {
	doc, err := Parse(yamlTemplateBody)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	nested := doc.NestedStackNames("web")
	want := "web-Network" + strings.Repeat(" ", NestedStackPadWidth)
	if len(nested) != 1 || nested[0] != want {
		t.Fatalf("unexpected nested names %q", nested)
	}

	names := doc.LogicalResourceNames("web")
	if len(names) != 3 || names[0] != "web" || names[1] != "Bucket" || names[2] != want {
		t.Fatalf("unexpected logical names %q", names)
	}

	stackWidth, resourceWidth := doc.ColumnWidths("web")
	if stackWidth != len(want) || resourceWidth != len(want) {
		t.Fatalf("unexpected widths %d %d", stackWidth, resourceWidth)
	}
}
