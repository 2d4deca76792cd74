//go:build integration

package integration

import (
	"context"
	"net/http"
	"os"
	"testing"
	"time"

	"github.com/nholik/stackpilot/internal/cfn"
	"github.com/nholik/stackpilot/internal/logging"
	"github.com/nholik/stackpilot/internal/notify"
	"github.com/nholik/stackpilot/internal/stack"
)

const lifecycleTemplate = `{
  "Parameters": {
    "Env": {"Type": "String", "Default": "dev"}
  },
  "Resources": {
    "Handle": {"Type": "AWS::CloudFormation::WaitConditionHandle"}
  },
  "Outputs": {
    "Env": {"Value": {"Ref": "Env"}}
  }
}`

// TestIntegrationStackLifecycle drives one stack through create, a no-op
// update, a real update and delete against a CloudFormation endpoint.
//
// Prerequisites:
//   - SP_IT_STACK_NAME set to a disposable stack name
//   - a reachable endpoint, e.g. LocalStack on http://localhost:4566
//
// Run with: go test -tags=integration -v ./test/integration/...
func TestIntegrationStackLifecycle(t *testing.T) {
	stackName := os.Getenv("SP_IT_STACK_NAME")
	if stackName == "" {
		t.Skip("SP_IT_STACK_NAME not set")
	}
	endpoint := getEnv("SP_IT_ENDPOINT_URL", "http://localhost:4566")
	region := getEnv("SP_IT_REGION", "us-east-1")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	if err := checkEndpoint(ctx, endpoint); err != nil {
		t.Skipf("endpoint not reachable: %v", err)
	}

	awsCfg, err := cfn.LoadAWSConfig(ctx, region, os.Getenv("SP_IT_PROFILE"))
	if err != nil {
		t.Fatalf("load aws config: %v", err)
	}
	client := cfn.NewSDKClient(awsCfg, endpoint, 30*time.Second)
	logger := logging.NewWithLevel(getEnv("SP_IT_LOG_LEVEL", "info"))

	newOrchestrator := func(t *testing.T, params map[string]string) *stack.Orchestrator {
		t.Helper()
		o, err := stack.New(stack.Config{
			StackName:        stackName,
			TemplateLocation: lifecycleTemplate,
			Parameters:       params,
			Follow:           true,
			PollInterval:     2 * time.Second,
		}, client, stack.WithLogger(logger), stack.WithObserver(notify.NewLogObserver(logger)))
		if err != nil {
			t.Fatalf("new orchestrator: %v", err)
		}
		return o
	}

	t.Cleanup(func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 5*time.Minute)
		defer cancel()
		_, _ = newOrchestrator(t, nil).Delete(cleanupCtx, stack.DeleteHooks{})
	})

	t.Run("Create", func(t *testing.T) {
		res, err := newOrchestrator(t, nil).Create(ctx)
		if err != nil {
			t.Fatalf("create: %v", err)
		}
		if res.Outcome != stack.Created {
			t.Fatalf("unexpected outcome %s", res.Outcome)
		}
		if res.Stack == nil || res.Stack.Outputs["Env"] != "dev" {
			t.Fatalf("expected Env output, got %+v", res.Stack)
		}
	})

	t.Run("UpdateNoChange", func(t *testing.T) {
		res, err := newOrchestrator(t, nil).Update(ctx, nil)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if res.Outcome != stack.NoChange {
			t.Fatalf("expected no change, got %s", res.Outcome)
		}
	})

	t.Run("Update", func(t *testing.T) {
		res, err := newOrchestrator(t, map[string]string{"Env": "prod"}).Update(ctx, nil)
		if err != nil {
			t.Fatalf("update: %v", err)
		}
		if res.Outcome != stack.Updated {
			t.Fatalf("unexpected outcome %s", res.Outcome)
		}
	})

	t.Run("Delete", func(t *testing.T) {
		res, err := newOrchestrator(t, nil).Delete(ctx, stack.DeleteHooks{})
		if err != nil {
			t.Fatalf("delete: %v", err)
		}
		if res.Outcome != stack.Deleted {
			t.Fatalf("unexpected outcome %s", res.Outcome)
		}
	})
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func checkEndpoint(ctx context.Context, url string) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	return nil
}
