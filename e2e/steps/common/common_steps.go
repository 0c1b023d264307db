//go:build e2e

package common

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	ResponseContains(field string) bool
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
}

// RegisterSteps registers common step definitions used across features
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &commonSteps{tc: tc}

	// Background steps
	ctx.Step(`^the wealth API is running$`, steps.apiIsRunning)

	// Generic request steps
	ctx.Step(`^I GET "([^"]*)"$`, steps.get)

	// Response assertion steps
	ctx.Step(`^the response status should be (\d+)$`, steps.responseStatusShouldBe)
	ctx.Step(`^the response should contain "([^"]*)"$`, steps.responseShouldContain)
	ctx.Step(`^the response field "([^"]*)" should equal "([^"]*)"$`, steps.responseFieldShouldEqual)
	ctx.Step(`^the response field "([^"]*)" should contain "([^"]*)"$`, steps.responseFieldShouldContain)
}

type commonSteps struct {
	tc TestContext
}

func (s *commonSteps) apiIsRunning(ctx context.Context) error {
	if err := s.tc.GET("/health/live"); err != nil {
		return err
	}
	if s.tc.GetLastResponseStatus() != 200 {
		return fmt.Errorf("liveness check returned %d", s.tc.GetLastResponseStatus())
	}
	return nil
}

func (s *commonSteps) get(ctx context.Context, path string) error {
	return s.tc.GET(path)
}

func (s *commonSteps) responseStatusShouldBe(ctx context.Context, expectedStatus int) error {
	actualStatus := s.tc.GetLastResponseStatus()
	if actualStatus != expectedStatus {
		return fmt.Errorf("expected status %d but got %d", expectedStatus, actualStatus)
	}
	return nil
}

func (s *commonSteps) responseShouldContain(ctx context.Context, field string) error {
	if !s.tc.ResponseContains(field) {
		return fmt.Errorf("response does not contain field: %s\nResponse: %s", field, string(s.tc.GetLastResponseBody()))
	}
	return nil
}

func (s *commonSteps) field(name string) (string, error) {
	var data map[string]any
	if err := json.Unmarshal(s.tc.GetLastResponseBody(), &data); err != nil {
		return "", fmt.Errorf("failed to parse response: %w", err)
	}
	value, ok := data[name]
	if !ok {
		return "", fmt.Errorf("field %s not found in response", name)
	}
	return fmt.Sprint(value), nil
}

func (s *commonSteps) responseFieldShouldEqual(ctx context.Context, field, expectedValue string) error {
	actual, err := s.field(field)
	if err != nil {
		return err
	}
	if actual != expectedValue {
		return fmt.Errorf("field %s: expected %s but got %v", field, expectedValue, actual)
	}
	return nil
}

func (s *commonSteps) responseFieldShouldContain(ctx context.Context, field, expectedSubstring string) error {
	actual, err := s.field(field)
	if err != nil {
		return err
	}
	if !strings.Contains(actual, expectedSubstring) {
		return fmt.Errorf("field %s: expected to contain %s but got %v", field, expectedSubstring, actual)
	}
	return nil
}
