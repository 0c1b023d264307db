//go:build e2e

package opening

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cucumber/godog"

	jwttoken "wealth/internal/jwt_token"
)

const (
	pollInterval = 250 * time.Millisecond
	pollTimeout  = 20 * time.Second
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	POST(path string, body any) error
	PUT(path string, body any) error
	GET(path string) error
	GetResponseField(field string) (any, error)
	GetLastResponseStatus() int
	GetLastResponseBody() []byte
	GetWorkflowID() string
	SetWorkflowID(id string)
	GetSigningKey() string
	SetToken(token string)
}

// RegisterSteps registers account opening step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &openingSteps{tc: tc}

	ctx.Step(`^authentication is enabled$`, steps.authenticationEnabled)
	ctx.Step(`^I am authenticated with roles "([^"]*)"$`, steps.authenticateWithRoles)
	ctx.Step(`^I start an opening for client "([^"]*)" named "([^"]*)" with amount (\d+(?:\.\d+)?)$`, steps.startOpening)
	ctx.Step(`^I start an opening with body:$`, steps.startOpeningWithBody)
	ctx.Step(`^I save the workflow id$`, steps.saveWorkflowID)
	ctx.Step(`^the opening should reach state "([^"]*)"$`, steps.waitForState)
	ctx.Step(`^I verify KYC$`, steps.verifyKyc)
	ctx.Step(`^I approve compliance$`, steps.approveCompliance)
	ctx.Step(`^I request the client details$`, steps.getClientDetails)
	ctx.Step(`^I update the client details$`, steps.updateClientDetails)
	ctx.Step(`^I request the opening result$`, steps.getResult)
	ctx.Step(`^I request the opening result without waiting$`, steps.getResultNow)
	ctx.Step(`^I request the state of opening "([^"]*)"$`, steps.getStateOf)
}

type openingSteps struct {
	tc TestContext
}

func (s *openingSteps) authenticationEnabled(ctx context.Context) error {
	if s.tc.GetSigningKey() == "" {
		return godog.ErrSkip
	}
	return nil
}

// authenticateWithRoles is a no-op when JWT_SIGNING_KEY is unset, matching a
// server that runs without role checks.
func (s *openingSteps) authenticateWithRoles(ctx context.Context, roles string) error {
	key := s.tc.GetSigningKey()
	if key == "" {
		return nil
	}
	svc := jwttoken.NewJWTService(key, jwttoken.DefaultIssuer, jwttoken.DefaultAudience, time.Hour)
	token, err := svc.Generate("e2e@example.com", strings.Split(roles, ","))
	if err != nil {
		return fmt.Errorf("generate token: %w", err)
	}
	s.tc.SetToken(token)
	return nil
}

func (s *openingSteps) startOpening(ctx context.Context, clientID, name string, amount float64) error {
	return s.tc.POST("/openings", map[string]any{
		"client_id":      clientID,
		"account_name":   name,
		"initial_amount": amount,
	})
}

func (s *openingSteps) startOpeningWithBody(ctx context.Context, body *godog.DocString) error {
	var payload map[string]any
	if err := json.Unmarshal([]byte(body.Content), &payload); err != nil {
		return fmt.Errorf("invalid body: %w", err)
	}
	return s.tc.POST("/openings", payload)
}

func (s *openingSteps) saveWorkflowID(ctx context.Context) error {
	id, err := s.tc.GetResponseField("workflow_id")
	if err != nil {
		return err
	}
	s.tc.SetWorkflowID(fmt.Sprint(id))
	return nil
}

func (s *openingSteps) path(suffix string) string {
	return "/openings/" + s.tc.GetWorkflowID() + suffix
}

func (s *openingSteps) waitForState(ctx context.Context, want string) error {
	deadline := time.Now().Add(pollTimeout)
	var last string
	for time.Now().Before(deadline) {
		if err := s.tc.GET(s.path("/state")); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() == 200 {
			state, err := s.tc.GetResponseField("state")
			if err != nil {
				return err
			}
			last = fmt.Sprint(state)
			if last == want {
				return nil
			}
		}
		time.Sleep(pollInterval)
	}
	return fmt.Errorf("opening %s did not reach %s (last state %q)", s.tc.GetWorkflowID(), want, last)
}

func (s *openingSteps) verifyKyc(ctx context.Context) error {
	return s.tc.POST(s.path("/kyc"), nil)
}

func (s *openingSteps) approveCompliance(ctx context.Context) error {
	return s.tc.POST(s.path("/compliance"), nil)
}

func (s *openingSteps) getClientDetails(ctx context.Context) error {
	return s.tc.GET(s.path("/client"))
}

func (s *openingSteps) updateClientDetails(ctx context.Context) error {
	return s.tc.PUT(s.path("/client"), map[string]any{"client_id": "123", "first_name": "Don"})
}

func (s *openingSteps) getResult(ctx context.Context) error {
	deadline := time.Now().Add(pollTimeout)
	for {
		if err := s.tc.GET(s.path("/result")); err != nil {
			return err
		}
		if s.tc.GetLastResponseStatus() != 409 || time.Now().After(deadline) {
			return nil
		}
		time.Sleep(pollInterval)
	}
}

func (s *openingSteps) getResultNow(ctx context.Context) error {
	return s.tc.GET(s.path("/result"))
}

func (s *openingSteps) getStateOf(ctx context.Context, workflowID string) error {
	return s.tc.GET("/openings/" + workflowID + "/state")
}
