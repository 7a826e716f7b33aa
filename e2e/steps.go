package e2e

import (
	"github.com/cucumber/godog"

	"flightsurety/e2e/steps/common"
	"flightsurety/e2e/steps/ledger"
)

// RegisterSteps registers all step definitions from modular packages
func RegisterSteps(ctx *godog.ScenarioContext, tc *TestContext) {
	// Register common steps (actors, generic requests, assertions)
	common.RegisterSteps(ctx, tc)

	// Register ledger-specific steps
	ledger.RegisterSteps(ctx, tc)
}
