package ledger

import (
	"context"
	"fmt"
	"math/big"

	"github.com/cucumber/godog"
)

// TestContext interface defines the methods needed from the main test context
type TestContext interface {
	GET(path string) error
	POST(path string, body any) error
	PUT(path string, body any) error
	DELETE(path string) error
	ActAs(name string)
	Address(name string) string
	Flight(code string) string
	StatusCode() int
	Body() string
	GetResponseField(field string) (any, error)
}

// RegisterSteps registers ledger step definitions
func RegisterSteps(ctx *godog.ScenarioContext, tc TestContext) {
	steps := &ledgerSteps{tc: tc}

	// Setup steps
	ctx.Step(`^the ledger is operational$`, steps.ensureOperational)
	ctx.Step(`^the admin airline is funded$`, steps.ensureAdminFunded)
	ctx.Step(`^"([^"]*)" is credited with ([0-9.]+) ether$`, steps.credit)
	ctx.Step(`^the admin registers flight "([^"]*)"$`, steps.registerFlight)

	// Actions
	ctx.Step(`^"([^"]*)" buys insurance on "([^"]*)" for ([0-9.]+) ether$`, steps.buy)
	ctx.Step(`^"([^"]*)" cancels insurance on "([^"]*)"$`, steps.cancel)
	ctx.Step(`^"([^"]*)" claims the payout on "([^"]*)"$`, steps.payout)
	ctx.Step(`^the admin sets the status of "([^"]*)" to (\d+)$`, steps.setStatus)
	ctx.Step(`^the admin (halts|resumes) the ledger$`, steps.toggle)
	ctx.Step(`^I set the ledger operational to (true|false)$`, steps.setOperationalAsActor)
	ctx.Step(`^I look up the policy of "([^"]*)" on "([^"]*)"$`, steps.getPolicy)

	// Assertions
	ctx.Step(`^the balance of "([^"]*)" should be ([0-9.]+) ether$`, steps.balanceShouldBe)
	ctx.Step(`^the response field "([^"]*)" should equal ([0-9.]+) ether$`, steps.fieldShouldEqualEther)
}

type ledgerSteps struct {
	tc TestContext
}

func (s *ledgerSteps) expectSuccess(action string) error {
	if code := s.tc.StatusCode(); code < 200 || code > 299 {
		return fmt.Errorf("%s: status %d: %s", action, code, s.tc.Body())
	}
	return nil
}

func (s *ledgerSteps) ensureOperational(ctx context.Context) error {
	s.tc.ActAs("admin")
	return s.setOperational(true)
}

func (s *ledgerSteps) setOperational(operational bool) error {
	if err := s.tc.PUT("/admin/operational", map[string]any{"operational": operational}); err != nil {
		return err
	}
	return s.expectSuccess("set operational")
}

// ensureAdminFunded stakes 10 ether for the admin airline on every scenario.
// The genesis airline is paid without a stake, so custody would otherwise hold
// only premiums and could not cover a 1.5x payout.
func (s *ledgerSteps) ensureAdminFunded(ctx context.Context) error {
	if err := s.credit(ctx, "admin", "10"); err != nil {
		return err
	}
	s.tc.ActAs("admin")
	if err := s.tc.POST("/airlines/fund", amountBody(mustEther("10"))); err != nil {
		return err
	}
	if err := s.expectSuccess("fund admin airline"); err != nil {
		return err
	}
	paid, err := s.tc.GetResponseField("is_paid")
	if err != nil {
		return err
	}
	if paid != true {
		return fmt.Errorf("admin airline is not paid after staking: %s", s.tc.Body())
	}
	return nil
}

func (s *ledgerSteps) credit(ctx context.Context, name, ether string) error {
	amount, err := parseEther(ether)
	if err != nil {
		return err
	}
	s.tc.ActAs("admin")
	if err := s.tc.POST("/admin/accounts/"+s.tc.Address(name)+"/credit", amountBody(amount)); err != nil {
		return err
	}
	return s.expectSuccess("credit " + name)
}

func (s *ledgerSteps) registerFlight(ctx context.Context, code string) error {
	s.tc.ActAs("admin")
	if err := s.tc.POST("/flights", map[string]string{"flight": s.tc.Flight(code)}); err != nil {
		return err
	}
	return s.expectSuccess("register flight " + code)
}

func (s *ledgerSteps) buy(ctx context.Context, name, code, ether string) error {
	amount, err := parseEther(ether)
	if err != nil {
		return err
	}
	s.tc.ActAs(name)
	return s.tc.POST("/insurance/"+s.tc.Flight(code), amountBody(amount))
}

func (s *ledgerSteps) cancel(ctx context.Context, name, code string) error {
	s.tc.ActAs(name)
	return s.tc.DELETE("/insurance/" + s.tc.Flight(code))
}

func (s *ledgerSteps) payout(ctx context.Context, name, code string) error {
	s.tc.ActAs(name)
	return s.tc.POST("/insurance/"+s.tc.Flight(code)+"/payout", nil)
}

func (s *ledgerSteps) setStatus(ctx context.Context, code string, status int) error {
	s.tc.ActAs("admin")
	if err := s.tc.PUT("/admin/flights/"+s.tc.Flight(code)+"/status", map[string]int{"status": status}); err != nil {
		return err
	}
	return s.expectSuccess("set flight status")
}

func (s *ledgerSteps) toggle(ctx context.Context, action string) error {
	s.tc.ActAs("admin")
	return s.setOperational(action == "resumes")
}

func (s *ledgerSteps) setOperationalAsActor(ctx context.Context, value string) error {
	return s.tc.PUT("/admin/operational", map[string]any{"operational": value == "true"})
}

func (s *ledgerSteps) getPolicy(ctx context.Context, name, code string) error {
	return s.tc.GET("/insurance/" + s.tc.Flight(code) + "/" + s.tc.Address(name))
}

func (s *ledgerSteps) balanceShouldBe(ctx context.Context, name, ether string) error {
	if err := s.tc.GET("/accounts/" + s.tc.Address(name) + "/balance"); err != nil {
		return err
	}
	if err := s.expectSuccess("get balance"); err != nil {
		return err
	}
	return s.fieldShouldEqualEther(ctx, "balance", ether)
}

func (s *ledgerSteps) fieldShouldEqualEther(ctx context.Context, field, ether string) error {
	want, err := parseEther(ether)
	if err != nil {
		return err
	}
	v, err := s.tc.GetResponseField(field)
	if err != nil {
		return err
	}
	raw, ok := v.(string)
	if !ok {
		return fmt.Errorf("field %s is %T, want decimal string", field, v)
	}
	got, ok := new(big.Int).SetString(raw, 10)
	if !ok {
		return fmt.Errorf("field %s=%q is not a wei amount", field, raw)
	}
	if got.Cmp(want) != 0 {
		return fmt.Errorf("expected %s=%s wei, got %s", field, want, got)
	}
	return nil
}

func amountBody(wei *big.Int) map[string]string {
	return map[string]string{"amount": wei.String()}
}

var weiPerEther = new(big.Rat).SetInt(new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil))

func parseEther(s string) (*big.Int, error) {
	r, ok := new(big.Rat).SetString(s)
	if !ok {
		return nil, fmt.Errorf("invalid ether amount %q", s)
	}
	r.Mul(r, weiPerEther)
	if !r.IsInt() {
		return nil, fmt.Errorf("ether amount %q has sub-wei precision", s)
	}
	return new(big.Int).Set(r.Num()), nil
}

func mustEther(s string) *big.Int {
	v, err := parseEther(s)
	if err != nil {
		panic(err)
	}
	return v
}
