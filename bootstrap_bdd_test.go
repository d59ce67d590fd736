package appcore

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/cucumber/godog"
)

// Static errors for BDD assertions.
var (
	errBDDInitUnexpectedlyFailed = errors.New("initialization failed unexpectedly")
	errBDDExpectedCycleError     = errors.New("expected a cycle error")
	errBDDWrongStatus            = errors.New("module has wrong status")
	errBDDWrongInitOrder         = errors.New("modules initialized in wrong order")
)

type bootstrapBDDContext struct {
	core      *AppCore
	rec       *lifecycleRecorder
	result    *InitResult
	initError error
}

func (c *bootstrapBDDContext) aFreshApplicationCore() error {
	c.core = New(nil)
	c.rec = &lifecycleRecorder{}
	c.result = nil
	c.initError = nil
	return nil
}

func (c *bootstrapBDDContext) aModuleWithNoDependencies(name string) error {
	return c.core.Register(name, moduleFactory(&testModule{name: name, rec: c.rec}))
}

func (c *bootstrapBDDContext) aModuleDependingOn(name, dep string) error {
	return c.core.Register(name, moduleFactory(&testModule{name: name, rec: c.rec}), dep)
}

func (c *bootstrapBDDContext) aFailingModule(name string) error {
	return c.core.Register(name, moduleFactory(&testModule{
		name: name, rec: c.rec, initErr: errors.New("induced failure"),
	}))
}

func (c *bootstrapBDDContext) iInitializeTheApplication() error {
	c.result, c.initError = c.core.Init(context.Background())
	return nil
}

func (c *bootstrapBDDContext) initializationSucceeds() error {
	if c.initError != nil {
		return fmt.Errorf("%w: %w", errBDDInitUnexpectedlyFailed, c.initError)
	}
	return nil
}

func (c *bootstrapBDDContext) initializationFailsWithACycleError() error {
	if !errors.Is(c.initError, ErrCyclicDependency) {
		return fmt.Errorf("%w, got: %v", errBDDExpectedCycleError, c.initError)
	}
	return nil
}

func (c *bootstrapBDDContext) moduleIs(name, expected string) error {
	status, ok := c.core.Registry().Status(name)
	if !ok || string(status) != expected {
		return fmt.Errorf("%w: %s is %q, expected %q", errBDDWrongStatus, name, status, expected)
	}
	return nil
}

func (c *bootstrapBDDContext) moduleInitializedBefore(first, second string) error {
	order := c.rec.initOrder()
	firstIdx := indexOf(order, first)
	secondIdx := indexOf(order, second)
	if firstIdx < 0 || secondIdx < 0 || firstIdx >= secondIdx {
		return fmt.Errorf("%w: %v", errBDDWrongInitOrder, order)
	}
	return nil
}

func InitializeBootstrapScenario(sc *godog.ScenarioContext) {
	c := &bootstrapBDDContext{}

	sc.Step(`^a fresh application core$`, c.aFreshApplicationCore)
	sc.Step(`^a module "([^"]*)" with no dependencies$`, c.aModuleWithNoDependencies)
	sc.Step(`^a module "([^"]*)" depending on "([^"]*)"$`, c.aModuleDependingOn)
	sc.Step(`^a failing module "([^"]*)"$`, c.aFailingModule)
	sc.Step(`^I initialize the application$`, c.iInitializeTheApplication)
	sc.Step(`^initialization succeeds$`, c.initializationSucceeds)
	sc.Step(`^initialization fails with a cycle error$`, c.initializationFailsWithACycleError)
	sc.Step(`^module "([^"]*)" is "([^"]*)"$`, c.moduleIs)
	sc.Step(`^module "([^"]*)" initialized before "([^"]*)"$`, c.moduleInitializedBefore)
}

func TestBootstrapScenarios(t *testing.T) {
	suite := godog.TestSuite{
		ScenarioInitializer: InitializeBootstrapScenario,
		Options: &godog.Options{
			Format:   "pretty",
			Paths:    []string{"features/bootstrap.feature"},
			TestingT: t,
			Strict:   true,
		},
	}

	if suite.Run() != 0 {
		t.Fatal("non-zero status returned, failed to run feature tests")
	}
}
