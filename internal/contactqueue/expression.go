package contactqueue

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/dennisdiepolder/monti/agentdesk/internal/types"
	"github.com/expr-lang/expr"
	"github.com/expr-lang/expr/vm"
)

// Engine evaluates campaign sort expressions with a compiled program cache
type Engine struct {
	programCache map[string]*vm.Program
	mu           sync.RWMutex
}

// NewEngine creates a new expression engine
func NewEngine() *Engine {
	return &Engine{
		programCache: make(map[string]*vm.Program),
	}
}

// Score evaluates a numeric expression against env
func (e *Engine) Score(expression string, env map[string]interface{}) (float64, error) {
	program, err := e.getProgram(expression)
	if err != nil {
		return 0, err
	}

	output, err := expr.Run(program, env)
	if err != nil {
		return 0, err
	}

	switch v := output.(type) {
	case int:
		return float64(v), nil
	case int64:
		return float64(v), nil
	case float64:
		return v, nil
	case bool:
		if v {
			return 1, nil
		}
		return 0, nil
	}
	return 0, fmt.Errorf("sort expression must return a number, got %T", output)
}

func (e *Engine) getProgram(expression string) (*vm.Program, error) {
	e.mu.RLock()
	if prog, ok := e.programCache[expression]; ok {
		e.mu.RUnlock()
		return prog, nil
	}
	e.mu.RUnlock()

	e.mu.Lock()
	defer e.mu.Unlock()

	if prog, ok := e.programCache[expression]; ok {
		return prog, nil
	}

	prog, err := expr.Compile(expression, expr.Env(ContactEnv(types.CampaignContact{}, time.Time{})), expr.AllowUndefinedVariables())
	if err != nil {
		return nil, fmt.Errorf("compile sort expression: %w", err)
	}
	e.programCache[expression] = prog
	return prog, nil
}

// ContactEnv exposes a contact's fields to sort expressions
func ContactEnv(c types.CampaignContact, now time.Time) map[string]interface{} {
	ageYears := 0
	if c.Customer.BirthDate != nil && !now.IsZero() {
		ageYears = yearsBetween(*c.Customer.BirthDate, now)
	}
	daysSinceCreated := 0
	if !c.Customer.CreatedAt.IsZero() && !now.IsZero() {
		daysSinceCreated = int(now.Sub(c.Customer.CreatedAt).Hours() / 24)
	}

	return map[string]interface{}{
		"priority":         c.Customer.Priority,
		"attemptCount":     c.AttemptCount,
		"ageYears":         ageYears,
		"daysSinceCreated": daysSinceCreated,
		"hasEmail":         c.Customer.Email != "",
		"hasPhone":         c.Customer.Phone != "",
		"country":          strings.ToUpper(c.Customer.Country),
		"lastName":         c.Customer.LastName,
		"company":          c.Customer.CompanyName,
	}
}

func yearsBetween(from, to time.Time) int {
	years := to.Year() - from.Year()
	if to.YearDay() < from.YearDay() {
		years--
	}
	if years < 0 {
		return 0
	}
	return years
}
