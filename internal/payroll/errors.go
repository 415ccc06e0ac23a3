package payroll

// DomainError reports a payroll request that violates a business rule, as
// opposed to an infrastructure failure.
type DomainError struct {
	Msg string
}

func (e *DomainError) Error() string { return e.Msg }
