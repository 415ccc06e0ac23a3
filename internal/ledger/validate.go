package ledger

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"go.uber.org/zap"
)

// SetChecker overrides the external validator command. The main ledger path
// is appended as the final argument.
func (s *Store) SetChecker(argv ...string) {
	s.checker = argv
}

// Validate runs the external beancount checker against the main file. A
// nonzero exit is a failure and every stderr/stdout line is returned as an
// error message. Exceeding the 30 second bound maps to ErrValidatorTimeout.
func (s *Store) Validate(ctx context.Context) (bool, []string, error) {
	ctx, cancel := context.WithTimeout(ctx, s.timeout)
	defer cancel()

	argv := append(append([]string{}, s.checker...), s.MainPath())
	cmd := exec.CommandContext(ctx, argv[0], argv[1:]...)
	out, err := cmd.CombinedOutput()

	if ctx.Err() == context.DeadlineExceeded {
		return false, nil, ErrValidatorTimeout
	}

	if err == nil {
		return true, nil, nil
	}

	var exitErr *exec.ExitError
	if errors.As(err, &exitErr) {
		var lines []string
		for _, line := range strings.Split(string(out), "\n") {
			if strings.TrimSpace(line) != "" {
				lines = append(lines, line)
			}
		}
		s.log.Warn("ledger validation failed", zap.Int("lines", len(lines)))
		return false, lines, nil
	}
	return false, nil, fmt.Errorf("running validator %s: %w", argv[0], err)
}
