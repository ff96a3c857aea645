package graph

import (
	"context"
	"errors"
	"strings"

	"github.com/neo4j/neo4j-go-driver/v5/neo4j"

	apperrors "bookmap/backend/pkg/errors"
)

const codeConstraintViolation = "Neo.ClientError.Schema.ConstraintValidationFailed"

// isConflict reports whether err is a uniqueness constraint rejection
func isConflict(err error) bool {
	var neoErr *neo4j.Neo4jError
	return errors.As(err, &neoErr) && neoErr.Code == codeConstraintViolation
}

// isAlreadyExists matches the schema errors older servers raise for
// constraints and indexes that are already declared
func isAlreadyExists(err error) bool {
	var neoErr *neo4j.Neo4jError
	if !errors.As(err, &neoErr) {
		return false
	}
	return strings.HasPrefix(neoErr.Code, "Neo.ClientError.Schema.") &&
		strings.HasSuffix(neoErr.Code, "AlreadyExists")
}

// classify turns a failure from a unit of work into one of the typed errors
// callers switch on. Typed errors raised inside the unit pass through.
func classify(operation string, err error) error {
	if err == nil {
		return nil
	}
	if apperrors.TypeOf(err) != "" {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return apperrors.NewContextCancelled(operation, err)
	}
	return apperrors.NewTransaction(operation, neo4j.IsRetryable(err), err)
}
