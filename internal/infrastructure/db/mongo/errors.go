package mongo

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"go.mongodb.org/mongo-driver/mongo"

	"github.com/wareable/user-service/internal/core/domain"
)

const (
	usernameIndex = "username_1"
	emailIndex    = "email_1"
)

// storeError maps driver failures onto domain errors. Timeouts and network
// errors become domain.ErrDependencyUnavailable; anything else is wrapped
// with op.
func storeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsTimeout(err) || mongo.IsNetworkError(err) ||
		errors.Is(err, context.DeadlineExceeded) || errors.Is(err, mongo.ErrClientDisconnected) {
		return fmt.Errorf("%w: %s: %v", domain.ErrDependencyUnavailable, op, err)
	}
	return fmt.Errorf("%s: %w", op, err)
}

// writeError classifies a failed user write. Duplicate-key violations are
// attributed to the index that rejected them.
func writeError(op string, err error) error {
	if err == nil {
		return nil
	}
	if mongo.IsDuplicateKeyError(err) {
		switch duplicateIndex(err) {
		case usernameIndex:
			return domain.ErrDuplicateUsername
		case emailIndex:
			return domain.ErrDuplicateEmail
		}
		return fmt.Errorf("%s: unexpected duplicate key: %w", op, err)
	}
	return storeError(op, err)
}

// duplicateIndex returns the name of the index behind the first duplicate key error
// carried by err, or "" when none is found.
func duplicateIndex(err error) string {
	var we mongo.WriteException
	if errors.As(err, &we) {
		for _, e := range we.WriteErrors {
			if isDuplicateCode(e.Code) {
				return indexFromMessage(e.Message)
			}
		}
	}
	var bwe mongo.BulkWriteException
	if errors.As(err, &bwe) {
		for _, e := range bwe.WriteErrors {
			if isDuplicateCode(e.Code) {
				return indexFromMessage(e.Message)
			}
		}
	}
	var ce mongo.CommandError
	if errors.As(err, &ce) && (isDuplicateCode(int(ce.Code)) || ce.Code == 16460) {
		return indexFromMessage(ce.Message)
	}
	return ""
}

// isDuplicateCode covers the plain, update-time and capped-collection
// duplicate key codes.
func isDuplicateCode(code int) bool {
	return code == 11000 || code == 11001 || code == 12582
}

// indexFromMessage extracts the index name from a server message of the form
// "E11000 duplicate key error collection: db.users index: email_1 dup key: {...}".
// Only the token right after "index: " is read, so the duplicated value never
// influences the result.
func indexFromMessage(msg string) string {
	const marker = "index: "
	i := strings.Index(msg, marker)
	if i < 0 {
		return ""
	}
	rest := msg[i+len(marker):]
	if j := strings.IndexByte(rest, ' '); j >= 0 {
		rest = rest[:j]
	}
	return rest
}
