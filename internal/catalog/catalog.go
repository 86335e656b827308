// Package catalog fetches changed entities from the asset catalog.
package catalog

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/leapstack-labs/leaplineage/pkg/core"
)

// Client is the catalog capability used by the incremental update job.
type Client interface {
	// FetchChangedEntities returns entities of entityType changed after since.
	// A zero since requests every entity.
	FetchChangedEntities(ctx context.Context, serverName, userID, entityType string, since time.Time) ([]core.Entity, error)
}

// Kind classifies catalog failures.
type Kind int

const (
	// KindTransport covers connection failures and undecodable responses.
	KindTransport Kind = iota
	KindInvalidParameter
	KindUnauthorized
	KindPropertyServer
)

func (k Kind) String() string {
	switch k {
	case KindInvalidParameter:
		return "invalid parameter"
	case KindUnauthorized:
		return "unauthorized"
	case KindPropertyServer:
		return "property server error"
	default:
		return "transport error"
	}
}

// Error is returned by Client implementations.
type Error struct {
	Kind    Kind
	Status  int
	Message string
	Err     error
}

func (e *Error) Error() string {
	msg := "catalog: " + e.Kind.String()
	if e.Status != 0 {
		msg += fmt.Sprintf(" (HTTP %d)", e.Status)
	}
	if e.Message != "" {
		msg += ": " + e.Message
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *Error) Unwrap() error { return e.Err }

// IsKind reports whether err is a catalog *Error of the given kind.
func IsKind(err error, kind Kind) bool {
	var cerr *Error
	return errors.As(err, &cerr) && cerr.Kind == kind
}

func validate(serverName, userID, entityType string) error {
	switch {
	case serverName == "":
		return &Error{Kind: KindInvalidParameter, Message: "server name is required"}
	case userID == "":
		return &Error{Kind: KindInvalidParameter, Message: "user id is required"}
	case entityType == "":
		return &Error{Kind: KindInvalidParameter, Message: "entity type is required"}
	}
	return nil
}
