package cache

import (
	"errors"
	"fmt"

	"github.com/normwrite/normcache/internal/nodeid"
)

// Code categorizes the three error kinds section 7 names.
type Code string

const (
	// CodeIdentityViolation: payload provides a value with a different
	// entity id at a position that already has a known different id.
	CodeIdentityViolation Code = "IDENTITY_VIOLATION"

	// CodeEdgeSymmetry: an edge removal found no matching edge on the
	// other side.
	CodeEdgeSymmetry Code = "EDGE_SYMMETRY"

	// CodeConfiguration: the cache was constructed with an invalid
	// Config.
	CodeConfiguration Code = "CONFIGURATION"
)

// Error is the error type returned for every section 7 condition the
// engine detects itself.
type Error struct {
	Code    Code
	Message string

	NodeID nodeid.NodeId
	Path   nodeid.Path

	// PrevID/NextID are populated for CodeIdentityViolation.
	PrevID, NextID nodeid.NodeId
}

func (e *Error) Error() string {
	if e.NodeID != "" {
		return fmt.Sprintf("%s: %s (node=%s)", e.Code, e.Message, e.NodeID)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsIdentityViolation reports whether err is, or wraps, a
// CodeIdentityViolation error.
func IsIdentityViolation(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeIdentityViolation
}

// IsEdgeSymmetry reports whether err is, or wraps, a CodeEdgeSymmetry
// error.
func IsEdgeSymmetry(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeEdgeSymmetry
}

// IsConfiguration reports whether err is, or wraps, a CodeConfiguration
// error.
func IsConfiguration(err error) bool {
	var ce *Error
	return errors.As(err, &ce) && ce.Code == CodeConfiguration
}

func newIdentityViolation(containerID nodeid.NodeId, path nodeid.Path, prevID, nextID nodeid.NodeId) *Error {
	return &Error{
		Code:    CodeIdentityViolation,
		Message: "payload resolves a different entity id at a position that already points at a known entity",
		NodeID:  containerID,
		Path:    path,
		PrevID:  prevID,
		NextID:  nextID,
	}
}

func newEdgeSymmetry(holder, target nodeid.NodeId, path nodeid.Path) *Error {
	return &Error{
		Code:    CodeEdgeSymmetry,
		Message: fmt.Sprintf("no matching edge from %s back to %s to remove", target, holder),
		NodeID:  holder,
		Path:    path,
	}
}

func newConfigError(reason string) *Error {
	return &Error{Code: CodeConfiguration, Message: reason}
}
