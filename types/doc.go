// Package types provides core types shared across the studio orchestrator.
// This package has ZERO dependencies on other studio packages to avoid
// circular imports. All other packages should import types from here.
package types
