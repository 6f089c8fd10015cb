// Package loader registers all built-in cache drivers.
// Import for side effects:
//
//	_ "github.com/hrbotdev/hrbot/internal/cache/loader"
package loader

import (
	_ "github.com/hrbotdev/hrbot/internal/cache/memory"
)
