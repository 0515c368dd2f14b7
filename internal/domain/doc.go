// Package domain defines the core types shared by the watchlog tools.
//
// Types in this package are value objects with no I/O: no HTTP, no CMS
// client, no filesystem. They are the shared language between the stats
// engine, the maintenance operations and the API handlers.
//
// Rules for this package:
//   - No imports from other internal/ packages
//   - No clients or context.Context in struct fields
//   - JSON tags are allowed (they're metadata, not behavior)
//   - Pure accessor and validation methods are allowed
//   - Constants and enums belong here
package domain
