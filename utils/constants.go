// File: utils/constants.go
package utils

import "time"

// TrackerSessionPrefix is the prefix used for Redis geofence session keys.
const TrackerSessionPrefix = "geofence:"

// TrackerSessionTTL is the time-to-live for geofence session entries. Each
// accepted sample refreshes it.
const TrackerSessionTTL = 24 * time.Hour
