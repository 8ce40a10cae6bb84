// Package version holds build version information.
package version

// Version is reported in the service banner.
const Version = "1.0"
