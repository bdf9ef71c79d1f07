// Package display enumerates X11 monitors and grabs raw screen pixels for
// the capture loop. Monitor indexes are 1-based to match the configuration
// surface and the Xinerama ordering.
package display
