// Package pdh binds the engine's counter abstraction to the Windows
// Performance Data Helper facility (pdh.dll). All files except the
// multi-string helpers are build-tagged for windows.
package pdh
