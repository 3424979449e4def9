// Package thirdparty contains naming shared by the third-party dependency
// bootstrap: each dependency lives in <root>/<name>-<version>, and a zero-byte
// StampFile inside that directory marks a completed pipeline.
package thirdparty

// StampFile is the name of the completion marker inside a dependency root.
const StampFile = ".stamp"

// DefaultConfigurations are the build configurations every dependency is
// compiled under unless the caller selects a subset.
var DefaultConfigurations = []string{"Debug", "Release"}
