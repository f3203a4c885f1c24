// ABOUTME: Product and version constants
// ABOUTME: Reported by the CLI --version flag and the startup log line
package version

import "fmt"

const (
	Version      = "0.3.0"
	Product      = "Alpipe Player"
	Manufacturer = "Resonate Protocol"
)

// String formats the product line shown by --version.
func String() string {
	return fmt.Sprintf("%s %s (%s)", Product, Version, Manufacturer)
}
