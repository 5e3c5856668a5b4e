// ABOUTME: Version and product identification
// ABOUTME: Version is overridden at build time with -ldflags -X
package version

import "fmt"

const (
	// Product is the application name
	Product = "zerohz"

	// Manufacturer identifies the publisher
	Manufacturer = "zerohz"
)

// Version of the build
var Version = "0.3.0"

// UserAgent is sent with every HTTP request
func UserAgent() string {
	return fmt.Sprintf("%s/%s", Product, Version)
}
