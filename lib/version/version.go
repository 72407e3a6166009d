package version

import "fmt"

const VERSION = "0.1.0"

// StoreVersion is bumped when the layout of the json store changes
const StoreVersion = 1

func PrintVersion() {
	fmt.Printf("Version: %s\nStore version: %d\n", VERSION, StoreVersion)
}
