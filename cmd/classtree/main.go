// Command classtree builds classifier tree artifacts from the source CSV
// tables and inspects them.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
