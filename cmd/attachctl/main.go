// Command attachctl runs the attachment validator against a request file
// without a server or database.
package main

import (
	"os"
)

func main() {
	if err := Execute(); err != nil {
		os.Exit(1)
	}
}
