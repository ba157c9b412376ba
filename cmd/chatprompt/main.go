// Command chatprompt renders, inspects and validates YAML prompt manifests.
package main

import "os"

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
