// Command tenancy runs tenant-aware job workers and manages tenants, jobs
// and the dead letter queue of a tenancy store.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
