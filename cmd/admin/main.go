// Command attendance-admin runs maintenance tasks against the attendance
// database and blob storage.
package main

import "os"

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
