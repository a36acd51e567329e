// Command qualctl runs qualification scoring, validation and refresh
// against the configured evidence store from a terminal.
package main

func main() {
	Execute()
}
