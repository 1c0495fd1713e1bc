// Command pgfluent inspects the PostgreSQL type registry used by pgfluent and
// runs queries through it.
package main

func main() {
	Execute()
}
