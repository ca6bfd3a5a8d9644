// pidctl is the operator CLI for the PID service: it derives handles, prints upstream payloads
// and mints PIDs directly against the configured Handle server.
package main

import "github.com/actris-cloudnet/pid-service/internal/cli"

func main() {
	cli.Execute()
}
