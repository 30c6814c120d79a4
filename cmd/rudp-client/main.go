// rudp-client is an interactive client for reliable UDP servers.
//
// Usage:
//
//	rudp-client connect <host:port> [options]
//	rudp-client discover [options]
//
// Options:
//
//	--config        YAML file with client settings
//	--tick          Tick interval (default: 10ms)
//	--log-level     disabled, error, warn, info, debug or trace (default: info)
//	--log-file      Rotating log file (default: stderr)
//	--max-attempts  Send attempts per reliable message (default: 5)
//
// Example:
//
//	rudp-client connect 192.168.1.20:7777 --log-level debug
//
// Each line read from stdin is sent as a reliable message. The client
// disconnects on EOF or SIGINT.
package main

import (
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}
