// vllm-gateway serves an OpenAI-compatible HTTP API in front of a text
// generation engine.
//
// It accepts chat and text completion requests for a single served model,
// turns them into engine generation requests, and relays the engine's
// incremental output as JSON responses or server-sent event streams.
//
// Usage:
//
//	# Start the gateway with config.yaml from the working directory
//	vllm-gateway run
//
//	# Start with an explicit configuration and served model
//	vllm-gateway run --config /etc/vllm/gateway.yaml --served-model facebook/opt-125m
//
//	# Check a configuration file
//	vllm-gateway validate --config gateway.yaml
//
//	# Show the engine backlog
//	vllm-gateway queue
//
//	# Query the request audit log
//	vllm-gateway requests --since 1h --status error
package main

import "os"

func main() {
	os.Exit(Execute())
}
