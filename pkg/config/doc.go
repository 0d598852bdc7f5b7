// Package config provides configuration management for the gateway.
//
// Configuration is read from a YAML file, completed with defaults,
// overridden from the environment and validated:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention VLLM_GATEWAY_SECTION_FIELD:
//
//   - VLLM_GATEWAY_SERVER_LISTEN_ADDRESS overrides server.listen_address
//   - VLLM_GATEWAY_MODEL_SERVED_NAME overrides model.served_name
//   - VLLM_GATEWAY_ENGINE_BASE_URL overrides engine.base_url
//   - VLLM_GATEWAY_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Precedence
//
//  1. Default values (defaults.go)
//  2. Values from the YAML file
//  3. Environment variable overrides
//  4. Validation, which reports every invalid field at once
//
// # Singleton
//
// The CLI calls Initialize once at startup and components read the result
// through GetConfig. Library code takes explicit values instead.
//
// # Example
//
//	server:
//	  listen_address: "0.0.0.0:8000"
//	model:
//	  served_name: "lmsys/vicuna-7b-v1.5"
//	engine:
//	  base_url: "http://127.0.0.1:8001"
//	audit:
//	  enabled: true
//	  backend: sqlite
package config
