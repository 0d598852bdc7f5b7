// Package prompt builds the literal prompt string the engine consumes.
//
// Chat histories are rendered with a per-model conversation Template resolved
// from a Registry. The registry holds built-in templates for common model
// families and can load additional ones from YAML:
//
//	templates:
//	  - name: mistral-instruct
//	    patterns: ["mistral"]
//	    style: llama2
//	    system_template: "[INST] {system_message}\n"
//	    roles: ["[INST]", "[/INST]"]
//	    sep: " "
//	    sep2: "</s>"
//	    stop: ["</s>"]
//
// A Watcher reloads that file when it changes. Raw completion prompts bypass
// templates entirely (Assembler.Plain).
package prompt
