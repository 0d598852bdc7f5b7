package prompt

// FallbackName is the template used when no other template matches.
const FallbackName = "zero_shot"

const llama2System = "You are a helpful, respectful and honest assistant. " +
	"Always answer as helpfully as possible, while being safe. " +
	"Your answers should not include any harmful, unethical, racist, sexist, toxic, dangerous, or illegal content. " +
	"Please ensure that your responses are socially unbiased and positive in nature.\n\n" +
	"If a question does not make any sense, or is not factually coherent, explain why instead of answering something not correct. " +
	"If you don't know the answer to a question, please don't share false information."

// Builtins returns the templates registered by NewRegistry, most specific
// first.
func Builtins() []*Conversation {
	return []*Conversation{
		{
			TemplateName: "vicuna_v1.1",
			Patterns:     []string{"vicuna"},
			Style:        StyleAddColonTwo,
			SystemMessage: "A chat between a curious user and an artificial intelligence assistant. " +
				"The assistant gives helpful, detailed, and polite answers to the user's questions.",
			RoleNames: []string{"USER", "ASSISTANT"},
			Sep:       " ",
			Sep2:      "</s>",
		},
		{
			TemplateName:   "llama-2",
			Patterns:       []string{"llama-2", "llama2"},
			Style:          StyleLlama2,
			SystemTemplate: "[INST] <<SYS>>\n" + systemPlaceholder + "\n<</SYS>>\n\n",
			SystemMessage:  llama2System,
			RoleNames:      []string{"[INST]", "[/INST]"},
			Sep:            " ",
			Sep2:           " </s><s>",
			StopStr:        []string{"</s>"},
		},
		{
			TemplateName:   "chatml",
			Patterns:       []string{"chatml", "qwen", "hermes"},
			Style:          StyleChatML,
			SystemTemplate: "<|im_start|>system\n" + systemPlaceholder,
			RoleNames:      []string{"<|im_start|>user", "<|im_start|>assistant"},
			Sep:            "<|im_end|>",
			StopStr:        []string{"<|im_end|>"},
		},
		{
			TemplateName:  "alpaca",
			Patterns:      []string{"alpaca"},
			Style:         StyleAddColonTwo,
			SystemMessage: "Below is an instruction that describes a task. Write a response that appropriately completes the request.",
			RoleNames:     []string{"### Instruction", "### Response"},
			Sep:           "\n\n",
			Sep2:          "</s>",
		},
		{
			TemplateName: FallbackName,
			Style:        StyleAddColonSingle,
			SystemMessage: "A chat between a curious human and an artificial intelligence assistant. " +
				"The assistant gives helpful, detailed, and polite answers to the human's questions.",
			RoleNames: []string{"Human", "Assistant"},
			Sep:       "\n### ",
			StopStr:   []string{"###"},
		},
	}
}
