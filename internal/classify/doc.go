// Package classify renders a scam verdict for a video using a
// vision-language model behind an OpenAI-compatible chat completions API.
//
// The model answers a Yes/No question over the sampled frames plus the
// extracted text evidence. Confidence is not taken from the model's prose:
// it is computed as the softmax over the Yes and No first-token logits, which
// calibrates the score against what the model actually considered. Responses
// whose first token offers neither Yes nor No are rejected as unparseable.
package classify
