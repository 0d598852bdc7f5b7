// Package stream translates the engine's cumulative output snapshots into
// OpenAI streaming deltas.
//
// Each output index moves from Accumulating to Finished. Advance is a pure
// function from (state, snapshot) to (state, events): the delta text is the
// part of the cumulative text beyond what was already sent, logprobs are
// sliced by token count, and a finish reason produces one extra event with
// empty text. Translator owns the states of all n indices of a request and
// appends a single terminator once every index is finished. Chat streams
// open with one role announcement per index.
//
// Pump connects a session.Session, a Translator and a Sink, and cancels the
// session on every exit path.
package stream
