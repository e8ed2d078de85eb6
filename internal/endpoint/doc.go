// Package endpoint implements hysteresis-based speech endpointing: it
// consumes one speech/non-speech classification per fixed-size frame and
// produces SpeechStart/SpeechEnd events delimiting bounded utterances, while
// streaming the utterance samples into a caller-provided sink.
//
// The asymmetric thresholds avoid both premature cut-off on short pauses
// within an utterance (linger) and indefinite listening on trailing silence
// (end threshold).
package endpoint
