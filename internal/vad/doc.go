// Package vad provides frame-level speech/non-speech classification. The
// endpointer consumes one boolean per fixed-size PCM frame; how that boolean
// is produced is pluggable: an RMS energy classifier with no external
// dependencies, or the Silero VAD ONNX model.
package vad
