// Package audio provides the sample-level building blocks of the pipeline:
// format normalization (downmix, resampling, quantization), regrouping of
// arbitrary-sized chunks into fixed-size classification frames, a bounded
// single-producer/single-consumer ring buffer for the utterance hot path,
// and a PCM-16 WAV codec.
package audio
