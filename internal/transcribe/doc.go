// Package transcribe converts finished utterances of 16-bit mono PCM into
// text. Three interchangeable engines are provided: native (whisper.cpp CGO
// bindings, model loaded once in-process), exec (a whisper.cpp CLI binary fed
// WAV over stdin) and http (a remote transcription API speaking
// multipart/form-data).
package transcribe
